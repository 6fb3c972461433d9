package payment

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mrz1836/chainpay/internal/balance"
	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/transfer"
	"github.com/mrz1836/chainpay/internal/wallet"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// DefaultAutoCloseDelay is how long a confirmed payment stays visible.
const DefaultAutoCloseDelay = 3 * time.Second

const eventTimeout = 30 * time.Second

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// ErrClosed is returned by operations on a closed payment flow.
var ErrClosed = &payerr.PayError{
	Code:     "PAYMENT_CLOSED",
	Message:  "payment flow is not open",
	ExitCode: payerr.ExitInput,
}

// Controller runs one payment flow at a time against a wallet session.
type Controller struct {
	wallet    *wallet.Manager
	switcher  *wallet.Switcher
	oracle    *balance.Oracle
	engine    *transfer.Engine
	log       LogWriter
	validate  *validator.Validate
	autoClose time.Duration

	mu         sync.Mutex
	open       bool
	closed     bool
	req        Request
	intent     Intent
	approving  bool
	paying     bool
	loading    int
	err        error
	explorer   string
	closeTimer *time.Timer
	unobserve  func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l LogWriter) Option {
	return func(c *Controller) { c.log = l }
}

// WithAutoCloseDelay sets how long the flow stays open after a confirmed
// payment. Zero closes it immediately.
func WithAutoCloseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.autoClose = d
		}
	}
}

// NewController creates a Controller.
func NewController(m *wallet.Manager, oracle *balance.Oracle, engine *transfer.Engine, opts ...Option) *Controller {
	c := &Controller{
		wallet:    m,
		switcher:  wallet.NewSwitcher(m),
		oracle:    oracle,
		engine:    engine,
		log:       nopLog{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		autoClose: DefaultAutoCloseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a payment flow for req, replacing any flow already open.
// The network defaults to the wallet's current one and the amount is
// pre-filled from the request.
func (c *Controller) Open(ctx context.Context, req Request) error {
	if err := validate(c.validate, req); err != nil {
		return err
	}

	c.Close()

	asset := chain.ParseAsset(req.Currency)
	c.mu.Lock()
	c.open = true
	c.closed = false
	c.req = req
	c.err = nil
	c.explorer = ""
	c.intent = Intent{Asset: asset, Amount: req.Amount, Status: StatusIdle}
	c.mu.Unlock()

	unobserve := c.wallet.Observe(func(wallet.Session) {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		c.reconcile(ctx)
	})
	c.mu.Lock()
	c.unobserve = unobserve
	c.mu.Unlock()

	c.log.Debug("payment opened for contract %s: %s %s", req.ContractID, req.Amount, asset)
	c.reconcile(ctx)
	return nil
}

// Close discards the intent and stops following the wallet.
// It is safe to call at any time.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}
	unobserve := c.unobserve
	c.unobserve = nil
	wasOpen := c.open
	c.open = false
	c.closed = wasOpen || c.closed
	c.intent = Intent{}
	c.req = Request{}
	c.approving, c.paying, c.loading = false, false, 0
	c.mu.Unlock()

	if unobserve != nil {
		unobserve()
	}
}

// SelectNetwork targets chainID, asking the wallet to switch when it is
// on a different chain.
func (c *Controller) SelectNetwork(ctx context.Context, chainID uint64) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	desc, ok := c.wallet.Registry().ByChainID(chainID)
	if !ok {
		return c.fail(payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{
			"chain_id": network.ToHex(chainID),
		}))
	}

	s := c.wallet.Session()
	if s.ChainID == nil || *s.ChainID != chainID {
		c.setLoading(true)
		err := c.switcher.SwitchNetwork(ctx, desc.ChainIDHex)
		c.setLoading(false)
		if err != nil {
			return c.fail(err)
		}
	}

	c.reconcile(ctx)
	return nil
}

// SelectAsset switches between the native currency and USDC.
func (c *Controller) SelectAsset(ctx context.Context, asset chain.Asset) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if !asset.IsValid() {
		return c.fail(payerr.WithDetails(payerr.ErrInvalidInput, map[string]string{"asset": string(asset)}))
	}

	c.mu.Lock()
	desc := c.intent.Network
	c.mu.Unlock()
	if asset == chain.AssetUSDC && (desc == nil || !desc.HasUSDC()) {
		return c.fail(payerr.WithSuggestion(payerr.ErrUnsupportedNetwork, "USDC is not available on this network"))
	}

	c.mu.Lock()
	c.intent.Asset = asset
	c.mu.Unlock()
	c.deriveApproval(ctx)
	return nil
}

// SetAmount replaces the amount. Invalid input is reported in the error
// slot and blocks payment until corrected.
func (c *Controller) SetAmount(ctx context.Context, amount string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	c.intent.Amount = amount
	c.mu.Unlock()

	if _, err := parseAmount(amount); err != nil {
		c.mu.Lock()
		c.intent.NeedsApproval = false
		c.mu.Unlock()
		return c.fail(err)
	}
	c.clearError()
	c.deriveApproval(ctx)
	return nil
}

// Approve submits the exact-amount USDC approval for the recipient.
func (c *Controller) Approve(ctx context.Context) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if err := c.claim(StatusApproving); err != nil {
		return err
	}

	chk, err := c.preflight(false)
	if err == nil && c.currentAsset() != chain.AssetUSDC {
		err = payerr.WithDetails(payerr.ErrInvalidInput, map[string]string{"reason": "approval applies to USDC payments only"})
	}
	if err != nil {
		c.release(StatusFailed, err)
		return err
	}

	if _, err = c.engine.Approve(ctx, chk.recipient, chk.amount, chk.desc); err != nil {
		c.release(StatusFailed, err)
		return err
	}

	c.release(StatusIdle, nil)
	c.deriveApproval(ctx)
	return nil
}

// Pay runs the pre-flight checks and submits the payment. Every attempt
// re-runs the checks.
func (c *Controller) Pay(ctx context.Context) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if err := c.claim(StatusPaying); err != nil {
		return err
	}

	chk, err := c.preflight(true)
	if err == nil && c.currentAsset() == chain.AssetUSDC {
		var needs bool
		needs, err = c.engine.NeedsApproval(ctx, transfer.Intent{
			Owner:     chk.account,
			Recipient: chk.recipient,
			Amount:    chk.amount,
			Asset:     chain.AssetUSDC,
			Network:   chk.desc,
		})
		if err == nil && needs {
			c.mu.Lock()
			c.intent.NeedsApproval = true
			c.mu.Unlock()
			err = payerr.ErrApprovalRequired
		}
	}
	if err != nil {
		c.release(StatusFailed, err)
		return err
	}

	var res transfer.Result
	if c.currentAsset() == chain.AssetUSDC {
		res, err = c.engine.PayToken(ctx, chk.recipient, chk.amount, chk.desc)
	} else {
		res, err = c.engine.PayNative(ctx, chk.recipient, chk.amount, chk.desc)
	}
	if err != nil {
		c.release(StatusFailed, err)
		return err
	}

	c.mu.Lock()
	c.intent.TxHash = res.Hash
	c.explorer = res.ExplorerURL
	callback := c.req.OnPaymentSuccess
	c.mu.Unlock()
	c.release(StatusSucceeded, nil)
	c.refreshBalances(ctx)

	c.log.Debug("payment confirmed: %s", res.Hash)
	if callback != nil {
		callback(res.Hash)
	}
	c.scheduleClose()
	return nil
}

func (c *Controller) scheduleClose() {
	if c.autoClose == 0 {
		c.Close()
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.closeTimer = time.AfterFunc(c.autoClose, c.Close)
}

// checked holds the inputs a submission was cleared with.
type checked struct {
	account   common.Address
	desc      network.Descriptor
	recipient common.Address
	amount    string
}

// preflight checks everything a submission needs. withBalance adds the
// balance check used by Pay.
func (c *Controller) preflight(withBalance bool) (checked, error) {
	if c.wallet.Provider() == nil {
		return checked{}, payerr.ErrWalletNotFound
	}
	s := c.wallet.Session()
	if !s.Connected || s.Account == nil {
		return checked{}, payerr.ErrNotConnected
	}

	c.mu.Lock()
	intent := c.intent
	c.mu.Unlock()

	if intent.Network == nil || s.ChainID == nil || *s.ChainID != intent.Network.ChainID {
		return checked{}, payerr.ErrUnsupportedNetwork
	}
	if chain.IsZeroAddress(intent.Recipient) {
		return checked{}, payerr.WithDetails(payerr.ErrMisconfiguredRecipient, map[string]string{
			"network": intent.Network.Name,
		})
	}
	if _, err := parseAmount(intent.Amount); err != nil {
		return checked{}, err
	}
	if withBalance && c.insufficient(intent) {
		return checked{}, payerr.WithDetails(payerr.ErrInsufficientBalance, map[string]string{
			"required": intent.Amount,
		})
	}
	return checked{
		account:   *s.Account,
		desc:      *intent.Network,
		recipient: *intent.Recipient,
		amount:    intent.Amount,
	}, nil
}

// insufficient compares the amount with the cached balance of the asset.
// Without a snapshot the engine's own balance check decides.
func (c *Controller) insufficient(intent Intent) bool {
	amount, err := parseAmount(intent.Amount)
	if err != nil || c.oracle == nil {
		return false
	}
	snap, ok := c.oracle.Snapshot()
	if !ok || intent.Network == nil || snap.ChainID != intent.Network.ChainID {
		return false
	}
	have := snap.Native
	if intent.Asset == chain.AssetUSDC {
		have = snap.USDC
	}
	bal, err := decimal.NewFromString(have)
	if err != nil {
		return false
	}
	return bal.LessThan(amount)
}

// reconcile re-reads the wallet's network, recipient, balances and
// approval state.
func (c *Controller) reconcile(ctx context.Context) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	var current *network.Descriptor
	if desc, ok := c.wallet.CurrentNetwork(); ok {
		current = &desc
	}

	c.mu.Lock()
	c.intent.Network = current
	c.intent.Recipient = resolveRecipient(c.req.RecipientAddress, current)
	if current != nil && !current.HasUSDC() && c.intent.Asset == chain.AssetUSDC {
		c.intent.Asset = chain.AssetNative
	}
	c.mu.Unlock()

	c.refreshBalances(ctx)
	c.deriveApproval(ctx)
}

func (c *Controller) refreshBalances(ctx context.Context) {
	if c.oracle == nil {
		return
	}
	s := c.wallet.Session()
	desc, ok := c.wallet.CurrentNetwork()
	if !s.Connected || s.Account == nil || !ok {
		c.oracle.Clear()
		return
	}

	c.setLoading(true)
	defer c.setLoading(false)
	if _, err := c.oracle.Refresh(ctx, *s.Account, desc); err != nil {
		c.log.Error("refreshing balances: %v", err)
		c.fail(err)
	}
}

// deriveApproval recomputes NeedsApproval for the current intent.
func (c *Controller) deriveApproval(ctx context.Context) {
	s := c.wallet.Session()
	c.mu.Lock()
	intent := c.intent
	c.mu.Unlock()

	needs := false
	if intent.Asset == chain.AssetUSDC && s.Connected && s.Account != nil &&
		intent.Network != nil && intent.Network.HasUSDC() && intent.Recipient != nil {
		c.setLoading(true)
		var err error
		needs, err = c.engine.NeedsApproval(ctx, transfer.Intent{
			Owner:     *s.Account,
			Recipient: *intent.Recipient,
			Amount:    intent.Amount,
			Asset:     chain.AssetUSDC,
			Network:   *intent.Network,
		})
		c.setLoading(false)
		if err != nil {
			c.log.Debug("approval check: %v", err)
			needs = false
		}
	}

	c.mu.Lock()
	c.intent.NeedsApproval = needs
	c.mu.Unlock()
}

func (c *Controller) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	return nil
}

// claim marks an action in flight. A second submission while one is
// pending is refused.
func (c *Controller) claim(status Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approving || c.paying {
		return payerr.ErrBusy
	}
	if c.intent.Status == StatusSucceeded {
		return payerr.WithDetails(payerr.ErrBusy, map[string]string{"reason": "payment already confirmed"})
	}
	c.approving = status == StatusApproving
	c.paying = status == StatusPaying
	c.intent.Status = status
	return nil
}

func (c *Controller) release(status Status, err error) {
	c.mu.Lock()
	c.approving, c.paying = false, false
	if c.open {
		c.intent.Status = status
		if err != nil {
			c.err = err
		} else {
			c.err = nil
		}
	}
	c.mu.Unlock()
	if err != nil {
		c.log.Error("payment action failed: %v", err)
	}
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	if c.open {
		c.err = err
	}
	c.mu.Unlock()
	return err
}

func (c *Controller) clearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

func (c *Controller) setLoading(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.loading++
	} else if c.loading > 0 {
		c.loading--
	}
}

func (c *Controller) currentAsset() chain.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent.Asset
}
