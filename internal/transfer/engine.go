// Package transfer submits ERC-20 approvals, token transfers and native
// payments through the connected wallet and waits for their confirmation.
package transfer

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/metrics"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/wallet"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Confirmation defaults.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultConfirmTimeout = 10 * time.Minute
)

// State is the engine's position in the approve/pay lifecycle.
type State string

// Engine states.
const (
	StateIdle              State = "idle"
	StateCheckingAllowance State = "checkingAllowance"
	StateApproving         State = "approving"
	StatePaying            State = "paying"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
)

// Intent describes a payment for approval checks.
type Intent struct {
	Owner     common.Address
	Recipient common.Address
	Amount    string
	Asset     chain.Asset
	Network   network.Descriptor
}

// Result describes a confirmed transaction.
type Result struct {
	Hash        string `json:"hash"`
	ExplorerURL string `json:"explorer_url"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// Recorder receives transaction metrics.
type Recorder interface {
	RecordTxSubmitted(kind string, chainID uint64)
	RecordTxConfirmed(kind string, success bool, wait time.Duration)
	RecordFailure(err error)
}

// Refresher is called after a confirmed payment to reload balances.
type Refresher func(ctx context.Context, account common.Address, desc network.Descriptor) error

type tokenKey struct {
	chainID uint64
	token   common.Address
}

type approvalKey struct {
	owner   common.Address
	spender common.Address
	chainID uint64
	token   common.Address
}

// Engine drives approvals and payments for one wallet session.
type Engine struct {
	wallet         *wallet.Manager
	log            LogWriter
	metrics        Recorder
	refresh        Refresher
	pollInterval   time.Duration
	confirmTimeout time.Duration

	mu        sync.Mutex
	state     State
	busy      bool
	decimals  map[tokenKey]uint8
	confirmed map[approvalKey]*big.Int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l LogWriter) Option {
	return func(e *Engine) { e.log = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithRefresher sets the post-payment balance hook.
func WithRefresher(r Refresher) Option {
	return func(e *Engine) { e.refresh = r }
}

// WithPollInterval sets how often receipts are polled.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithConfirmTimeout bounds the confirmation wait. Zero waits forever.
func WithConfirmTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.confirmTimeout = d
		}
	}
}

// NewEngine creates an Engine submitting through m's provider.
func NewEngine(m *wallet.Manager, opts ...Option) *Engine {
	e := &Engine{
		wallet:         m,
		log:            nopLog{},
		metrics:        metrics.Global,
		pollInterval:   DefaultPollInterval,
		confirmTimeout: DefaultConfirmTimeout,
		state:          StateIdle,
		decimals:       make(map[tokenKey]uint8),
		confirmed:      make(map[approvalKey]*big.Int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// begin claims the engine for one write. Only one approval or payment may
// be in flight at a time.
func (e *Engine) begin(s State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return payerr.WithDetails(payerr.ErrBusy, map[string]string{"state": string(e.state)})
	}
	e.busy = true
	e.state = s
	return nil
}

func (e *Engine) finish(err error) {
	e.mu.Lock()
	e.busy = false
	if err != nil {
		e.state = StateFailed
	} else {
		e.state = StateSucceeded
	}
	e.mu.Unlock()
	if err != nil {
		e.metrics.RecordFailure(err)
	}
}

func (e *Engine) tokens() *erc20.Caller {
	return erc20.NewCaller(e.wallet.Provider())
}

// account returns the connected account after checking the wallet is on
// desc's chain.
func (e *Engine) account(desc network.Descriptor) (common.Address, error) {
	if e.wallet.Provider() == nil {
		return common.Address{}, payerr.ErrWalletNotFound
	}
	s := e.wallet.Session()
	if !s.Connected || s.Account == nil {
		return common.Address{}, payerr.ErrNotConnected
	}
	if s.ChainID == nil || *s.ChainID != desc.ChainID {
		return common.Address{}, payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{
			"expected": desc.Name,
			"reason":   "wallet is on a different network",
		})
	}
	return *s.Account, nil
}

// TokenDecimals returns the token's declared decimals, cached per chain.
func (e *Engine) TokenDecimals(ctx context.Context, desc network.Descriptor) (uint8, error) {
	if !desc.HasUSDC() {
		return 0, payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{
			"network": desc.Name,
			"reason":  "USDC is not available on this network",
		})
	}
	key := tokenKey{chainID: desc.ChainID, token: *desc.USDCAddress}

	e.mu.Lock()
	d, ok := e.decimals[key]
	e.mu.Unlock()
	if ok {
		return d, nil
	}

	d, err := e.tokens().Decimals(ctx, key.token)
	if err != nil {
		return 0, payerr.Wrap(err, "reading USDC decimals on %s", desc.Name)
	}

	e.mu.Lock()
	e.decimals[key] = d
	e.mu.Unlock()
	return d, nil
}

// baseUnits converts a human amount to base units. Amounts must be positive.
func baseUnits(amount string, decimals int) (*big.Int, error) {
	v, err := chain.ParseDecimalAmount(amount, decimals, payerr.WithDetails(payerr.ErrInvalidAmount, map[string]string{
		"amount": amount,
	}))
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, payerr.WithDetails(payerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": "amount must be greater than zero",
		})
	}
	return v, nil
}

func (e *Engine) tokenUnits(ctx context.Context, amount string, desc network.Descriptor) (*big.Int, uint8, error) {
	decimals, err := e.TokenDecimals(ctx, desc)
	if err != nil {
		return nil, 0, err
	}
	v, err := baseUnits(amount, int(decimals))
	return v, decimals, err
}
