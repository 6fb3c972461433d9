// Package balance reads and caches the connected account's native and
// USDC balances for the active network.
package balance

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/wallet"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

const defaultRefreshTimeout = 30 * time.Second

// Snapshot holds the balances last read for an (account, chain) pair.
// Amounts are human decimal strings.
type Snapshot struct {
	Account      common.Address
	ChainID      uint64
	Native       string
	USDC         string
	USDCDecimals int
	HasUSDC      bool
	FetchedAt    time.Time
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// Oracle fetches balances through a wallet provider.
type Oracle struct {
	provider provider.Provider
	tokens   *erc20.Caller
	log      LogWriter
	now      func() time.Time
	timeout  time.Duration

	mu       sync.RWMutex
	snapshot *Snapshot
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithLogger sets the logger.
func WithLogger(l LogWriter) Option {
	return func(o *Oracle) { o.log = l }
}

// WithClock overrides the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// WithRefreshTimeout bounds refreshes triggered by session changes.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *Oracle) { o.timeout = d }
}

// NewOracle creates an Oracle reading through p.
func NewOracle(p provider.Provider, opts ...Option) *Oracle {
	o := &Oracle{
		provider: p,
		tokens:   erc20.NewCaller(p),
		log:      nopLog{},
		now:      time.Now,
		timeout:  defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns the cached balances, if any.
func (o *Oracle) Snapshot() (Snapshot, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.snapshot == nil {
		return Snapshot{}, false
	}
	return *o.snapshot, true
}

// Clear drops the cached balances.
func (o *Oracle) Clear() {
	o.mu.Lock()
	o.snapshot = nil
	o.mu.Unlock()
}

// Refresh reads account's balances on desc's chain and caches them.
// A native balance failure is returned. A USDC failure is logged and the
// previous USDC value for the same account and chain is kept, or "0".
func (o *Oracle) Refresh(ctx context.Context, account common.Address, desc network.Descriptor) (Snapshot, error) {
	if o.provider == nil {
		return Snapshot{}, payerr.ErrWalletNotFound
	}

	native, err := o.nativeBalance(ctx, account)
	if err != nil {
		return Snapshot{}, payerr.Wrap(err, "reading %s balance on %s", desc.NativeCurrency.Symbol, desc.Name)
	}

	snap := Snapshot{
		Account: account,
		ChainID: desc.ChainID,
		Native:  chain.FormatDecimalAmount(native, int(desc.NativeCurrency.Decimals)),
		USDC:    "0",
		HasUSDC: desc.HasUSDC(),
	}

	if snap.HasUSDC {
		prev, ok := o.Snapshot()
		if ok && prev.Account == account && prev.ChainID == desc.ChainID {
			snap.USDC = prev.USDC
			snap.USDCDecimals = prev.USDCDecimals
		}
		amount, decimals, err := o.usdcBalance(ctx, *desc.USDCAddress, account)
		if err != nil {
			o.log.Error("reading USDC balance on %s: %v", desc.Name, err)
		} else {
			snap.USDC = amount
			snap.USDCDecimals = decimals
		}
	}

	snap.FetchedAt = o.now()
	o.mu.Lock()
	o.snapshot = &snap
	o.mu.Unlock()

	o.log.Debug("balances on %s for %s: native=%s usdc=%s", desc.Name, account.Hex(), snap.Native, snap.USDC)
	return snap, nil
}

func (o *Oracle) nativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	raw, err := o.provider.Request(ctx, provider.MethodGetBalance, account, "latest")
	if err != nil {
		return nil, err
	}
	var wei hexutil.Big
	if err := json.Unmarshal(raw, &wei); err != nil {
		return nil, payerr.Wrap(err, "decoding balance")
	}
	return wei.ToInt(), nil
}

func (o *Oracle) usdcBalance(ctx context.Context, token, account common.Address) (string, int, error) {
	decimals, err := o.tokens.Decimals(ctx, token)
	if err != nil {
		return "", 0, err
	}
	units, err := o.tokens.BalanceOf(ctx, token, account)
	if err != nil {
		return "", 0, err
	}
	return chain.FormatDecimalAmount(units, int(decimals)), int(decimals), nil
}

// Watch keeps the cache in step with m's session: it refreshes when the
// wallet is connected to a known network and clears otherwise.
// The returned function stops watching.
func (o *Oracle) Watch(m *wallet.Manager) func() {
	return m.Observe(func(s wallet.Session) {
		if !s.Connected || s.Account == nil || s.ChainID == nil {
			o.Clear()
			return
		}
		desc, ok := m.Registry().ByChainID(*s.ChainID)
		if !ok {
			o.Clear()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if _, err := o.Refresh(ctx, *s.Account, desc); err != nil {
			o.log.Error("refreshing balances after session change: %v", err)
			o.Clear()
		}
	})
}
