package wallet

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/metrics"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// defaultEventTimeout bounds the discovery run after a chain change.
const defaultEventTimeout = 30 * time.Second

// Manager owns the wallet session. Only the manager mutates it; readers
// get copies.
type Manager struct {
	provider provider.Provider
	registry *network.Registry
	log      LogWriter
	ops      OpRecorder
	timeout  time.Duration

	mu        sync.RWMutex
	session   Session
	subs      []provider.Subscription
	observers map[uint64]func(Session)
	nextObs   uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l LogWriter) Option {
	return func(m *Manager) { m.log = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r OpRecorder) Option {
	return func(m *Manager) { m.ops = r }
}

// WithEventTimeout bounds rediscovery after wallet events.
func WithEventTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates a Manager. A nil provider models a missing wallet:
// every operation that needs it fails with ErrWalletNotFound.
func NewManager(p provider.Provider, reg *network.Registry, opts ...Option) *Manager {
	if reg == nil {
		reg = network.Default()
	}
	m := &Manager{
		provider:  p,
		registry:  reg,
		log:       nopLog{},
		ops:       metrics.Global,
		timeout:   defaultEventTimeout,
		observers: make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provider returns the injected provider, or nil.
func (m *Manager) Provider() provider.Provider {
	return m.provider
}

// Registry returns the network registry.
func (m *Manager) Registry() *network.Registry {
	return m.registry
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.session)
}

// CurrentNetwork returns the descriptor for the wallet's chain.
// It reports false when disconnected or on a chain outside the registry.
func (m *Manager) CurrentNetwork() (network.Descriptor, bool) {
	s := m.Session()
	if !s.Connected || s.ChainID == nil {
		return network.Descriptor{}, false
	}
	return m.registry.ByChainID(*s.ChainID)
}

// Observe registers fn to run after every session change.
// The returned function removes the observer.
func (m *Manager) Observe(fn func(Session)) func() {
	m.mu.Lock()
	m.nextObs++
	id := m.nextObs
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Connect requests account access and starts a session.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	s, err := m.connect(ctx)
	m.ops.RecordWalletOp("connect", err)
	return s, err
}

func (m *Manager) connect(ctx context.Context) (Session, error) {
	if m.provider == nil {
		return Session{}, payerr.ErrWalletNotFound
	}

	accounts, err := m.requestAccounts(ctx, provider.MethodRequestAccounts)
	if err != nil {
		if provider.IsUserRejected(err) {
			return Session{}, payerr.WithCause(payerr.ErrUserRejected, err)
		}
		return Session{}, payerr.Wrap(err, "requesting accounts")
	}
	if len(accounts) == 0 {
		return Session{}, payerr.WithDetails(payerr.ErrUserRejected, map[string]string{
			"reason": "wallet returned no accounts",
		})
	}

	chainID, err := m.chainID(ctx)
	if err != nil {
		return Session{}, payerr.Wrap(err, "reading chain id")
	}

	m.mu.Lock()
	m.unsubscribeLocked()
	m.session = Session{Connected: true, Account: &accounts[0], ChainID: &chainID}
	m.subs = []provider.Subscription{
		m.provider.OnAccountsChanged(m.handleAccountsChanged),
		m.provider.OnChainChanged(m.handleChainChanged),
	}
	s := copySession(m.session)
	m.mu.Unlock()

	m.log.Debug("wallet connected: account=%s chain=%d", accounts[0].Hex(), chainID)
	m.notify(s)
	return s, nil
}

// Disconnect clears the session and drops wallet subscriptions.
// It is safe to call at any time.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	wasConnected := m.session.Connected
	m.unsubscribeLocked()
	m.session = Session{}
	m.mu.Unlock()

	if wasConnected {
		m.log.Debug("wallet disconnected")
	}
	m.notify(Session{})
}

func (m *Manager) unsubscribeLocked() {
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
	m.subs = nil
}

func (m *Manager) handleAccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		m.log.Debug("wallet reported no accounts, tearing down session")
		m.Disconnect()
		return
	}

	m.mu.Lock()
	if !m.session.Connected {
		m.mu.Unlock()
		return
	}
	account := accounts[0]
	m.session.Account = &account
	s := copySession(m.session)
	m.mu.Unlock()

	m.log.Debug("wallet account changed: %s", account.Hex())
	m.notify(s)
}

// handleChainChanged reruns discovery in place and treats the result as a
// fresh session.
func (m *Manager) handleChainChanged(chainIDHex string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.RLock()
	connected := m.session.Connected
	m.mu.RUnlock()
	if !connected {
		return
	}

	accounts, err := m.requestAccounts(ctx, provider.MethodAccounts)
	if err != nil {
		m.log.Error("rediscovering accounts after chain change: %v", err)
		accounts = nil
		if s := m.Session(); s.Account != nil {
			accounts = []common.Address{*s.Account}
		}
	}
	if len(accounts) == 0 {
		m.Disconnect()
		return
	}

	chainID, err := m.chainID(ctx)
	if err != nil {
		parsed, parseErr := network.ParseHex(chainIDHex)
		if parseErr != nil {
			m.log.Error("chain change with unreadable chain id %q: %v", chainIDHex, err)
			m.Disconnect()
			return
		}
		chainID = parsed
	}

	m.mu.Lock()
	if !m.session.Connected {
		m.mu.Unlock()
		return
	}
	m.session = Session{Connected: true, Account: &accounts[0], ChainID: &chainID}
	s := copySession(m.session)
	m.mu.Unlock()

	m.log.Debug("wallet chain changed: chain=%d", chainID)
	m.notify(s)
}

func (m *Manager) notify(s Session) {
	m.mu.RLock()
	ids := make([]uint64, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	fns := make([]func(Session), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, m.observers[id])
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(copySession(s))
	}
}

func (m *Manager) requestAccounts(ctx context.Context, method string) ([]common.Address, error) {
	raw, err := m.provider.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var accounts []common.Address
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, payerr.Wrap(err, "decoding %s", method)
	}
	return accounts, nil
}

func (m *Manager) chainID(ctx context.Context) (uint64, error) {
	raw, err := m.provider.Request(ctx, provider.MethodChainID)
	if err != nil {
		return 0, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, payerr.Wrap(err, "decoding chain id")
	}
	return network.ParseHex(hex)
}
