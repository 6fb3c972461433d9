package provider

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Emitter dispatches accountsChanged and chainChanged events.
// Handlers run synchronously in registration order.
type Emitter struct {
	mu       sync.Mutex
	nextID   uint64
	accounts []accountsHandler
	chains   []chainHandler
}

type accountsHandler struct {
	id uint64
	fn func([]common.Address)
}

type chainHandler struct {
	id uint64
	fn func(string)
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// OnAccountsChanged registers fn for account changes.
func (e *Emitter) OnAccountsChanged(fn func([]common.Address)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.accounts = append(e.accounts, accountsHandler{id: id, fn: fn})

	return &subscription{cancel: func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, h := range e.accounts {
			if h.id == id {
				e.accounts = append(e.accounts[:i:i], e.accounts[i+1:]...)
				return
			}
		}
	}}
}

// OnChainChanged registers fn for chain changes.
func (e *Emitter) OnChainChanged(fn func(string)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.chains = append(e.chains, chainHandler{id: id, fn: fn})

	return &subscription{cancel: func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, h := range e.chains {
			if h.id == id {
				e.chains = append(e.chains[:i:i], e.chains[i+1:]...)
				return
			}
		}
	}}
}

// EmitAccountsChanged notifies account handlers.
func (e *Emitter) EmitAccountsChanged(accounts []common.Address) {
	e.mu.Lock()
	handlers := make([]accountsHandler, len(e.accounts))
	copy(handlers, e.accounts)
	e.mu.Unlock()

	for _, h := range handlers {
		h.fn(accounts)
	}
}

// EmitChainChanged notifies chain handlers.
func (e *Emitter) EmitChainChanged(chainIDHex string) {
	e.mu.Lock()
	handlers := make([]chainHandler, len(e.chains))
	copy(handlers, e.chains)
	e.mu.Unlock()

	for _, h := range handlers {
		h.fn(chainIDHex)
	}
}
