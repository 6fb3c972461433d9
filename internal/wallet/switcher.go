package wallet

import (
	"context"

	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Switcher asks the wallet to change its active chain.
// The session follows through the wallet's chainChanged event, never
// through the switch call itself.
type Switcher struct {
	manager *Manager
}

// NewSwitcher creates a Switcher bound to m's provider and registry.
func NewSwitcher(m *Manager) *Switcher {
	return &Switcher{manager: m}
}

// SwitchNetwork switches the wallet to targetChainIDHex, registering the
// chain with the wallet first when the wallet does not know it.
func (s *Switcher) SwitchNetwork(ctx context.Context, targetChainIDHex string) error {
	err := s.switchNetwork(ctx, targetChainIDHex)
	s.manager.ops.RecordWalletOp("switch", err)
	return err
}

func (s *Switcher) switchNetwork(ctx context.Context, targetChainIDHex string) error {
	p := s.manager.Provider()
	if p == nil {
		return payerr.ErrWalletNotFound
	}

	desc, ok := s.manager.Registry().ByHex(targetChainIDHex)
	if !ok {
		return payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{
			"chain_id": targetChainIDHex,
		})
	}

	_, err := p.Request(ctx, provider.MethodSwitchChain, provider.SwitchChainParams{ChainID: desc.ChainIDHex})
	if code, ok := provider.ErrorCode(err); ok && code == provider.CodeUnrecognizedChain {
		s.manager.log.Debug("wallet does not know chain %s, adding %s", desc.ChainIDHex, desc.Name)
		_, err = p.Request(ctx, provider.MethodAddChain, desc.AddChainParams())
	}
	return switchErr(desc, err)
}

func switchErr(desc network.Descriptor, err error) error {
	if err == nil {
		return nil
	}
	if provider.IsUserRejected(err) {
		return payerr.WithCause(payerr.ErrUserRejected, err)
	}
	return payerr.WithDetails(payerr.WithCause(payerr.ErrUnsupportedNetwork, err), map[string]string{
		"chain_id": desc.ChainIDHex,
		"network":  desc.Name,
	})
}
