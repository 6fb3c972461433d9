package wallet_test

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/provider/providertest"
	"github.com/mrz1836/chainpay/internal/wallet"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

func connected(t *testing.T, chain *providertest.Chain) (*wallet.Manager, *wallet.Switcher) {
	t.Helper()
	m := newManager(t, chain)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	return m, wallet.NewSwitcher(m)
}

func TestSwitchNetwork_Known(t *testing.T) {
	t.Parallel()
	chain := providertest.New(network.Ethereum, alice).AddKnownChain(network.Polygon)
	m, sw := connected(t, chain)

	require.NoError(t, sw.SwitchNetwork(context.Background(), "0x89"))
	assert.Equal(t, uint64(network.Polygon), chain.ChainID())
	assert.Equal(t, uint64(network.Polygon), *m.Session().ChainID)
	assert.Equal(t, 0, chain.Count(provider.MethodAddChain))
}

func TestSwitchNetwork_AddsUnknownChain(t *testing.T) {
	t.Parallel()
	chain := providertest.New(network.Ethereum, alice)
	m, sw := connected(t, chain)

	require.NoError(t, sw.SwitchNetwork(context.Background(), "0x2105"))
	assert.Equal(t, uint64(network.Base), *m.Session().ChainID)

	var addReq *providertest.Request
	for _, r := range chain.Requests() {
		if r.Method == provider.MethodAddChain {
			addReq = &r
		}
	}
	require.NotNil(t, addReq)
	require.Len(t, addReq.Params, 1)

	raw, err := json.Marshal(addReq.Params[0])
	require.NoError(t, err)
	var params struct {
		ChainID        string   `json:"chainId"`
		ChainName      string   `json:"chainName"`
		RPCURLs        []string `json:"rpcUrls"`
		ExplorerURLs   []string `json:"blockExplorerUrls"`
		NativeCurrency struct {
			Name     string `json:"name"`
			Symbol   string `json:"symbol"`
			Decimals uint8  `json:"decimals"`
		} `json:"nativeCurrency"`
	}
	require.NoError(t, json.Unmarshal(raw, &params))

	desc, ok := network.Default().ByChainID(network.Base)
	require.True(t, ok)
	assert.Equal(t, "0x2105", params.ChainID)
	assert.Equal(t, desc.Name, params.ChainName)
	assert.Equal(t, []string{desc.RPCURL}, params.RPCURLs)
	assert.Equal(t, []string{desc.BlockExplorerURL}, params.ExplorerURLs)
	assert.Equal(t, desc.NativeCurrency.Symbol, params.NativeCurrency.Symbol)
	assert.Equal(t, uint8(18), params.NativeCurrency.Decimals)
}

func TestSwitchNetwork_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no wallet", func(t *testing.T) {
		t.Parallel()
		sw := wallet.NewSwitcher(newManager(t, nil))
		require.ErrorIs(t, sw.SwitchNetwork(context.Background(), "0x1"), payerr.ErrWalletNotFound)
	})

	t.Run("not in registry", func(t *testing.T) {
		t.Parallel()
		chain := providertest.New(network.Ethereum, alice)
		_, sw := connected(t, chain)
		require.ErrorIs(t, sw.SwitchNetwork(context.Background(), "0x3e7"), payerr.ErrUnsupportedNetwork)
		assert.Equal(t, 0, chain.Count(provider.MethodSwitchChain))
	})

	t.Run("user declines switch", func(t *testing.T) {
		t.Parallel()
		chain := providertest.New(network.Ethereum, alice).AddKnownChain(network.Polygon)
		chain.RejectNext(provider.MethodSwitchChain)
		m, sw := connected(t, chain)
		require.ErrorIs(t, sw.SwitchNetwork(context.Background(), "0x89"), payerr.ErrUserRejected)
		assert.Equal(t, uint64(network.Ethereum), *m.Session().ChainID)
	})

	t.Run("user declines add", func(t *testing.T) {
		t.Parallel()
		chain := providertest.New(network.Ethereum, alice)
		chain.RejectNext(provider.MethodAddChain)
		_, sw := connected(t, chain)
		require.ErrorIs(t, sw.SwitchNetwork(context.Background(), "0x89"), payerr.ErrUserRejected)
	})

	t.Run("other provider error", func(t *testing.T) {
		t.Parallel()
		chain := providertest.New(network.Ethereum, alice)
		chain.FailNext(provider.MethodSwitchChain, provider.NewError(provider.CodeInternal, "wallet busy"))
		_, sw := connected(t, chain)
		err := sw.SwitchNetwork(context.Background(), "0x89")
		require.ErrorIs(t, err, payerr.ErrUnsupportedNetwork)
		assert.Contains(t, err.Error(), "wallet busy")
		assert.Equal(t, 1, chain.Count(provider.MethodSwitchChain))
	})
}
