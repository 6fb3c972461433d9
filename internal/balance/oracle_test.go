package balance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/balance"
	"github.com/mrz1836/chainpay/internal/metrics"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/provider/providertest"
	"github.com/mrz1836/chainpay/internal/wallet"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

var (
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	errDown = errors.New("node down")
	fixed   = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

func descriptor(t *testing.T, id uint64) network.Descriptor {
	t.Helper()
	desc, ok := network.Default().ByChainID(id)
	require.True(t, ok)
	return desc
}

func polygonChain(t *testing.T) (*providertest.Chain, network.Descriptor) {
	t.Helper()
	desc := descriptor(t, network.Polygon)
	chain := providertest.New(network.Polygon, alice)
	chain.SetNative(network.Polygon, alice, providertest.Ether(3))
	chain.AddToken(network.Polygon, *desc.USDCAddress, 6, "USDC").
		SetBalance(alice, providertest.Units(250, 6))
	return chain, desc
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	chain, desc := polygonChain(t)
	o := balance.NewOracle(chain, balance.WithClock(func() time.Time { return fixed }))

	snap, err := o.Refresh(context.Background(), alice, desc)
	require.NoError(t, err)
	assert.Equal(t, alice, snap.Account)
	assert.Equal(t, uint64(network.Polygon), snap.ChainID)
	assert.Equal(t, "3", snap.Native)
	assert.True(t, snap.HasUSDC)
	assert.Equal(t, "250", snap.USDC)
	assert.Equal(t, 6, snap.USDCDecimals)
	assert.Equal(t, fixed, snap.FetchedAt)

	cached, ok := o.Snapshot()
	require.True(t, ok)
	assert.Equal(t, snap, cached)
}

func TestRefresh_NoUSDC(t *testing.T) {
	t.Parallel()
	desc := descriptor(t, network.Polygon)
	desc.USDCAddress = nil
	chain := providertest.New(network.Polygon, alice)
	o := balance.NewOracle(chain)

	snap, err := o.Refresh(context.Background(), alice, desc)
	require.NoError(t, err)
	assert.False(t, snap.HasUSDC)
	assert.Equal(t, "0", snap.USDC)
	assert.Equal(t, "0", snap.Native)
	assert.Equal(t, 0, chain.Count(provider.MethodCall))
}

func TestRefresh_USDCFailureKeepsPrevious(t *testing.T) {
	t.Parallel()
	chain, desc := polygonChain(t)
	o := balance.NewOracle(chain)

	_, err := o.Refresh(context.Background(), alice, desc)
	require.NoError(t, err)

	chain.FailNext(provider.MethodCall, errDown)
	snap, err := o.Refresh(context.Background(), alice, desc)
	require.NoError(t, err)
	assert.Equal(t, "250", snap.USDC)
	assert.Equal(t, "3", snap.Native)
}

func TestRefresh_USDCFailureDefaultsToZero(t *testing.T) {
	t.Parallel()
	desc := descriptor(t, network.Polygon)
	chain := providertest.New(network.Polygon, alice)
	chain.SetNative(network.Polygon, alice, providertest.Ether(1))
	o := balance.NewOracle(chain)

	// No contract is deployed at the USDC address on this fake chain.
	snap, err := o.Refresh(context.Background(), alice, desc)
	require.NoError(t, err)
	assert.True(t, snap.HasUSDC)
	assert.Equal(t, "0", snap.USDC)
}

func TestRefresh_NativeFailure(t *testing.T) {
	t.Parallel()
	chain, desc := polygonChain(t)
	chain.FailNext(provider.MethodGetBalance, errDown)
	o := balance.NewOracle(chain)

	_, err := o.Refresh(context.Background(), alice, desc)
	require.ErrorIs(t, err, errDown)
	_, ok := o.Snapshot()
	assert.False(t, ok)
}

func TestRefresh_NoWallet(t *testing.T) {
	t.Parallel()
	o := balance.NewOracle(nil)
	_, err := o.Refresh(context.Background(), alice, descriptor(t, network.Ethereum))
	require.ErrorIs(t, err, payerr.ErrWalletNotFound)
}

func TestClear(t *testing.T) {
	t.Parallel()
	chain, desc := polygonChain(t)
	o := balance.NewOracle(chain)
	_, err := o.Refresh(context.Background(), alice, desc)
	require.NoError(t, err)

	o.Clear()
	_, ok := o.Snapshot()
	assert.False(t, ok)
}

func TestWatch(t *testing.T) {
	t.Parallel()
	chain, _ := polygonChain(t)
	chain.SetNative(network.Ethereum, alice, providertest.Ether(7))
	m := wallet.NewManager(chain, network.Default(), wallet.WithRecorder(metrics.New()))
	o := balance.NewOracle(chain)
	stop := o.Watch(m)
	defer stop()

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	snap, ok := o.Snapshot()
	require.True(t, ok)
	assert.Equal(t, uint64(network.Polygon), snap.ChainID)
	assert.Equal(t, "250", snap.USDC)

	chain.SwitchExternally(network.Ethereum)
	snap, ok = o.Snapshot()
	require.True(t, ok)
	assert.Equal(t, uint64(network.Ethereum), snap.ChainID)
	assert.Equal(t, "7", snap.Native)
	assert.Equal(t, "0", snap.USDC)

	chain.SwitchExternally(999)
	_, ok = o.Snapshot()
	assert.False(t, ok)

	chain.SwitchExternally(network.Polygon)
	_, ok = o.Snapshot()
	require.True(t, ok)

	m.Disconnect()
	_, ok = o.Snapshot()
	assert.False(t, ok)
}
