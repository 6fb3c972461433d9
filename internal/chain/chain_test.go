package chain_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/chain"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

const usdcMainnet = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

func TestParseAsset(t *testing.T) {
	t.Parallel()
	assert.Equal(t, chain.AssetUSDC, chain.ParseAsset("USDC"))
	assert.Equal(t, chain.AssetUSDC, chain.ParseAsset(" usdc "))
	assert.Equal(t, chain.AssetNative, chain.ParseAsset("ETH"))
	assert.Equal(t, chain.AssetNative, chain.ParseAsset(""))
	assert.True(t, chain.AssetNative.IsValid())
	assert.False(t, chain.Asset("dai").IsValid())
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	t.Run("checksummed", func(t *testing.T) {
		t.Parallel()
		addr, err := chain.ParseAddress(usdcMainnet)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(usdcMainnet), addr)
	})

	t.Run("lowercase accepted", func(t *testing.T) {
		t.Parallel()
		_, err := chain.ParseAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
		require.NoError(t, err)
	})

	t.Run("bad checksum", func(t *testing.T) {
		t.Parallel()
		_, err := chain.ParseAddress("0xa0B86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
		require.ErrorIs(t, err, payerr.ErrInvalidAddress)
	})

	t.Run("missing prefix", func(t *testing.T) {
		t.Parallel()
		_, err := chain.ParseAddress("a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
		require.ErrorIs(t, err, payerr.ErrInvalidAddress)
	})

	t.Run("too short", func(t *testing.T) {
		t.Parallel()
		_, err := chain.ParseAddress("0x1234")
		require.ErrorIs(t, err, payerr.ErrInvalidAddress)
	})
}

func TestOptionalAddress(t *testing.T) {
	t.Parallel()

	addr, err := chain.OptionalAddress("")
	require.NoError(t, err)
	assert.Nil(t, addr)

	addr, err = chain.OptionalAddress("0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Nil(t, addr, "zero address means not configured")

	addr, err = chain.OptionalAddress(usdcMainnet)
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, usdcMainnet, addr.Hex())

	_, err = chain.OptionalAddress("0xnothex")
	require.Error(t, err)
}

func TestIsZeroAddress(t *testing.T) {
	t.Parallel()
	zero := common.Address{}
	some := common.HexToAddress(usdcMainnet)
	assert.True(t, chain.IsZeroAddress(nil))
	assert.True(t, chain.IsZeroAddress(&zero))
	assert.False(t, chain.IsZeroAddress(&some))
}
