package erc20_test

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/provider/providertest"
)

var (
	owner   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender = common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdc    = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

func TestSelectors(t *testing.T) {
	t.Parallel()
	tests := map[string][]byte{
		"70a08231": erc20.PackBalanceOf(owner),
		"313ce567": erc20.PackDecimals(),
		"95d89b41": erc20.PackSymbol(),
		"dd62ed3e": erc20.PackAllowance(owner, spender),
		"a9059cbb": erc20.PackTransfer(spender, big.NewInt(1)),
		"095ea7b3": erc20.PackApprove(spender, big.NewInt(1)),
	}
	for selector, data := range tests {
		assert.Equal(t, selector, hex.EncodeToString(data[:4]))
	}
}

func TestPackTransfer_Layout(t *testing.T) {
	t.Parallel()
	data := erc20.PackTransfer(spender, big.NewInt(100_000_000))
	require.Len(t, data, 68)
	assert.Equal(t, spender.Bytes(), data[16:36])
	assert.Equal(t, 0, big.NewInt(100_000_000).Cmp(new(big.Int).SetBytes(data[36:68])))
}

func TestDecodeCall(t *testing.T) {
	t.Parallel()
	call, err := erc20.DecodeCall(erc20.PackApprove(spender, big.NewInt(42)))
	require.NoError(t, err)
	assert.Equal(t, erc20.MethodApprove, call.Method)
	assert.Equal(t, spender, call.Args[0])
	assert.Equal(t, int64(42), call.Args[1].(*big.Int).Int64())

	_, err = erc20.DecodeCall([]byte{0x01})
	require.ErrorIs(t, err, erc20.ErrDecode)

	_, err = erc20.DecodeCall([]byte{0xde, 0xad, 0xbe, 0xef})
	require.ErrorIs(t, err, erc20.ErrDecode)
}

func TestUnpack(t *testing.T) {
	t.Parallel()
	out, err := erc20.EncodeResult(erc20.MethodBalanceOf, big.NewInt(123))
	require.NoError(t, err)
	v, err := erc20.UnpackUint256(erc20.MethodBalanceOf, out)
	require.NoError(t, err)
	assert.Equal(t, int64(123), v.Int64())

	out, err = erc20.EncodeResult(erc20.MethodDecimals, uint8(6))
	require.NoError(t, err)
	d, err := erc20.UnpackDecimals(out)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)

	_, err = erc20.UnpackUint256(erc20.MethodBalanceOf, []byte{0x01})
	require.ErrorIs(t, err, erc20.ErrDecode)
}

func TestCaller(t *testing.T) {
	t.Parallel()
	chain := providertest.New(8453, owner)
	chain.AddToken(8453, usdc, 6, "USDC").
		SetBalance(owner, big.NewInt(2_500_000)).
		SetAllowance(owner, spender, big.NewInt(50_000_000))

	c := erc20.NewCaller(chain)
	ctx := context.Background()

	bal, err := c.BalanceOf(ctx, usdc, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), bal.Int64())

	allowance, err := c.Allowance(ctx, usdc, owner, spender)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000_000), allowance.Int64())

	dec, err := c.Decimals(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), dec)

	sym, err := c.Symbol(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, "USDC", sym)
}

func TestCaller_NoContract(t *testing.T) {
	t.Parallel()
	chain := providertest.New(1, owner)
	_, err := erc20.NewCaller(chain).BalanceOf(context.Background(), usdc, owner)
	require.ErrorIs(t, err, erc20.ErrNoContract)
}
