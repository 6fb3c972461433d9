package erc20

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/rpc"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// ErrNoContract indicates eth_call returned no data, which is what an
// address without code answers.
var ErrNoContract = &payerr.PayError{
	Code:     "NO_CONTRACT",
	Message:  "no token contract at address",
	ExitCode: payerr.ExitNotFound,
}

// Caller performs read-only ERC-20 calls through a wallet provider.
type Caller struct {
	p provider.Provider
}

// NewCaller creates a Caller.
func NewCaller(p provider.Provider) *Caller {
	return &Caller{p: p}
}

func (c *Caller) call(ctx context.Context, token common.Address, data []byte) ([]byte, error) {
	raw, err := c.p.Request(ctx, provider.MethodCall, rpc.CallMsg{To: &token, Data: data}, "latest")
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, payerr.WithCause(ErrDecode, err)
	}
	if len(out) == 0 {
		return nil, payerr.WithDetails(ErrNoContract, map[string]string{"token": token.Hex()})
	}
	return out, nil
}

// BalanceOf returns owner's token balance in base units.
func (c *Caller) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, PackBalanceOf(owner))
	if err != nil {
		return nil, err
	}
	return UnpackUint256(MethodBalanceOf, out)
}

// Allowance returns how much spender may move on owner's behalf.
func (c *Caller) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, PackAllowance(owner, spender))
	if err != nil {
		return nil, err
	}
	return UnpackUint256(MethodAllowance, out)
}

// Decimals returns the token's declared precision.
func (c *Caller) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, PackDecimals())
	if err != nil {
		return 0, err
	}
	return UnpackDecimals(out)
}

// Symbol returns the token's ticker.
func (c *Caller) Symbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, PackSymbol())
	if err != nil {
		return "", err
	}
	return UnpackSymbol(out)
}
