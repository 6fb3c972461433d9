// Package erc20 encodes and decodes the ERC-20 calls the payment flow uses.
//
// Function selectors:
//
//	symbol()            → 0x95d89b41
//	decimals()          → 0x313ce567
//	balanceOf(address)  → 0x70a08231
//	allowance(a,a)      → 0xdd62ed3e
//	transfer(a,u256)    → 0xa9059cbb
//	approve(a,u256)     → 0x095ea7b3
package erc20

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

const abiJSON = `[
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// Method names.
const (
	MethodSymbol    = "symbol"
	MethodDecimals  = "decimals"
	MethodBalanceOf = "balanceOf"
	MethodAllowance = "allowance"
	MethodTransfer  = "transfer"
	MethodApprove   = "approve"
)

// ErrDecode indicates a contract returned data that does not match the ABI.
var ErrDecode = &payerr.PayError{
	Code:     "ERC20_DECODE_FAILED",
	Message:  "unexpected ERC-20 return data",
	ExitCode: payerr.ExitGeneral,
}

//nolint:gochecknoglobals // Parsed once from a constant
var parsed = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	return a
}()

// ABI returns the parsed ERC-20 subset.
func ABI() abi.ABI {
	return parsed
}

func pack(method string, args ...any) []byte {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		// Arguments are typed by the exported builders.
		panic(fmt.Sprintf("erc20: packing %s: %v", method, err))
	}
	return data
}

// PackSymbol encodes symbol().
func PackSymbol() []byte { return pack(MethodSymbol) }

// PackDecimals encodes decimals().
func PackDecimals() []byte { return pack(MethodDecimals) }

// PackBalanceOf encodes balanceOf(owner).
func PackBalanceOf(owner common.Address) []byte { return pack(MethodBalanceOf, owner) }

// PackAllowance encodes allowance(owner, spender).
func PackAllowance(owner, spender common.Address) []byte {
	return pack(MethodAllowance, owner, spender)
}

// PackTransfer encodes transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) []byte {
	return pack(MethodTransfer, to, amount)
}

// PackApprove encodes approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) []byte {
	return pack(MethodApprove, spender, amount)
}

// UnpackUint256 decodes a balanceOf or allowance result.
func UnpackUint256(method string, data []byte) (*big.Int, error) {
	out, err := parsed.Unpack(method, data)
	if err != nil || len(out) != 1 {
		return nil, decodeErr(method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, decodeErr(method, nil)
	}
	return v, nil
}

// UnpackDecimals decodes a decimals() result.
func UnpackDecimals(data []byte) (uint8, error) {
	out, err := parsed.Unpack(MethodDecimals, data)
	if err != nil || len(out) != 1 {
		return 0, decodeErr(MethodDecimals, err)
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, decodeErr(MethodDecimals, nil)
	}
	return v, nil
}

// UnpackSymbol decodes a symbol() result.
func UnpackSymbol(data []byte) (string, error) {
	out, err := parsed.Unpack(MethodSymbol, data)
	if err != nil || len(out) != 1 {
		return "", decodeErr(MethodSymbol, err)
	}
	v, ok := out[0].(string)
	if !ok {
		return "", decodeErr(MethodSymbol, nil)
	}
	return v, nil
}

// Call is a decoded ERC-20 call.
type Call struct {
	Method string
	Args   []any
}

// DecodeCall decodes calldata produced by the Pack builders.
func DecodeCall(data []byte) (Call, error) {
	if len(data) < 4 {
		return Call{}, decodeErr("calldata", nil)
	}
	m, err := parsed.MethodById(data[:4])
	if err != nil {
		return Call{}, decodeErr("calldata", err)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return Call{}, decodeErr(m.Name, err)
	}
	return Call{Method: m.Name, Args: args}, nil
}

// EncodeResult encodes a return value for method. Test chains use it to
// answer eth_call.
func EncodeResult(method string, values ...any) ([]byte, error) {
	m, ok := parsed.Methods[method]
	if !ok {
		return nil, decodeErr(method, nil)
	}
	return m.Outputs.Pack(values...)
}

func decodeErr(method string, cause error) error {
	base := error(ErrDecode)
	if cause != nil {
		base = payerr.WithCause(ErrDecode, cause)
	}
	return payerr.WithDetails(base, map[string]string{"method": method})
}
