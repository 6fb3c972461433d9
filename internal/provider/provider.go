// Package provider defines the injected wallet provider the payment core
// talks to and ships a software implementation of it.
//
// The interface follows EIP-1193: a single Request entry point plus
// accountsChanged and chainChanged subscriptions.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/rpc"
)

// Wallet methods used by the payment core.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSendTransaction = "eth_sendTransaction"
	MethodGetBalance      = "eth_getBalance"
	MethodCall            = "eth_call"
	MethodGetReceipt      = "eth_getTransactionReceipt"
)

// Provider error codes (EIP-1193 and EIP-3085/3326).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeInternal          = -32603
	CodeExecutionReverted = 3
)

// Provider is an EIP-1193 wallet.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	OnAccountsChanged(fn func(accounts []common.Address)) Subscription
	OnChainChanged(fn func(chainIDHex string)) Subscription
}

// Subscription cancels an event handler registration.
type Subscription interface {
	Unsubscribe()
}

// RPCError is a provider error carrying an EIP-1193 code.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// NewError builds an RPCError.
func NewError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

// ErrorCode extracts a provider or node error code from err.
func ErrorCode(err error) (int, bool) {
	var pe *RPCError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	var ne *rpc.Error
	if errors.As(err, &ne) {
		return ne.Code, true
	}
	return 0, false
}

// IsUserRejected reports whether err is a 4001 rejection.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// TxRequest is the eth_sendTransaction parameter object.
type TxRequest struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

// SwitchChainParams is the wallet_switchEthereumChain parameter object.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// DecodeParam re-encodes params[i] into dst. Params may arrive as typed
// structs from Go callers or as generic maps from JSON.
func DecodeParam(params []any, i int, dst any) error {
	if i >= len(params) {
		return NewError(CodeInternal, fmt.Sprintf("missing parameter %d", i))
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return NewError(CodeInternal, err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewError(CodeInternal, fmt.Sprintf("invalid parameter %d: %v", i, err))
	}
	return nil
}
