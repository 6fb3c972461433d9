package provider

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PromptKind identifies what the wallet is asking the user to approve.
type PromptKind string

// Prompt kinds.
const (
	PromptConnect         PromptKind = "connect"
	PromptAddChain        PromptKind = "add_chain"
	PromptSendTransaction PromptKind = "send_transaction"
)

// Prompt describes one consent request.
type Prompt struct {
	Kind      PromptKind
	Account   common.Address
	ChainID   uint64
	ChainName string
	To        *common.Address
	Value     *big.Int
	Data      []byte
	Fee       *big.Int
}

// Consent asks the wallet owner to approve a request.
// Returning false is a rejection; an error aborts the request.
type Consent interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConsentFunc adapts a function to Consent.
type ConsentFunc func(ctx context.Context, p Prompt) (bool, error)

// Confirm calls f.
func (f ConsentFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// AutoApprove confirms every prompt.
//
//nolint:gochecknoglobals // Stateless consent policy
var AutoApprove = ConsentFunc(func(context.Context, Prompt) (bool, error) {
	return true, nil
})

// DenyAll rejects every prompt.
//
//nolint:gochecknoglobals // Stateless consent policy
var DenyAll = ConsentFunc(func(context.Context, Prompt) (bool, error) {
	return false, nil
})
