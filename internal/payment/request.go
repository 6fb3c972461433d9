// Package payment drives the user-facing payment flow: network and asset
// selection, amount entry, the conditional approval step and the final
// payment.
package payment

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/network"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Request opens a payment for a marketplace contract.
type Request struct {
	ContractID       string `validate:"required"`
	ContractTitle    string `validate:"required"`
	Amount           string `validate:"required"`
	Currency         string `validate:"omitempty,max=16"`
	RecipientAddress string `validate:"omitempty,eth_addr"`

	// OnPaymentSuccess is called with the transaction hash once the
	// payment confirms.
	OnPaymentSuccess func(txHash string) `validate:"-"`
}

// Status is the payment attempt's position in the flow.
type Status string

// Payment statuses.
const (
	StatusIdle      Status = "idle"
	StatusApproving Status = "approving"
	StatusPaying    Status = "paying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Intent is the payment being assembled. It lives until the flow closes.
type Intent struct {
	Network       *network.Descriptor
	Asset         chain.Asset
	Amount        string
	Recipient     *common.Address
	NeedsApproval bool
	Status        Status
	TxHash        string
}

// validate checks the structural fields of a request.
func validate(v *validator.Validate, req Request) error {
	if err := v.Struct(req); err != nil {
		fields := make([]string, 0)
		if verrs, ok := err.(validator.ValidationErrors); ok { //nolint:errorlint // validator returns the concrete type
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		return payerr.WithDetails(payerr.WithCause(payerr.ErrInvalidInput, err), map[string]string{
			"fields": strings.Join(fields, ","),
		})
	}
	return nil
}

// resolveRecipient picks the request's recipient, falling back to the
// network's escrow contract only when none was given. An explicit zero or
// malformed address yields nil, which blocks payment.
func resolveRecipient(requested string, desc *network.Descriptor) *common.Address {
	if strings.TrimSpace(requested) != "" {
		addr, err := chain.OptionalAddress(requested)
		if err != nil {
			return nil
		}
		return addr
	}
	if desc != nil && desc.HasEscrow() {
		a := *desc.EscrowAddress
		return &a
	}
	return nil
}

// amountPrecision bounds the fraction digits checked when parsing; the
// engine applies the asset's real decimals at submission.
const amountPrecision = 36

// parseAmount parses a positive human amount using the same grammar the
// transfer engine converts to base units: plain digits with an optional
// fraction, no sign, exponent or surrounding space.
func parseAmount(s string) (decimal.Decimal, error) {
	invalid := payerr.WithDetails(payerr.ErrInvalidAmount, map[string]string{"amount": s})
	if _, err := chain.ParseDecimalAmount(s, amountPrecision, invalid); err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, invalid
	}
	return d, nil
}
