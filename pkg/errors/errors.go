// Package errors provides structured error handling for chainpay.
// It defines the payment error taxonomy, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitRejected   = 3 // User declined a wallet prompt
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Insufficient funds or allowance
	ExitChain      = 6 // On-chain failure after submission
)

// PayError is the structured error type for chainpay.
type PayError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *PayError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *PayError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for PayError.
func (e *PayError) Is(target error) bool {
	var t *PayError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Payment flow errors.
var (
	ErrWalletNotFound = &PayError{
		Code:       "WALLET_NOT_FOUND",
		Message:    "no wallet provider available",
		Suggestion: "install or configure a wallet before connecting",
		ExitCode:   ExitNotFound,
	}

	ErrUserRejected = &PayError{
		Code:     "USER_REJECTED",
		Message:  "request rejected in wallet",
		ExitCode: ExitRejected,
	}

	ErrNotConnected = &PayError{
		Code:       "NOT_CONNECTED",
		Message:    "wallet is not connected",
		Suggestion: "connect a wallet first",
		ExitCode:   ExitInput,
	}

	ErrUnsupportedNetwork = &PayError{
		Code:     "UNSUPPORTED_NETWORK",
		Message:  "unsupported network",
		ExitCode: ExitInput,
	}

	ErrInsufficientBalance = &PayError{
		Code:     "INSUFFICIENT_BALANCE",
		Message:  "insufficient balance for payment",
		ExitCode: ExitPermission,
	}

	ErrApprovalRequired = &PayError{
		Code:       "APPROVAL_REQUIRED",
		Message:    "token allowance is lower than the payment amount",
		Suggestion: "approve the amount before paying",
		ExitCode:   ExitPermission,
	}

	ErrApprovalRejected = &PayError{
		Code:     "APPROVAL_REJECTED",
		Message:  "approval rejected in wallet",
		ExitCode: ExitRejected,
	}

	ErrApprovalReverted = &PayError{
		Code:     "APPROVAL_REVERTED",
		Message:  "approval transaction reverted",
		ExitCode: ExitChain,
	}

	ErrTransactionReverted = &PayError{
		Code:     "TRANSACTION_REVERTED",
		Message:  "transaction reverted",
		ExitCode: ExitChain,
	}

	ErrMisconfiguredRecipient = &PayError{
		Code:       "MISCONFIGURED_RECIPIENT",
		Message:    "payment recipient is not configured",
		Suggestion: "set a recipient address or configure the escrow contract for this network",
		ExitCode:   ExitInput,
	}

	ErrConfirmationTimeout = &PayError{
		Code:       "CONFIRMATION_TIMEOUT",
		Message:    "stopped waiting for confirmation",
		Suggestion: "the transaction may still confirm; check it in the block explorer",
		ExitCode:   ExitChain,
	}

	ErrBusy = &PayError{
		Code:     "BUSY",
		Message:  "another wallet request is in progress",
		ExitCode: ExitGeneral,
	}
)

// General errors.
var (
	ErrGeneral = &PayError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &PayError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &PayError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &PayError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrNotFound = &PayError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrNetworkError = &PayError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrConfigNotFound = &PayError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &PayError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new PayError with the given code and message.
func New(code, message string) *PayError {
	return &PayError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var pe *PayError
	if errors.As(err, &pe) {
		return &PayError{
			Code:       pe.Code,
			Message:    fmt.Sprintf("%s: %s", msg, pe.Message),
			Details:    pe.Details,
			Suggestion: pe.Suggestion,
			Cause:      pe.Cause,
			ExitCode:   pe.ExitCode,
		}
	}

	return &PayError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of a sentinel carrying the underlying cause.
// The copy still matches the sentinel under errors.Is.
func WithCause(sentinel *PayError, cause error) error {
	return &PayError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var pe *PayError
	if errors.As(err, &pe) {
		merged := make(map[string]string, len(pe.Details)+len(details))
		for k, v := range pe.Details {
			merged[k] = v
		}
		for k, v := range details {
			merged[k] = v
		}
		return &PayError{
			Code:       pe.Code,
			Message:    pe.Message,
			Details:    merged,
			Suggestion: pe.Suggestion,
			Cause:      pe.Cause,
			ExitCode:   pe.ExitCode,
		}
	}

	return &PayError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var pe *PayError
	if errors.As(err, &pe) {
		return &PayError{
			Code:       pe.Code,
			Message:    pe.Message,
			Details:    pe.Details,
			Suggestion: suggestion,
			Cause:      pe.Cause,
			ExitCode:   pe.ExitCode,
		}
	}

	return &PayError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var pe *PayError
	if errors.As(err, &pe) {
		return pe.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var pe *PayError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
