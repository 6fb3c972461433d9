// Package chain provides EVM primitives shared by the payment core:
// asset kinds, address helpers, decimal amount conversion, and the
// retry and rate-limit helpers used by the RPC transport.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Asset identifies what a payment moves.
type Asset string

// Supported assets.
const (
	AssetNative Asset = "native"
	AssetUSDC   Asset = "usdc"
)

// NativeDecimals is the precision of ETH-like native currencies.
const NativeDecimals = 18

// String returns the asset identifier.
func (a Asset) String() string {
	return string(a)
}

// IsValid reports whether a is a known asset.
func (a Asset) IsValid() bool {
	return a == AssetNative || a == AssetUSDC
}

// ParseAsset parses a user-facing asset or currency name.
// "usdc" (any case) selects the token; "native", "" and any native currency
// symbol select the chain's base asset.
func ParseAsset(s string) Asset {
	if strings.EqualFold(strings.TrimSpace(s), string(AssetUSDC)) {
		return AssetUSDC
	}
	return AssetNative
}

// IsZeroAddress reports whether addr is nil or the all-zero address.
func IsZeroAddress(addr *common.Address) bool {
	return addr == nil || *addr == (common.Address{})
}

// OptionalAddress parses an optional address field.
// Empty strings and the zero address both mean "not configured" and yield nil.
func OptionalAddress(s string) (*common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil //nolint:nilnil // nil address is the "not configured" value
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return nil, err
	}
	if addr == (common.Address{}) {
		return nil, nil //nolint:nilnil // zero address is normalized to "not configured"
	}
	return &addr, nil
}

// ParseAddress validates a hex address string.
// Mixed-case input must carry a valid EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) || !strings.HasPrefix(s, "0x") {
		return common.Address{}, payerr.WithDetails(payerr.ErrInvalidAddress, map[string]string{
			"address": s,
		})
	}

	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != s {
		return common.Address{}, payerr.WithDetails(payerr.ErrInvalidAddress, map[string]string{
			"address":  s,
			"expected": addr.Hex(),
			"reason":   "checksum mismatch",
		})
	}

	return addr, nil
}
