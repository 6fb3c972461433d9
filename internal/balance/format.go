package balance

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayDigits is the number of fraction digits shown by FormatBalance.
const DisplayDigits = 4

// FormatBalance formats a decimal amount string for display with
// DisplayDigits fraction digits.
func FormatBalance(s string) string {
	return FormatBalanceDigits(s, DisplayDigits)
}

// FormatBalanceDigits formats a decimal amount string with a fixed number of
// fraction digits, rounding half up. Zero renders as "0", and a positive
// amount too small to show becomes "< 0.0001" (for four digits).
// Unparseable input renders as "0".
func FormatBalanceDigits(s string, digits int) string {
	if digits < 0 {
		digits = 0
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsZero() {
		return "0"
	}

	rounded := d.Round(int32(digits)) //nolint:gosec // digits is a small display precision
	if d.IsPositive() && rounded.IsZero() {
		return "< " + smallest(digits)
	}
	return rounded.StringFixed(int32(digits)) //nolint:gosec // digits is a small display precision
}

// smallest returns the smallest positive amount representable with digits
// fraction digits.
func smallest(digits int) string {
	if digits == 0 {
		return "1"
	}
	return "0." + strings.Repeat("0", digits-1) + "1"
}
