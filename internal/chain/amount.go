package chain

import (
	"math/big"
	"strings"
)

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
//
// Fraction digits beyond decimalPlaces are accepted only when they are zero;
// a payment amount is never silently truncated.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	if amount == "" || decimalPlaces < 0 {
		return nil, invalidAmountErr
	}

	// Check for signed amounts
	if strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, invalidAmountErr
	}

	// Split by decimal point
	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, invalidAmountErr
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
		if intPart == "" && decPart == "" {
			return nil, invalidAmountErr
		}
	}

	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || !isDigits(decPart) {
		return nil, invalidAmountErr
	}

	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	// Scale integer part
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if len(decPart) > decimalPlaces {
		if strings.Trim(decPart[decimalPlaces:], "0") != "" {
			return nil, invalidAmountErr
		}
		decPart = decPart[:decimalPlaces]
	}

	if decPart != "" {
		// Pad the fraction to the full precision
		decPart += strings.Repeat("0", decimalPlaces-len(decPart))

		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, invalidAmountErr
		}

		result = result.Add(result, decVal)
	}

	return result, nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed, and so is a dangling point.
// For example, 1500000000000000000 with 18 decimals returns "1.5" and
// 2000000 with 6 decimals returns "2".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if amount.Sign() < 0 {
		return "-" + FormatDecimalAmount(new(big.Int).Abs(amount), decimalPlaces)
	}
	if decimalPlaces <= 0 {
		return amount.String()
	}

	str := amount.String()

	// Pad with leading zeros if necessary
	if len(str) <= decimalPlaces {
		str = strings.Repeat("0", decimalPlaces-len(str)+1) + str
	}

	decimalPos := len(str) - decimalPlaces
	frac := strings.TrimRight(str[decimalPos:], "0")
	if frac == "" {
		return str[:decimalPos]
	}

	return str[:decimalPos] + "." + frac
}

// isDigits reports whether s is empty or contains only ASCII digits.
func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
