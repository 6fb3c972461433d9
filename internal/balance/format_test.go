package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"0.0", "0"},
		{"0.00001", "< 0.0001"},
		{"0.00004999", "< 0.0001"},
		{"0.00005", "0.0001"},
		{"1.23456", "1.2346"},
		{"1.23454", "1.2345"},
		{"1", "1.0000"},
		{"1250.5", "1250.5000"},
		{"999.99995", "1000.0000"},
		{"", "0"},
		{"abc", "0"},
		{"1.2.3", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatBalance(tt.in))
		})
	}
}

func TestFormatBalanceDigits(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1.23", FormatBalanceDigits("1.225", 2))
	assert.Equal(t, "< 0.01", FormatBalanceDigits("0.004", 2))
	assert.Equal(t, "2", FormatBalanceDigits("1.5", 0))
	assert.Equal(t, "< 1", FormatBalanceDigits("0.4", 0))
	assert.Equal(t, "0", FormatBalanceDigits("0", 6))
	assert.Equal(t, "3.000000", FormatBalanceDigits("3", 6))
}

func TestSmallest(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1", smallest(0))
	assert.Equal(t, "0.1", smallest(1))
	assert.Equal(t, "0.0001", smallest(4))
}
