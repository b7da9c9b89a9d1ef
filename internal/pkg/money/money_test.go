package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"150", "150", true},
		{"150,50", "150.5", true},
		{"1.234,56", "1234.56", true},
		{" R$ 95,9 ", "95.9", true},
		{"", "0", true},
		{"abc", "0", false},
		{"-10", "0", false},
		{"12,345", "12.35", true},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%q -> %s", tc.in, got)
	}
}

func TestParseOptionalAmount(t *testing.T) {
	v, ok := ParseOptionalAmount("  ")
	assert.True(t, ok)
	assert.False(t, v.Valid)

	v, ok = ParseOptionalAmount("110,00")
	assert.True(t, ok)
	assert.True(t, v.Valid)
	assert.Equal(t, "110.00", v.Decimal.StringFixed(2))

	_, ok = ParseOptionalAmount("1O0")
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$ 150.00", Format(decimal.NewFromInt(150)))
}
