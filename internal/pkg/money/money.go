// internal/pkg/money/money.go
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a Brazilian formatted amount ("1.234,56", "150", "150,5").
// Dots are thousands separators and the comma is the decimal mark. Blank input is
// zero. Malformed or negative input yields zero and ok=false.
func ParseAmount(raw string) (amount decimal.Decimal, ok bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// ParseOptionalAmount is ParseAmount for optional fields: blank input is null.
func ParseOptionalAmount(raw string) (decimal.NullDecimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, true
	}
	d, ok := ParseAmount(raw)
	if !ok {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

// Format renders an amount as "R$ 1234.56".
func Format(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}
