// internal/domain/customer/entity.go
package customer

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLen         = 100
	MaxNeighborhoodLen = 50
	MaxPhoneLen        = 20

	NeighborhoodNotInformed = "Not informed"
)

// Customer is a delivery point. Debt is what the customer still owes; CycleDays and
// LastPurchaseOn are maintained by the consumption intelligence on every sale.
type Customer struct {
	ID             int64           `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Address        string          `json:"address" db:"address"`
	Neighborhood   string          `json:"neighborhood" db:"neighborhood"`
	Phone          string          `json:"phone" db:"phone"`
	Debt           decimal.Decimal `json:"debt" db:"debt"`
	CycleDays      float64         `json:"cycle_days" db:"cycle_days"`
	LastPurchaseOn *time.Time      `json:"last_purchase_on,omitempty" db:"last_purchase_on"`
	Latitude       *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64        `json:"longitude,omitempty" db:"longitude"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// HasDebt reports whether the customer owes anything.
func (c *Customer) HasDebt() bool {
	return c.Debt.IsPositive()
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// NormalizePhone strips whitespace, dashes and parentheses and caps the length.
func NormalizePhone(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	return Truncate(cleaned, MaxPhoneLen)
}

// NormalizeNeighborhood trims and caps the neighborhood, defaulting when blank.
func NormalizeNeighborhood(raw string) string {
	n := strings.TrimSpace(raw)
	if n == "" {
		return NeighborhoodNotInformed
	}
	return Truncate(n, MaxNeighborhoodLen)
}
