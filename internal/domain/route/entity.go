// internal/domain/route/entity.go
package route

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes per-day routes that are reused from routes planned in bulk.
type Kind string

const (
	KindDaily  Kind = "daily"
	KindManual Kind = "manual"
)

// Route is a dated itinerary assigned to one delivery agent.
type Route struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	AgentID   int64     `json:"agent_id" db:"agent_id"`
	Kind      Kind      `json:"kind" db:"kind"`
	RouteDate time.Time `json:"route_date" db:"route_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DailyName is the name of the route created for telesales on a day.
func DailyName(day time.Time) string {
	return fmt.Sprintf("Sales route %s", day.Format("02/01"))
}

// PlannedName is the name of a route materialized by bulk assignment.
func PlannedName(day time.Time) string {
	return fmt.Sprintf("Route %s", day.Format("02/01"))
}

type VisitStatus string

const (
	VisitPending  VisitStatus = "PENDING"
	VisitRealized VisitStatus = "REALIZED"
	VisitNotSold  VisitStatus = "NOT_SOLD"
)

// Terminal reports whether no further transition is allowed.
func (s VisitStatus) Terminal() bool {
	return s == VisitRealized || s == VisitNotSold
}

type NotSoldReason string

const (
	ReasonNoNeed     NotSoldReason = "NO_NEED"
	ReasonCompetitor NotSoldReason = "COMPETITOR"
	ReasonOther      NotSoldReason = "OTHER"
)

// ParseReason normalizes a reason code. Blank maps to OTHER.
func ParseReason(raw string) (NotSoldReason, bool) {
	switch r := NotSoldReason(strings.ToUpper(strings.TrimSpace(raw))); r {
	case "":
		return ReasonOther, true
	case ReasonNoNeed, ReasonCompetitor, ReasonOther:
		return r, true
	}
	return "", false
}

// Visit is one customer stop on a Route.
type Visit struct {
	ID              int64               `json:"id" db:"id"`
	RouteID         int64               `json:"route_id" db:"route_id"`
	CustomerID      int64               `json:"customer_id" db:"customer_id"`
	Status          VisitStatus         `json:"status" db:"status"`
	AmountReceived  decimal.Decimal     `json:"amount_received" db:"amount_received"`
	VisitedAt       *time.Time          `json:"visited_at,omitempty" db:"visited_at"`
	Note            string              `json:"note" db:"note"`
	Latitude        *float64            `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64            `json:"longitude,omitempty" db:"longitude"`
	NotSoldReason   *NotSoldReason      `json:"not_sold_reason,omitempty" db:"not_sold_reason"`
	CompetitorName  *string             `json:"competitor_name,omitempty" db:"competitor_name"`
	CompetitorPrice decimal.NullDecimal `json:"competitor_price" db:"competitor_price"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
}

// VisitView is a visit joined with the fields boards and reports display.
type VisitView struct {
	Visit
	AgentID       int64     `json:"agent_id"`
	AgentName     string    `json:"agent_name"`
	RouteDate     time.Time `json:"route_date"`
	CustomerName  string    `json:"customer_name"`
	Neighborhood  string    `json:"neighborhood"`
	CustomerPhone string    `json:"customer_phone"`
}
