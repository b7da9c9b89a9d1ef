// internal/domain/route/dto.go
package route

import "github.com/shopspring/decimal"

// VisitOutcomeRequest carries the raw form fields of a visit outcome. Amount, price and
// coordinates stay strings so malformed values degrade to warnings instead of failing.
type VisitOutcomeRequest struct {
	Sold            bool   `json:"sold" form:"sold"`
	Amount          string `json:"amount" form:"amount"`
	Reason          string `json:"reason" form:"reason"`
	CompetitorName  string `json:"competitor_name" form:"competitor_name" binding:"max=50"`
	CompetitorPrice string `json:"competitor_price" form:"competitor_price"`
	Note            string `json:"note" form:"note"`
	Latitude        string `json:"latitude" form:"latitude"`
	Longitude       string `json:"longitude" form:"longitude"`
}

type BulkAssignRequest struct {
	AgentID     int64   `json:"agent_id" binding:"required,min=1"`
	CustomerIDs []int64 `json:"customer_ids" binding:"required,min=1"`
}

type BoardSummary struct {
	TotalReceived decimal.Decimal `json:"total_received"`
	Realized      int             `json:"realized"`
	NotSold       int             `json:"not_sold"`
}

// DeliveryBoard is one agent's day.
type DeliveryBoard struct {
	AgentID   int64        `json:"agent_id"`
	Day       string       `json:"day"`
	Pending   []VisitView  `json:"pending"`
	Finalized []VisitView  `json:"finalized"`
	Summary   BoardSummary `json:"summary"`
}
