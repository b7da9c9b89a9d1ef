// internal/domain/report/entity.go
package report

import (
	"time"

	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/route"

	"github.com/shopspring/decimal"
)

// Period is an inclusive range of calendar days.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type PeriodQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

type VisitKPIs struct {
	TotalReceived  decimal.Decimal `json:"total_received"`
	Total          int             `json:"total"`
	Pending        int             `json:"pending"`
	Realized       int             `json:"realized"`
	CompetitorLoss int             `json:"competitor_loss"`
	NoNeed         int             `json:"no_need"`
	OtherLoss      int             `json:"other_loss"`
	Finalized      int             `json:"finalized"`
	Losses         int             `json:"losses"`
}

type Dashboard struct {
	Period            Period            `json:"period"`
	Visits            VisitKPIs         `json:"visits"`
	Calls             int               `json:"calls"`
	InactiveCustomers int               `json:"inactive_customers"`
	History           []route.VisitView `json:"history"`
	Warnings          []string          `json:"warnings,omitempty"`
}

type AgentRanking struct {
	AgentID  int64  `json:"agent_id"`
	Username string `json:"username"`
	Total    int    `json:"total"`
	Sales    int    `json:"sales"`
}

type Audit struct {
	Period   Period            `json:"period"`
	Calls    []call.CallView   `json:"calls"`
	Ranking  []AgentRanking    `json:"ranking"`
	Visits   []route.VisitView `json:"visits"`
	Warnings []string          `json:"warnings,omitempty"`
}
