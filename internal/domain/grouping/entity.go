// internal/domain/grouping/entity.go
package grouping

import (
	"time"

	"routedesk-service/internal/domain/customer"
)

const DefaultLabelColor = "#F26522"

// Grouping is a named portfolio of customers ("wallet") with at most one delivery
// agent and at most one sales agent.
type Grouping struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	LabelColor      string    `json:"label_color" db:"label_color"`
	DeliveryAgentID *int64    `json:"delivery_agent_id,omitempty" db:"delivery_agent_id"`
	SalesAgentID    *int64    `json:"sales_agent_id,omitempty" db:"sales_agent_id"`
	MemberCount     int       `json:"member_count" db:"member_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type Detail struct {
	Grouping      Grouping        `json:"grouping"`
	Members       []customer.View `json:"members"`
	FreeCustomers []customer.View `json:"free_customers"`
}
