// internal/domain/call/dto.go
package call

import "routedesk-service/internal/domain/customer"

type RecordCallRequest struct {
	CustomerID int64  `json:"customer_id" form:"customer_id" binding:"required,min=1"`
	Result     string `json:"result" form:"result" binding:"required"`
	Note       string `json:"note" form:"note"`
	FollowUp   string `json:"follow_up" form:"follow_up"`
}

type QueueMetrics struct {
	CallsToday   int `json:"calls_today"`
	SalesToday   int `json:"sales_today"`
	RefusalToday int `json:"refusals_today"`
	DailyGoal    int `json:"daily_goal"`
}

// Queue is the sales agent's list of customers still to call today.
type Queue struct {
	Customers []customer.View `json:"customers"`
	Metrics   QueueMetrics    `json:"metrics"`
}
