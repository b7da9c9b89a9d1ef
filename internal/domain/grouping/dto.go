// internal/domain/grouping/dto.go
package grouping

type CreateGroupingRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	LabelColor string `json:"label_color" binding:"omitempty,hexcolor"`
}

type AssignAgentRequest struct {
	AgentID int64 `json:"agent_id" binding:"required,min=1"`
}

type AddCustomersRequest struct {
	CustomerIDs []int64 `json:"customer_ids" binding:"required,min=1"`
}
