// internal/ports/notifier.go
package ports

import "time"

// VisitAssignment describes visits that were just added to an agent's route.
type VisitAssignment struct {
	AgentID   int64     `json:"agent_id"`
	RouteID   int64     `json:"route_id"`
	RouteName string    `json:"route_name"`
	VisitIDs  []int64   `json:"visit_ids"`
	Source    string    `json:"source"`
	At        time.Time `json:"at"`
}

// Notifier pushes events to connected clients. It is called only after the
// transaction that produced the event has committed, and must not block.
type Notifier interface {
	VisitsAssigned(a VisitAssignment)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) VisitsAssigned(VisitAssignment) {}
