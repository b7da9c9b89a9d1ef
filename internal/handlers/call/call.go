// internal/handlers/call/call.go
package call

import (
	"net/http"

	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/middleware"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/response"
	"routedesk-service/internal/service/outcome"
	"routedesk-service/internal/service/planning"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	outcomes *outcome.Service
	planning *planning.PlanningService
	clock    clock.Clock
}

func NewCallHandler(outcomes *outcome.Service, planningService *planning.PlanningService, clk clock.Clock) *CallHandler {
	return &CallHandler{outcomes: outcomes, planning: planningService, clock: clk}
}

// Queue is the sales cockpit: who to call next and today's counters.
func (h *CallHandler) Queue(c *gin.Context) {
	queue, err := h.planning.CallQueue(c.Request.Context(), middleware.GetActor(c), h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "call queue retrieved", queue)
}

func (h *CallHandler) RecordCall(c *gin.Context) {
	var req call.RecordCallRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	res, err := h.outcomes.RecordCallOutcome(c.Request.Context(), middleware.GetActor(c), req, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Outcome(c, http.StatusCreated, res, nil)
}
