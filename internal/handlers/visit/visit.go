// internal/handlers/visit/visit.go
package visit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/middleware"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/response"
	"routedesk-service/internal/service/outcome"
	"routedesk-service/internal/service/planning"
	"routedesk-service/internal/service/report"

	"github.com/gin-gonic/gin"
)

type VisitHandler struct {
	outcomes *outcome.Service
	planning *planning.PlanningService
	reports  *report.ReportService
	clock    clock.Clock
}

func NewVisitHandler(outcomes *outcome.Service, planningService *planning.PlanningService, reports *report.ReportService, clk clock.Clock) *VisitHandler {
	return &VisitHandler{
		outcomes: outcomes,
		planning: planningService,
		reports:  reports,
		clock:    clk,
	}
}

// DeliveryBoard returns one agent's day. ?agent_id defaults to the caller and ?day
// (YYYY-MM-DD) to today.
func (h *VisitHandler) DeliveryBoard(c *gin.Context) {
	actor := middleware.GetActor(c)

	agentID := actor.UserID
	if raw := c.Query("agent_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ValidationError(c, "invalid agent ID", err)
			return
		}
		agentID = id
	}

	day := clock.Day(h.clock.Now())
	if raw := strings.TrimSpace(c.Query("day")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.ValidationError(c, "day must be YYYY-MM-DD", err)
			return
		}
		day = parsed
	}

	board, err := h.reports.DeliveryBoard(c.Request.Context(), actor, agentID, day)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "board retrieved", board)
}

func (h *VisitHandler) GetVisit(c *gin.Context) {
	visitID, ok := visitID(c)
	if !ok {
		return
	}

	view, err := h.reports.GetVisit(c.Request.Context(), middleware.GetActor(c), visitID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "visit retrieved", view)
}

// RecordOutcome accepts the outcome as JSON or as a form post.
func (h *VisitHandler) RecordOutcome(c *gin.Context) {
	visitID, ok := visitID(c)
	if !ok {
		return
	}

	var req route.VisitOutcomeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	res, err := h.outcomes.RecordVisitOutcome(c.Request.Context(), middleware.GetActor(c), visitID, req, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Outcome(c, http.StatusOK, res, nil)
}

// BulkAssign creates a route for an agent with one visit per customer (manager only).
func (h *VisitHandler) BulkAssign(c *gin.Context) {
	var req route.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	res, err := h.planning.BulkAssign(c.Request.Context(), middleware.GetActor(c), req, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Outcome(c, http.StatusCreated, res, nil)
}

func visitID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid visit ID", err)
		return 0, false
	}
	return id, true
}
