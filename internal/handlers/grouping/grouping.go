// internal/handlers/grouping/grouping.go
package grouping

import (
	"net/http"
	"strconv"

	"routedesk-service/internal/domain/grouping"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/response"
	"routedesk-service/internal/pkg/result"
	service "routedesk-service/internal/service/grouping"
	"routedesk-service/internal/service/importer"

	"github.com/gin-gonic/gin"
)

type GroupingHandler struct {
	groupingService *service.GroupingService
	importer        *importer.Service
	clock           clock.Clock
}

func NewGroupingHandler(groupingService *service.GroupingService, importService *importer.Service, clk clock.Clock) *GroupingHandler {
	return &GroupingHandler{
		groupingService: groupingService,
		importer:        importService,
		clock:           clk,
	}
}

func (h *GroupingHandler) CreateGrouping(c *gin.Context) {
	var req grouping.CreateGroupingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	g, err := h.groupingService.CreateGrouping(c.Request.Context(), &req, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "grouping created", g)
}

func (h *GroupingHandler) ListGroupings(c *gin.Context) {
	groupings, err := h.groupingService.ListGroupings(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "groupings retrieved", groupings)
}

func (h *GroupingHandler) GroupingDetail(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}

	detail, err := h.groupingService.GroupingDetail(c.Request.Context(), id, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "grouping retrieved", detail)
}

func (h *GroupingHandler) DeleteGrouping(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}
	res, err := h.groupingService.DeleteGrouping(c.Request.Context(), id)
	outcome(c, res, err)
}

// ========== Agents ==========

func (h *GroupingHandler) SetDeliveryAgent(c *gin.Context) {
	id, req, ok := agentRequest(c)
	if !ok {
		return
	}
	res, err := h.groupingService.SetDeliveryAgent(c.Request.Context(), id, req.AgentID)
	outcome(c, res, err)
}

func (h *GroupingHandler) RemoveDeliveryAgent(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}
	res, err := h.groupingService.RemoveDeliveryAgent(c.Request.Context(), id)
	outcome(c, res, err)
}

func (h *GroupingHandler) SetSalesAgent(c *gin.Context) {
	id, req, ok := agentRequest(c)
	if !ok {
		return
	}
	res, err := h.groupingService.SetSalesAgent(c.Request.Context(), id, req.AgentID)
	outcome(c, res, err)
}

func (h *GroupingHandler) RemoveSalesAgent(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}
	res, err := h.groupingService.RemoveSalesAgent(c.Request.Context(), id)
	outcome(c, res, err)
}

// ========== Members ==========

func (h *GroupingHandler) AddCustomers(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}
	var req grouping.AddCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	res, err := h.groupingService.AddCustomers(c.Request.Context(), id, &req)
	outcome(c, res, err)
}

func (h *GroupingHandler) RemoveCustomer(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}
	customerID, err := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid customer ID", err)
		return
	}
	res, err := h.groupingService.RemoveCustomer(c.Request.Context(), id, customerID)
	outcome(c, res, err)
}

// ImportCSV upserts customers from the multipart "file" field into the grouping.
func (h *GroupingHandler) ImportCSV(c *gin.Context) {
	id, ok := groupingID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.ValidationError(c, "a CSV file is required in the 'file' field", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.ValidationError(c, "could not read the uploaded file", err)
		return
	}
	defer f.Close()

	rep, err := h.importer.Import(c.Request.Context(), f, &id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Outcome(c, http.StatusOK, rep.Result, rep)
}

// ========== Helpers ==========

func groupingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid grouping ID", err)
		return 0, false
	}
	return id, true
}

func agentRequest(c *gin.Context) (int64, grouping.AssignAgentRequest, bool) {
	var req grouping.AssignAgentRequest
	id, ok := groupingID(c)
	if !ok {
		return 0, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return 0, req, false
	}
	return id, req, true
}

func outcome(c *gin.Context, res *result.Result, err error) {
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Outcome(c, http.StatusOK, res, nil)
}
