// internal/handlers/customer/customer.go
package customer

import (
	"net/http"
	"strconv"

	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/response"
	service "routedesk-service/internal/service/customer"
	"routedesk-service/internal/service/importer"
	"routedesk-service/internal/service/planning"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService *service.CustomerService
	planningService *planning.PlanningService
	importer        *importer.Service
	clock           clock.Clock
}

func NewCustomerHandler(
	customerService *service.CustomerService,
	planningService *planning.PlanningService,
	importService *importer.Service,
	clk clock.Clock,
) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		planningService: planningService,
		importer:        importService,
		clock:           clk,
	}
}

// ========== Manager Endpoints ==========

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customer.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	view, err := h.customerService.CreateCustomer(c.Request.Context(), &req, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "customer created successfully", view)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid customer ID", err)
		return
	}

	view, err := h.customerService.GetCustomer(c.Request.Context(), customerID, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "customer retrieved", view)
}

// ListCustomers filters by ?neighborhood=, ?grouping_id= and ?status=.
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	var filters customer.CustomerListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid filters", err)
		return
	}

	views, err := h.planningService.ListCustomers(c.Request.Context(), filters, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "customers retrieved", gin.H{
		"customers": views,
		"count":     len(views),
	})
}

func (h *CustomerHandler) ListNeighborhoods(c *gin.Context) {
	neighborhoods, err := h.customerService.ListNeighborhoods(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "neighborhoods retrieved", neighborhoods)
}

// ImportCSV upserts customers from the multipart "file" field.
func (h *CustomerHandler) ImportCSV(c *gin.Context) {
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

	rep, err := h.importer.Import(c.Request.Context(), f, nil)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Outcome(c, http.StatusOK, rep.Result, rep)
}
