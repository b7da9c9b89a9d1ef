// internal/handlers/report/report.go
package report

import (
	"net/http"

	"routedesk-service/internal/domain/report"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/response"
	service "routedesk-service/internal/service/report"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *service.ReportService
	clock   clock.Clock
}

func NewReportHandler(reports *service.ReportService, clk clock.Clock) *ReportHandler {
	return &ReportHandler{reports: reports, clock: clk}
}

// Dashboard reads ?start= and ?end= (YYYY-MM-DD). Unparseable bounds fall back to
// today with a warning instead of failing.
func (h *ReportHandler) Dashboard(c *gin.Context) {
	asOf := h.clock.Now()
	var q report.PeriodQuery
	_ = c.ShouldBindQuery(&q)
	period, warnings := service.ParsePeriod(q, asOf)

	dash, err := h.reports.Dashboard(c.Request.Context(), period, asOf)
	if err != nil {
		response.FromError(c, err)
		return
	}
	dash.Warnings = warnings

	response.Success(c, http.StatusOK, "dashboard retrieved", dash)
}

func (h *ReportHandler) Audit(c *gin.Context) {
	asOf := h.clock.Now()
	var q report.PeriodQuery
	_ = c.ShouldBindQuery(&q)
	period, warnings := service.ParsePeriod(q, asOf)

	audit, err := h.reports.AuditReport(c.Request.Context(), period, asOf)
	if err != nil {
		response.FromError(c, err)
		return
	}
	audit.Warnings = warnings

	response.Success(c, http.StatusOK, "audit retrieved", audit)
}
