// internal/app/router.go
package app

import (
	"net/http"

	authHandler "routedesk-service/internal/handlers/auth"
	callHandler "routedesk-service/internal/handlers/call"
	customerHandler "routedesk-service/internal/handlers/customer"
	groupingHandler "routedesk-service/internal/handlers/grouping"
	reportHandler "routedesk-service/internal/handlers/report"
	visitHandler "routedesk-service/internal/handlers/visit"
	wsHandler "routedesk-service/internal/handlers/websocket"
	"routedesk-service/internal/metrics"
	"routedesk-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	CustomerHandler *customerHandler.CustomerHandler
	GroupingHandler *groupingHandler.GroupingHandler
	VisitHandler    *visitHandler.VisitHandler
	CallHandler     *callHandler.CallHandler
	ReportHandler   *reportHandler.ReportHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, m *metrics.Metrics, h *Handlers) {
	api := r.Group("/api/v1")
	managerOnly := h.AuthMiddleware.ManagerOnly()

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== Metrics ====================
	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Auth ====================
	api.POST("/auth/login", h.AuthHandler.Login)

	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	// ==================== Users (manager) ====================
	users := api.Group("/users")
	users.Use(managerOnly...)
	{
		users.GET("", h.AuthHandler.ListUsers)
		users.POST("", h.AuthHandler.CreateUser)
	}

	// ==================== Customers ====================
	customers := api.Group("/customers")
	customers.Use(h.AuthMiddleware.Auth())
	{
		customers.GET("/neighborhoods", h.CustomerHandler.ListNeighborhoods)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
	}

	customersAdmin := api.Group("/customers")
	customersAdmin.Use(managerOnly...)
	{
		customersAdmin.GET("", h.CustomerHandler.ListCustomers)
		customersAdmin.POST("", h.CustomerHandler.CreateCustomer)
		customersAdmin.POST("/import", h.CustomerHandler.ImportCSV)
	}

	// ==================== Groupings (manager) ====================
	groupings := api.Group("/groupings")
	groupings.Use(managerOnly...)
	{
		groupings.GET("", h.GroupingHandler.ListGroupings)
		groupings.POST("", h.GroupingHandler.CreateGrouping)
		groupings.GET("/:id", h.GroupingHandler.GroupingDetail)
		groupings.DELETE("/:id", h.GroupingHandler.DeleteGrouping)

		groupings.PUT("/:id/delivery-agent", h.GroupingHandler.SetDeliveryAgent)
		groupings.DELETE("/:id/delivery-agent", h.GroupingHandler.RemoveDeliveryAgent)
		groupings.PUT("/:id/sales-agent", h.GroupingHandler.SetSalesAgent)
		groupings.DELETE("/:id/sales-agent", h.GroupingHandler.RemoveSalesAgent)

		groupings.POST("/:id/customers", h.GroupingHandler.AddCustomers)
		groupings.DELETE("/:id/customers/:customerID", h.GroupingHandler.RemoveCustomer)
		groupings.POST("/:id/import", h.GroupingHandler.ImportCSV)
	}

	// ==================== Visits ====================
	visits := api.Group("/visits")
	visits.Use(h.AuthMiddleware.Auth())
	{
		visits.GET("/board", h.VisitHandler.DeliveryBoard)
		visits.GET("/:id", h.VisitHandler.GetVisit)
		visits.POST("/:id/outcome", h.VisitHandler.RecordOutcome)
	}

	routes := api.Group("/routes")
	routes.Use(managerOnly...)
	{
		routes.POST("/bulk", h.VisitHandler.BulkAssign)
	}

	// ==================== Calls ====================
	calls := api.Group("/calls")
	calls.Use(h.AuthMiddleware.Auth())
	{
		calls.GET("/queue", h.CallHandler.Queue)
		calls.POST("", h.CallHandler.RecordCall)
	}

	// ==================== Reports (manager) ====================
	reports := api.Group("/reports")
	reports.Use(managerOnly...)
	{
		reports.GET("/dashboard", h.ReportHandler.Dashboard)
		reports.GET("/audit", h.ReportHandler.Audit)
		reports.GET("/ws", h.WSHandler.Stats)
	}
}
