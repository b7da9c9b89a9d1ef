// internal/app/wiring.go
package app

import (
	"time"

	authHandler "routedesk-service/internal/handlers/auth"
	callHandler "routedesk-service/internal/handlers/call"
	customerHandler "routedesk-service/internal/handlers/customer"
	groupingHandler "routedesk-service/internal/handlers/grouping"
	reportHandler "routedesk-service/internal/handlers/report"
	visitHandler "routedesk-service/internal/handlers/visit"
	wsHandler "routedesk-service/internal/handlers/websocket"
	"routedesk-service/internal/metrics"
	"routedesk-service/internal/middleware"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/pkg/session"
	"routedesk-service/internal/ports"
	authUsecase "routedesk-service/internal/service/auth"
	customersvc "routedesk-service/internal/service/customer"
	groupingsvc "routedesk-service/internal/service/grouping"
	"routedesk-service/internal/service/importer"
	"routedesk-service/internal/service/intelligence"
	"routedesk-service/internal/service/outcome"
	"routedesk-service/internal/service/planning"
	reportsvc "routedesk-service/internal/service/report"
	"routedesk-service/internal/websocket"
	wsHandlers "routedesk-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the long-lived resources the application is assembled from.
type Deps struct {
	Store    ports.Store
	Redis    *redis.Client
	JWT      *jwt.Manager
	Clock    clock.Clock
	Location *time.Location
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	CycleSampleSize int
	CallDailyGoal   int
	AllowedOrigins  []string
}

// App is the assembled service. Hub.Run must be started by the caller.
type App struct {
	Engine   *gin.Engine
	Hub      *websocket.Hub
	Auth     *authUsecase.AuthService
	Importer *importer.Service
}

func Build(d Deps) *App {
	logger := d.Logger

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(d.Redis)
	rateLimiter := session.NewRateLimiter(d.Redis)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(d.Metrics, logger.Named("ws"))

	// ----- Services (Usecases) -----
	engine := intelligence.New(d.CycleSampleSize, d.Location)
	authService := authUsecase.NewAuthService(d.Store, d.JWT, sessionManager, rateLimiter, hub, logger.Named("auth"))
	customerService := customersvc.NewCustomerService(d.Store, engine, logger.Named("customer"))
	groupingService := groupingsvc.NewGroupingService(d.Store, engine, logger.Named("grouping"))
	importService := importer.NewService(d.Store, d.Metrics, logger.Named("import"))
	outcomeService := outcome.NewService(d.Store, engine, hub, d.Metrics, logger.Named("outcome"))
	planningService := planning.NewPlanningService(d.Store, engine, hub, d.Metrics, d.CallDailyGoal, logger.Named("planning"))
	reportService := reportsvc.NewReportService(d.Store, logger.Named("report"))

	// Register WebSocket handlers
	hub.RegisterHandler(wsHandlers.NewBoardHandler(reportService, d.Clock, logger.Named("ws")))

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:     authHandler.NewAuthHandler(authService, d.Clock, logger),
		CustomerHandler: customerHandler.NewCustomerHandler(customerService, planningService, importService, d.Clock),
		GroupingHandler: groupingHandler.NewGroupingHandler(groupingService, importService, d.Clock),
		VisitHandler:    visitHandler.NewVisitHandler(outcomeService, planningService, reportService, d.Clock),
		CallHandler:     callHandler.NewCallHandler(outcomeService, planningService, d.Clock),
		ReportHandler:   reportHandler.NewReportHandler(reportService, d.Clock),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, authService, d.AllowedOrigins, logger.Named("ws")),
		AuthMiddleware:  middleware.NewAuthMiddleware(authService),
	}

	// ----- Middlewares -----
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger.Named("http")),
		middleware.MetricsMiddleware(d.Metrics),
	)
	SetupRouter(r, d.Metrics, handlers)

	return &App{
		Engine:   r,
		Hub:      hub,
		Auth:     authService,
		Importer: importService,
	}
}
