// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"routedesk-service/internal/config"
	"routedesk-service/internal/db"
	"routedesk-service/internal/metrics"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/repository/memory"
	"routedesk-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg     config.AppConfig
	logger  *zap.Logger
	http    *http.Server
	app     *App
	clock   clock.Clock
	closers []func()
}

// OpenStore connects the configured storage driver. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (ports.Store, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to postgres", zap.Int32("max_conns", pool.Config().MaxConns))
	return postgres.NewStore(postgres.NewDB(pool)), pool.Close, nil
}

// NewServer connects storage, redis and keys, and assembles the application.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, logger: logger}

	// ----- Storage -----
	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	s.closers = append(s.closers, closeStore)

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = redisClient.Close() })
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(cfg.JWT)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load JWT manager: %w", err)
	}

	loc := cfg.Location()
	s.clock = clock.System{Location: loc}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	s.app = Build(Deps{
		Store:           store,
		Redis:           redisClient,
		JWT:             jwtManager,
		Clock:           s.clock,
		Location:        loc,
		Metrics:         metrics.New(),
		Logger:          logger,
		CycleSampleSize: cfg.CycleSampleSize,
		CallDailyGoal:   cfg.CallDailyGoal,
		AllowedOrigins:  cfg.AllowedOrigins,
	})

	// ----- Bootstrap Manager -----
	if err := s.bootstrapManager(ctx); err != nil {
		// Don't fail startup, just log the error
		logger.Error("failed to bootstrap manager", zap.Error(err))
	}

	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.app.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.app.Hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stopHub()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Close releases storage and redis, most recent first.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Server) bootstrapManager(ctx context.Context) error {
	if s.cfg.ManagerPassword != "" && len(s.cfg.ManagerPassword) < 8 {
		return fmt.Errorf("bootstrap manager password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.app.Auth.EnsureManagerExists(ctx, s.cfg.ManagerUsername, s.cfg.ManagerPassword, s.cfg.ManagerName, s.clock.Now())
}
