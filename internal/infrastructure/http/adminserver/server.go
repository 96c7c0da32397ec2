// Package adminserver provides the operator API over gin: token issue,
// catalog lifecycle, and the recall and residue facts the engine
// consults.
package adminserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/http/middleware"
	"github.com/cartwise/v3/internal/infrastructure/monitoring"
	"github.com/cartwise/v3/internal/infrastructure/security"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/pkg/healthcheck"
)

// AdminServer serves the operator API on its own listener, separate
// from shopper traffic.
type AdminServer struct {
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
	engine     *gin.Engine
	middleware *middleware.Middleware
	handlers   *AdminHandlers
	health     *healthcheck.HealthCheck
	auth       *security.AuthService
	validation *security.ValidationService
}

// NewAdminServer creates a new operator API server instance
func NewAdminServer(
	cfg *config.Config,
	log *zap.Logger,
	adminService inbound.CatalogAdminService,
	planningService inbound.PlanningService,
	authService *security.AuthService,
	metrics *monitoring.MetricsCollector,
	health *healthcheck.HealthCheck,
) *AdminServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	validation := security.NewValidationService(log)
	server := &AdminServer{
		config:     cfg,
		logger:     log,
		middleware: middleware.New(cfg, log),
		handlers:   NewAdminHandlers(adminService, planningService, authService, validation, metrics, log),
		health:     health,
		auth:       authService,
		validation: validation,
	}

	server.engine = server.setupRoutes(metrics)
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port),
		Handler:      server.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// setupRoutes configures the operator API routes
func (s *AdminServer) setupRoutes(metrics *monitoring.MetricsCollector) *gin.Engine {
	engine := gin.New()

	m := s.middleware
	engine.Use(m.RequestID())
	engine.Use(m.Logger())
	engine.Use(m.Recovery())
	engine.Use(metrics.HTTPMiddleware())
	engine.Use(m.RateLimit())
	engine.Use(m.Tracing())
	engine.Use(m.SecurityHeaders())
	engine.Use(s.validation.RequestGuard())
	engine.Use(m.ErrorHandler())

	engine.GET(s.config.Monitoring.HealthCheckPath, s.health.Handler())
	engine.GET(s.config.Monitoring.ReadinessPath, s.health.ReadinessHandler())
	engine.GET("/live", s.health.LivenessHandler())

	v1 := engine.Group("/admin/v1")
	{
		v1.POST("/auth/token", s.handlers.IssueToken)

		protected := v1.Group("")
		protected.Use(s.auth.AuthMiddleware())
		{
			protected.POST("/catalog/reload", s.handlers.ReloadCatalog)
			protected.GET("/catalog/status", s.handlers.CatalogStatus)
			protected.GET("/stores", s.handlers.ListStores)
			protected.GET("/recalls", s.handlers.ActiveRecalls)
			protected.POST("/recalls", s.handlers.RecordRecall)
			protected.POST("/residues", s.handlers.SetResidue)
		}
	}

	return engine
}

// Start starts the operator API server
func (s *AdminServer) Start() error {
	s.logger.Info("Starting operator API server",
		zap.String("address", s.server.Addr),
	)

	return s.server.ListenAndServe()
}

// Server returns the underlying HTTP server instance
func (s *AdminServer) Server() *http.Server {
	return s.server
}

// Engine returns the configured gin engine, for tests that drive the
// server without a listener.
func (s *AdminServer) Engine() *gin.Engine {
	return s.engine
}

// Shutdown gracefully shuts down the operator API server
func (s *AdminServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down operator API server...")
	return s.server.Shutdown(ctx)
}
