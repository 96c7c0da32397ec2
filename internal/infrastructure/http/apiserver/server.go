// Package apiserver provides the public planning API: pure JSON over
// chi, no templates and no operator surface.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/http/middleware"
	"github.com/cartwise/v3/internal/infrastructure/monitoring"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/pkg/healthcheck"
)

// APIServer serves plan creation and catalog reads to shoppers.
type APIServer struct {
	config         *config.Config
	logger         *zap.Logger
	server         *http.Server
	router         *chi.Mux
	handlers       *PlanHandlers
	health         *healthcheck.HealthCheck
	metrics        *monitoring.MetricsCollector
	telemetry      *monitoring.OpenTelemetryProvider
	rateLimiter    *middleware.RateLimiter
	openAPIHandler *OpenAPIHandler
}

// NewAPIServer creates a new planning API server instance
func NewAPIServer(
	cfg *config.Config,
	log *zap.Logger,
	planningService inbound.PlanningService,
	metrics *monitoring.MetricsCollector,
	telemetry *monitoring.OpenTelemetryProvider,
	health *healthcheck.HealthCheck,
) *APIServer {
	server := &APIServer{
		config:         cfg,
		logger:         log,
		handlers:       NewPlanHandlers(cfg, planningService, metrics, log),
		health:         health,
		metrics:        metrics,
		telemetry:      telemetry,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimit, log),
		openAPIHandler: NewOpenAPIHandler(log),
	}

	server.router = server.setupRoutes()

	var handler http.Handler = server.router
	if telemetry != nil && cfg.Monitoring.EnableTracing {
		handler = telemetry.InstrumentHTTPHandler(handler, "cartwise-api")
	}

	server.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return server
}

// setupRoutes configures the JSON API routes
func (s *APIServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware for the API
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.metrics.ChiMiddleware())
	r.Use(middleware.Logger(s.config, s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS(s.config))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	if s.config.Server.EnableCompression {
		r.Use(middleware.Compression())
	}

	// Probes and the scrape endpoint sit outside the rate limit
	r.Get(s.config.Monitoring.HealthCheckPath, s.health.HTTPHandler())
	r.Get(s.config.Monitoring.ReadinessPath, s.health.HTTPReadinessHandler())
	r.Get("/live", s.health.HTTPLivenessHandler())
	if s.config.Monitoring.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.config.Server.EnablePprof {
		r.Mount("/debug", chimiddleware.Profiler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// OpenAPI documentation
		r.Get("/openapi.yaml", s.openAPIHandler.ServeOpenAPISpec)
		r.Get("/docs", s.openAPIHandler.ServeSwaggerUI)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JSONOnly())
			r.Use(s.rateLimiter.Middleware())

			r.Post("/plans", s.handlers.CreatePlan)
			r.Get("/plans/{id}", s.handlers.GetPlan)
			r.Get("/stores", s.handlers.ListStores)
			r.Get("/ingredients/{name}/coverage", s.handlers.IngredientCoverage)
			r.Get("/version", s.handlers.Version)
		})
	})

	return r
}

// Start starts the planning API server
func (s *APIServer) Start() error {
	// Enable HTTP/2
	if err := http2.ConfigureServer(s.server, nil); err != nil {
		s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
	}

	s.logger.Info("Starting planning API server",
		zap.String("address", s.server.Addr),
	)

	return s.server.ListenAndServe()
}

// Server returns the underlying HTTP server instance
func (s *APIServer) Server() *http.Server {
	return s.server
}

// Router returns the configured router, for tests that drive the
// server without a listener.
func (s *APIServer) Router() *chi.Mux {
	return s.router
}

// Shutdown gracefully shuts down the planning API server
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down planning API server...")
	s.rateLimiter.Close()
	return s.server.Shutdown(ctx)
}
