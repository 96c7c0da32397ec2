package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Cache key spaces reported by the plan cache metrics.
const (
	CacheSpaceID          = "id"
	CacheSpaceFingerprint = "fingerprint"
)

// Plan outcomes reported by PlanCompleted.
const (
	PlanOutcomeCreated  = "created"
	PlanOutcomeCached   = "cached"
	PlanOutcomeRejected = "rejected"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Planning metrics
	plansTotal           *prometheus.CounterVec
	planDuration         prometheus.Histogram
	planUnavailableItems prometheus.Counter
	planEliminations     *prometheus.CounterVec
	specialtyPlansTotal  prometheus.Counter
	cacheHitsTotal       *prometheus.CounterVec
	cacheMissesTotal     *prometheus.CounterVec

	// Catalog metrics
	catalogReloadsTotal *prometheus.CounterVec
	catalogRowsLoaded   prometheus.Counter
	catalogRowsSkipped  prometheus.Counter
	catalogProducts     prometheus.Gauge
	catalogStores       prometheus.Gauge
	catalogLastReload   prometheus.Gauge

	// System metrics
	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge
	uptimeSeconds       prometheus.Counter
	errorRateTotal      *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector backed by its own
// registry, so repeated construction in tests never trips the duplicate
// registration panic of the default registerer.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger,
		registry: registry,

		// HTTP metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path", "status_code"},
		),

		// Planning metrics
		plansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plans_total",
				Help: "Total number of plan requests by outcome",
			},
			[]string{"outcome"},
		),
		planDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plan_duration_seconds",
				Help:    "Time spent computing a plan, excluding cache hits",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		planUnavailableItems: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "plan_unavailable_items_total",
				Help: "Total number of requested items no store could satisfy",
			},
		),
		planEliminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_eliminations_total",
				Help: "Total number of candidate products eliminated, by reason",
			},
			[]string{"reason"},
		),
		specialtyPlansTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "specialty_plans_total",
				Help: "Total number of plans that requested specialty items",
			},
		),
		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_cache_hits_total",
				Help: "Total number of plan cache hits by key space",
			},
			[]string{"space"},
		),
		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_cache_misses_total",
				Help: "Total number of plan cache misses by key space",
			},
			[]string{"space"},
		),

		// Catalog metrics
		catalogReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_reloads_total",
				Help: "Total number of catalog reloads by status",
			},
			[]string{"status"},
		),
		catalogRowsLoaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_rows_loaded_total",
				Help: "Total number of catalog rows accepted across reloads",
			},
		),
		catalogRowsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_rows_skipped_total",
				Help: "Total number of malformed catalog rows skipped across reloads",
			},
		),
		catalogProducts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_products",
				Help: "Number of products in the active catalog",
			},
		),
		catalogStores: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_stores",
				Help: "Number of stores in the active catalog",
			},
		),
		catalogLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_last_reload_timestamp_seconds",
				Help: "Unix timestamp of the last successful catalog reload",
			},
		),

		// System metrics
		dbConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active facts store connections",
			},
		),
		dbConnectionsIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle facts store connections",
			},
		),
		uptimeSeconds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "uptime_seconds_total",
				Help: "Total uptime in seconds",
			},
		),
		errorRateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "error_rate_total",
				Help: "Total error rate",
			},
			[]string{"service", "error_type"},
		),
	}
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		if c.Request.ContentLength > 0 {
			m.httpRequestSize.WithLabelValues(
				c.Request.Method,
				c.FullPath(),
			).Observe(float64(c.Request.ContentLength))
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())

		m.recordHTTP(c.Request.Method, c.FullPath(), statusCode, duration, float64(c.Writer.Size()))
	}
}

// ChiMiddleware creates a chi-compatible middleware for HTTP metrics
// collection. The route pattern is resolved after the handler runs so
// path parameters collapse into a single label value.
func (m *MetricsCollector) ChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			if r.ContentLength > 0 {
				m.httpRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			statusCode := strconv.Itoa(ww.Status())

			m.recordHTTP(r.Method, routePattern(r), statusCode, duration, float64(ww.BytesWritten()))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func (m *MetricsCollector) recordHTTP(method, path, statusCode string, duration, responseSize float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
	m.httpResponseSize.WithLabelValues(method, path, statusCode).Observe(responseSize)

	if code, err := strconv.Atoi(statusCode); err == nil && code >= 400 {
		errorType := "client_error"
		if code >= 500 {
			errorType = "server_error"
		}
		m.errorRateTotal.WithLabelValues("http", errorType).Inc()
	}
}

// Planning metric methods
func (m *MetricsCollector) PlanCompleted(outcome string, duration time.Duration) {
	m.plansTotal.WithLabelValues(outcome).Inc()
	if outcome == PlanOutcomeCreated {
		m.planDuration.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) UnavailableItems(count int) {
	if count > 0 {
		m.planUnavailableItems.Add(float64(count))
	}
}

func (m *MetricsCollector) Eliminations(reason string, count int) {
	if count > 0 {
		m.planEliminations.WithLabelValues(reason).Add(float64(count))
	}
}

func (m *MetricsCollector) SpecialtyPlan() {
	m.specialtyPlansTotal.Inc()
}

func (m *MetricsCollector) CacheHit(space string) {
	m.cacheHitsTotal.WithLabelValues(space).Inc()
}

func (m *MetricsCollector) CacheMiss(space string) {
	m.cacheMissesTotal.WithLabelValues(space).Inc()
}

// Catalog metric methods
func (m *MetricsCollector) CatalogReloaded(products, stores, rowsSkipped int) {
	m.catalogReloadsTotal.WithLabelValues("success").Inc()
	m.catalogRowsLoaded.Add(float64(products))
	m.catalogRowsSkipped.Add(float64(rowsSkipped))
	m.catalogProducts.Set(float64(products))
	m.catalogStores.Set(float64(stores))
	m.catalogLastReload.SetToCurrentTime()
}

func (m *MetricsCollector) CatalogReloadFailed() {
	m.catalogReloadsTotal.WithLabelValues("error").Inc()
}

// System metric methods
func (m *MetricsCollector) UpdateDBConnections(active, idle int) {
	m.dbConnectionsActive.Set(float64(active))
	m.dbConnectionsIdle.Set(float64(idle))
}

func (m *MetricsCollector) RecordError(service, errorType string) {
	m.errorRateTotal.WithLabelValues(service, errorType).Inc()
}

// StartUptimeCounter starts the uptime counter
func (m *MetricsCollector) StartUptimeCounter(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.uptimeSeconds.Inc()
		}
	}
}

// Registry exposes the backing registry so the OpenTelemetry bridge can
// publish its meters through the same scrape endpoint.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(m.logger),
	})
}
