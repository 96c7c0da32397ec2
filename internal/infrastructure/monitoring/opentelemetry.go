package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OpenTelemetryConfig holds OpenTelemetry configuration
type OpenTelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Tracing configuration
	TracingEnabled    bool
	JaegerEndpoint    string
	OTLPTraceEndpoint string
	SamplingRate      float64

	// Metrics configuration
	MetricsEnabled bool

	// Resource attributes
	ResourceAttributes map[string]string
}

// OpenTelemetryProvider provides unified OpenTelemetry functionality
type OpenTelemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *zap.Logger
	config         OpenTelemetryConfig
}

// NewOpenTelemetryProvider creates a new OpenTelemetry provider. Meters are
// exported through the given Prometheus registerer so they share the scrape
// endpoint with the MetricsCollector.
func NewOpenTelemetryProvider(config OpenTelemetryConfig, logger *zap.Logger, registerer prometheus.Registerer) (*OpenTelemetryProvider, error) {
	provider := &OpenTelemetryProvider{
		logger: logger,
		config: config,
	}

	res, err := provider.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if config.TracingEnabled {
		if err := provider.initializeTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if config.MetricsEnabled {
		if err := provider.initializeMetrics(res, registerer); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.Info("OpenTelemetry provider initialized",
		zap.String("service", config.ServiceName),
		zap.String("version", config.ServiceVersion),
		zap.String("environment", config.Environment),
		zap.Bool("tracing_enabled", config.TracingEnabled),
		zap.Bool("metrics_enabled", config.MetricsEnabled),
	)

	return provider, nil
}

// createResource creates an OpenTelemetry resource
func (o *OpenTelemetryProvider) createResource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(o.config.ServiceName),
		semconv.ServiceVersion(o.config.ServiceVersion),
		semconv.DeploymentEnvironment(o.config.Environment),
	}

	for key, value := range o.config.ResourceAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}

	return resource.New(
		context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
}

// initializeTracing sets up distributed tracing
func (o *OpenTelemetryProvider) initializeTracing(res *resource.Resource) error {
	var exporters []sdktrace.SpanExporter

	if o.config.JaegerEndpoint != "" {
		jaegerExporter, err := jaeger.New(
			jaeger.WithCollectorEndpoint(
				jaeger.WithEndpoint(o.config.JaegerEndpoint),
			),
		)
		if err != nil {
			return fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
		exporters = append(exporters, jaegerExporter)
		o.logger.Info("Jaeger exporter configured", zap.String("endpoint", o.config.JaegerEndpoint))
	}

	if o.config.OTLPTraceEndpoint != "" {
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(o.config.OTLPTraceEndpoint),
			otlptracehttp.WithInsecure(),
		)
		otlpExporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporters = append(exporters, otlpExporter)
		o.logger.Info("OTLP trace exporter configured", zap.String("endpoint", o.config.OTLPTraceEndpoint))
	}

	if len(exporters) == 0 {
		o.logger.Warn("No trace exporters configured, tracing stays disabled")
		return nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(o.config.SamplingRate)),
	}
	for _, exporter := range exporters {
		opts = append(opts, sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)))
	}

	o.tracerProvider = sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(o.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	o.tracer = otel.Tracer(
		o.config.ServiceName,
		trace.WithInstrumentationVersion(o.config.ServiceVersion),
		trace.WithSchemaURL(semconv.SchemaURL),
	)

	return nil
}

// initializeMetrics sets up metrics collection
func (o *OpenTelemetryProvider) initializeMetrics(res *resource.Resource, registerer prometheus.Registerer) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	prometheusExporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	o.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(prometheusExporter),
	)

	otel.SetMeterProvider(o.meterProvider)

	o.meter = otel.Meter(
		o.config.ServiceName,
		metric.WithInstrumentationVersion(o.config.ServiceVersion),
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	return nil
}

// Tracer returns the configured tracer
func (o *OpenTelemetryProvider) Tracer() trace.Tracer {
	return o.tracer
}

// Meter returns the configured meter
func (o *OpenTelemetryProvider) Meter() metric.Meter {
	return o.meter
}

// StartSpan starts a new span
func (o *OpenTelemetryProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, opts...)
}

// StartPlanningSpan starts a span for a planning stage, such as retrieval
// or store selection.
func (o *OpenTelemetryProvider) StartPlanningSpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	spanAttrs := []attribute.KeyValue{
		attribute.String("planning.stage", stage),
	}
	spanAttrs = append(spanAttrs, attrs...)

	return o.tracer.Start(ctx, fmt.Sprintf("planning.%s", stage),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(spanAttrs...),
	)
}

// StartExternalSpan starts a span for external service calls
func (o *OpenTelemetryProvider) StartExternalSpan(ctx context.Context, serviceName, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	spanAttrs := []attribute.KeyValue{
		attribute.String("external.service", serviceName),
		attribute.String("external.operation", operation),
	}
	spanAttrs = append(spanAttrs, attrs...)

	return o.tracer.Start(ctx, fmt.Sprintf("external.%s.%s", serviceName, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttrs...),
	)
}

// InstrumentHTTPHandler instruments HTTP handlers with tracing
func (o *OpenTelemetryProvider) InstrumentHTTPHandler(handler http.Handler, operation string) http.Handler {
	if o.tracer == nil {
		return handler
	}

	return otelhttp.NewHandler(handler, operation,
		otelhttp.WithTracerProvider(o.tracerProvider),
		otelhttp.WithMeterProvider(o.meterProvider),
	)
}

// CreateCounter creates a new counter metric
func (o *OpenTelemetryProvider) CreateCounter(name, description, unit string) (metric.Int64Counter, error) {
	if o.meter == nil {
		return nil, fmt.Errorf("meter not initialized")
	}

	return o.meter.Int64Counter(name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
}

// CreateHistogram creates a new histogram metric
func (o *OpenTelemetryProvider) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	if o.meter == nil {
		return nil, fmt.Errorf("meter not initialized")
	}

	return o.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
}

// RecordSpanEvent records an event in the current span
func (o *OpenTelemetryProvider) RecordSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error in the current span
func (o *OpenTelemetryProvider) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func (o *OpenTelemetryProvider) SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}

// GetTraceID returns the trace ID from the current context
func (o *OpenTelemetryProvider) GetTraceID(ctx context.Context) string {
	return TraceIDFromContext(ctx)
}

// GetSpanID returns the span ID from the current context
func (o *OpenTelemetryProvider) GetSpanID(ctx context.Context) string {
	return SpanIDFromContext(ctx)
}

// Shutdown gracefully shuts down the OpenTelemetry provider
func (o *OpenTelemetryProvider) Shutdown(ctx context.Context) error {
	var errs []error

	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	o.logger.Info("OpenTelemetry provider shutdown completed")
	return nil
}

// TraceIDFromContext extracts the trace ID from context for log correlation
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanIDFromContext extracts the span ID from context for log correlation
func SpanIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasSpanID() {
		return ""
	}
	return sc.SpanID().String()
}
