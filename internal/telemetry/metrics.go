package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const namespace = "eislager"

// Metrics holds the Prometheus collectors for SDK clients, the gateway and
// the Redis token store. Each Metrics owns its registry, so tests can build
// as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// SDK client metrics
	clientRequests       *prometheus.CounterVec
	clientDuration       *prometheus.HistogramVec
	clientRetries        *prometheus.CounterVec
	fallbacks            *prometheus.CounterVec
	sessionInvalidations *prometheus.CounterVec
	circuitState         *prometheus.GaugeVec
	circuitTransitions   *prometheus.CounterVec

	// Gateway metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	serviceUp           prometheus.Gauge

	// Token store metrics
	storeOperationDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector, plus the Go and process collectors,
// on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.clientRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_requests_total",
		Help:      "Logical SDK requests by outcome. Fallback responses count as ok.",
	}, []string{"service", "method", "outcome"})

	m.clientDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Duration of logical SDK requests including retries",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method"})

	m.clientRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_retries_total",
		Help:      "Retries of request-construction failures",
	}, []string{"service"})

	m.fallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_fallbacks_total",
		Help:      "Requests answered with synthesized data",
	}, []string{"service", "category"})

	m.sessionInvalidations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_session_invalidations_total",
		Help:      "Sessions cleared after a 401",
	}, []string{"service", "purge"})

	m.circuitState = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "client_circuit_state",
		Help:      "Circuit breaker state per service (0 closed, 1 open, 2 half-open)",
	}, []string{"service"})

	m.circuitTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_circuit_transitions_total",
		Help:      "Circuit breaker state changes",
	}, []string{"service", "from", "to"})

	m.httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of gateway HTTP requests",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of gateway HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.serviceUp = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "service_up",
		Help:      "Whether the gateway is up (1) or down (0)",
	})

	m.storeOperationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "token_store_operation_duration_seconds",
		Help:      "Duration of token store operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetUp flips the service_up gauge.
func (m *Metrics) SetUp(up bool) {
	if up {
		m.serviceUp.Set(1)
	} else {
		m.serviceUp.Set(0)
	}
}

// RecordHTTPRequest records a gateway request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordStoreOperation records a token store operation duration
func (m *Metrics) RecordStoreOperation(operation, status string, duration time.Duration) {
	m.storeOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// InitMetrics installs an OTLP meter provider when metrics export is enabled.
// Prometheus collectors work without it.
func InitMetrics(ctx context.Context, cfg *Config) error {
	if !cfg.EnableMetrics || cfg.ExportToFile {
		return nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return err
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricsInterval))),
	)
	otel.SetMeterProvider(provider)
	return nil
}

// CloseMetrics flushes and stops the OTLP meter provider, if one is installed.
func CloseMetrics(ctx context.Context) error {
	if mp, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider); ok {
		return mp.Shutdown(ctx)
	}
	return nil
}
