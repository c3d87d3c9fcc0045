package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/eislager/eislager-pro/sdk"
)

// Observer exports SDK client events to logrus, Prometheus and OpenTelemetry.
//
// Fallbacks and session invalidations are logged at warn, retries at info and
// completed requests at debug.
type Observer struct {
	log       logrus.FieldLogger
	metrics   *Metrics
	tracer    trace.Tracer
	fallbacks metric.Int64Counter
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithLogger replaces the global logger.
func WithLogger(log logrus.FieldLogger) ObserverOption {
	return func(o *Observer) { o.log = log }
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) ObserverOption {
	return func(o *Observer) { o.tracer = tracer }
}

// NewObserver creates an Observer recording into metrics. metrics may be nil
// when only logs and spans are wanted.
func NewObserver(metrics *Metrics, opts ...ObserverOption) *Observer {
	o := &Observer{metrics: metrics}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = L()
	}
	if o.tracer == nil {
		o.tracer = Tracer()
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter("eislager.client.fallbacks",
		metric.WithDescription("Requests answered with synthesized data"))
	if err != nil {
		o.log.WithError(err).Warn("OTEL fallback counter unavailable")
	}
	o.fallbacks = counter
	return o
}

var (
	_ sdk.Observer               = (*Observer)(nil)
	_ sdk.RequestContextObserver = (*Observer)(nil)
)

// outcome labels a finished request: "ok" or the SDK error type.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var sdkErr *sdk.Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Type.String()
	}
	return "unknown"
}

// OnRequestStart logs at trace level
func (o *Observer) OnRequestStart(service, method, path string) {
	o.log.WithFields(logrus.Fields{
		"service": service,
		"method":  method,
		"path":    path,
	}).Trace("Request started")
}

// OnRequestEnd records the request with a root client span
func (o *Observer) OnRequestEnd(service, method, path string, duration time.Duration, err error) {
	o.OnRequestEndContext(context.Background(), service, method, path, duration, err)
}

// OnRequestEndContext records the request and emits a client span covering
// it as a child of the span in ctx, if any.
func (o *Observer) OnRequestEndContext(ctx context.Context, service, method, path string, duration time.Duration, err error) {
	result := outcome(err)

	if o.metrics != nil {
		o.metrics.clientRequests.WithLabelValues(service, method, result).Inc()
		o.metrics.clientDuration.WithLabelValues(service, method).Observe(duration.Seconds())
	}

	end := time.Now()
	_, span := o.tracer.Start(ctx, method+" "+service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(
			attribute.String("eislager.service", service),
			attribute.String("eislager.outcome", result),
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPTargetKey.String(path),
		),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status := sdk.StatusCode(err); status != 0 {
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
		}
	}
	span.End(trace.WithTimestamp(end))

	entry := o.log.WithFields(logrus.Fields{
		"service":  service,
		"method":   method,
		"path":     path,
		"duration": duration.Milliseconds(),
		"outcome":  result,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Debug("Request completed")
}

// OnRetryAttempt logs at info and counts the retry
func (o *Observer) OnRetryAttempt(service, method, path string, attempt int, delay time.Duration, err error) {
	if o.metrics != nil {
		o.metrics.clientRetries.WithLabelValues(service).Inc()
	}
	o.log.WithFields(logrus.Fields{
		"service": service,
		"method":  method,
		"path":    path,
		"attempt": attempt,
		"delay":   delay.Milliseconds(),
	}).WithError(err).Info("Retrying request")
}

// OnCircuitBreakerStateChange tracks the breaker state per service
func (o *Observer) OnCircuitBreakerStateChange(service string, oldState, newState sdk.CircuitState) {
	if o.metrics != nil {
		o.metrics.circuitState.WithLabelValues(service).Set(float64(newState))
		o.metrics.circuitTransitions.WithLabelValues(service, oldState.String(), newState.String()).Inc()
	}

	entry := o.log.WithFields(logrus.Fields{
		"service": service,
		"from":    oldState.String(),
		"to":      newState.String(),
	})
	if newState == sdk.CircuitOpen {
		entry.Warn("Circuit opened")
		return
	}
	entry.Info("Circuit state changed")
}

// OnFallback logs at warn and counts the synthesized response
func (o *Observer) OnFallback(service, method, path string, category sdk.FallbackCategory, cause error) {
	if o.metrics != nil {
		o.metrics.fallbacks.WithLabelValues(service, string(category)).Inc()
	}
	if o.fallbacks != nil {
		o.fallbacks.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("service", service),
			attribute.String("category", string(category)),
		))
	}
	o.log.WithFields(logrus.Fields{
		"service":  service,
		"method":   method,
		"path":     path,
		"category": string(category),
	}).WithError(cause).Warn("Served fallback data")
}

// OnSessionInvalidated logs at warn, or error when the purge failed
func (o *Observer) OnSessionInvalidated(service string, purgeErr error) {
	purge := "ok"
	if purgeErr != nil {
		purge = "failed"
	}
	if o.metrics != nil {
		o.metrics.sessionInvalidations.WithLabelValues(service, purge).Inc()
	}

	entry := o.log.WithField("service", service)
	if purgeErr != nil {
		entry.WithError(purgeErr).Error("Session invalidated but token purge failed")
		return
	}
	entry.Warn("Session invalidated")
}
