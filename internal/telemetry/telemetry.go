package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Init initializes the logger, tracing and OTLP metrics.
func Init(ctx context.Context, cfg *Config) error {
	if err := InitLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := InitTracing(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := InitMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	L().WithFields(map[string]interface{}{
		"service":      cfg.ServiceName,
		"version":      cfg.ServiceVersion,
		"environment":  cfg.Environment,
		"exportToFile": cfg.ExportToFile,
	}).Info("Telemetry initialized")
	return nil
}

// Shutdown flushes exporters and closes the log file.
func Shutdown(ctx context.Context) error {
	return errors.Join(CloseTracing(ctx), CloseMetrics(ctx), CloseLogger())
}

// routeLabel uses the matched route pattern so path parameters do not blow
// up label cardinality.
func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

// FiberMetricsMiddleware records request metrics and wraps each request in a
// server span.
func FiberMetricsMiddleware(m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		ctx, span := StartSpan(c.UserContext(), c.Method()+" "+c.Path())
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		// The error handler has not run yet, so map the error to its status.
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		m.RecordHTTPRequest(c.Method(), routeLabel(c), status, time.Since(start))

		span.SetAttributes(
			semconv.HTTPMethodKey.String(c.Method()),
			semconv.HTTPTargetKey.String(c.OriginalURL()),
			semconv.HTTPRouteKey.String(routeLabel(c)),
			semconv.HTTPStatusCodeKey.Int(status),
		)
		switch {
		case err != nil:
			RecordError(ctx, err)
			SetErrorStatus(ctx, err.Error())
		case status >= 500:
			SetErrorStatus(ctx, fmt.Sprintf("HTTP %d", status))
		default:
			SetOKStatus(ctx)
		}
		return err
	}
}

// FiberLoggingMiddleware logs one structured line per request.
func FiberLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		entry := WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		})
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			entry = entry.WithField("request_id", rid)
		}

		switch {
		case err != nil:
			entry.WithError(err).Error("Request failed")
		case c.Response().StatusCode() >= 400:
			entry.Warn("Request completed with error status")
		default:
			entry.Info("Request completed")
		}
		return err
	}
}

// TimeOperation times an operation into the token store histogram and a
// span. Call the returned func with "ok" or "error".
func TimeOperation(ctx context.Context, m *Metrics, operation string) func(status string) {
	start := time.Now()
	ctx, span := StartSpan(ctx, operation)

	return func(status string) {
		duration := time.Since(start)
		if m != nil {
			m.RecordStoreOperation(operation, status, duration)
		}
		if status == "error" {
			SetErrorStatus(ctx, "operation failed")
		} else {
			SetOKStatus(ctx)
		}
		span.End()

		WithContext(ctx).WithFields(map[string]interface{}{
			"operation": operation,
			"status":    status,
			"duration":  duration.Milliseconds(),
		}).Debug("Operation completed")
	}
}
