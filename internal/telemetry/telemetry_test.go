package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiberMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(FiberMetricsMiddleware(m))
	app.Get("/svc/:service/*", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "down") })

	for _, target := range []string{"/svc/sales/api/v1/orders", "/svc/inventory/api/v1/flavors", "/boom"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/svc/:service/*", "200")),
		"requests are labelled by route pattern")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/boom", "502")))
}

func TestFiberLoggingMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(FiberLoggingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.SetUp(true)
	m.RecordStoreOperation("token_store.load", "ok", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "eislager_service_up 1")
	assert.Contains(t, string(body), `eislager_token_store_operation_duration_seconds_count{operation="token_store.load",status="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")

	m.SetUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.serviceUp))
}

func TestTimeOperation(t *testing.T) {
	m := NewMetrics()
	done := TimeOperation(context.Background(), m, "token_store.save")
	done("error")

	assert.Equal(t, 1, testutil.CollectAndCount(m.storeOperationDuration))
}

func TestNewLogger(t *testing.T) {
	l := NewLogger(&Config{LogLevel: "debug"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l = NewLogger(&Config{LogLevel: "chatty"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestInitLogger_FileExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otel", "logs.json")
	cfg := DefaultConfig()
	cfg.ExportToFile = true
	cfg.LogsFilePath = path
	cfg.LogLevel = "warn"

	require.NoError(t, InitLogger(cfg))
	t.Cleanup(func() {
		_ = CloseLogger()
		loggerMu.Lock()
		logger = nil
		loggerMu.Unlock()
	})

	L().SetOutput(io.Discard)
	L().WithField("service", "sales").Warn("served fallback")
	L().Info("filtered out")
	require.NoError(t, CloseLogger())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.NewDecoder(strings.NewReader(scanner.Text())).Decode(&line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "served fallback", lines[0]["message"])
	assert.Equal(t, "warning", lines[0]["level"])
	assert.Equal(t, "sales", lines[0]["service"])
}

func TestInitTracing_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, InitTracing(context.Background(), cfg))

	_, span := StartSpan(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, CloseTracing(context.Background()))
}
