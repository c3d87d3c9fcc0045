package telemetry

import "time"

// Config holds the configuration for telemetry
type Config struct {
	// Production mode - OTLP over gRPC
	OTLPEndpoint   string
	ServiceName    string
	Environment    string
	ServiceVersion string

	// Local mode - spans and logs appended to JSON files
	ExportToFile   bool
	TracesFilePath string
	LogsFilePath   string

	SamplingRate    float64
	LogLevel        string
	MetricsInterval time.Duration

	EnableTracing bool
	EnableMetrics bool
}

// DefaultConfig returns telemetry settings for a local gateway: info logs,
// tracing and OTLP metrics off.
func DefaultConfig() *Config {
	return &Config{
		OTLPEndpoint:    "localhost:4317",
		ServiceName:     "eislager-gateway",
		Environment:     "development",
		ServiceVersion:  "dev",
		TracesFilePath:  "/tmp/otel/traces.json",
		LogsFilePath:    "/tmp/otel/logs.json",
		SamplingRate:    1.0,
		LogLevel:        "info",
		MetricsInterval: 10 * time.Second,
	}
}
