package config

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/eislager/eislager-pro/internal/cache"
	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

// ServicesConfig builds the SDK configuration for all six services.
func (c *Config) ServicesConfig(observer sdk.Observer, store sdk.TokenStore) *sdk.ServicesConfig {
	tmpl := sdk.DefaultConfig().
		WithTimeout(c.Client.Timeout).
		WithRetries(c.Client.MaxRetries).
		WithRetryInterval(c.Client.RetryInterval).
		WithTokenStore(store)
	for k, v := range c.Client.Headers {
		tmpl.WithHeader(k, v)
	}
	if observer != nil {
		tmpl.WithObserver(observer)
	}
	if c.Client.CircuitBreaker {
		tmpl.WithCircuitBreaker(sdk.DefaultCircuitBreakerConfig())
	}
	if !c.Client.Fallback {
		tmpl.WithoutFallback()
	}

	urls := make(map[string]string, len(c.Services))
	for name, url := range c.Services {
		urls[name] = url
	}
	return &sdk.ServicesConfig{BaseURLs: urls, Template: tmpl}
}

// TelemetryConfig converts the telemetry section.
func (c *Config) TelemetryConfig(version string) *telemetry.Config {
	out := telemetry.DefaultConfig()
	out.ServiceName = c.Telemetry.ServiceName
	out.ServiceVersion = version
	out.Environment = c.Telemetry.Environment
	out.LogLevel = c.Telemetry.LogLevel
	out.EnableTracing = c.Telemetry.Tracing
	out.EnableMetrics = c.Telemetry.Metrics
	out.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	out.ExportToFile = c.Telemetry.ExportToFile
	out.TracesFilePath = c.Telemetry.TracesFile
	out.LogsFilePath = c.Telemetry.LogsFile
	out.SamplingRate = c.Telemetry.SamplingRate
	return out
}

// CacheConfig converts the redis section.
func (c *Config) CacheConfig() (*cache.Config, error) {
	host, portStr, err := net.SplitHostPort(c.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis address %q: %w", c.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis port %q: %w", portStr, err)
	}

	out := cache.DefaultConfig()
	out.Host = host
	out.Port = port
	out.Password = c.Redis.Password
	out.DB = c.Redis.DB
	out.DefaultTTL = c.Redis.TTL
	return out, nil
}

// OpenTokenStore opens the configured token store. The returned close func
// releases its connection and is never nil.
func (c *Config) OpenTokenStore(ctx context.Context, metrics *telemetry.Metrics) (sdk.TokenStore, func() error, error) {
	noop := func() error { return nil }

	switch c.TokenStore.Kind {
	case TokenStoreFile:
		return sdk.NewFileTokenStore(c.TokenStore.File), noop, nil
	case TokenStoreRedis:
		cacheCfg, err := c.CacheConfig()
		if err != nil {
			return nil, noop, err
		}
		rc, err := cache.NewRedisCache(ctx, cacheCfg)
		if err != nil {
			return nil, noop, err
		}
		return cache.NewTokenStore(rc, c.TokenStore.Session, cache.WithStoreMetrics(metrics)), rc.Close, nil
	default:
		return sdk.NewMemoryTokenStore(), noop, nil
	}
}
