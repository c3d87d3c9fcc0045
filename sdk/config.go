package sdk

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Logical backend services. Each one gets its own client instance.
const (
	ServiceAuth           = "auth"
	ServiceSales          = "sales"
	ServiceInventory      = "inventory"
	ServiceAdmin          = "admin"
	ServiceCommunications = "communications"
	ServiceAnalytics      = "analytics"
)

// AllServices lists the logical services in a stable order.
var AllServices = []string{
	ServiceAuth,
	ServiceSales,
	ServiceInventory,
	ServiceAdmin,
	ServiceCommunications,
	ServiceAnalytics,
}

// DefaultUserAgent is sent with every request unless overridden by a header.
const DefaultUserAgent = "eislager-go-sdk/1.0.0"

// Config holds the configuration for one service client.
// All fields except BaseURL have sensible defaults.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := sdk.DefaultConfig().
//	    WithService(sdk.ServiceInventory).
//	    WithBaseURL("http://inventory.internal:3003").
//	    WithTimeout(5 * time.Second).
//	    WithRetries(3)
//
//	client, err := sdk.NewClient(config)
//
// NewClient copies the Config; mutating it afterwards has no effect on the
// client.
type Config struct {
	// Service is the logical service name used in observer callbacks,
	// metrics and error context.
	// Default: "default"
	Service string

	// BaseURL is the base URL of the service. Request paths are appended
	// to it verbatim.
	// Default: "http://localhost:3000"
	BaseURL string

	// Timeout bounds each attempt, from dial to reading the body.
	// Default: 10s
	Timeout time.Duration

	// RetryConfig configures retries of request-construction failures.
	RetryConfig RetryConfig

	// TransportConfig holds HTTP transport settings.
	TransportConfig TransportConfig

	// Headers are sent with every request. Per-call headers win on conflict.
	Headers map[string]string

	// CircuitBreakerConfig enables the circuit breaker when non-nil.
	CircuitBreakerConfig *CircuitBreakerConfig

	// RetryStrategy overrides the linear backoff derived from RetryConfig.
	RetryStrategy RetryStrategy

	// Observer receives request, retry, fallback and session events.
	// If nil, NoopObserver is used.
	Observer Observer

	// Fallback resolves synthetic data for availability failures.
	// If nil, DefaultFallbackResolver is used.
	Fallback *FallbackResolver

	// DisableFallback surfaces availability failures as errors instead of
	// masking them.
	DisableFallback bool

	// TokenStore is purged when a service answers 401. If nil, nothing is
	// persisted.
	TokenStore TokenStore
}

// RetryConfig holds retry-related configuration.
//
// Only request-construction failures are retried. The delay before retry n
// is Interval * n.
type RetryConfig struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	// Set to 0 to disable retries.
	// Default: 3
	MaxRetries int

	// Interval is the linear backoff step.
	// Default: 1s
	Interval time.Duration
}

// TransportConfig holds HTTP transport configuration for connection pooling.
//
// Example:
//
//	config.TransportConfig = sdk.TransportConfig{
//	    MaxIdleConns:    200,
//	    MaxConnsPerHost: 50,
//	    IdleConnTimeout: 120 * time.Second,
//	}
type TransportConfig struct {
	// MaxIdleConns controls the maximum number of idle connections
	// across all hosts. Zero means no limit.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost controls the maximum connections per host.
	// Default: 10
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain idle
	// before closing itself.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults:
//   - Base URL: http://localhost:3000
//   - Timeout: 10 seconds per attempt
//   - Retries: 3, linear backoff of 1s, 2s, 3s
//   - Fallback enabled, circuit breaker disabled
func DefaultConfig() *Config {
	return &Config{
		Service: "default",
		BaseURL: "http://localhost:3000",
		Timeout: 10 * time.Second,
		RetryConfig: RetryConfig{
			MaxRetries: 3,
			Interval:   time.Second,
		},
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Headers:  make(map[string]string),
		Observer: &NoopObserver{},
	}
}

// WithService sets the logical service name.
func (c *Config) WithService(name string) *Config {
	c.Service = name
	return c
}

// WithBaseURL sets the base URL of the service, without a trailing slash.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithBaseURL("http://sales.internal:3002")
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithTimeout sets the per-attempt timeout.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRetries sets the maximum number of retries.
func (c *Config) WithRetries(maxRetries int) *Config {
	c.RetryConfig.MaxRetries = maxRetries
	return c
}

// WithRetryInterval sets the linear backoff step.
func (c *Config) WithRetryInterval(interval time.Duration) *Config {
	c.RetryConfig.Interval = interval
	return c
}

// WithHeader adds a default header sent with every request.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithHeader("X-Tenant-ID", "north-1")
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithCircuitBreaker enables the circuit breaker. While the circuit is open
// the client answers from fallback without touching the network.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithCircuitBreaker(sdk.CircuitBreakerConfig{
//	        FailureThreshold: 5,
//	        SuccessThreshold: 2,
//	        Timeout:          30 * time.Second,
//	    })
func (c *Config) WithCircuitBreaker(config CircuitBreakerConfig) *Config {
	c.CircuitBreakerConfig = &config
	return c
}

// WithRetryStrategy replaces the default linear backoff.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithRetryStrategy(sdk.RetryStrategyFunc(2, func(attempt int) time.Duration {
//	        return time.Duration(attempt*attempt) * 100 * time.Millisecond
//	    }))
func (c *Config) WithRetryStrategy(strategy RetryStrategy) *Config {
	c.RetryStrategy = strategy
	return c
}

// WithObserver sets the observer for monitoring client operations.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithFallback sets the fallback resolver.
func (c *Config) WithFallback(resolver *FallbackResolver) *Config {
	c.Fallback = resolver
	return c
}

// WithoutFallback makes availability failures surface as errors.
func (c *Config) WithoutFallback() *Config {
	c.DisableFallback = true
	return c
}

// WithTokenStore sets the store purged on 401.
func (c *Config) WithTokenStore(store TokenStore) *Config {
	c.TokenStore = store
	return c
}

// Validate validates the configuration and sets defaults for missing values.
// It is called automatically by NewClient.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: invalid base URL: %v", ErrInvalidConfig, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL must have a scheme and host", ErrInvalidConfig)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Service == "" {
		c.Service = "default"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryConfig.MaxRetries < 0 {
		c.RetryConfig.MaxRetries = 0
	}
	if c.RetryConfig.Interval <= 0 {
		c.RetryConfig.Interval = time.Second
	}
	if c.Observer == nil {
		c.Observer = &NoopObserver{}
	}
	if c.Fallback == nil {
		c.Fallback = DefaultFallbackResolver()
	}
	if c.CircuitBreakerConfig != nil {
		if c.CircuitBreakerConfig.FailureThreshold <= 0 {
			c.CircuitBreakerConfig.FailureThreshold = 5
		}
		if c.CircuitBreakerConfig.SuccessThreshold <= 0 {
			c.CircuitBreakerConfig.SuccessThreshold = 2
		}
		if c.CircuitBreakerConfig.Timeout <= 0 {
			c.CircuitBreakerConfig.Timeout = 30 * time.Second
		}
		if c.CircuitBreakerConfig.HalfOpenRequests <= 0 {
			c.CircuitBreakerConfig.HalfOpenRequests = 3
		}
	}
	return nil
}

// clone returns a copy that does not share mutable maps with c.
func (c *Config) clone() *Config {
	cp := *c
	cp.Headers = make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		cp.Headers[k] = v
	}
	if c.CircuitBreakerConfig != nil {
		cb := *c.CircuitBreakerConfig
		cp.CircuitBreakerConfig = &cb
	}
	return &cp
}

// retryStrategy returns the configured strategy or the linear backoff
// derived from RetryConfig.
func (c *Config) retryStrategy() RetryStrategy {
	if c.RetryStrategy != nil {
		return c.RetryStrategy
	}
	return &LinearBackoffStrategy{
		Step:   c.RetryConfig.Interval,
		Budget: RetryBudget{MaxRetries: c.RetryConfig.MaxRetries},
	}
}

// ServicesConfig configures the six service clients built by NewServices.
//
// Example:
//
//	cfg := sdk.DefaultServicesConfig()
//	cfg.BaseURLs[sdk.ServiceSales] = "http://sales.internal:3002"
//	services, err := sdk.NewServices(cfg)
type ServicesConfig struct {
	// BaseURLs maps a service name to its base URL.
	BaseURLs map[string]string

	// Template supplies every other Config field. Service and BaseURL are
	// overwritten per service.
	Template *Config
}

// DefaultServicesConfig returns local development URLs on ports 3001-3006.
func DefaultServicesConfig() *ServicesConfig {
	return &ServicesConfig{
		BaseURLs: map[string]string{
			ServiceAuth:           "http://localhost:3001",
			ServiceSales:          "http://localhost:3002",
			ServiceInventory:      "http://localhost:3003",
			ServiceAdmin:          "http://localhost:3004",
			ServiceCommunications: "http://localhost:3005",
			ServiceAnalytics:      "http://localhost:3006",
		},
		Template: DefaultConfig(),
	}
}

// ServiceConfig returns the Config for one service.
func (sc *ServicesConfig) ServiceConfig(service string) (*Config, error) {
	base, ok := sc.BaseURLs[service]
	if !ok || base == "" {
		return nil, fmt.Errorf("%w: no base URL for service %q", ErrInvalidConfig, service)
	}
	tmpl := sc.Template
	if tmpl == nil {
		tmpl = DefaultConfig()
	}
	cfg := tmpl.clone()
	cfg.Service = service
	cfg.BaseURL = base
	return cfg, nil
}
