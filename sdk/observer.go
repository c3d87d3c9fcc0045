package sdk

import (
	"context"
	"sync"
	"time"
)

// Observer provides hooks for monitoring client operations.
//
// Fallback is invisible in the Envelope by contract, so the Observer is the
// only place where a consumer can learn that data was synthesized. Observer
// methods are called synchronously and should be fast and non-blocking.
//
// Example implementation:
//
//	type LogObserver struct{ sdk.NoopObserver }
//
//	func (o *LogObserver) OnFallback(service, method, path string, category sdk.FallbackCategory, cause error) {
//	    log.Printf("[%s] %s %s served from fallback (%s): %v", service, method, path, category, cause)
//	}
//
//	config := sdk.DefaultConfig().WithObserver(&LogObserver{})
type Observer interface {
	// OnRequestStart is called when a logical request starts.
	OnRequestStart(service, method, path string)

	// OnRequestEnd is called when a logical request completes. err is nil
	// when an envelope was returned, including fallback envelopes.
	OnRequestEnd(service, method, path string, duration time.Duration, err error)

	// OnRetryAttempt is called before each retry of a request-construction
	// failure. attempt starts at 1.
	OnRetryAttempt(service, method, path string, attempt int, delay time.Duration, err error)

	// OnCircuitBreakerStateChange is called when a service's circuit changes state.
	OnCircuitBreakerStateChange(service string, oldState, newState CircuitState)

	// OnFallback is called when an availability failure was masked by the
	// fallback resolver.
	OnFallback(service, method, path string, category FallbackCategory, cause error)

	// OnSessionInvalidated is called after a 401 cleared the token. purgeErr
	// is the error returned by the TokenStore purge, if any.
	OnSessionInvalidated(service string, purgeErr error)
}

// RequestContextObserver is implemented by observers that want the caller's
// context when a request completes, for example to parent a trace span.
// When an Observer implements it, OnRequestEndContext is called instead of
// OnRequestEnd.
type RequestContextObserver interface {
	OnRequestEndContext(ctx context.Context, service, method, path string, duration time.Duration, err error)
}

// notifyRequestEnd prefers the context-aware hook.
func notifyRequestEnd(ctx context.Context, o Observer, service, method, path string, duration time.Duration, err error) {
	if co, ok := o.(RequestContextObserver); ok {
		co.OnRequestEndContext(ctx, service, method, path, duration, err)
		return
	}
	o.OnRequestEnd(service, method, path, duration, err)
}

// NoopObserver is an Observer that does nothing.
// It is the default when no Observer is configured, and can be embedded to
// implement only some hooks.
type NoopObserver struct{}

// OnRequestStart does nothing
func (n *NoopObserver) OnRequestStart(service, method, path string) {}

// OnRequestEnd does nothing
func (n *NoopObserver) OnRequestEnd(service, method, path string, duration time.Duration, err error) {
}

// OnRetryAttempt does nothing
func (n *NoopObserver) OnRetryAttempt(service, method, path string, attempt int, delay time.Duration, err error) {
}

// OnCircuitBreakerStateChange does nothing
func (n *NoopObserver) OnCircuitBreakerStateChange(service string, oldState, newState CircuitState) {
}

// OnFallback does nothing
func (n *NoopObserver) OnFallback(service, method, path string, category FallbackCategory, cause error) {
}

// OnSessionInvalidated does nothing
func (n *NoopObserver) OnSessionInvalidated(service string, purgeErr error) {}

// MetricsCollector is a simple in-memory metrics implementation.
//
// Note: This implementation stores all data in memory and is primarily
// intended for debugging and testing. The telemetry package provides an
// Observer that exports to Prometheus.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	client, _ := sdk.NewClient(sdk.DefaultConfig().WithObserver(metrics))
//	// Use client...
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("fallbacks: %v\n", snapshot["fallbacks"])
type MetricsCollector struct {
	mu                  sync.RWMutex
	requestCount        map[string]int64
	latencies           map[string][]time.Duration
	errorCount          map[string]int64
	retryCount          map[string]int64
	retryDelays         []time.Duration
	circuitStateChanges map[string]int64
	fallbackCount       map[FallbackCategory]int64
	sessionInvalidated  int64
}

// NewMetricsCollector creates a new metrics collector.
// The collector is thread-safe and can be used concurrently.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount:        make(map[string]int64),
		latencies:           make(map[string][]time.Duration),
		errorCount:          make(map[string]int64),
		retryCount:          make(map[string]int64),
		circuitStateChanges: make(map[string]int64),
		fallbackCount:       make(map[FallbackCategory]int64),
	}
}

func metricsKey(method, path string) string {
	return method + " " + path
}

// OnRequestStart increments request count
func (m *MetricsCollector) OnRequestStart(service, method, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[metricsKey(method, path)]++
}

// OnRequestEnd records request duration and errors
func (m *MetricsCollector) OnRequestEnd(service, method, path string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricsKey(method, path)
	m.latencies[key] = append(m.latencies[key], duration)
	if err != nil {
		m.errorCount[key]++
	}
}

// OnRetryAttempt increments retry count and records the delay
func (m *MetricsCollector) OnRetryAttempt(service, method, path string, attempt int, delay time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount[metricsKey(method, path)]++
	m.retryDelays = append(m.retryDelays, delay)
}

// OnCircuitBreakerStateChange tracks state changes
func (m *MetricsCollector) OnCircuitBreakerStateChange(service string, oldState, newState CircuitState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitStateChanges[service]++
}

// OnFallback counts fallbacks per category
func (m *MetricsCollector) OnFallback(service, method, path string, category FallbackCategory, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackCount[category]++
}

// OnSessionInvalidated counts session invalidations
func (m *MetricsCollector) OnSessionInvalidated(service string, purgeErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionInvalidated++
}

// RetryDelays returns the delays observed before each retry, in order.
func (m *MetricsCollector) RetryDelays() []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]time.Duration(nil), m.retryDelays...)
}

// FallbackCount returns how many times category was served from fallback.
func (m *MetricsCollector) FallbackCount(category FallbackCategory) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbackCount[category]
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "requests": Map of endpoint to request count
//   - "latencies": Map of endpoint to latency measurements
//   - "errors": Map of endpoint to error count
//   - "retries": Map of endpoint to retry count
//   - "circuit_breaker_state_changes": Map of service to state change count
//   - "fallbacks": Map of fallback category to count
//   - "session_invalidations": Total 401s observed
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requestsCopy := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requestsCopy[k] = v
	}

	latenciesCopy := make(map[string][]time.Duration, len(m.latencies))
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}

	errorsCopy := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errorsCopy[k] = v
	}

	retriesCopy := make(map[string]int64, len(m.retryCount))
	for k, v := range m.retryCount {
		retriesCopy[k] = v
	}

	circuitChangesCopy := make(map[string]int64, len(m.circuitStateChanges))
	for k, v := range m.circuitStateChanges {
		circuitChangesCopy[k] = v
	}

	fallbacksCopy := make(map[string]int64, len(m.fallbackCount))
	for k, v := range m.fallbackCount {
		fallbacksCopy[string(k)] = v
	}

	return map[string]interface{}{
		"requests":                      requestsCopy,
		"latencies":                     latenciesCopy,
		"errors":                        errorsCopy,
		"retries":                       retriesCopy,
		"circuit_breaker_state_changes": circuitChangesCopy,
		"fallbacks":                     fallbacksCopy,
		"session_invalidations":         m.sessionInvalidated,
	}
}

// observedCircuitBreaker wraps a circuit breaker to notify observers of state changes.
type observedCircuitBreaker struct {
	cb       CircuitBreaker
	service  string
	observer Observer

	mu        sync.Mutex
	lastState CircuitState
}

// newObservedCircuitBreaker creates a circuit breaker that notifies an observer
// of state changes.
func newObservedCircuitBreaker(cb CircuitBreaker, service string, observer Observer) CircuitBreaker {
	return &observedCircuitBreaker{
		cb:        cb,
		service:   service,
		observer:  observer,
		lastState: cb.State(),
	}
}

// Execute runs the function and notifies state changes
func (o *observedCircuitBreaker) Execute(fn func() error) error {
	err := o.cb.Execute(fn)
	o.notify()
	return err
}

// State returns the current state
func (o *observedCircuitBreaker) State() CircuitState {
	return o.cb.State()
}

// Reset resets the circuit and notifies of state change
func (o *observedCircuitBreaker) Reset() {
	o.cb.Reset()
	o.notify()
}

func (o *observedCircuitBreaker) notify() {
	current := o.cb.State()

	o.mu.Lock()
	old := o.lastState
	o.lastState = current
	o.mu.Unlock()

	if current != old {
		o.observer.OnCircuitBreakerStateChange(o.service, old, current)
	}
}

// CompositeObserver allows multiple observers to be combined into one.
// All observer methods are called on each child observer in order.
// If an observer panics, it's caught to prevent affecting other observers.
//
// Example:
//
//	observer := sdk.NewCompositeObserver(
//	    sdk.NewMetricsCollector(),
//	    telemetry.NewObserver(),
//	)
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

// each calls fn on every child, recovering from panics.
func (c *CompositeObserver) each(fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				_ = recover()
			}()
			fn(obs)
		}()
	}
}

// OnRequestStart notifies all observers of request start.
func (c *CompositeObserver) OnRequestStart(service, method, path string) {
	c.each(func(o Observer) { o.OnRequestStart(service, method, path) })
}

// OnRequestEnd notifies all observers of request completion.
func (c *CompositeObserver) OnRequestEnd(service, method, path string, duration time.Duration, err error) {
	c.each(func(o Observer) { o.OnRequestEnd(service, method, path, duration, err) })
}

// OnRequestEndContext passes ctx on to the observers that accept it.
func (c *CompositeObserver) OnRequestEndContext(ctx context.Context, service, method, path string, duration time.Duration, err error) {
	c.each(func(o Observer) { notifyRequestEnd(ctx, o, service, method, path, duration, err) })
}

// OnRetryAttempt notifies all observers
func (c *CompositeObserver) OnRetryAttempt(service, method, path string, attempt int, delay time.Duration, err error) {
	c.each(func(o Observer) { o.OnRetryAttempt(service, method, path, attempt, delay, err) })
}

// OnCircuitBreakerStateChange notifies all observers
func (c *CompositeObserver) OnCircuitBreakerStateChange(service string, oldState, newState CircuitState) {
	c.each(func(o Observer) { o.OnCircuitBreakerStateChange(service, oldState, newState) })
}

// OnFallback notifies all observers
func (c *CompositeObserver) OnFallback(service, method, path string, category FallbackCategory, cause error) {
	c.each(func(o Observer) { o.OnFallback(service, method, path, category, cause) })
}

// OnSessionInvalidated notifies all observers
func (c *CompositeObserver) OnSessionInvalidated(service string, purgeErr error) {
	c.each(func(o Observer) { o.OnSessionInvalidated(service, purgeErr) })
}
