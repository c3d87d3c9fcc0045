package sdk

import (
	"sync"
	"time"
)

// CircuitState represents the current state of a circuit breaker.
//
// State transitions:
//   - Closed -> Open: When failure threshold is reached
//   - Open -> Half-Open: After timeout period expires
//   - Half-Open -> Closed: When success threshold is reached
//   - Half-Open -> Open: On any failure
//
// While the circuit of a service is open the client does not touch the
// network at all and answers from the fallback resolver.
type CircuitState int

const (
	// CircuitClosed is the normal operating state.
	CircuitClosed CircuitState = iota
	// CircuitOpen short-circuits every request to fallback.
	CircuitOpen
	// CircuitHalfOpen lets a limited number of probe requests through.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks the availability of one service.
//
// Only availability failures (network, timeout, 5xx) count against the
// circuit. A 404 or 409 means the service answered and counts as a success.
type CircuitBreaker interface {
	// Execute runs fn if the circuit allows it. When the circuit rejects
	// the call it returns an Error of type ErrorTypeCircuitOpen without
	// invoking fn.
	Execute(fn func() error) error

	// State returns the current state of the circuit breaker.
	State() CircuitState

	// Reset manually resets the circuit to closed state.
	Reset()
}

// CircuitBreakerConfig holds configuration for circuit breaker behavior.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithCircuitBreaker(sdk.CircuitBreakerConfig{
//	        FailureThreshold: 3,
//	        Timeout:          10 * time.Second,
//	    })
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive availability failures
	// before the circuit opens.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes required
	// in half-open state before the circuit closes.
	// Default: 2
	SuccessThreshold int

	// Timeout is how long the circuit stays open before probing again.
	// Default: 30s
	Timeout time.Duration

	// HalfOpenRequests is the maximum number of probe requests allowed
	// in half-open state.
	// Default: 3
	HalfOpenRequests int
}

// DefaultCircuitBreakerConfig returns a circuit breaker configuration
// with sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		HalfOpenRequests: 3,
	}
}

// circuitBreaker is the default implementation
type circuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu               sync.Mutex
	state            CircuitState
	failures         int
	successes        int
	halfOpenRequests int
	lastFailureTime  time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
// The circuit breaker starts in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreaker {
	return &circuitBreaker{
		config: config,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// Execute runs the given function if the circuit allows it
func (cb *circuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.checkStateTransition()

	switch cb.state {
	case CircuitOpen:
		cb.mu.Unlock()
		return NewErrorWithCode(ErrorTypeCircuitOpen, CodeCircuitOpen, "circuit breaker is open", ErrCircuitOpen)
	case CircuitHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenRequests {
			cb.mu.Unlock()
			return NewErrorWithCode(ErrorTypeCircuitOpen, CodeCircuitOpen, "circuit breaker half-open limit reached", ErrCircuitOpen)
		}
		cb.halfOpenRequests++
	}
	cb.mu.Unlock()

	err := fn()
	cb.recordResult(err)
	return err
}

// State returns the current state of the circuit
func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.checkStateTransition()
	return cb.state
}

// Reset manually resets the circuit to closed state
func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(CircuitClosed)
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenRequests = 0
}

// checkStateTransition moves an open circuit to half-open once the timeout
// has elapsed since the last failure.
func (cb *circuitBreaker) checkStateTransition() {
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailureTime) >= cb.config.Timeout {
		cb.transitionTo(CircuitHalfOpen)
	}
}

// recordResult records the result of a function execution
func (cb *circuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && errorType(err).IsAvailability() {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *circuitBreaker) onSuccess() {
	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	}
}

func (cb *circuitBreaker) onFailure() {
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// transitionTo transitions the circuit to a new state and resets counters
func (cb *circuitBreaker) transitionTo(newState CircuitState) {
	if cb.state == newState {
		return
	}
	cb.state = newState

	switch newState {
	case CircuitClosed:
		cb.failures = 0
		cb.successes = 0
	case CircuitOpen:
		cb.successes = 0
		cb.halfOpenRequests = 0
	case CircuitHalfOpen:
		cb.successes = 0
		cb.halfOpenRequests = 0
	}
}

// noopCircuitBreaker always lets calls through
type noopCircuitBreaker struct{}

func (ncb *noopCircuitBreaker) Execute(fn func() error) error {
	return fn()
}

func (ncb *noopCircuitBreaker) State() CircuitState {
	return CircuitClosed
}

func (ncb *noopCircuitBreaker) Reset() {}

// NewNoopCircuitBreaker creates a circuit breaker that never opens.
// It is used when no CircuitBreakerConfig is set.
func NewNoopCircuitBreaker() CircuitBreaker {
	return &noopCircuitBreaker{}
}
