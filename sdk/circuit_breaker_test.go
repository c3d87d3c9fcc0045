package sdk

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for the breaker.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg CircuitBreakerConfig) (*circuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg).(*circuitBreaker)
	cb.now = clock.Now
	return cb, clock
}

var (
	errDown     = NewError(ErrorTypeServer, "503", nil)
	errNotFound = NewError(ErrorTypeNotFound, "404", nil)
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenRequests: 1})

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errDown }), ErrServerError)
	}
	assert.Equal(t, CircuitClosed, cb.State())

	_ = cb.Execute(func() error { return errDown })
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, errorType(err).IsAvailability(), "an open circuit is served from fallback")
}

func TestCircuitBreaker_IgnoresSemanticFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenRequests: 1})

	for i := 0; i < 10; i++ {
		_ = cb.Execute(func() error { return errNotFound })
		_ = cb.Execute(func() error { return errors.New("plain") })
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenRequests: 1})

	_ = cb.Execute(func() error { return errDown })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errDown })
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 30 * time.Second, HalfOpenRequests: 2}

	t.Run("closes after successes", func(t *testing.T) {
		cb, clock := newTestBreaker(cfg)
		_ = cb.Execute(func() error { return errDown })
		require.Equal(t, CircuitOpen, cb.State())

		clock.Advance(29 * time.Second)
		assert.Equal(t, CircuitOpen, cb.State())
		clock.Advance(time.Second)
		assert.Equal(t, CircuitHalfOpen, cb.State())

		require.NoError(t, cb.Execute(func() error { return nil }))
		assert.Equal(t, CircuitHalfOpen, cb.State())
		require.NoError(t, cb.Execute(func() error { return nil }))
		assert.Equal(t, CircuitClosed, cb.State())
	})

	t.Run("reopens on failure", func(t *testing.T) {
		cb, clock := newTestBreaker(cfg)
		_ = cb.Execute(func() error { return errDown })
		clock.Advance(time.Minute)
		require.Equal(t, CircuitHalfOpen, cb.State())

		_ = cb.Execute(func() error { return errDown })
		assert.Equal(t, CircuitOpen, cb.State())
	})

	t.Run("limits probes", func(t *testing.T) {
		cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 5, Timeout: time.Second, HalfOpenRequests: 2})
		_ = cb.Execute(func() error { return errDown })
		clock.Advance(time.Second)

		require.NoError(t, cb.Execute(func() error { return nil }))
		require.NoError(t, cb.Execute(func() error { return nil }))
		assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)
	})
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour, HalfOpenRequests: 1})
	_ = cb.Execute(func() error { return errDown })
	require.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
}

func TestNoopCircuitBreaker(t *testing.T) {
	cb := NewNoopCircuitBreaker()
	for i := 0; i < 100; i++ {
		_ = cb.Execute(func() error { return errDown })
	}
	assert.Equal(t, CircuitClosed, cb.State())
}
