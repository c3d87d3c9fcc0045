package sdk

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryStrategy defines how retries should be performed.
//
// The client only ever asks a strategy about request-construction failures;
// network errors, timeouts and 5xx responses go straight to fallback and
// never consume the retry budget.
//
// The SDK provides several built-in strategies:
//   - LinearBackoffStrategy: delay grows by a fixed step per attempt (default)
//   - ExponentialBackoffStrategy: exponentially increasing delays
//   - ConstantBackoffStrategy: fixed delay between retries
//   - NoRetryStrategy: disables retries entirely
type RetryStrategy interface {
	// NextInterval returns the delay before the given retry attempt.
	// The attempt parameter starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration

	// ShouldRetry determines if err may be retried as the given attempt.
	ShouldRetry(err error, attempt int) bool
}

// RetryStrategyFunc adapts a delay function into a RetryStrategy that
// retries retryable errors up to maxRetries times.
func RetryStrategyFunc(maxRetries int, delay func(attempt int) time.Duration) RetryStrategy {
	return &funcStrategy{budget: RetryBudget{MaxRetries: maxRetries}, delay: delay}
}

type funcStrategy struct {
	budget RetryBudget
	delay  func(attempt int) time.Duration
}

func (s *funcStrategy) NextInterval(attempt int) time.Duration { return s.delay(attempt) }

func (s *funcStrategy) ShouldRetry(err error, attempt int) bool {
	return s.budget.Allows(err, attempt)
}

// RetryBudget limits retry attempts by count and duration.
type RetryBudget struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	MaxRetries int

	// MaxDuration is the maximum total time spent retrying, 0 for no limit.
	MaxDuration time.Duration
}

// DefaultRetryBudget returns a retry budget of 3 retries and no time limit.
func DefaultRetryBudget() RetryBudget {
	return RetryBudget{MaxRetries: 3}
}

// Allows reports whether err may be retried as the given attempt.
func (rb RetryBudget) Allows(err error, attempt int) bool {
	return IsRetryable(err) && attempt <= rb.MaxRetries
}

// IsExhausted checks if the time budget is spent
func (rb RetryBudget) IsExhausted(elapsed time.Duration) bool {
	return rb.MaxDuration > 0 && elapsed >= rb.MaxDuration
}

// LinearBackoffStrategy waits Step, 2*Step, 3*Step... between attempts.
//
// Example:
//
//	strategy := &sdk.LinearBackoffStrategy{
//	    Step:   time.Second,
//	    Budget: sdk.DefaultRetryBudget(),
//	}
//	// Produces delays of 1s, 2s, 3s.
type LinearBackoffStrategy struct {
	// Step is the delay added per attempt.
	Step time.Duration

	// Budget limits retry attempts.
	Budget RetryBudget
}

// DefaultLinearBackoff returns the client's default strategy: a 1s step and
// 3 retries.
func DefaultLinearBackoff() *LinearBackoffStrategy {
	return &LinearBackoffStrategy{
		Step:   time.Second,
		Budget: DefaultRetryBudget(),
	}
}

// NextInterval returns Step * attempt
func (s *LinearBackoffStrategy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return s.Step * time.Duration(attempt)
}

// ShouldRetry determines if the error is retryable
func (s *LinearBackoffStrategy) ShouldRetry(err error, attempt int) bool {
	return s.Budget.Allows(err, attempt)
}

func (s *LinearBackoffStrategy) budget() RetryBudget { return s.Budget }

// ExponentialBackoffStrategy implements exponential backoff with jitter.
//
// The delay calculation is:
//
//	base = InitialInterval * (Multiplier ^ (attempt-1))
//	delay = min(base, MaxInterval) ± jitter
type ExponentialBackoffStrategy struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the delay.
	MaxInterval time.Duration

	// Multiplier is the exponential growth factor.
	Multiplier float64

	// Jitter is the randomization factor (0.0 to 1.0).
	Jitter float64

	// Budget limits retry attempts.
	Budget RetryBudget
}

// DefaultExponentialBackoff returns an exponential backoff strategy:
// 100ms initial, 5s cap, doubling, ±30% jitter, 3 retries.
func DefaultExponentialBackoff() *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.3,
		Budget:          DefaultRetryBudget(),
	}
}

// NextInterval calculates the next retry interval
func (s *ExponentialBackoffStrategy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := float64(s.InitialInterval) * math.Pow(s.Multiplier, float64(attempt-1))
	if interval > float64(s.MaxInterval) {
		interval = float64(s.MaxInterval)
	}

	if s.Jitter > 0 {
		jitterRange := interval * s.Jitter
		interval += jitterRange * (2*rand.Float64() - 1)
	}

	if interval < 0 {
		interval = 0
	}
	return time.Duration(interval)
}

// ShouldRetry determines if the error is retryable
func (s *ExponentialBackoffStrategy) ShouldRetry(err error, attempt int) bool {
	return s.Budget.Allows(err, attempt)
}

func (s *ExponentialBackoffStrategy) budget() RetryBudget { return s.Budget }

// ConstantBackoffStrategy waits the same Interval before every retry.
type ConstantBackoffStrategy struct {
	// Interval is the fixed interval between retries.
	Interval time.Duration

	// Budget limits retry attempts.
	Budget RetryBudget
}

// NextInterval returns the next retry interval
func (s *ConstantBackoffStrategy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return s.Interval
}

// ShouldRetry determines if the error is retryable
func (s *ConstantBackoffStrategy) ShouldRetry(err error, attempt int) bool {
	return s.Budget.Allows(err, attempt)
}

func (s *ConstantBackoffStrategy) budget() RetryBudget { return s.Budget }

// NoRetryStrategy disables retries entirely.
type NoRetryStrategy struct{}

// NextInterval always returns 0
func (s *NoRetryStrategy) NextInterval(attempt int) time.Duration {
	return 0
}

// ShouldRetry always returns false
func (s *NoRetryStrategy) ShouldRetry(err error, attempt int) bool {
	return false
}

// budgeted is implemented by strategies with a time budget.
type budgeted interface {
	budget() RetryBudget
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryExecutor handles retry execution with a given strategy
type retryExecutor struct {
	service  string
	strategy RetryStrategy
	observer Observer
	sleep    sleepFunc
}

// newRetryExecutor creates a new retry executor
func newRetryExecutor(service string, strategy RetryStrategy, observer Observer) *retryExecutor {
	if strategy == nil {
		strategy = DefaultLinearBackoff()
	}
	if observer == nil {
		observer = &NoopObserver{}
	}
	return &retryExecutor{service: service, strategy: strategy, observer: observer, sleep: sleepContext}
}

// Execute runs fn until it succeeds, returns a non-retryable error, or the
// strategy gives up. It returns the number of retries performed.
//
// The backoff wait honours only ctx, the caller's context; per-attempt
// timeouts live inside fn.
func (re *retryExecutor) Execute(ctx context.Context, method, path string, fn func() error) (int, error) {
	start := time.Now()

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}

		next := attempt + 1
		if !re.strategy.ShouldRetry(err, next) {
			return attempt, err
		}
		if b, ok := re.strategy.(budgeted); ok && b.budget().IsExhausted(time.Since(start)) {
			return attempt, err
		}
		if ctx.Err() != nil {
			return attempt, contextError(ctx.Err(), method+" "+path, "context canceled during retry")
		}

		delay := re.strategy.NextInterval(next)
		re.observer.OnRetryAttempt(re.service, method, path, next, delay, err)
		if delay > 0 {
			if sleepErr := re.sleep(ctx, delay); sleepErr != nil {
				return attempt, contextError(sleepErr, method+" "+path, "context canceled during retry wait")
			}
		}
	}
}

func canceledError(cause error, message string) *Error {
	return NewErrorWithCode(ErrorTypeCanceled, CodeCanceled, message, cause)
}

// contextError classifies a done context: an expired deadline is a timeout,
// anything else a cancellation.
func contextError(cause error, op, message string) *Error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return (&TimeoutError{Op: op, Err: cause}).ToError()
	}
	return canceledError(cause, message)
}
