package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the key/value layer behind the session token store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl uses the cache's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// GetMultiple returns only the keys that exist.
	GetMultiple(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMultiple stores all items in one round trip.
	SetMultiple(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	// DeleteMultiple removes keys. Missing keys are ignored.
	DeleteMultiple(ctx context.Context, keys []string) error

	Ping(ctx context.Context) error

	Close() error
}

// Common errors
var (
	ErrKeyNotFound = NewCacheError("key not found", false)
	ErrCacheClosed = NewCacheError("cache is closed", false)
)

// CacheError is a cache failure. Retryable is set for transport failures that
// may succeed on a later attempt.
type CacheError struct {
	Message    string
	Retryable  bool
	Underlying error
}

// NewCacheError creates a new cache error
func NewCacheError(message string, retryable bool) *CacheError {
	return &CacheError{Message: message, Retryable: retryable}
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.Underlying != nil {
		return e.Message + ": " + e.Underlying.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *CacheError) Unwrap() error {
	return e.Underlying
}

// WithError returns a copy of e wrapping err. The package-level sentinels
// stay untouched.
func (e *CacheError) WithError(err error) *CacheError {
	cp := *e
	cp.Underlying = err
	return &cp
}

// IsRetryable returns whether the error is retryable
func (e *CacheError) IsRetryable() bool {
	return e.Retryable
}

// IsRetryable reports whether err is a retryable *CacheError.
func IsRetryable(err error) bool {
	var ce *CacheError
	return errors.As(err, &ce) && ce.Retryable
}
