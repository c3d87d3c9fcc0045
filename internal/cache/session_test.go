package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCache is an in-memory Cache for testing
type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	closed bool
	fail   error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mockCache) check() error {
	if m.closed {
		return ErrCacheClosed
	}
	return m.fail
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.data[key], m.ttls[key] = value, ttl
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, ok := m.data[key]; !ok {
		return ErrKeyNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *mockCache) GetMultiple(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	results := make(map[string][]byte)
	for _, key := range keys {
		if value, ok := m.data[key]; ok {
			results[key] = value
		}
	}
	return results, nil
}

func (m *mockCache) SetMultiple(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for key, value := range items {
		m.data[key], m.ttls[key] = value, ttl
	}
	return nil
}

func (m *mockCache) DeleteMultiple(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check()
}

func (m *mockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func TestSessionCache_BasicOperations(t *testing.T) {
	ctx := context.Background()
	mock := newMockCache()
	sc := NewSessionCache(mock, "till-3")

	require.NoError(t, sc.Set(ctx, "auth_token", []byte("jwt"), 0))
	assert.Contains(t, mock.data, "eislager:session:till-3:auth_token")

	got, err := sc.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "jwt", string(got))

	exists, err := sc.Exists(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, sc.Delete(ctx, "auth_token"))
	_, err = sc.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSessionCache_MultipleOperations(t *testing.T) {
	ctx := context.Background()
	mock := newMockCache()
	sc := NewSessionCache(mock, "till-3")

	require.NoError(t, sc.SetMultiple(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Minute))

	results, err := sc.GetMultiple(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, results)
	assert.Equal(t, time.Minute, mock.ttls["eislager:session:till-3:a"])

	require.NoError(t, sc.DeleteMultiple(ctx, []string{"a", "c"}))
	results, err = sc.GetMultiple(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSessionCache_Isolation(t *testing.T) {
	ctx := context.Background()
	mock := newMockCache()
	first := NewSessionCache(mock, "first")
	second := NewSessionCache(mock, "second")

	require.NoError(t, first.Set(ctx, "auth_token", []byte("one"), 0))
	require.NoError(t, second.Set(ctx, "auth_token", []byte("two"), 0))

	got, err := first.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, second.DeleteMultiple(ctx, []string{"auth_token"}))
	_, err = first.Get(ctx, "auth_token")
	assert.NoError(t, err, "deleting in one session leaves the other intact")
}

func TestSessionCache_DefaultSession(t *testing.T) {
	sc := NewSessionCache(newMockCache(), "  ")
	assert.Equal(t, DefaultSession, sc.Session())
	assert.Equal(t, "eislager:session:default:x", sc.Key("x"))
}

func TestSessionCache_Closed(t *testing.T) {
	ctx := context.Background()
	sc := NewSessionCache(newMockCache(), "s")
	require.NoError(t, sc.Close())

	assert.ErrorIs(t, sc.Ping(ctx), ErrCacheClosed)
	_, err := sc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
}

func TestCacheError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewCacheError("failed to get key", true).WithError(cause)

	assert.Equal(t, "failed to get key: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(ErrKeyNotFound))
	assert.False(t, IsRetryable(cause))

	wrapped := ErrCacheClosed.WithError(cause)
	assert.Nil(t, ErrCacheClosed.Underlying, "sentinels are not mutated")
	assert.Equal(t, "cache is closed: connection reset", wrapped.Error())
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
