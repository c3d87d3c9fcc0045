package cache

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSession is the session id used when none is configured.
const DefaultSession = "default"

const sessionKeyPrefix = "eislager:session:"

// NewSessionID returns a random session id for a process that does not need
// to share its session.
func NewSessionID() string {
	return uuid.NewString()
}

// SessionCache namespaces every key under one session id, so several
// gateways or operators can share a Redis without reading each other's
// tokens.
type SessionCache struct {
	client  Cache
	session string
	prefix  string
}

var _ Cache = (*SessionCache)(nil)

// NewSessionCache wraps client. An empty session uses DefaultSession.
func NewSessionCache(client Cache, session string) *SessionCache {
	session = strings.TrimSpace(session)
	if session == "" {
		session = DefaultSession
	}
	return &SessionCache{
		client:  client,
		session: session,
		prefix:  sessionKeyPrefix + session + ":",
	}
}

// Session returns the session id
func (sc *SessionCache) Session() string {
	return sc.session
}

// Key returns the namespaced key stored in the underlying cache
func (sc *SessionCache) Key(key string) string {
	return sc.prefix + key
}

func (sc *SessionCache) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = sc.Key(k)
	}
	return out
}

// Get retrieves a value from the session namespace
func (sc *SessionCache) Get(ctx context.Context, key string) ([]byte, error) {
	return sc.client.Get(ctx, sc.Key(key))
}

// Set stores a value in the session namespace
func (sc *SessionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return sc.client.Set(ctx, sc.Key(key), value, ttl)
}

// Delete removes a value from the session namespace
func (sc *SessionCache) Delete(ctx context.Context, key string) error {
	return sc.client.Delete(ctx, sc.Key(key))
}

// Exists checks a key in the session namespace
func (sc *SessionCache) Exists(ctx context.Context, key string) (bool, error) {
	return sc.client.Exists(ctx, sc.Key(key))
}

// GetMultiple returns values keyed by their un-namespaced names
func (sc *SessionCache) GetMultiple(ctx context.Context, keys []string) (map[string][]byte, error) {
	results, err := sc.client.GetMultiple(ctx, sc.keys(keys))
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(results))
	for key, value := range results {
		out[strings.TrimPrefix(key, sc.prefix)] = value
	}
	return out, nil
}

// SetMultiple stores items in the session namespace
func (sc *SessionCache) SetMultiple(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	namespaced := make(map[string][]byte, len(items))
	for key, value := range items {
		namespaced[sc.Key(key)] = value
	}
	return sc.client.SetMultiple(ctx, namespaced, ttl)
}

// DeleteMultiple removes keys from the session namespace
func (sc *SessionCache) DeleteMultiple(ctx context.Context, keys []string) error {
	return sc.client.DeleteMultiple(ctx, sc.keys(keys))
}

// Ping checks if the cache is healthy
func (sc *SessionCache) Ping(ctx context.Context) error {
	return sc.client.Ping(ctx)
}

// Close closes the underlying cache
func (sc *SessionCache) Close() error {
	return sc.client.Close()
}
