package cache

import (
	"context"
	"time"

	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

// TokenStore persists the SDK session tokens in a Cache, under one session
// namespace. It implements sdk.TokenStore.
type TokenStore struct {
	cache   *SessionCache
	ttl     time.Duration
	metrics *telemetry.Metrics
}

var _ sdk.TokenStore = (*TokenStore)(nil)

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithTokenTTL overrides the cache's default TTL for stored tokens.
func WithTokenTTL(ttl time.Duration) TokenStoreOption {
	return func(s *TokenStore) { s.ttl = ttl }
}

// WithStoreMetrics records operation durations into m.
func WithStoreMetrics(m *telemetry.Metrics) TokenStoreOption {
	return func(s *TokenStore) { s.metrics = m }
}

// NewTokenStore stores tokens for session in client.
func NewTokenStore(client Cache, session string, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{cache: NewSessionCache(client, session)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session id the tokens are stored under.
func (s *TokenStore) Session() string {
	return s.cache.Session()
}

func (s *TokenStore) track(ctx context.Context, op string) func(error) {
	done := telemetry.TimeOperation(ctx, s.metrics, "token_store."+op)
	return func(err error) {
		if err != nil {
			done("error")
			return
		}
		done("ok")
	}
}

// Load returns the stored tokens; missing entries are empty strings.
func (s *TokenStore) Load(ctx context.Context) (tokens sdk.Tokens, err error) {
	done := s.track(ctx, "load")
	defer func() { done(err) }()

	values, err := s.cache.GetMultiple(ctx, []string{sdk.TokenKeyAuth, sdk.TokenKeyRefresh})
	if err != nil {
		return sdk.Tokens{}, err
	}
	return sdk.Tokens{
		AuthToken:    string(values[sdk.TokenKeyAuth]),
		RefreshToken: string(values[sdk.TokenKeyRefresh]),
	}, nil
}

// Save replaces both entries. An empty token removes its entry.
func (s *TokenStore) Save(ctx context.Context, t sdk.Tokens) (err error) {
	done := s.track(ctx, "save")
	defer func() { done(err) }()

	set := make(map[string][]byte, 2)
	var drop []string
	for key, value := range map[string]string{sdk.TokenKeyAuth: t.AuthToken, sdk.TokenKeyRefresh: t.RefreshToken} {
		if value == "" {
			drop = append(drop, key)
			continue
		}
		set[key] = []byte(value)
	}

	if err := s.cache.DeleteMultiple(ctx, drop); err != nil {
		return err
	}
	return s.cache.SetMultiple(ctx, set, s.ttl)
}

// Purge removes both entries.
func (s *TokenStore) Purge(ctx context.Context) (err error) {
	done := s.track(ctx, "purge")
	defer func() { done(err) }()
	return s.cache.DeleteMultiple(ctx, []string{sdk.TokenKeyAuth, sdk.TokenKeyRefresh})
}

// Ping checks the backing cache.
func (s *TokenStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
