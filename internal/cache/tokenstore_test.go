package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCache()
	store := NewTokenStore(mock, "till-1", WithTokenTTL(time.Hour))
	assert.Equal(t, "till-1", store.Session())

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())

	require.NoError(t, store.Save(ctx, sdk.Tokens{AuthToken: "jwt", RefreshToken: "refresh"}))
	assert.Equal(t, "jwt", string(mock.data["eislager:session:till-1:auth_token"]))
	assert.Equal(t, time.Hour, mock.ttls["eislager:session:till-1:refresh_token"])

	tokens, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sdk.Tokens{AuthToken: "jwt", RefreshToken: "refresh"}, tokens)

	require.NoError(t, store.Save(ctx, sdk.Tokens{AuthToken: "jwt-2"}))
	tokens, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sdk.Tokens{AuthToken: "jwt-2"}, tokens, "an empty refresh token removes the stale one")

	require.NoError(t, store.Purge(ctx))
	tokens, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
	assert.Empty(t, mock.data)

	require.NoError(t, store.Purge(ctx), "purging an empty store is fine")
}

func TestTokenStore_Errors(t *testing.T) {
	ctx := context.Background()
	mock := newMockCache()
	mock.fail = NewCacheError("failed to get multiple keys", true).WithError(errors.New("i/o timeout"))
	store := NewTokenStore(mock, "")

	_, err := store.Load(ctx)
	assert.True(t, IsRetryable(err))
	assert.Error(t, store.Save(ctx, sdk.Tokens{AuthToken: "x"}))
	assert.Error(t, store.Purge(ctx))
	assert.Error(t, store.Ping(ctx))
}

func TestTokenStore_Metrics(t *testing.T) {
	ctx := context.Background()
	m := telemetry.NewMetrics()
	store := NewTokenStore(newMockCache(), "s", WithStoreMetrics(m))

	_, _ = store.Load(ctx)
	_ = store.Save(ctx, sdk.Tokens{AuthToken: "x"})
	_ = store.Purge(ctx)

	count, err := testutil.GatherAndCount(m.Registry(), "eislager_token_store_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
