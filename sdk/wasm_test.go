//go:build wasm

package sdk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWASMClient(t *testing.T) {
	c, err := NewClient(DefaultConfig().WithService(ServiceInventory))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, ServiceInventory, c.Service())

	_, ok := c.(*client).transport.sender.(*fetchSender)
	assert.True(t, ok, "wasm builds send through the Fetch API")
}

func TestLocalStorageTokenStore(t *testing.T) {
	if _, err := localStorage(); err != nil {
		t.Skip("no localStorage in this runtime")
	}
	ctx := context.Background()
	store := NewLocalStorageTokenStore()

	require.NoError(t, store.Save(ctx, Tokens{AuthToken: "a", RefreshToken: "r"}))
	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", tokens.AuthToken)

	require.NoError(t, store.Purge(ctx))
	tokens, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}
