//go:build !wasm

package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eislager/eislager-pro/internal/testutil"
)

func TestDecodeData(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		env := &Envelope{Success: true, Data: json.RawMessage(`{"id":"s1","name":"EisLager Vienna","rating":4.5}`)}
		store, err := DecodeData[Store](env)
		require.NoError(t, err)
		assert.Equal(t, "EisLager Vienna", store.Name)
	})

	t.Run("invalid record", func(t *testing.T) {
		env := &Envelope{Success: true, Data: json.RawMessage(`{"id":"s1","name":"","rating":7}`)}
		_, err := DecodeData[Store](env)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)

		var sdkErr *Error
		require.ErrorAs(t, err, &sdkErr)
		assert.Equal(t, CodeValidation, sdkErr.Code)
		fields := sdkErr.Details["fields"].(map[string]interface{})
		assert.Equal(t, "required", fields["Store.name"])
		assert.Equal(t, "lte", fields["Store.rating"])
	})

	t.Run("page items are validated", func(t *testing.T) {
		env := &Envelope{Success: true, Data: json.RawMessage(
			`{"items":[{"id":"o1","status":"lost","items":[]}],"pagination":{"page":1,"limit":1,"total":1,"totalPages":1}}`)}
		_, err := DecodeData[Page[Order]](env)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("null data", func(t *testing.T) {
		flavor, err := DecodeData[Flavor](nullEnvelope())
		require.NoError(t, err)
		assert.Equal(t, Flavor{}, flavor)
	})

	t.Run("failure envelope", func(t *testing.T) {
		env := &Envelope{Success: false, Error: &ErrorBody{Code: "OUT_OF_STOCK", Message: "sold out", Details: map[string]interface{}{"flavorId": "7"}}}
		_, err := DecodeData[Flavor](env)

		var sdkErr *Error
		require.ErrorAs(t, err, &sdkErr)
		assert.Equal(t, ErrorTypeClient, sdkErr.Type)
		assert.Equal(t, "OUT_OF_STOCK", sdkErr.Code)
		assert.Equal(t, "sold out", sdkErr.Message)
		assert.Equal(t, "7", sdkErr.Details["flavorId"])

		_, err = DecodeData[Flavor](&Envelope{Success: false, Message: "nope"})
		require.ErrorAs(t, err, &sdkErr)
		assert.Equal(t, "nope", sdkErr.Message)
	})

	t.Run("nil envelope", func(t *testing.T) {
		_, err := DecodeData[Flavor](nil)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("non-struct payloads", func(t *testing.T) {
		env := &Envelope{Success: true, Data: json.RawMessage(`["a","b"]`)}
		names, err := DecodeData[[]string](env)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate(42))
	assert.NoError(t, Validate((*User)(nil)))
	assert.NoError(t, Validate(LoginRequest{Email: "a@b.example", Password: "x"}))
	assert.ErrorIs(t, Validate(&LoginRequest{Email: "not-an-email", Password: "x"}), ErrValidation)
}

func TestTypedClient(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	backend.Respond("GET /api/v1/shops/1", http.StatusOK, testutil.OK(map[string]interface{}{
		"id": "1", "name": "EisLager Milan", "city": "Milan", "rating": 4.8, "open": true,
	}))
	backend.Handle("POST /api/v1/shops", func(r *http.Request) (int, interface{}) {
		var in Store
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.ID = "new-1"
		return http.StatusCreated, testutil.OK(in)
	})
	backend.Respond("PUT /api/v1/shops/1", http.StatusOK, testutil.OK(map[string]interface{}{"id": "1", "name": "Renamed"}))
	backend.Respond("PATCH /api/v1/shops/1", http.StatusOK, testutil.OK(map[string]interface{}{"id": "1", "name": "Patched"}))
	backend.Respond("DELETE /api/v1/shops/1", http.StatusNoContent, nil)
	backend.Respond("GET /api/v1/shops/2", http.StatusOK, testutil.OK(map[string]interface{}{"id": "2"}))

	client, _ := newTestClient(t, backend.URL)
	shops := NewTypedClient[Store](client)
	assert.Same(t, client, shops.Client())
	ctx := context.Background()

	shop, err := shops.Get(ctx, "/api/v1/shops/1", WithRequestHeader("X-Trace", "t1"))
	require.NoError(t, err)
	assert.Equal(t, "EisLager Milan", shop.Name)
	assert.Equal(t, "t1", backend.LastRequest(t).Headers.Get("X-Trace"))

	created, err := shops.Post(ctx, "/api/v1/shops", Store{Name: "EisLager Graz", City: "Graz"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Equal(t, "Graz", created.City)

	renamed, err := shops.Put(ctx, "/api/v1/shops/1", Store{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Name)

	patched, err := shops.Patch(ctx, "/api/v1/shops/1", map[string]string{"name": "Patched"})
	require.NoError(t, err)
	assert.Equal(t, "Patched", patched.Name)

	deleted, err := shops.Delete(ctx, "/api/v1/shops/1")
	require.NoError(t, err)
	assert.Equal(t, Store{}, deleted)

	_, err = shops.Get(ctx, "/api/v1/shops/2")
	assert.ErrorIs(t, err, ErrValidation, "records missing required fields are rejected")

	_, err = shops.Get(ctx, "/api/v1/shops/404")
	assert.True(t, IsNotFound(err))
}

func TestTypedClient_FallbackDecodes(t *testing.T) {
	client, _ := newTestClient(t, testutil.DeadURL())

	flavors, err := NewTypedClient[Page[Flavor]](client).Get(context.Background(), "/api/v1/flavors?limit=3")
	require.NoError(t, err)
	assert.Len(t, flavors.Items, 3)

	shop, err := NewTypedClient[Store](client).Get(context.Background(), "/api/v1/shops/1")
	require.NoError(t, err)
	assert.NotEmpty(t, shop.ID)

	far, err := NewTypedClient[Page[Flavor]](client).Get(context.Background(), "/api/v1/flavors?page=9223372036854775807&limit=10")
	require.NoError(t, err, "huge page numbers still yield a valid page")
	assert.Positive(t, far.Pagination.Total)
	assert.Positive(t, far.Pagination.TotalPages)
}
