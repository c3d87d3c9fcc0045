package sdk

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("success with data", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"success":true,"data":{"id":"1"},"message":"ok"}`))
		require.NoError(t, err)
		assert.True(t, env.Success)
		assert.Equal(t, "ok", env.Message)
		assert.JSONEq(t, `{"id":"1"}`, string(env.Data))
	})

	t.Run("missing data is null", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"success":true}`))
		require.NoError(t, err)
		assert.False(t, env.HasData())
		assert.Equal(t, "null", string(env.Data))
	})

	t.Run("failure envelope", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"success":false,"data":null,"error":{"code":"X","message":"y"}}`))
		require.NoError(t, err)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "X", env.Error.Code)
	})

	for name, body := range map[string]string{
		"not json":           `<html></html>`,
		"array":              `[1,2,3]`,
		"missing success":    `{"data":{}}`,
		"non-boolean status": `{"success":"yes"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseEnvelope([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestEnvelope_Decode(t *testing.T) {
	env := &Envelope{Success: true, Data: json.RawMessage(`{"id":"f1","name":"Mango","price":3.2}`)}

	var flavor Flavor
	require.NoError(t, env.Decode(&flavor))
	assert.Equal(t, "Mango", flavor.Name)

	assert.Error(t, env.Decode(nil))

	bad := &Envelope{Success: true, Data: json.RawMessage(`{"price":"free"}`)}
	assert.ErrorIs(t, bad.Decode(&flavor), ErrInvalidResponse)

	untouched := Flavor{Name: "keep"}
	require.NoError(t, nullEnvelope().Decode(&untouched))
	assert.Equal(t, "keep", untouched.Name)
}

func TestEnvelopeConstructors(t *testing.T) {
	env, err := NewSuccessEnvelope(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"n":1}`, string(env.Data))

	env, err = NewSuccessEnvelope(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(env.Data))

	_, err = NewSuccessEnvelope(json.RawMessage(`{broken`))
	assert.Error(t, err)

	failure := NewErrorEnvelope(NewErrorWithCode(ErrorTypeNotFound, CodeNotFound, "gone", nil))
	assert.False(t, failure.Success)
	assert.Equal(t, CodeNotFound, failure.Error.Code)
	assert.Equal(t, "gone", failure.Error.Message)

	plain := NewErrorEnvelope(errors.New("boom"))
	assert.Equal(t, "INTERNAL", plain.Error.Code)
	assert.Equal(t, "boom", plain.Error.Message)
}

func TestSerialize(t *testing.T) {
	raw, err := serialize(`{"already":"json"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"already":"json"}`, string(raw))

	raw, err = serialize("plain text")
	require.NoError(t, err)
	assert.Equal(t, `"plain text"`, string(raw))

	_, err = serialize([]byte("not json"))
	assert.Error(t, err)
}
