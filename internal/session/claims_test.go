package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, c jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("not-the-server-key"))
	require.NoError(t, err)
	return token
}

func TestInspect(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := signed(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-17",
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: "clerk@eislager.example",
		Role:  "clerk",
	})

	info, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "u-17", info.Subject)
	assert.Equal(t, "clerk@eislager.example", info.Email)
	assert.Equal(t, "clerk", info.Role)
	assert.True(t, exp.Equal(info.ExpiresAt))
	assert.False(t, info.Offline)

	assert.False(t, info.Expired(exp.Add(-time.Minute)))
	assert.True(t, info.Expired(exp))
}

func TestInspect_ExpiredTokensStillDecode(t *testing.T) {
	token := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))})

	info, err := Inspect(token)
	require.NoError(t, err)
	assert.True(t, info.Expired(time.Now()))
}

func TestInspect_NonJWT(t *testing.T) {
	info, err := Inspect("offline-3f1c")
	require.NoError(t, err)
	assert.True(t, info.Offline)
	assert.False(t, info.Expired(time.Now()), "offline tokens carry no expiry")

	_, err = Inspect("opaque")
	assert.ErrorIs(t, err, ErrOpaqueToken)

	_, err = Inspect("a.b.c")
	assert.Error(t, err)
}
