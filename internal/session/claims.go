// Package session inspects session tokens without verifying them. The
// services verify signatures; the gateway and CLI only need the expiry for
// display.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned for tokens that are not JWTs, such as the
// offline tokens minted by the fallback resolver.
var ErrOpaqueToken = errors.New("token is not a JWT")

// Info is what can be read from a token without its key.
type Info struct {
	Subject   string    `json:"subject,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	IssuedAt  time.Time `json:"issuedAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Offline   bool      `json:"offline"`
}

// Expired reports whether the token has an expiry that lies before now.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// claims accepts the role and email the auth service adds.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Inspect decodes token's claims without checking the signature.
func Inspect(token string) (Info, error) {
	if strings.HasPrefix(token, "offline-") {
		return Info{Offline: true}, nil
	}
	if strings.Count(token, ".") != 2 {
		return Info{}, ErrOpaqueToken
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Info{}, fmt.Errorf("parse token: %w", err)
	}

	info := Info{Subject: c.Subject, Email: c.Email, Role: c.Role}
	if c.IssuedAt != nil {
		info.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	return info, nil
}
