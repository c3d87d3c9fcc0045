package gateway

import (
	"time"

	"github.com/eislager/eislager-pro/internal/session"
	"github.com/eislager/eislager-pro/sdk"
)

// Gateway error codes, in addition to the codes the services send.
const (
	ErrCodeNotFound         = sdk.CodeNotFound
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// SessionRequest is the body of POST /session
type SessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the gateway's current session
type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *sdk.User     `json:"user,omitempty"`
	Token         *session.Info `json:"token,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// errorEnvelope builds a failure envelope with the given code.
func errorEnvelope(code, message string) *sdk.Envelope {
	return &sdk.Envelope{
		Success: false,
		Data:    []byte("null"),
		Error:   &sdk.ErrorBody{Code: code, Message: message},
	}
}

func uptime(since time.Time) string {
	return time.Since(since).Round(time.Second).String()
}
