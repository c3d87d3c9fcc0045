package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantMessage string
		wantDetails map[string]interface{}
	}{
		{
			name:        "envelope error",
			body:        `{"success":false,"error":{"code":"OUT_OF_STOCK","message":"no pistachio","details":{"flavorId":"7"}}}`,
			wantCode:    "OUT_OF_STOCK",
			wantMessage: "no pistachio",
			wantDetails: map[string]interface{}{"flavorId": "7"},
		},
		{
			name:        "flat error",
			body:        `{"error":"quota exceeded","code":"QUOTA"}`,
			wantCode:    "QUOTA",
			wantMessage: "quota exceeded",
		},
		{
			name:        "message only",
			body:        `{"message":"bad input"}`,
			wantMessage: "bad input",
		},
		{
			name:        "not json",
			body:        `upstream connect error`,
			wantMessage: "upstream connect error",
		},
		{
			name: "empty",
			body: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := parseAPIError(http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantDetails, apiErr.Details)
		})
	}
}

func TestAPIError_ToError(t *testing.T) {
	tests := []struct {
		status   int
		code     string
		wantType ErrorType
		wantCode string
	}{
		{401, "TOKEN_EXPIRED", ErrorTypeUnauthorized, CodeUnauthorized},
		{403, "NOPE", ErrorTypeForbidden, CodeForbidden},
		{404, "", ErrorTypeNotFound, CodeNotFound},
		{409, "DUPLICATE", ErrorTypeConflict, CodeConflict},
		{400, "VALIDATION_ERROR", ErrorTypeClient, "VALIDATION_ERROR"},
		{418, "", ErrorTypeClient, "HTTP_418"},
		{500, "", ErrorTypeServer, CodeServer},
		{503, "MAINTENANCE", ErrorTypeServer, "MAINTENANCE"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := (&APIError{StatusCode: tt.status, Code: tt.code}).ToError()
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.NotEmpty(t, err.Message)
			assert.False(t, err.Retryable)
		})
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		sentinel error
	}{
		{ErrorTypeUnauthorized, ErrUnauthorized},
		{ErrorTypeForbidden, ErrForbidden},
		{ErrorTypeNotFound, ErrNotFound},
		{ErrorTypeConflict, ErrConflict},
		{ErrorTypeTimeout, ErrTimeout},
		{ErrorTypeServer, ErrServerError},
		{ErrorTypeCircuitOpen, ErrCircuitOpen},
		{ErrorTypeInvalidResponse, ErrInvalidResponse},
		{ErrorTypeCanceled, ErrContextCanceled},
		{ErrorTypeValidation, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewError(tt.errType, "x", nil))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.NotErrorIs(t, err, ErrClientClosed)
		})
	}

	assert.NotErrorIs(t, NewError(ErrorTypeClient, "x", nil), ErrNotFound)
}

func TestErrorType_IsAvailability(t *testing.T) {
	available := map[ErrorType]bool{
		ErrorTypeNetwork:     true,
		ErrorTypeTimeout:     true,
		ErrorTypeServer:      true,
		ErrorTypeCircuitOpen: true,
	}
	for _, errType := range []ErrorType{
		ErrorTypeUnknown, ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeServer, ErrorTypeCircuitOpen,
		ErrorTypeUnauthorized, ErrorTypeForbidden, ErrorTypeNotFound, ErrorTypeConflict, ErrorTypeClient,
		ErrorTypeRequest, ErrorTypeInvalidResponse, ErrorTypeCanceled, ErrorTypeValidation,
	} {
		assert.Equal(t, available[errType], errType.IsAvailability(), errType.String())
	}
}

func TestError_Message(t *testing.T) {
	err := NewErrorWithCode(ErrorTypeNotFound, CodeNotFound, "shop not found", nil)
	err.Status = 404
	assert.Equal(t, "not_found error (status 404): shop not found", err.Error())

	err.WithContext(&ErrorContext{URL: "http://sales/api/v1/shops/1", RetryCount: 0})
	assert.Contains(t, err.Error(), "url: http://sales/api/v1/shops/1")
}

func TestTransportErrors(t *testing.T) {
	netErr := (&NetworkError{Op: "GET http://x", Err: errors.New("connection refused")}).ToError()
	assert.Equal(t, ErrorTypeNetwork, netErr.Type)
	assert.Equal(t, CodeNetwork, netErr.Code)
	assert.Equal(t, "GET http://x", netErr.Details["operation"])
	assert.False(t, IsRetryable(netErr))

	timeout := (&TimeoutError{Op: "GET http://x", After: time.Second}).ToError()
	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.Contains(t, timeout.Message, "1s")

	reqErr := (&RequestError{Op: "marshal request body", Err: errors.New("chan")}).ToError()
	assert.Equal(t, CodeInvalidRequest, reqErr.Code)
	assert.True(t, IsRetryable(reqErr))
	assert.True(t, IsRetryable(&RequestError{Op: "x", Err: errors.New("y")}))
}

func TestErrorHelpers(t *testing.T) {
	assert.False(t, IsUnauthorized(nil))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.Zero(t, StatusCode(errors.New("plain")))
	assert.Equal(t, 409, StatusCode(&APIError{StatusCode: 409}))

	assert.True(t, IsForbidden((&APIError{StatusCode: 403}).ToError()))
	assert.True(t, IsConflict((&APIError{StatusCode: 409}).ToError()))
	assert.True(t, IsNotFound(fmt.Errorf("ctx: %w", (&APIError{StatusCode: 404}).ToError())))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorTypeUnknown, "x"))

	plain := errors.New("disk full")
	wrapped := WrapError(plain, ErrorTypeServer, "save failed")
	assert.Equal(t, ErrorTypeServer, wrapped.Type)
	assert.ErrorIs(t, wrapped, plain)

	existing := NewError(ErrorTypeTimeout, "old", nil)
	same := WrapError(existing, ErrorTypeUnknown, "new")
	require.Same(t, existing, same)
	assert.Equal(t, "new", same.Message)
	assert.Equal(t, ErrorTypeTimeout, same.Type)
}
