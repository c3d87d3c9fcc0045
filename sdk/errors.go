package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common errors returned by the SDK. These can be used with errors.Is()
// to check for specific error conditions.
//
// Example:
//
//	env, err := client.Get(ctx, "/api/v1/shops/1")
//	switch {
//	case errors.Is(err, sdk.ErrUnauthorized):
//	    // Session is gone, send the user back to login
//	case errors.Is(err, sdk.ErrNotFound):
//	    // Show "not found"
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnauthorized is returned when a service rejects the session (HTTP 401)
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden is returned for HTTP 403 responses
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for HTTP 404 responses
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for HTTP 409 responses
	ErrConflict = errors.New("conflict")

	// ErrTimeout is returned when a request times out and fallback is disabled
	ErrTimeout = errors.New("request timeout")

	// ErrServerError is returned for 5xx server errors when fallback is disabled
	ErrServerError = errors.New("server error")

	// ErrInvalidResponse is returned when a 2xx body is not a response envelope
	ErrInvalidResponse = errors.New("invalid response from server")

	// ErrContextCanceled is returned when the caller's context is canceled
	ErrContextCanceled = errors.New("context canceled")

	// ErrCircuitOpen is returned when the circuit breaker is open and fallback is disabled
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrClientClosed is returned for calls made after Close
	ErrClientClosed = errors.New("client is closed")

	// ErrValidation is returned when decoded data fails record validation
	ErrValidation = errors.New("validation failed")
)

// Stable error codes carried in ErrorBody.Code and Error.Code.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTimeout         = "TIMEOUT"
	CodeNetwork         = "NETWORK_ERROR"
	CodeServer          = "SERVER_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidResponse = "INVALID_RESPONSE"
	CodeCanceled        = "CANCELED"
	CodeCircuitOpen     = "CIRCUIT_OPEN"
	CodeValidation      = "VALIDATION_FAILED"
)

// ErrorType represents the type of error for categorization and handling.
// The type decides whether an error is masked by fallback, retried, or
// surfaced to the caller.
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    switch sdkErr.Type {
//	    case sdk.ErrorTypeUnauthorized:
//	        // Redirect to login
//	    case sdk.ErrorTypeNotFound:
//	        // Inline "not found"
//	    }
//	}
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown or unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork represents network-related errors (connection refused, DNS, etc.)
	ErrorTypeNetwork
	// ErrorTypeTimeout represents a request that exceeded its per-attempt timeout
	ErrorTypeTimeout
	// ErrorTypeServer represents server errors (5xx HTTP status codes)
	ErrorTypeServer
	// ErrorTypeCircuitOpen represents circuit breaker open state errors
	ErrorTypeCircuitOpen
	// ErrorTypeUnauthorized represents a rejected session (401)
	ErrorTypeUnauthorized
	// ErrorTypeForbidden represents a 403 response
	ErrorTypeForbidden
	// ErrorTypeNotFound represents a 404 response
	ErrorTypeNotFound
	// ErrorTypeConflict represents a 409 response
	ErrorTypeConflict
	// ErrorTypeClient represents any other 4xx or unexpected non-2xx status
	ErrorTypeClient
	// ErrorTypeRequest represents a failure to construct the request before
	// it reached the network (body encoding, malformed URL or method)
	ErrorTypeRequest
	// ErrorTypeInvalidResponse represents a 2xx body that is not an envelope
	ErrorTypeInvalidResponse
	// ErrorTypeCanceled represents a caller-canceled context
	ErrorTypeCanceled
	// ErrorTypeValidation represents decoded records that fail validation
	ErrorTypeValidation
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeServer:
		return "server"
	case ErrorTypeCircuitOpen:
		return "circuit_open"
	case ErrorTypeUnauthorized:
		return "unauthorized"
	case ErrorTypeForbidden:
		return "forbidden"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeClient:
		return "client"
	case ErrorTypeRequest:
		return "request"
	case ErrorTypeInvalidResponse:
		return "invalid_response"
	case ErrorTypeCanceled:
		return "canceled"
	case ErrorTypeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// IsAvailability reports whether the error type means "the backend is
// temporarily unavailable". These are the failures the fallback resolver masks.
func (et ErrorType) IsAvailability() bool {
	switch et {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeServer, ErrorTypeCircuitOpen:
		return true
	default:
		return false
	}
}

// Error is the error value surfaced by the client. It carries the HTTP
// status, a stable code, the server's message and details, and context about
// the request that failed.
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    fmt.Printf("status=%d code=%s: %s\n", sdkErr.Status, sdkErr.Code, sdkErr.Message)
//	}
type Error struct {
	// Type categorizes the error for handling decisions
	Type ErrorType `json:"type"`
	// Status is the HTTP status code, 0 when no response was received
	Status int `json:"status,omitempty"`
	// Code is a stable, machine-readable identifier
	Code string `json:"code,omitempty"`
	// Message is a human-readable error description
	Message string `json:"message"`
	// Details contains additional error metadata from the server
	Details map[string]interface{} `json:"details,omitempty"`
	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
	// Timestamp is when the error occurred
	Timestamp time.Time `json:"timestamp"`
	// Retryable indicates if the client retries this error on its own
	Retryable bool `json:"retryable"`
	// Context provides additional context about the failed operation
	Context *ErrorContext `json:"context,omitempty"`
	// wrapped is the underlying error, if any
	wrapped error
}

// ErrorContext provides additional context about the operation that failed.
type ErrorContext struct {
	// Service is the logical backend service name
	Service string `json:"service,omitempty"`
	// URL is the full URL of the failed request
	URL string `json:"url,omitempty"`
	// Method is the HTTP method used
	Method string `json:"method,omitempty"`
	// Duration is how long the operation took before failing
	Duration time.Duration `json:"duration,omitempty"`
	// RetryCount is the number of retry attempts made
	RetryCount int `json:"retry_count,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := e.Type.String() + " error"
	if e.Status > 0 {
		prefix = fmt.Sprintf("%s (status %d)", prefix, e.Status)
	}
	if e.Context != nil && e.Context.URL != "" {
		return fmt.Sprintf("%s: %s (url: %s, retries: %d)", prefix, e.Message, e.Context.URL, e.Context.RetryCount)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrorTypeUnauthorized:
		return target == ErrUnauthorized
	case ErrorTypeForbidden:
		return target == ErrForbidden
	case ErrorTypeNotFound:
		return target == ErrNotFound
	case ErrorTypeConflict:
		return target == ErrConflict
	case ErrorTypeTimeout:
		return target == ErrTimeout
	case ErrorTypeServer:
		return target == ErrServerError
	case ErrorTypeCircuitOpen:
		return target == ErrCircuitOpen
	case ErrorTypeInvalidResponse:
		return target == ErrInvalidResponse
	case ErrorTypeCanceled:
		return target == ErrContextCanceled
	case ErrorTypeValidation:
		return target == ErrValidation
	}
	return false
}

// IsRetryable returns true if the error is retryable
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds error context
func (e *Error) WithContext(ctx *ErrorContext) *Error {
	e.Context = ctx
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Body converts the error into the wire error body of an envelope.
func (e *Error) Body() *ErrorBody {
	return &ErrorBody{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewError creates a new error of the given type
func NewError(errType ErrorType, message string, wrapped error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryableType(errType),
		wrapped:   wrapped,
	}
}

// NewErrorWithCode creates a new error with a code
func NewErrorWithCode(errType ErrorType, code, message string, wrapped error) *Error {
	err := NewError(errType, message, wrapped)
	err.Code = code
	return err
}

// isRetryableType determines if an error type is retried by the client.
// Only request-construction failures are; availability failures go to
// fallback instead.
func isRetryableType(errType ErrorType) bool {
	return errType == ErrorTypeRequest
}

// APIError is the raw error response received from a service, before it is
// classified into an Error.
type APIError struct {
	// StatusCode is the HTTP status code from the response
	StatusCode int `json:"-"`
	// Code is the server-provided error code, if any
	Code string `json:"code,omitempty"`
	// Message is the server-provided error message, if any
	Message string `json:"message,omitempty"`
	// Details provides additional error information
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d)", e.StatusCode)
}

// IsServerError returns true if the error is a server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsClientError returns true if the error is a client error
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ToError classifies the API error by status. 403, 404 and 409 always carry
// their fixed code regardless of what the server sent.
func (e *APIError) ToError() *Error {
	var (
		errType ErrorType
		code    string
	)
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		errType, code = ErrorTypeUnauthorized, CodeUnauthorized
	case e.StatusCode == http.StatusForbidden:
		errType, code = ErrorTypeForbidden, CodeForbidden
	case e.StatusCode == http.StatusNotFound:
		errType, code = ErrorTypeNotFound, CodeNotFound
	case e.StatusCode == http.StatusConflict:
		errType, code = ErrorTypeConflict, CodeConflict
	case e.IsServerError():
		errType, code = ErrorTypeServer, e.Code
		if code == "" {
			code = CodeServer
		}
	default:
		errType, code = ErrorTypeClient, e.Code
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", e.StatusCode)
		}
	}

	message := e.Message
	if message == "" {
		message = http.StatusText(e.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", e.StatusCode)
	}

	err := NewErrorWithCode(errType, code, message, e)
	err.Status = e.StatusCode
	for k, v := range e.Details {
		err.WithDetail(k, v)
	}
	return err
}

// parseAPIError extracts the server's error payload. Services answer with an
// envelope whose "error" member is an object; older handlers answer with a
// flat {"error": "...", "code": "..."} body. Both are understood.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if len(body) == 0 {
		return apiErr
	}

	var wire struct {
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}
	apiErr.Code = wire.Code
	apiErr.Message = wire.Message

	if len(wire.Error) > 0 {
		var nested ErrorBody
		if err := json.Unmarshal(wire.Error, &nested); err == nil {
			if nested.Code != "" {
				apiErr.Code = nested.Code
			}
			if nested.Message != "" {
				apiErr.Message = nested.Message
			}
			apiErr.Details = nested.Details
		} else {
			var flat string
			if err := json.Unmarshal(wire.Error, &flat); err == nil && flat != "" {
				apiErr.Message = flat
			}
		}
	}
	return apiErr
}

// NetworkError represents a network-related error such as connection
// refused, DNS resolution failure, or a reset connection.
type NetworkError struct {
	// Op is the operation that failed (e.g., "GET /api/v1/flavors")
	Op string
	// Err is the underlying network error
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ToError converts NetworkError to the Error type
func (e *NetworkError) ToError() *Error {
	err := NewErrorWithCode(ErrorTypeNetwork, CodeNetwork, e.Error(), e)
	err.WithDetail("operation", e.Op)
	return err
}

// TimeoutError represents an attempt that exceeded the configured timeout.
type TimeoutError struct {
	// Op is the operation that timed out
	Op string
	// After is the timeout that elapsed, zero when unknown
	After time.Duration
	// Err is the underlying deadline error
	Err error
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.After == 0 {
		return fmt.Sprintf("deadline exceeded during %s", e.Op)
	}
	return fmt.Sprintf("timeout after %s during %s", e.After, e.Op)
}

// Unwrap returns the underlying error
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ToError converts TimeoutError to the Error type
func (e *TimeoutError) ToError() *Error {
	err := NewErrorWithCode(ErrorTypeTimeout, CodeTimeout, e.Error(), e)
	err.WithDetail("operation", e.Op)
	return err
}

// RequestError represents a failure to build the request before it was sent.
type RequestError struct {
	// Op is the construction step that failed
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// ToError converts RequestError to the Error type
func (e *RequestError) ToError() *Error {
	return NewErrorWithCode(ErrorTypeRequest, CodeInvalidRequest, e.Error(), e)
}

// errorType returns the ErrorType of err, or ErrorTypeUnknown.
func errorType(err error) ErrorType {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Type
	}
	return ErrorTypeUnknown
}

// IsUnauthorized reports whether err means the session was rejected.
func IsUnauthorized(err error) bool {
	return err != nil && errors.Is(err, ErrUnauthorized)
}

// IsForbidden reports whether err is a 403.
func IsForbidden(err error) bool {
	return err != nil && errors.Is(err, ErrForbidden)
}

// IsNotFound reports whether err is a 404.
//
// Example:
//
//	shop, err := shops.Get(ctx, "1")
//	if sdk.IsNotFound(err) {
//	    // show "shop not found"
//	}
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a 409.
func IsConflict(err error) bool {
	return err != nil && errors.Is(err, ErrConflict)
}

// IsRetryable checks if an error is retried by the client's retry executor.
// Only request-construction failures are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.IsRetryable()
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Status
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// WrapError wraps an error with additional context and type information.
// If the error is already an Error, it updates the message.
func WrapError(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		sdkErr.Message = message
		return sdkErr
	}

	return NewError(errType, message, err)
}
