package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Request describes one logical call to a backend service.
//
// Path is appended to the service base URL as-is and may carry a query
// string. Headers override the client's default headers on conflict. Body is
// JSON-encoded unless it is a []byte, json.RawMessage or io.Reader wrapped by
// the Upload helper.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    interface{}
}

// supportedMethods lists the methods a Request may use.
var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Envelope is the uniform response contract of every EisLager service and of
// the fallback resolver. Callers receive the same type regardless of where
// the data came from.
//
// Example of what services send:
//
//	{
//	    "success": true,
//	    "data": {"items": [...], "pagination": {"page": 1, "limit": 10, "total": 42, "totalPages": 5}},
//	    "message": "ok"
//	}
type Envelope struct {
	// Success reports whether the call succeeded
	Success bool `json:"success"`
	// Data is the JSON payload; "null" or empty when there is none
	Data json.RawMessage `json:"data"`
	// Message is an optional human-readable message
	Message string `json:"message,omitempty"`
	// Error is set on failure envelopes
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error member of a failure envelope.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HasData reports whether the envelope carries a non-null payload.
func (e *Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Decode unmarshals the envelope payload into dest. A null payload leaves
// dest untouched.
//
// Example:
//
//	var page sdk.Page[sdk.Flavor]
//	if err := env.Decode(&page); err != nil {
//	    return err
//	}
func (e *Envelope) Decode(dest interface{}) error {
	if dest == nil {
		return fmt.Errorf("destination cannot be nil")
	}
	if !e.HasData() {
		return nil
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return NewErrorWithCode(ErrorTypeInvalidResponse, CodeInvalidResponse,
			fmt.Sprintf("failed to decode data: %v", err), err)
	}
	return nil
}

// successEnvelope wraps data in a success envelope. A nil data yields
// {"success": true, "data": null}.
func successEnvelope(data interface{}) (*Envelope, error) {
	raw, err := serialize(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Success: true, Data: raw}, nil
}

// NewSuccessEnvelope builds a success envelope around data.
func NewSuccessEnvelope(data interface{}) (*Envelope, error) {
	return successEnvelope(data)
}

// NewErrorEnvelope builds a failure envelope from an error. Errors that are
// not *Error are reported with the INTERNAL code.
func NewErrorEnvelope(err error) *Envelope {
	var sdkErr *Error
	if e, ok := err.(*Error); ok {
		sdkErr = e
	} else if err != nil {
		sdkErr = WrapError(err, ErrorTypeUnknown, err.Error())
	}
	if sdkErr == nil {
		return &Envelope{Success: false, Data: json.RawMessage("null")}
	}
	body := sdkErr.Body()
	if body.Code == "" {
		body.Code = "INTERNAL"
	}
	return &Envelope{Success: false, Data: json.RawMessage("null"), Error: body}
}

// parseEnvelope parses a 2xx response body. A body that is not a JSON object
// with a boolean "success" member is rejected.
func parseEnvelope(body []byte) (*Envelope, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, NewErrorWithCode(ErrorTypeInvalidResponse, CodeInvalidResponse,
			fmt.Sprintf("response is not a JSON object: %v", err), err)
	}
	successRaw, ok := probe["success"]
	if !ok {
		return nil, NewErrorWithCode(ErrorTypeInvalidResponse, CodeInvalidResponse,
			"response is missing the success field", nil)
	}
	var success bool
	if err := json.Unmarshal(successRaw, &success); err != nil {
		return nil, NewErrorWithCode(ErrorTypeInvalidResponse, CodeInvalidResponse,
			"response success field is not a boolean", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewErrorWithCode(ErrorTypeInvalidResponse, CodeInvalidResponse,
			fmt.Sprintf("failed to parse response: %v", err), err)
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("null")
	}
	return &env, nil
}

// serialize converts any Go value to json.RawMessage.
//
// Special handling:
//   - nil: "null"
//   - json.RawMessage and []byte: passed through when valid JSON
//   - strings: if valid JSON, kept as JSON; otherwise marshaled as a string
//   - all other types: marshaled to JSON
func serialize(value interface{}) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON in RawMessage")
		}
		return v, nil
	case []byte:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON in byte slice")
		}
		return json.RawMessage(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed), nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value: %w", err)
	}
	return data, nil
}
