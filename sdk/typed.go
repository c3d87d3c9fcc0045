package sdk

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks decoded records. A validator caches struct metadata and is
// safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a record against its validate tags. Non-struct values are
// accepted as they are.
func Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := validate.Struct(rv.Interface())
	if err == nil {
		return nil
	}

	sdkErr := NewErrorWithCode(ErrorTypeValidation, CodeValidation, "response data failed validation", err)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]interface{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		sdkErr.WithDetail("fields", fields)
	}
	return sdkErr
}

// DecodeData decodes and validates the payload of env into a T.
//
// A failure envelope (success false) becomes an ErrorTypeClient error
// carrying its code and message. A null payload yields the zero T and no
// error.
//
// Example:
//
//	env, err := client.Get(ctx, "/api/v1/shops/1")
//	if err != nil {
//	    return err
//	}
//	shop, err := sdk.DecodeData[sdk.Store](env)
func DecodeData[T any](env *Envelope) (T, error) {
	var result T
	if env == nil {
		return result, NewErrorWithCode(ErrorTypeInvalidResponse, CodeInvalidResponse, "nil envelope", nil)
	}
	if !env.Success {
		return result, envelopeError(env)
	}
	if !env.HasData() {
		return result, nil
	}
	if err := env.Decode(&result); err != nil {
		return result, err
	}
	if err := Validate(&result); err != nil {
		return result, err
	}
	return result, nil
}

func envelopeError(env *Envelope) *Error {
	if env.Error == nil {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return NewError(ErrorTypeClient, msg, nil)
	}
	err := NewErrorWithCode(ErrorTypeClient, env.Error.Code, env.Error.Message, nil)
	for k, v := range env.Error.Details {
		err.WithDetail(k, v)
	}
	return err
}

// TypedClient is a type-safe view of a Client for endpoints that return
// records of type T. Responses are decoded and validated before they are
// handed back.
//
// Example:
//
//	flavors := sdk.NewTypedClient[sdk.Page[sdk.Flavor]](inventory)
//	page, err := flavors.Get(ctx, "/api/v1/flavors?page=1&limit=5")
//	for _, f := range page.Items {
//	    fmt.Println(f.Name, f.Price)
//	}
type TypedClient[T any] struct {
	client Client
}

// NewTypedClient creates a typed view of client.
func NewTypedClient[T any](client Client) *TypedClient[T] {
	return &TypedClient[T]{client: client}
}

// Client returns the underlying client.
func (tc *TypedClient[T]) Client() Client {
	return tc.client
}

// Do issues req and decodes the result.
func (tc *TypedClient[T]) Do(ctx context.Context, req *Request) (T, error) {
	env, err := tc.client.Request(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeData[T](env)
}

// Get issues a GET and decodes the result.
func (tc *TypedClient[T]) Get(ctx context.Context, path string, opts ...RequestOption) (T, error) {
	return tc.do(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST and decodes the result.
func (tc *TypedClient[T]) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (T, error) {
	return tc.do(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT and decodes the result.
func (tc *TypedClient[T]) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (T, error) {
	return tc.do(ctx, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH and decodes the result.
func (tc *TypedClient[T]) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (T, error) {
	return tc.do(ctx, http.MethodPatch, path, body, opts)
}

// Delete issues a DELETE and decodes the result.
func (tc *TypedClient[T]) Delete(ctx context.Context, path string, opts ...RequestOption) (T, error) {
	return tc.do(ctx, http.MethodDelete, path, nil, opts)
}

func (tc *TypedClient[T]) do(ctx context.Context, method, path string, body interface{}, opts []RequestOption) (T, error) {
	req := &Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(req)
	}
	return tc.Do(ctx, req)
}
