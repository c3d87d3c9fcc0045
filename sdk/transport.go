package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// outgoing is a fully built request, ready for a sender.
type outgoing struct {
	method string
	url    string
	header map[string]string
	body   []byte
}

// incoming is a fully read response.
type incoming struct {
	status    int
	requestID string
	body      []byte
}

// sender performs a single HTTP exchange. It returns a raw transport error
// when no response was received; classification happens in httpTransport.
//
// The implementation is split between:
//   - native.go: net/http for regular builds
//   - wasm.go: the Fetch API for WebAssembly builds
type sender interface {
	send(ctx context.Context, req *outgoing) (*incoming, error)
	close()
}

// httpTransport resolves one logical request: it builds the request, runs
// attempts through the circuit breaker and retry executor, classifies the
// outcome and falls back to synthetic data on availability failures.
type httpTransport struct {
	config         *Config
	sender         sender
	circuitBreaker CircuitBreaker
	retryExecutor  *retryExecutor
	observer       Observer
	fallback       *FallbackResolver
}

// newTransport wires a transport around a platform sender.
func newTransport(config *Config, s sender) *httpTransport {
	var cb CircuitBreaker
	if config.CircuitBreakerConfig != nil {
		cb = newObservedCircuitBreaker(NewCircuitBreaker(*config.CircuitBreakerConfig), config.Service, config.Observer)
	} else {
		cb = NewNoopCircuitBreaker()
	}

	return &httpTransport{
		config:         config,
		sender:         s,
		circuitBreaker: cb,
		retryExecutor:  newRetryExecutor(config.Service, config.retryStrategy(), config.Observer),
		observer:       config.Observer,
		fallback:       config.Fallback,
	}
}

// do executes req with the given merged headers.
func (t *httpTransport) do(ctx context.Context, req *Request, headers map[string]string) (*Envelope, error) {
	service := t.config.Service
	t.observer.OnRequestStart(service, req.Method, req.Path)
	start := time.Now()

	var env *Envelope
	retries, err := t.retryExecutor.Execute(ctx, req.Method, req.Path, func() error {
		return t.circuitBreaker.Execute(func() error {
			e, err := t.roundTrip(ctx, req, headers)
			env = e
			return err
		})
	})

	if err != nil {
		if errorType(err).IsAvailability() && !t.config.DisableFallback {
			var category FallbackCategory
			env, category = t.fallback.Resolve(req.Method, req.Path)
			t.observer.OnFallback(service, req.Method, req.Path, category, err)
			err = nil
		} else {
			err = withRequestContext(err, &ErrorContext{
				Service:    service,
				URL:        t.config.BaseURL + req.Path,
				Method:     req.Method,
				Duration:   time.Since(start),
				RetryCount: retries,
			})
		}
	}

	notifyRequestEnd(ctx, t.observer, service, req.Method, req.Path, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// roundTrip performs one attempt and classifies the response.
func (t *httpTransport) roundTrip(ctx context.Context, req *Request, headers map[string]string) (*Envelope, error) {
	out, err := t.prepare(req, headers)
	if err != nil {
		return nil, err
	}

	in, err := t.attempt(ctx, out)
	if err != nil {
		return nil, err
	}
	return classify(in)
}

// prepare builds the outgoing request. Every failure here is a
// request-construction error.
func (t *httpTransport) prepare(req *Request, headers map[string]string) (*outgoing, error) {
	if !supportedMethods[req.Method] {
		return nil, (&RequestError{Op: "build request", Err: fmt.Errorf("unsupported method %q", req.Method)}).ToError()
	}

	fullURL := t.config.BaseURL + req.Path
	if _, err := url.Parse(fullURL); err != nil {
		return nil, (&RequestError{Op: "build URL", Err: err}).ToError()
	}

	out := &outgoing{method: req.Method, url: fullURL, header: headers}

	switch body := req.Body.(type) {
	case nil:
	case *multipartBody:
		out.body = body.data
		out.header = withHeader(headers, "Content-Type", body.contentType)
	case json.RawMessage:
		out.body = body
	case []byte:
		out.body = body
	case io.Reader:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, (&RequestError{Op: "read request body", Err: err}).ToError()
		}
		out.body = data
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, (&RequestError{Op: "marshal request body", Err: err}).ToError()
		}
		out.body = data
	}
	return out, nil
}

// attempt sends out under a per-attempt timeout and classifies transport
// failures. Only context.Canceled on the caller's context counts as a
// cancellation; an expired caller deadline is a timeout.
func (t *httpTransport) attempt(ctx context.Context, out *outgoing) (*incoming, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	begin := time.Now()
	in, err := t.sender.send(attemptCtx, out)
	if err == nil {
		return in, nil
	}

	op := out.method + " " + out.url
	var reqErr *Error
	switch {
	case errors.As(err, &reqErr):
		return nil, reqErr
	case errors.Is(ctx.Err(), context.Canceled):
		return nil, canceledError(ctx.Err(), "request canceled by caller")
	case ctx.Err() != nil:
		// The caller's deadline is a timeout like any other.
		return nil, (&TimeoutError{Op: op, After: time.Since(begin).Round(time.Millisecond), Err: ctx.Err()}).ToError()
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || isTimeout(err):
		return nil, (&TimeoutError{Op: op, After: t.config.Timeout, Err: err}).ToError()
	default:
		return nil, (&NetworkError{Op: op, Err: err}).ToError()
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classify maps a received response to an envelope or a typed error.
func classify(in *incoming) (*Envelope, error) {
	switch {
	case in.status == http.StatusNoContent:
		return nullEnvelope(), nil
	case in.status >= 200 && in.status < 300:
		env, err := parseEnvelope(in.body)
		if err != nil {
			var sdkErr *Error
			if errors.As(err, &sdkErr) {
				sdkErr.Status = in.status
				sdkErr.RequestID = in.requestID
			}
			return nil, err
		}
		return env, nil
	}

	sdkErr := parseAPIError(in.status, in.body).ToError()
	sdkErr.RequestID = in.requestID
	return nil, sdkErr
}

func withRequestContext(err error, ec *ErrorContext) error {
	var sdkErr *Error
	if errors.As(err, &sdkErr) && sdkErr.Context == nil {
		sdkErr.WithContext(ec)
	}
	return err
}

// withHeader returns a copy of headers with key set to value.
func withHeader(headers map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[http.CanonicalHeaderKey(key)] = value
	return out
}

// mergeHeaders merges header sets left to right; later sets win. Keys are
// canonicalised so "authorization" overrides "Authorization".
func mergeHeaders(sets ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			out[http.CanonicalHeaderKey(k)] = v
		}
	}
	return out
}

// BuildPath builds a URL path with proper escaping for path parameters.
// It replaces placeholders like {0}, {1}, etc. with the provided arguments.
//
// Example:
//
//	path := sdk.BuildPath("/api/v1/shops/{0}/orders", "north/1")
//	// Result: "/api/v1/shops/north%2F1/orders"
//
// QueryEscape is used and '+' is replaced with '%20', since '+' only means
// a space in query strings.
func BuildPath(pattern string, args ...string) string {
	path := pattern
	for i, arg := range args {
		placeholder := fmt.Sprintf("{%d}", i)
		escaped := strings.ReplaceAll(url.QueryEscape(arg), "+", "%20")
		path = strings.Replace(path, placeholder, escaped, 1)
	}
	return path
}

// readBody reads at most limit bytes of a response body.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	_, err := io.Copy(&buf, io.LimitReader(r, limit))
	return buf.Bytes(), err
}
