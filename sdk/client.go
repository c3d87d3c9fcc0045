package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"sync"
)

// Client is a resilient client bound to one backend service.
//
// Every call returns an Envelope when the service answered with a 2xx, and
// also when the service could not be reached, timed out or answered 5xx: in
// those cases the Envelope holds synthetic data from the fallback resolver.
// Errors are returned for 401 (the token is cleared and the TokenStore
// purged), 403/404/409 and other 4xx, request-construction failures once
// retries are exhausted, invalid 2xx bodies, and caller cancellation.
//
// All methods are safe for concurrent use.
//
// Example:
//
//	client, err := sdk.NewClient(sdk.DefaultConfig().
//	    WithService(sdk.ServiceInventory).
//	    WithBaseURL("http://localhost:3003"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	env, err := client.Get(ctx, "/api/v1/flavors?page=1&limit=5")
//	if err != nil {
//	    if sdk.IsUnauthorized(err) {
//	        // back to login
//	    }
//	    return err
//	}
//	var page sdk.Page[sdk.Flavor]
//	err = env.Decode(&page)
type Client interface {
	// Service returns the logical service name.
	Service() string

	// Request is the single entry point the other helpers build on.
	Request(ctx context.Context, req *Request) (*Envelope, error)

	// Get issues a GET. path may carry a query string.
	Get(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error)

	// Post issues a POST with a JSON body.
	Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Envelope, error)

	// Put issues a PUT with a JSON body.
	Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Envelope, error)

	// Patch issues a PATCH with a JSON body.
	Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Envelope, error)

	// Delete issues a DELETE.
	Delete(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error)

	// Upload sends file and fields as multipart/form-data, POST by default.
	// Field values are formatted with fmt.Sprint.
	//
	// Example:
	//
	//	f, _ := os.Open("menu.pdf")
	//	defer f.Close()
	//	env, err := client.Upload(ctx, "/api/v1/shops/1/menu", sdk.FileUpload{
	//	    FileName: "menu.pdf",
	//	    Content:  f,
	//	}, map[string]interface{}{"season": "summer", "version": 3})
	Upload(ctx context.Context, path string, file FileUpload, fields map[string]interface{}, opts ...RequestOption) (*Envelope, error)

	// SetAuthToken sets the bearer token for subsequent requests. An empty
	// token removes the Authorization header. The token is not validated.
	SetAuthToken(token string)

	// AuthToken returns the current token, empty when none is set.
	AuthToken() string

	// Close releases idle connections. Calls after Close fail with
	// ErrClientClosed. Close is safe to call multiple times.
	Close() error
}

// RequestOption customises a single request.
type RequestOption func(*Request)

// WithRequestHeader sets a per-call header. Per-call headers win over
// default headers, including Authorization.
func WithRequestHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithRequestHeaders sets several per-call headers.
func WithRequestHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		for k, v := range headers {
			WithRequestHeader(k, v)(r)
		}
	}
}

// WithMethod overrides the method, e.g. PUT for an Upload.
func WithMethod(method string) RequestOption {
	return func(r *Request) {
		r.Method = method
	}
}

// FileUpload is the binary part of an Upload.
type FileUpload struct {
	// FieldName is the form field of the file part.
	// Default: "file"
	FieldName string
	// FileName is reported to the server.
	FileName string
	// ContentType of the file part.
	// Default: "application/octet-stream"
	ContentType string
	// Content is read once, when the body is built.
	Content io.Reader
}

// multipartBody is an encoded multipart/form-data body.
type multipartBody struct {
	contentType string
	data        []byte
}

// client is the concrete implementation of the Client interface
type client struct {
	transport *httpTransport
	config    *Config

	mu     sync.RWMutex
	token  string
	closed bool
}

// NewClient creates a client for one service. If config is nil, default
// configuration values are used. The config is copied.
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := config.clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &client{
		transport: transport,
		config:    cfg,
	}, nil
}

func (c *client) Service() string {
	return c.config.Service
}

// Request resolves req against the service.
func (c *client) Request(ctx context.Context, req *Request) (*Envelope, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, (&RequestError{Op: "build request", Err: fmt.Errorf("request cannot be nil")}).ToError()
	}

	env, err := c.transport.do(ctx, req, c.headers(req.Headers))
	if IsUnauthorized(err) {
		c.invalidateSession(ctx)
	}
	return env, err
}

// headers merges the defaults, the token and the per-call headers, in that
// order of precedence from lowest to highest.
func (c *client) headers(perCall map[string]string) map[string]string {
	defaults := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   DefaultUserAgent,
	}
	auth := map[string]string{}
	if token := c.AuthToken(); token != "" {
		auth["Authorization"] = "Bearer " + token
	}
	return mergeHeaders(defaults, c.config.Headers, auth, perCall)
}

// invalidateSession clears the token and purges persisted token material.
// The purge outlives a canceled caller context.
func (c *client) invalidateSession(ctx context.Context) {
	c.SetAuthToken("")

	var purgeErr error
	if c.config.TokenStore != nil {
		purgeErr = c.config.TokenStore.Purge(context.WithoutCancel(ctx))
	}
	c.config.Observer.OnSessionInvalidated(c.config.Service, purgeErr)
}

func (c *client) send(ctx context.Context, method, path string, body interface{}, opts []RequestOption) (*Envelope, error) {
	req := &Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(req)
	}
	return c.Request(ctx, req)
}

// Get issues a GET request
func (c *client) Get(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.send(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST request
func (c *client) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Envelope, error) {
	return c.send(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT request
func (c *client) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Envelope, error) {
	return c.send(ctx, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH request
func (c *client) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Envelope, error) {
	return c.send(ctx, http.MethodPatch, path, body, opts)
}

// Delete issues a DELETE request
func (c *client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.send(ctx, http.MethodDelete, path, nil, opts)
}

// Upload sends a multipart request
func (c *client) Upload(ctx context.Context, path string, file FileUpload, fields map[string]interface{}, opts ...RequestOption) (*Envelope, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	body, err := encodeMultipart(file, fields)
	if err != nil {
		return nil, (&RequestError{Op: "encode multipart body", Err: err}).ToError()
	}
	return c.send(ctx, http.MethodPost, path, body, opts)
}

// encodeMultipart builds the form body. Fields are written in key order so
// the encoding is deterministic.
func encodeMultipart(file FileUpload, fields map[string]interface{}) (*multipartBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fmt.Sprint(fields[k])); err != nil {
			return nil, err
		}
	}

	if file.Content != nil {
		fieldName := file.FieldName
		if fieldName == "" {
			fieldName = "file"
		}
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, file.FileName))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return &multipartBody{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

// SetAuthToken sets or clears the bearer token
func (c *client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// AuthToken returns the bearer token
func (c *client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close closes the client and releases resources
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.sender.close()
	return nil
}

// checkClosed checks if the client is closed
func (c *client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	return nil
}
