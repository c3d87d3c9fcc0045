//go:build !wasm

package sdk

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// nativeSender sends requests with net/http.
type nativeSender struct {
	client *http.Client
}

// newHTTPTransport creates a native HTTP transport
func newHTTPTransport(config *Config) (*httpTransport, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.TransportConfig.MaxIdleConns,
		MaxConnsPerHost:     config.TransportConfig.MaxConnsPerHost,
		IdleConnTimeout:     config.TransportConfig.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// The per-attempt deadline is carried by the request context, so the
	// client itself has no timeout.
	s := &nativeSender{client: &http.Client{Transport: transport}}
	return newTransport(config, s), nil
}

func (s *nativeSender) send(ctx context.Context, out *outgoing) (*incoming, error) {
	var body io.Reader
	if out.body != nil {
		body = bytes.NewReader(out.body)
	}

	req, err := http.NewRequestWithContext(ctx, out.method, out.url, body)
	if err != nil {
		return nil, (&RequestError{Op: "create request", Err: err}).ToError()
	}
	for key, value := range out.header {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, err
	}

	return &incoming{
		status:    resp.StatusCode,
		requestID: resp.Header.Get("X-Request-ID"),
		body:      data,
	}, nil
}

func (s *nativeSender) close() {
	s.client.CloseIdleConnections()
}
