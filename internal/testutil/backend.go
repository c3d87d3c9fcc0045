// Package testutil provides an envelope-speaking fake backend service for
// tests of the client, the gateway and the CLI.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Backend is a configurable fake EisLager service.
type Backend struct {
	*httptest.Server
	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	requestCount atomic.Int32
	requests     []RecordedRequest
}

// HandlerFunc answers a request with a status and a JSON body. A nil body
// writes nothing.
type HandlerFunc func(r *http.Request) (int, interface{})

// RecordedRequest stores information about a received request
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Headers  http.Header
	Body     []byte
	Time     time.Time
}

// NewBackend starts a fake service. Unregistered routes answer 404 with an
// error envelope.
func NewBackend() *Backend {
	b := &Backend{handlers: make(map[string]HandlerFunc)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handleRequest))
	return b
}

// OK builds a success envelope.
func OK(data interface{}) map[string]interface{} {
	return map[string]interface{}{"success": true, "data": data}
}

// Fail builds an error envelope.
func Fail(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"data":    nil,
		"error":   map[string]interface{}{"code": code, "message": message},
	}
}

// Handle registers handler for "METHOD /path". A pattern ending in "/"
// matches every path below it.
func (b *Backend) Handle(pattern string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[pattern] = handler
}

// Respond registers a fixed answer.
func (b *Backend) Respond(pattern string, status int, body interface{}) {
	b.Handle(pattern, func(*http.Request) (int, interface{}) { return status, body })
}

// RespondFailing answers failStatus failCount times, then status and body.
func (b *Backend) RespondFailing(pattern string, failCount, failStatus, status int, body interface{}) {
	var attempts atomic.Int32
	b.Handle(pattern, func(*http.Request) (int, interface{}) {
		if int(attempts.Add(1)) <= failCount {
			return failStatus, Fail("TEMP_ERROR", "temporary failure")
		}
		return status, body
	})
}

// RespondDelayed sleeps before answering, or until the client goes away.
func (b *Backend) RespondDelayed(pattern string, delay time.Duration, status int, body interface{}) {
	b.Handle(pattern, func(r *http.Request) (int, interface{}) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
		return status, body
	})
}

func (b *Backend) handleRequest(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Headers:  r.Header.Clone(),
		Body:     body,
		Time:     time.Now(),
	})
	b.mu.Unlock()
	b.requestCount.Add(1)

	pattern := r.Method + " " + r.URL.Path
	b.mu.RLock()
	handler, exact := b.handlers[pattern]
	if !exact {
		for p, h := range b.handlers {
			if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) {
				handler = h
				break
			}
		}
	}
	b.mu.RUnlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(Fail("NOT_FOUND", "route not found"))
		return
	}

	status, response := handler(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if response != nil && status != http.StatusNoContent {
		switch v := response.(type) {
		case string:
			_, _ = io.WriteString(w, v)
		default:
			_ = json.NewEncoder(w).Encode(v)
		}
	}
}

// RequestCount returns the number of requests received.
func (b *Backend) RequestCount() int {
	return int(b.requestCount.Load())
}

// Requests returns all recorded requests.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// LastRequest returns the most recent request. It fails the test if none
// was received.
func (b *Backend) LastRequest(t testing.TB) RecordedRequest {
	t.Helper()
	reqs := b.Requests()
	if len(reqs) == 0 {
		t.Fatalf("backend received no requests")
	}
	return reqs[len(reqs)-1]
}

// Reset clears the recorded requests.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requestCount.Store(0)
	b.requests = b.requests[:0]
}

// DeadURL returns the URL of a server that has already been shut down, so
// every connection to it is refused.
func DeadURL() string {
	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()
	return url
}

// RunConcurrently runs fn on n goroutines and waits for all of them.
func RunConcurrently(t testing.TB, n int, fn func(id int)) {
	t.Helper()

	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			fn(id)
		}(i)
	}

	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			t.Fatalf("goroutine %d did not complete within timeout", i)
		}
	}
}
