//go:build wasm

package sdk

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"
)

// fetchSender sends requests with the browser Fetch API.
type fetchSender struct{}

// newHTTPTransport creates a WASM transport backed by fetch.
func newHTTPTransport(config *Config) (*httpTransport, error) {
	if !js.Global().Get("fetch").Truthy() {
		return nil, fmt.Errorf("fetch API not available")
	}
	return newTransport(config, &fetchSender{}), nil
}

type fetchResult struct {
	in  *incoming
	err error
}

func (s *fetchSender) send(ctx context.Context, out *outgoing) (*incoming, error) {
	headers := js.Global().Get("Object").New()
	for key, value := range out.header {
		// Browsers refuse to let scripts set these.
		if key == "User-Agent" {
			continue
		}
		headers.Set(key, value)
	}

	controller := js.Global().Get("AbortController").New()
	opts := js.Global().Get("Object").New()
	opts.Set("method", out.method)
	opts.Set("headers", headers)
	opts.Set("mode", "cors")
	opts.Set("credentials", "same-origin")
	opts.Set("signal", controller.Get("signal"))
	if out.body != nil {
		arr := js.Global().Get("Uint8Array").New(len(out.body))
		js.CopyBytesToJS(arr, out.body)
		opts.Set("body", arr)
	}

	results := make(chan fetchResult, 1)
	var funcs []js.Func
	release := func() {
		for _, f := range funcs {
			f.Release()
		}
	}
	defer release()

	onFailure := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		msg := "network error"
		if len(args) > 0 && args[0].Get("message").Truthy() {
			msg = args[0].Get("message").String()
		}
		results <- fetchResult{err: errors.New(msg)}
		return nil
	})
	funcs = append(funcs, onFailure)

	var status int
	var requestID string
	onBody := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		buf := js.Global().Get("Uint8Array").New(args[0])
		data := make([]byte, buf.Get("length").Int())
		js.CopyBytesToGo(data, buf)
		results <- fetchResult{in: &incoming{status: status, requestID: requestID, body: data}}
		return nil
	})
	funcs = append(funcs, onBody)

	onResponse := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resp := args[0]
		status = resp.Get("status").Int()
		if id := resp.Get("headers").Call("get", "X-Request-ID"); id.Truthy() {
			requestID = id.String()
		}
		resp.Call("arrayBuffer").Call("then", onBody).Call("catch", onFailure)
		return nil
	})
	funcs = append(funcs, onResponse)

	js.Global().Call("fetch", out.url, opts).Call("then", onResponse).Call("catch", onFailure)

	select {
	case <-ctx.Done():
		controller.Call("abort")
		return nil, ctx.Err()
	case r := <-results:
		return r.in, r.err
	}
}

func (s *fetchSender) close() {}

// LocalStorageTokenStore persists tokens in the browser's localStorage.
type LocalStorageTokenStore struct{}

// NewLocalStorageTokenStore creates a localStorage-backed store.
func NewLocalStorageTokenStore() *LocalStorageTokenStore {
	return &LocalStorageTokenStore{}
}

func localStorage() (js.Value, error) {
	ls := js.Global().Get("localStorage")
	if !ls.Truthy() {
		return js.Undefined(), fmt.Errorf("localStorage not available")
	}
	return ls, nil
}

// Load reads both entries. Missing entries are empty.
func (s *LocalStorageTokenStore) Load(ctx context.Context) (Tokens, error) {
	ls, err := localStorage()
	if err != nil {
		return Tokens{}, err
	}
	var t Tokens
	if v := ls.Call("getItem", TokenKeyAuth); v.Truthy() {
		t.AuthToken = v.String()
	}
	if v := ls.Call("getItem", TokenKeyRefresh); v.Truthy() {
		t.RefreshToken = v.String()
	}
	return t, nil
}

// Save writes both entries.
func (s *LocalStorageTokenStore) Save(ctx context.Context, t Tokens) error {
	ls, err := localStorage()
	if err != nil {
		return err
	}
	ls.Call("setItem", TokenKeyAuth, t.AuthToken)
	ls.Call("setItem", TokenKeyRefresh, t.RefreshToken)
	return nil
}

// Purge removes both entries.
func (s *LocalStorageTokenStore) Purge(ctx context.Context) error {
	ls, err := localStorage()
	if err != nil {
		return err
	}
	ls.Call("removeItem", TokenKeyAuth)
	ls.Call("removeItem", TokenKeyRefresh)
	return nil
}
