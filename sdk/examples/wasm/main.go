//go:build wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/eislager/eislager-pro/sdk"
)

// clientWrapper exposes one SDK client to JavaScript
type clientWrapper struct {
	client sdk.Client
}

func main() {
	eislager := make(map[string]interface{})
	eislager["newClient"] = js.FuncOf(newClient)
	js.Global().Set("eislagerSDK", eislager)

	fmt.Println("EisLager SDK WASM loaded!")

	select {}
}

// newClient creates a client from a JavaScript config object:
// {service, baseURL}. Tokens are kept in localStorage.
func newClient(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return jsError("newClient requires exactly one argument")
	}

	configObj := args[0]
	config := sdk.DefaultConfig().WithTokenStore(sdk.NewLocalStorageTokenStore())
	if v := configObj.Get("service"); !v.IsUndefined() {
		config.WithService(v.String())
	}
	if v := configObj.Get("baseURL"); !v.IsUndefined() {
		config.WithBaseURL(v.String())
	}

	client, err := sdk.NewClient(config)
	if err != nil {
		return jsError(fmt.Sprintf("failed to create client: %v", err))
	}
	if tokens, err := sdk.NewLocalStorageTokenStore().Load(context.Background()); err == nil {
		client.SetAuthToken(tokens.AuthToken)
	}

	w := &clientWrapper{client: client}
	clientObj := make(map[string]interface{})
	clientObj["request"] = js.FuncOf(w.request)
	clientObj["setAuthToken"] = js.FuncOf(w.setAuthToken)
	return clientObj
}

// request(method, path, body?) resolves to the envelope as a JS object.
func (w *clientWrapper) request(this js.Value, args []js.Value) interface{} {
	return jsPromise(func() (interface{}, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("request requires a method and a path")
		}
		req := &sdk.Request{Method: args[0].String(), Path: args[1].String()}
		if len(args) > 2 && !args[2].IsUndefined() && !args[2].IsNull() {
			req.Body = json.RawMessage(js.Global().Get("JSON").Call("stringify", args[2]).String())
		}

		env, err := w.client.Request(context.Background(), req)
		if err != nil {
			return nil, err
		}
		return goValueToJS(env), nil
	})
}

func (w *clientWrapper) setAuthToken(this js.Value, args []js.Value) interface{} {
	if len(args) == 1 {
		w.client.SetAuthToken(args[0].String())
	}
	return js.Undefined()
}

// jsPromise creates a JavaScript promise from a Go function
func jsPromise(fn func() (interface{}, error)) js.Value {
	promise := js.Global().Get("Promise")

	return promise.New(js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve := args[0]
		reject := args[1]

		go func() {
			result, err := fn()
			if err != nil {
				reject.Invoke(jsError(err.Error()))
			} else {
				resolve.Invoke(result)
			}
		}()

		return nil
	}))
}

func jsError(message string) js.Value {
	return js.Global().Get("Error").New(message)
}

// goValueToJS converts a Go value to a JavaScript value via JSON
func goValueToJS(val interface{}) js.Value {
	if val == nil {
		return js.Null()
	}
	data, err := json.Marshal(val)
	if err != nil {
		return js.Null()
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}
