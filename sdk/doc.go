// Package sdk is the resilient service client of EisLager Pro. One Client
// talks to one backend service (auth, sales, inventory, admin,
// communications, analytics) and always hands its caller a usable Envelope
// while that service is unreachable.
//
// # Failure semantics
//
// Availability failures are hidden; authorization and semantic failures are
// not:
//
//   - network errors, timeouts and 5xx responses are answered by the
//     FallbackResolver with synthetic data and a nil error
//   - 401 clears the client's token, purges the TokenStore and returns an
//     error satisfying errors.Is(err, ErrUnauthorized)
//   - 403, 404 and 409 return an *Error with Status and the fixed codes
//     FORBIDDEN, NOT_FOUND and CONFLICT
//   - other 4xx return an *Error of type ErrorTypeClient
//   - request-construction failures are retried with linear backoff, then
//     returned
//
// The Envelope never reveals whether data came from the network or from the
// fallback resolver. Register an Observer to learn about fallbacks.
//
// # Basic Usage
//
//	client, err := sdk.NewClient(sdk.DefaultConfig().
//	    WithService(sdk.ServiceInventory).
//	    WithBaseURL("http://localhost:3003"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetAuthToken(token)
//
//	env, err := client.Get(ctx, "/api/v1/flavors?page=1&limit=5")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	page, err := sdk.DecodeData[sdk.Page[sdk.Flavor]](env)
//
// # All services
//
// Services builds the six clients from one ServicesConfig and keeps their
// tokens in step:
//
//	services, err := sdk.NewServices(sdk.DefaultServicesConfig())
//	result, err := services.Login(ctx, "clerk@eislager.example", "secret")
//	orders, err := sdk.NewTypedClient[sdk.Page[sdk.Order]](services.Client(sdk.ServiceSales)).
//	    Get(ctx, "/api/v1/orders")
//
// # Fallback rules
//
// The resolver is an ordered table of FallbackRule values; the first match
// wins. DefaultFallbackRules covers users, flavors, orders, shops, chat,
// emails, notifications and the analytics aggregates. Rules can be prepended:
//
//	resolver := sdk.DefaultFallbackResolver().Prepend(sdk.FallbackRule{
//	    Category: "seasonal",
//	    Methods:  []string{http.MethodGet},
//	    Match:    sdk.PathContains("/seasonal"),
//	    Generate: func(url.Values) interface{} { return []string{"pumpkin"} },
//	})
//	config := sdk.DefaultConfig().WithFallback(resolver)
//
// # WASM
//
// Built with GOOS=js GOARCH=wasm the client uses the browser Fetch API and
// LocalStorageTokenStore persists tokens in localStorage.
package sdk
