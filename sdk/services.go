package sdk

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// LoginPath is the auth service's login endpoint.
const LoginPath = "/api/v1/auth/login"

// Services bundles one client per backend service and keeps their tokens in
// step. Consumers receive the bundle (or a single client from it) by
// injection; there is no package-level client.
//
// Example:
//
//	services, err := sdk.NewServices(sdk.DefaultServicesConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer services.Close()
//
//	if _, err := services.Login(ctx, "clerk@eislager.example", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//	env, err := services.Client(sdk.ServiceSales).Get(ctx, "/api/v1/orders")
type Services struct {
	clients map[string]Client
	store   TokenStore
}

// NewServices builds a client for every service in cfg.BaseURLs. The
// template's TokenStore is shared by all clients, and a 401 from any service
// clears the token of all of them.
func NewServices(cfg *ServicesConfig) (*Services, error) {
	if cfg == nil {
		cfg = DefaultServicesConfig()
	}

	s := &Services{clients: make(map[string]Client, len(cfg.BaseURLs))}
	if cfg.Template != nil {
		s.store = cfg.Template.TokenStore
	}

	names := make([]string, 0, len(cfg.BaseURLs))
	for name := range cfg.BaseURLs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		scfg, err := cfg.ServiceConfig(name)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		scfg.Observer = s.sessionObserver(scfg.Observer)
		c, err := NewClient(scfg)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		s.clients[name] = c
	}
	return s, nil
}

// sessionObserver chains next with a hook that clears every client's token
// when any service answers 401.
func (s *Services) sessionObserver(next Observer) Observer {
	hook := &sessionSync{services: s}
	if next == nil {
		return hook
	}
	return NewCompositeObserver(next, hook)
}

type sessionSync struct {
	NoopObserver
	services *Services
}

func (o *sessionSync) OnSessionInvalidated(service string, purgeErr error) {
	o.services.SetAuthToken("")
}

// Client returns the client for service, or nil if it is not configured.
func (s *Services) Client(service string) Client {
	return s.clients[service]
}

// Names returns the configured service names in sorted order.
func (s *Services) Names() []string {
	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetAuthToken sets token on every client.
func (s *Services) SetAuthToken(token string) {
	for _, c := range s.clients {
		c.SetAuthToken(token)
	}
}

// AuthToken returns the token held by the auth client, or by any client when
// auth is not configured.
func (s *Services) AuthToken() string {
	if c, ok := s.clients[ServiceAuth]; ok {
		return c.AuthToken()
	}
	for _, name := range s.Names() {
		if token := s.clients[name].AuthToken(); token != "" {
			return token
		}
	}
	return ""
}

// Login posts credentials to the auth service, applies the returned token to
// every client and saves it to the TokenStore.
//
// While the auth service is down the fallback resolver answers the login with
// a synthetic offline session.
func (s *Services) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	auth, ok := s.clients[ServiceAuth]
	if !ok {
		return nil, fmt.Errorf("%w: auth service is not configured", ErrInvalidConfig)
	}

	creds := LoginRequest{Email: email, Password: password}
	if err := validate.Struct(creds); err != nil {
		return nil, (&RequestError{Op: "validate credentials", Err: err}).ToError()
	}

	result, err := NewTypedClient[LoginResult](auth).Post(ctx, LoginPath, creds)
	if err != nil {
		return nil, err
	}

	s.SetAuthToken(result.Token)
	if s.store != nil {
		if err := s.store.Save(ctx, Tokens{AuthToken: result.Token, RefreshToken: result.RefreshToken}); err != nil {
			return &result, fmt.Errorf("save tokens: %w", err)
		}
	}
	return &result, nil
}

// Logout clears the token on every client and purges the TokenStore.
func (s *Services) Logout(ctx context.Context) error {
	s.SetAuthToken("")
	if s.store == nil {
		return nil
	}
	if err := s.store.Purge(ctx); err != nil {
		return fmt.Errorf("purge tokens: %w", err)
	}
	return nil
}

// Restore loads the TokenStore and applies a stored token to every client.
// It reports whether a token was found.
func (s *Services) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	t, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load tokens: %w", err)
	}
	if t.AuthToken == "" {
		return false, nil
	}
	s.SetAuthToken(t.AuthToken)
	return true, nil
}

// Close closes every client.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
