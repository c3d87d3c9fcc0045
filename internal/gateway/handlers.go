package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/eislager/eislager-pro/internal/session"
	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

var proxyMethods = map[string]bool{
	fiber.MethodGet:    true,
	fiber.MethodPost:   true,
	fiber.MethodPut:    true,
	fiber.MethodPatch:  true,
	fiber.MethodDelete: true,
}

// Handler holds the dependencies of the gateway routes.
type Handler struct {
	services  *sdk.Services
	checks    map[string]Pinger
	version   string
	startTime time.Time
}

// NewHandler creates a handler over services. checks are probed by /health.
func NewHandler(services *sdk.Services, checks map[string]Pinger, version string) *Handler {
	return &Handler{
		services:  services,
		checks:    checks,
		version:   version,
		startTime: time.Now(),
	}
}

// Proxy handles ANY /svc/:service/*
func (h *Handler) Proxy(c *fiber.Ctx) error {
	name := c.Params("service")
	client := h.services.Client(name)
	if client == nil {
		return writeError(c, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown service %q", name)))
	}

	method := c.Method()
	if !proxyMethods[method] {
		return writeError(c, fiber.NewError(fiber.StatusMethodNotAllowed, fmt.Sprintf("method %s is not forwarded", method)))
	}

	path := "/" + c.Params("*")
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		path += "?" + string(q)
	}

	req := &sdk.Request{Method: method, Path: path, Headers: map[string]string{}}
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		req.Headers[fiber.HeaderAuthorization] = auth
	}
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		req.Headers[fiber.HeaderXRequestID] = rid
	}

	if raw := bytes.TrimSpace(c.Body()); len(raw) > 0 {
		if !json.Valid(raw) {
			return writeError(c, fiber.NewError(fiber.StatusBadRequest, "request body is not valid JSON"))
		}
		// fasthttp reuses the request buffer once the handler returns.
		req.Body = json.RawMessage(append([]byte(nil), raw...))
	}

	env, err := client.Request(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(env)
}

// Login handles POST /session
func (h *Handler) Login(c *fiber.Ctx) error {
	var body SessionRequest
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, fiber.NewError(fiber.StatusBadRequest, "invalid session request body"))
	}

	result, err := h.services.Login(c.UserContext(), body.Email, body.Password)
	if result == nil {
		return writeError(c, err)
	}
	if err != nil {
		// The session is live on every client even though it was not persisted.
		telemetry.WithContext(c.UserContext()).WithError(err).Warn("Failed to persist session tokens")
	}

	user := result.User
	return h.respond(c, SessionResponse{
		Authenticated: true,
		User:          &user,
		Token:         inspect(c.UserContext(), result.Token),
	})
}

// Logout handles DELETE /session
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.services.Logout(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	return h.respond(c, SessionResponse{Authenticated: false})
}

// Session handles GET /session
func (h *Handler) Session(c *fiber.Ctx) error {
	token := h.services.AuthToken()
	if token == "" {
		return h.respond(c, SessionResponse{Authenticated: false})
	}
	return h.respond(c, SessionResponse{
		Authenticated: true,
		Token:         inspect(c.UserContext(), token),
	})
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}

	status := "healthy"
	code := fiber.StatusOK
	if !healthy {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(HealthResponse{
		Status:  status,
		Service: "eislager-gateway",
		Version: h.version,
		Uptime:  uptime(h.startTime),
		Checks:  checks,
	})
}

// Index handles GET /
func (h *Handler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":  "eislager-gateway",
		"version":  h.version,
		"status":   "running",
		"services": h.services.Names(),
		"endpoints": fiber.Map{
			"proxy":   "ANY /svc/:service/*",
			"login":   "POST /session",
			"logout":  "DELETE /session",
			"session": "GET /session",
			"health":  "GET /health",
			"metrics": "GET /metrics",
		},
	})
}

// NotFound answers every unmatched route.
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(errorEnvelope(ErrCodeNotFound, "Endpoint not found"))
}

func (h *Handler) respond(c *fiber.Ctx, data interface{}) error {
	env, err := sdk.NewSuccessEnvelope(data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(env)
}

// inspect decodes token for display. Tokens that cannot be read yield nil.
func inspect(ctx context.Context, token string) *session.Info {
	info, err := session.Inspect(token)
	if err != nil {
		if !errors.Is(err, session.ErrOpaqueToken) {
			telemetry.WithContext(ctx).WithError(err).Debug("Session token is not readable")
		}
		return nil
	}
	return &info
}
