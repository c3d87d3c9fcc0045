// Package gateway exposes the service clients over HTTP for browser
// frontends that cannot reach the backend services directly.
package gateway

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/eislager/eislager-pro/internal/telemetry"
	"github.com/eislager/eislager-pro/sdk"
)

// Options configures a Server.
type Options struct {
	Services     *sdk.Services
	Metrics      *telemetry.Metrics
	Checks       map[string]Pinger
	Version      string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the gateway's fiber application.
type Server struct {
	app *fiber.App
}

// New builds the gateway app.
func New(opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	app := fiber.New(fiber.Config{
		AppName:               fmt.Sprintf("EisLager Gateway %s", opts.Version),
		ErrorHandler:          ErrorHandler,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	SetupMiddleware(app, opts.Metrics, opts.CORSOrigins)
	SetupRoutes(app, NewHandler(opts.Services, opts.Checks, opts.Version), opts.Metrics)

	return &Server{app: app}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
