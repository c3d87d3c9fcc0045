package gateway

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/eislager/eislager-pro/internal/telemetry"
)

// SetupRoutes configures all gateway routes
func SetupRoutes(app *fiber.App, handler *Handler, metrics *telemetry.Metrics) {
	app.All("/svc/:service/*", handler.Proxy)

	sess := app.Group("/session")
	sess.Post("/", handler.Login)
	sess.Get("/", handler.Session)
	sess.Delete("/", handler.Logout)

	app.Get("/health", handler.Health)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Get("/", handler.Index)

	app.Use(handler.NotFound)
}
