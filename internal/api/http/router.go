package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-assistant/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Chat    *handlers.ChatHandler
	Tickets *handlers.TicketsHandler
	Metrics *handlers.MetricsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Get)

	app.Post("/chat", cfg.Chat.Chat)

	users := app.Group("/users/:username")
	users.Get("/tickets", cfg.Tickets.ListTickets)
	users.Get("/tickets/:ticketID", cfg.Tickets.GetTicket)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
}
