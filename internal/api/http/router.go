package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Inventory      *handlers.InventoryHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Users.Login)

	authn := cfg.AuthMiddleware.Handle
	adminOnly := auth.RequireRole(domain.RoleAdmin)
	staffOnly := auth.RequireRole(domain.RoleAdmin, domain.RoleITAgent)

	app.Get("/auth/me", authn, cfg.Users.Me)

	notifications := app.Group("/notifications", authn)
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/test", cfg.Notifications.SendTest)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	tickets := app.Group("/tickets", authn)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)

	inventory := app.Group("/inventory", authn)
	inventory.Get("/", cfg.Inventory.ListItems)
	inventory.Get("/:id", cfg.Inventory.GetItem)
	inventory.Post("/", adminOnly, cfg.Inventory.CreateItem)
	inventory.Post("/:id/adjust", staffOnly, cfg.Inventory.AdjustStock)

	requisitions := app.Group("/requisitions", authn)
	requisitions.Get("/", cfg.Inventory.ListRequisitions)
	requisitions.Post("/", cfg.Inventory.SubmitRequisition)
	requisitions.Post("/:id/decision", adminOnly, cfg.Inventory.DecideRequisition)
	requisitions.Post("/:id/fulfil", staffOnly, cfg.Inventory.FulfilRequisition)

	users := app.Group("/users", authn, adminOnly)
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)

	admin := app.Group("/admin", authn, adminOnly)
	admin.Post("/sweep", cfg.Admin.Sweep)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
