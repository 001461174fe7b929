package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-console/internal/api/http/handlers"
	"github.com/spec-kit/staff-console/internal/guard"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Session       *handlers.SessionHandler
	Console       *handlers.ConsoleHandler
	Admin         *handlers.AdminHandler
	Notifications *handlers.NotificationsHandler
	Gatekeeper    *Gatekeeper
}

// RegisterRoutes wires console routes. Guards are attached per route.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	requireAnonymous := cfg.Gatekeeper.Require("unauthenticated", guard.RequireUnauthenticated)
	requireSession := cfg.Gatekeeper.Require("authenticated", guard.RequireAuthenticated)
	requireAdmin := cfg.Gatekeeper.Require("administrator", guard.RequireAdministrator)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(guard.LandingPath, fiber.StatusSeeOther)
	})

	app.Get(guard.LoginPath, requireAnonymous, cfg.Session.LoginPage)
	app.Post(guard.LoginPath, cfg.Session.Login)
	app.Post("/logout", cfg.Session.Logout)

	app.Get(guard.LandingPath, requireSession, cfg.Console.Dashboard)
	app.Get("/settings", requireSession, cfg.Console.Settings)
	app.Put("/settings/credentials", requireSession, cfg.Console.UpdateCredentials)

	app.Get("/admin", requireAdmin, cfg.Admin.Admin)
	app.Get("/admin/users", requireAdmin, cfg.Admin.ListUsers)
	app.Post("/admin/users", requireAdmin, cfg.Admin.CreateUser)
	app.Put("/admin/users/:id", requireAdmin, cfg.Admin.UpdateUser)
	app.Delete("/admin/users/:id", requireAdmin, cfg.Admin.DeleteUser)

	app.Get("/notifications", cfg.Notifications.List)
	app.Delete("/notifications/:id", cfg.Notifications.Dismiss)
}
