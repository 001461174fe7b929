package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/service"
)

// ConsoleHandler serves the pages every signed-in operator can reach.
type ConsoleHandler struct {
	accounts *service.AccountService
	views    *Views
}

// NewConsoleHandler constructs handler.
func NewConsoleHandler(accounts *service.AccountService, views *Views) *ConsoleHandler {
	return &ConsoleHandler{accounts: accounts, views: views}
}

// Dashboard handles GET /dashboard.
func (h *ConsoleHandler) Dashboard(c *fiber.Ctx) error {
	return h.views.Render(c, "dashboard", nil)
}

// Settings handles GET /settings.
func (h *ConsoleHandler) Settings(c *fiber.Ctx) error {
	return h.views.Render(c, "settings", nil)
}

// UpdateCredentials handles PUT /settings/credentials.
func (h *ConsoleHandler) UpdateCredentials(c *fiber.Ctx) error {
	var req domain.UpdateCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.accounts.UpdateOwnCredentials(c.UserContext(), req); err != nil {
		return err
	}
	return h.views.Render(c, "settings", nil)
}
