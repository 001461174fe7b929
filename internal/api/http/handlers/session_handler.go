package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-console/internal/api/dto"
	"github.com/spec-kit/staff-console/internal/guard"
	"github.com/spec-kit/staff-console/internal/service"
)

// SessionHandler serves the login page and the login and logout actions.
type SessionHandler struct {
	auth  *service.AuthService
	views *Views
}

// NewSessionHandler constructs handler.
func NewSessionHandler(auth *service.AuthService, views *Views) *SessionHandler {
	return &SessionHandler{auth: auth, views: views}
}

// LoginPage handles GET /login.
func (h *SessionHandler) LoginPage(c *fiber.Ctx) error {
	return h.views.Render(c, "login", nil)
}

// Login handles POST /login and lands on the dashboard on success.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if _, err := h.auth.SubmitLogin(c.UserContext(), form.UserName, form.Password); err != nil {
		return err
	}
	return c.Redirect(guard.LandingPath, fiber.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.auth.SignOut(c.UserContext())
	return c.Redirect(guard.LoginPath, fiber.StatusSeeOther)
}
