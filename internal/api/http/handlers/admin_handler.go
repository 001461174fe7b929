package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/service"
)

// AdminHandler serves the administrator-only pages.
type AdminHandler struct {
	accounts *service.AccountService
	views    *Views
}

// NewAdminHandler constructs handler.
func NewAdminHandler(accounts *service.AccountService, views *Views) *AdminHandler {
	return &AdminHandler{accounts: accounts, views: views}
}

// Admin handles GET /admin.
func (h *AdminHandler) Admin(c *fiber.Ctx) error {
	return h.views.Render(c, "admin", nil)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return h.views.Render(c, "users", fiber.Map{"users": users})
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req domain.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.accounts.RegisterUser(c.UserContext(), req)
	if err != nil {
		return err
	}
	c.Status(http.StatusCreated)
	return h.views.Render(c, "users", fiber.Map{"user": user})
}

// UpdateUser handles PUT /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req domain.AdminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.accounts.AdminUpdateUser(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return h.views.Render(c, "users", fiber.Map{"user": user})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid user id")
	}
	return int64(id), nil
}
