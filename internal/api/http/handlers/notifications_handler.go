package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-console/internal/notify"
)

// NotificationsHandler exposes the notification queue.
type NotificationsHandler struct {
	queue *notify.Queue
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(queue *notify.Queue) *NotificationsHandler {
	return &NotificationsHandler{queue: queue}
}

// List handles GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.queue.List()})
}

// Dismiss handles DELETE /notifications/:id. Unknown ids are ignored.
func (h *NotificationsHandler) Dismiss(c *fiber.Ctx) error {
	h.queue.Remove(c.Params("id"))
	return c.SendStatus(http.StatusNoContent)
}
