package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-console/internal/api/dto"
	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/session"
)

// SnapshotReader exposes the current session.
type SnapshotReader interface {
	Snapshot() session.Snapshot
}

// NotificationLister exposes the live notification list.
type NotificationLister interface {
	List() []domain.Notification
}

// Views renders console pages as JSON.
type Views struct {
	sessions SnapshotReader
	toasts   NotificationLister
}

// NewViews builds the renderer.
func NewViews(sessions SnapshotReader, toasts NotificationLister) *Views {
	return &Views{sessions: sessions, toasts: toasts}
}

// Render writes the named view. The message query parameter set by the redirect that led
// here is echoed once; it is never stored.
func (v *Views) Render(c *fiber.Ctx, name string, data any) error {
	notifications := v.toasts.List()
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return c.JSON(dto.View{
		View:          name,
		Message:       c.Query("message"),
		User:          dto.ProfileFromClaims(v.sessions.Snapshot().Claims),
		Notifications: notifications,
		Data:          data,
	})
}
