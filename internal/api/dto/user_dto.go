package dto

import (
	"time"

	"github.com/spec-kit/staff-console/internal/domain"
)

// LoginForm is the body of POST /login.
type LoginForm struct {
	UserName string `json:"user_name" form:"user_name"`
	Password string `json:"password" form:"password"`
}

// Profile describes the signed-in operator as seen by the console.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	RoleID    int       `json:"role_id"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileFromClaims maps claims to a Profile. It returns nil for nil claims.
func ProfileFromClaims(c *domain.Claims) *Profile {
	if c == nil {
		return nil
	}
	return &Profile{
		ID:        c.SubjectID,
		Name:      c.SubjectName,
		Role:      c.RoleID.String(),
		RoleID:    int(c.RoleID),
		IsAdmin:   c.RoleID.IsAdministrator(),
		ExpiresAt: c.ExpiresAtTime().UTC(),
	}
}

// View is the JSON description of a console page. Message is the one-shot reason
// carried by the redirect that led here.
type View struct {
	View          string                `json:"view"`
	Message       string                `json:"message,omitempty"`
	User          *Profile              `json:"user,omitempty"`
	Notifications []domain.Notification `json:"notifications"`
	Data          any                   `json:"data,omitempty"`
}
