package events

import (
	"time"

	"github.com/spec-kit/staff-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionChanged       EventType = "session_changed"
	EventNotificationsChanged EventType = "notifications_changed"
)

// SessionCause names the operation that produced a session change.
type SessionCause string

const (
	CauseBootstrap  SessionCause = "bootstrap"
	CauseLogin      SessionCause = "login"
	CauseLogout     SessionCause = "logout"
	CauseInvalidate SessionCause = "forced_invalidation"
	CauseRefresh    SessionCause = "refresh"
)

// Event represents a state change published to readers.
type Event struct {
	ID        uint64      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionChangedPayload carries the session state right after a mutation.
type SessionChangedPayload struct {
	Cause           SessionCause   `json:"cause"`
	IsAuthenticated bool           `json:"is_authenticated"`
	Claims          *domain.Claims `json:"claims,omitempty"`
	Loading         bool           `json:"loading"`
	Reason          string         `json:"reason,omitempty"`
}

// NotificationsChangedPayload carries the full ordered notification list.
type NotificationsChangedPayload struct {
	Notifications []domain.Notification `json:"notifications"`
}
