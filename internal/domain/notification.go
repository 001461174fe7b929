package domain

import (
	"encoding/json"
	"time"
)

// NotificationKind classifies a notification for display.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
	NotificationWarning NotificationKind = "warning"
)

// Notification is a transient user-facing message owned by the notification queue.
type Notification struct {
	ID      string           `json:"id"`
	Kind    NotificationKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	TTL     time.Duration    `json:"-"`
}

// TTLMillis returns the TTL in milliseconds as exposed to views.
func (n Notification) TTLMillis() int64 {
	return n.TTL.Milliseconds()
}

// MarshalJSON renders the TTL as ttl_ms.
func (n Notification) MarshalJSON() ([]byte, error) {
	type wire Notification
	return json.Marshal(struct {
		wire
		TTLMillis int64 `json:"ttl_ms"`
	}{wire: wire(n), TTLMillis: n.TTLMillis()})
}
