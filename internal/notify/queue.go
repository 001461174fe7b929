package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/events"
)

// DefaultTTL applies to notifications shown without an explicit TTL.
const DefaultTTL = 3000 * time.Millisecond

// Timer is the part of *time.Timer the queue relies on.
type Timer interface {
	Stop() bool
}

// TimerFunc schedules f to run after d.
type TimerFunc func(d time.Duration, f func()) Timer

func realTimer(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type entry struct {
	notification domain.Notification
	timer        Timer
}

// Queue holds the ordered set of live notifications. Insertion order is display order.
// Only the Queue mutates the list; readers get copies through List or change events.
type Queue struct {
	// pubMu serializes mutation together with publication so readers observe changes in order.
	pubMu sync.Mutex
	mu    sync.Mutex

	entries    []entry
	revision   uint64
	defaultTTL time.Duration
	after      TimerFunc
	newID      func() string
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.defaultTTL = ttl
		}
	}
}

// WithDispatcher publishes EventNotificationsChanged after every mutation.
func WithDispatcher(d events.Dispatcher) Option {
	return func(q *Queue) { q.dispatcher = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithTimerFunc replaces the expiry scheduler.
func WithTimerFunc(fn TimerFunc) Option {
	return func(q *Queue) {
		if fn != nil {
			q.after = fn
		}
	}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		defaultTTL: DefaultTTL,
		after:      realTimer,
		newID:      uuid.NewString,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Show assigns an id, applies the default TTL when none is set, appends the notification
// and schedules its automatic removal. It returns the generated id.
func (q *Queue) Show(n domain.Notification) string {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	q.mu.Lock()
	n.ID = q.newID()
	if n.TTL <= 0 {
		n.TTL = q.defaultTTL
	}
	id := n.ID
	timer := q.after(n.TTL, func() { q.expire(id) })
	q.entries = append(q.entries, entry{notification: n, timer: timer})
	snapshot, rev := q.snapshotLocked()
	q.mu.Unlock()

	q.logger.Debug("notification shown",
		zap.String("id", id),
		zap.String("kind", string(n.Kind)),
		zap.Duration("ttl", n.TTL))
	q.publish(snapshot, rev)
	return id
}

// Success shows a success notification with the default TTL.
func (q *Queue) Success(title, message string) string {
	return q.Show(domain.Notification{Kind: domain.NotificationSuccess, Title: title, Message: message})
}

// Error shows an error notification with the default TTL.
func (q *Queue) Error(title, message string) string {
	return q.Show(domain.Notification{Kind: domain.NotificationError, Title: title, Message: message})
}

// Info shows an info notification with the default TTL.
func (q *Queue) Info(title, message string) string {
	return q.Show(domain.Notification{Kind: domain.NotificationInfo, Title: title, Message: message})
}

// Warning shows a warning notification with the default TTL.
func (q *Queue) Warning(title, message string) string {
	return q.Show(domain.Notification{Kind: domain.NotificationWarning, Title: title, Message: message})
}

// Remove deletes the notification and cancels its expiry. Unknown ids are a no-op.
func (q *Queue) Remove(id string) bool {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	q.mu.Lock()
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	if t := q.entries[idx].timer; t != nil {
		t.Stop()
	}
	q.entries = append(q.entries[:idx:idx], q.entries[idx+1:]...)
	snapshot, rev := q.snapshotLocked()
	q.mu.Unlock()

	q.publish(snapshot, rev)
	return true
}

// Clear removes every notification and cancels all pending expiries.
func (q *Queue) Clear() {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return
	}
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	q.entries = nil
	snapshot, rev := q.snapshotLocked()
	q.mu.Unlock()

	q.publish(snapshot, rev)
}

// List returns the live notifications in display order.
func (q *Queue) List() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.notification
	}
	return out
}

// Len reports the number of live notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) expire(id string) {
	if q.Remove(id) {
		q.logger.Debug("notification expired", zap.String("id", id))
	}
}

func (q *Queue) indexLocked(id string) int {
	for i, e := range q.entries {
		if e.notification.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) snapshotLocked() ([]domain.Notification, uint64) {
	q.revision++
	out := make([]domain.Notification, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.notification
	}
	return out, q.revision
}

func (q *Queue) publish(list []domain.Notification, rev uint64) {
	if q.dispatcher == nil {
		return
	}
	err := q.dispatcher.Publish(context.Background(), events.Event{
		ID:        rev,
		Type:      events.EventNotificationsChanged,
		Timestamp: time.Now(),
		Payload:   events.NotificationsChangedPayload{Notifications: list},
	})
	if err != nil {
		q.logger.Warn("notification subscriber failed", zap.Error(err))
	}
}
