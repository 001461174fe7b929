package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/events"
)

// ActivityService records session and notification changes in the log.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu    sync.Mutex
	unsub []func()
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unsub = append(a.unsub,
		a.dispatcher.Subscribe(events.EventSessionChanged, a.handleSessionChanged),
		a.dispatcher.Subscribe(events.EventNotificationsChanged, a.handleNotificationsChanged),
	)
}

// Stop unsubscribes every handler.
func (a *ActivityService) Stop() {
	a.mu.Lock()
	unsub := a.unsub
	a.unsub = nil
	a.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}

func (a *ActivityService) handleSessionChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.SessionChangedPayload)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.Uint64("revision", event.ID),
		zap.String("cause", string(p.Cause)),
		zap.Bool("authenticated", p.IsAuthenticated),
		zap.Bool("loading", p.Loading),
	}
	if p.Claims != nil {
		fields = append(fields, zap.Int64("subject_id", p.Claims.SubjectID), zap.String("role", p.Claims.RoleID.String()))
	}
	if p.Reason != "" {
		fields = append(fields, zap.String("reason", p.Reason))
	}
	if p.Loading {
		a.logger.Debug("SessionChanged", fields...)
		return nil
	}
	a.logger.Info("SessionChanged", fields...)
	return nil
}

func (a *ActivityService) handleNotificationsChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.NotificationsChangedPayload)
	if !ok {
		return nil
	}
	a.logger.Debug("NotificationsChanged", zap.Uint64("revision", event.ID), zap.Int("count", len(p.Notifications)))
	return nil
}
