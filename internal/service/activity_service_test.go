package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/events"
)

func TestActivityServiceLogsSessionTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewActivityService(dispatcher, zap.New(core))
	svc.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: 1, Type: events.EventSessionChanged, Timestamp: time.Now(),
		Payload: events.SessionChangedPayload{Cause: events.CauseLogin, IsAuthenticated: true, Claims: &domain.Claims{SubjectID: 2, RoleID: domain.RoleStaff}},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: 2, Type: events.EventSessionChanged, Timestamp: time.Now(),
		Payload: events.SessionChangedPayload{Cause: events.CauseInvalidate, Reason: "Session expired. Please login again."},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: 1, Type: events.EventNotificationsChanged, Timestamp: time.Now(),
		Payload: events.NotificationsChangedPayload{},
	}))

	sessionLogs := logs.FilterMessage("SessionChanged").All()
	require.Len(t, sessionLogs, 2)
	assert.Equal(t, "login", sessionLogs[0].ContextMap()["cause"])
	assert.Equal(t, "Session expired. Please login again.", sessionLogs[1].ContextMap()["reason"])
	assert.Equal(t, 1, logs.FilterMessage("NotificationsChanged").Len())

	svc.Stop()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventSessionChanged, Payload: events.SessionChangedPayload{}}))
	assert.Len(t, logs.FilterMessage("SessionChanged").All(), 2)
}
