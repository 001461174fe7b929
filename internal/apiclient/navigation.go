package apiclient

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/guard"
)

// Navigator schedules a navigation decided outside the router.
type Navigator interface {
	Navigate(ctx context.Context, to guard.Decision)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, to guard.Decision)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, to guard.Decision) {
	f(ctx, to)
}

type slotKey struct{}

// NavigationSlot holds the navigation scheduled while serving one request.
type NavigationSlot struct {
	mu      sync.Mutex
	pending *guard.Decision
}

// WithNavigationSlot attaches an empty slot to ctx.
func WithNavigationSlot(ctx context.Context) (context.Context, *NavigationSlot) {
	slot := &NavigationSlot{}
	return context.WithValue(ctx, slotKey{}, slot), slot
}

// NavigationSlotFrom returns the slot attached to ctx, if any.
func NavigationSlotFrom(ctx context.Context) (*NavigationSlot, bool) {
	slot, ok := ctx.Value(slotKey{}).(*NavigationSlot)
	return slot, ok
}

// Schedule records to. A redirect to the login page replaces any other pending
// redirect; otherwise the first scheduled navigation wins.
func (s *NavigationSlot) Schedule(to guard.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || (to.Path == guard.LoginPath && s.pending.Path != guard.LoginPath) {
		d := to
		s.pending = &d
	}
}

// Pending returns the scheduled navigation.
func (s *NavigationSlot) Pending() (guard.Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return guard.Decision{}, false
	}
	return *s.pending, true
}

// ContextNavigator schedules navigations into the slot carried by the request context.
// Calls made outside a request only get logged.
type ContextNavigator struct {
	Logger *zap.Logger
}

// Navigate implements Navigator.
func (n ContextNavigator) Navigate(ctx context.Context, to guard.Decision) {
	if slot, ok := NavigationSlotFrom(ctx); ok {
		slot.Schedule(to)
		return
	}
	if n.Logger != nil {
		n.Logger.Info("navigation requested outside a request",
			zap.String("path", to.Path),
			zap.String("reason", to.Reason))
	}
}
