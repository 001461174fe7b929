package apiclient

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/guard"
	"github.com/spec-kit/staff-console/internal/observability"
	"github.com/spec-kit/staff-console/internal/session"
)

// ReasonInsufficientPermissions accompanies the redirect after a forbidden response.
const ReasonInsufficientPermissions = "Access denied. Insufficient permissions."

// Invalidator forces the session back to the unauthenticated state.
type Invalidator interface {
	ForceInvalidate(reason string) session.Snapshot
}

type exemptKey struct{}

// WithoutAuthHandling marks calls whose 401/403 answers are ordinary results
// (a rejected login, a logout of an already dead session).
func WithoutAuthHandling(ctx context.Context) context.Context {
	return context.WithValue(ctx, exemptKey{}, true)
}

func authHandlingDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(exemptKey{}).(bool)
	return v
}

// Interceptor wraps every backend round trip and reacts to authorization failures.
// It is the only component that invalidates the session because of a network response.
//   - 401: the session is force-invalidated and navigation to the login page is scheduled.
//   - 403: the session is kept and navigation to the landing page is scheduled.
//
// Responses and errors are always returned to the caller unchanged.
type Interceptor struct {
	next    http.RoundTripper
	logger  *zap.Logger
	metrics *observability.Metrics

	mu        sync.RWMutex
	sessions  Invalidator
	navigator Navigator
}

// NewInterceptor wraps next (http.DefaultTransport when nil).
func NewInterceptor(next http.RoundTripper, logger *zap.Logger, metrics *observability.Metrics) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interceptor{next: next, logger: logger, metrics: metrics}
}

// Bind connects the interceptor to the session store and the router. The store depends on
// the client this interceptor sits in, so binding happens after both exist.
func (i *Interceptor) Bind(sessions Invalidator, navigator Navigator) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sessions = sessions
	i.navigator = navigator
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := i.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	ctx := req.Context()
	if authHandlingDisabled(ctx) {
		return resp, nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		i.metrics.RecordInterception(resp.StatusCode)
		i.logger.Warn("backend rejected credential; invalidating session",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path))
		sessions, navigator := i.bound()
		if sessions != nil {
			sessions.ForceInvalidate(guard.ReasonSessionExpired)
		}
		if navigator != nil {
			navigator.Navigate(ctx, guard.Decision{
				Outcome: guard.Redirect,
				Path:    guard.LoginPath,
				Reason:  guard.ReasonSessionExpired,
			})
		}
	case http.StatusForbidden:
		i.metrics.RecordInterception(resp.StatusCode)
		i.logger.Warn("backend denied access",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path))
		if _, navigator := i.bound(); navigator != nil {
			navigator.Navigate(ctx, guard.Decision{
				Outcome: guard.Redirect,
				Path:    guard.LandingPath,
				Reason:  ReasonInsufficientPermissions,
			})
		}
	}
	return resp, nil
}

func (i *Interceptor) bound() (Invalidator, Navigator) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.sessions, i.navigator
}
