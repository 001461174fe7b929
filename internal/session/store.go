package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/events"
)

var (
	// ErrLoginInProgress is returned when Login is called while another Login is in flight.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrCredentialUnreadable is returned when the backend accepted a login but the rotated
	// credential cookie could not be decoded.
	ErrCredentialUnreadable = errors.New("credential could not be decoded")
	// ErrCredentialExpired is returned when the backend accepted a login but the credential
	// it set has already passed its expiry.
	ErrCredentialExpired = errors.New("credential already expired")
)

// ExpiredReason is the user-facing reason attached to forced invalidations.
const ExpiredReason = "Session expired. Please login again."

const (
	defaultLoginTimeout  = 15 * time.Second
	defaultLogoutTimeout = 5 * time.Second
)

// CredentialSource exposes the live credential.
type CredentialSource interface {
	Current() (*domain.Claims, bool)
	Clear()
}

// Authenticator issues the backend login and logout calls. A successful Login is expected
// to rotate the credential cookie as a side effect.
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) error
	Logout(ctx context.Context) error
}

// Notifier enqueues user-facing notifications.
type Notifier interface {
	Show(n domain.Notification) string
}

// LocalCache is client-side state derived from the session that must not outlive it.
type LocalCache interface {
	Clear(ctx context.Context) error
}

// Snapshot is a consistent view of the session at one instant.
type Snapshot struct {
	IsAuthenticated bool
	Claims          *domain.Claims
	Loading         bool
}

func (s Snapshot) clone() Snapshot {
	if s.Claims != nil {
		c := *s.Claims
		s.Claims = &c
	}
	return s
}

// Config tunes the store.
type Config struct {
	LoginTimeout  time.Duration
	LogoutTimeout time.Duration
	// Now is the clock expiry is checked against; time.Now when nil.
	Now func() time.Time
}

// Dependencies encapsulates collaborators of the store.
type Dependencies struct {
	Source     CredentialSource
	Backend    Authenticator
	Notifier   Notifier
	Dispatcher events.Dispatcher
	Caches     []LocalCache
	Logger     *zap.Logger
}

// Store is the single source of truth for the process-wide session.
//
// Every mutation publishes events.EventSessionChanged synchronously, in mutation order.
// Subscribers may read Snapshot but must not call mutating methods.
type Store struct {
	// pubMu serializes mutation together with publication.
	pubMu sync.Mutex
	mu    sync.Mutex

	state        Snapshot
	revision     uint64
	bootstrapped bool

	source        CredentialSource
	backend       Authenticator
	notifier      Notifier
	caches        []LocalCache
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	loginTimeout  time.Duration
	logoutTimeout time.Duration
	now           func() time.Time

	background sync.WaitGroup
}

// NewStore builds a store in the unauthenticated rest state.
func NewStore(cfg Config, deps Dependencies) (*Store, error) {
	if deps.Source == nil {
		return nil, errors.New("credential source required")
	}
	if deps.Backend == nil {
		return nil, errors.New("authenticator required")
	}
	s := &Store{
		source:        deps.Source,
		backend:       deps.Backend,
		notifier:      deps.Notifier,
		caches:        deps.Caches,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		loginTimeout:  cfg.LoginTimeout,
		logoutTimeout: cfg.LogoutTimeout,
		now:           cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.dispatcher == nil {
		s.dispatcher = events.NewInMemoryDispatcher()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loginTimeout <= 0 {
		s.loginTimeout = defaultLoginTimeout
	}
	if s.logoutTimeout <= 0 {
		s.logoutTimeout = defaultLogoutTimeout
	}
	return s, nil
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every session change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(events.SessionChangedPayload)) func() {
	return s.dispatcher.Subscribe(events.EventSessionChanged, func(_ context.Context, e events.Event) error {
		if payload, ok := e.Payload.(events.SessionChangedPayload); ok {
			fn(payload)
		}
		return nil
	})
}

// Bootstrap hydrates the session from whatever credential is present. Only the first call has effect.
// An expired credential is discarded and the session stays in the rest state.
func (s *Store) Bootstrap() Snapshot {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if s.bootstrapped {
		return s.Snapshot()
	}
	s.bootstrapped = true

	claims, ok := s.source.Current()
	if ok && claims.Expired(s.now()) {
		s.logger.Info("stored credential expired; starting unauthenticated", claimFields(claims)...)
		s.source.Clear()
		ok = false
	}
	snap := s.commit(events.CauseBootstrap, "", func(st *Snapshot) {
		if ok {
			st.IsAuthenticated = true
			st.Claims = claims
		}
	})
	fields := append([]zap.Field{zap.Bool("authenticated", snap.IsAuthenticated)}, claimFields(snap.Claims)...)
	s.logger.Info("session bootstrapped", fields...)
	return snap
}

// Login authenticates against the backend and adopts the credential it rotates.
//
// loading is set before the call is issued and cleared exactly once when Login returns,
// whatever the outcome, including a panic in the backend collaborator.
func (s *Store) Login(ctx context.Context, identifier, secret string) (snap Snapshot, err error) {
	s.pubMu.Lock()
	s.mu.Lock()
	inFlight := s.state.Loading
	s.mu.Unlock()
	if inFlight {
		s.pubMu.Unlock()
		return s.Snapshot(), ErrLoginInProgress
	}
	s.commit(events.CauseLogin, "", func(st *Snapshot) { st.Loading = true })
	s.pubMu.Unlock()

	var adopted *domain.Claims
	defer func() {
		s.pubMu.Lock()
		defer s.pubMu.Unlock()
		snap = s.commit(events.CauseLogin, "", func(st *Snapshot) {
			if adopted != nil {
				st.IsAuthenticated = true
				st.Claims = adopted
			}
			st.Loading = false
		})
	}()

	callCtx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()

	if err := s.backend.Login(callCtx, identifier, secret); err != nil {
		s.logger.Info("login rejected", zap.String("identifier", identifier), zap.Error(err))
		return Snapshot{}, err
	}

	claims, ok := s.source.Current()
	if !ok {
		s.logger.Warn("login accepted but credential unreadable", zap.String("identifier", identifier))
		return Snapshot{}, ErrCredentialUnreadable
	}
	if claims.Expired(s.now()) {
		s.logger.Warn("login accepted but credential already expired", claimFields(claims)...)
		s.source.Clear()
		return Snapshot{}, ErrCredentialExpired
	}
	adopted = claims
	s.logger.Info("login succeeded", claimFields(claims)...)
	return Snapshot{}, nil
}

// Logout moves the session to the unauthenticated rest state, clears local credential
// remnants, then notifies the backend without waiting for it. Calling it repeatedly is safe.
func (s *Store) Logout(ctx context.Context) Snapshot {
	s.pubMu.Lock()
	_, hadCredential := s.source.Current()
	s.mu.Lock()
	wasAuthenticated := s.state.IsAuthenticated
	s.mu.Unlock()

	snap := s.commit(events.CauseLogout, "", resetAuthentication)
	s.clearLocal(ctx)
	s.pubMu.Unlock()

	if wasAuthenticated || hadCredential {
		s.logger.Info("logged out")
		s.notifyBackendLogout(ctx)
	}
	return snap
}

// ForceInvalidate has the local effect of Logout without contacting the backend and tells the
// user why. The notification is enqueued once per authenticated→unauthenticated transition.
func (s *Store) ForceInvalidate(reason string) Snapshot {
	if reason == "" {
		reason = ExpiredReason
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	wasAuthenticated := s.state.IsAuthenticated
	s.mu.Unlock()

	snap := s.commit(events.CauseInvalidate, reason, resetAuthentication)
	s.clearLocal(context.Background())

	if wasAuthenticated {
		s.logger.Warn("session invalidated", zap.String("reason", reason))
		if s.notifier != nil {
			s.notifier.Show(domain.Notification{
				Kind:    domain.NotificationWarning,
				Title:   "Session expired",
				Message: reason,
			})
		}
	}
	return snap
}

// RefreshFromCredential re-reads the credential after an operation that may have rotated it.
// An unreadable or expired credential leaves the current claims untouched and is reported to the user.
func (s *Store) RefreshFromCredential() (Snapshot, bool) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	claims, ok := s.source.Current()
	if !ok || claims.Expired(s.now()) {
		s.logger.Warn("credential refresh failed; keeping previous claims", zap.Bool("decoded", ok))
		if s.notifier != nil {
			s.notifier.Show(domain.Notification{
				Kind:    domain.NotificationError,
				Title:   "Session refresh failed",
				Message: "Your changes were saved but the session could not be refreshed.",
			})
		}
		return s.Snapshot(), false
	}

	s.mu.Lock()
	unchanged := s.state.IsAuthenticated && s.state.Claims != nil && *s.state.Claims == *claims
	s.mu.Unlock()
	if unchanged {
		return s.Snapshot(), true
	}

	snap := s.commit(events.CauseRefresh, "", func(st *Snapshot) {
		st.IsAuthenticated = true
		st.Claims = claims
	})
	s.logger.Info("session refreshed", claimFields(claims)...)
	return snap, true
}

// Wait blocks until fire-and-forget backend notifications have finished.
func (s *Store) Wait() {
	s.background.Wait()
}

func resetAuthentication(st *Snapshot) {
	st.IsAuthenticated = false
	st.Claims = nil
}

// commit applies fn and publishes the result. Callers hold pubMu.
func (s *Store) commit(cause events.SessionCause, reason string, fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	fn(&s.state)
	s.revision++
	rev := s.revision
	snap := s.state.clone()
	s.mu.Unlock()

	err := s.dispatcher.Publish(context.Background(), events.Event{
		ID:        rev,
		Type:      events.EventSessionChanged,
		Timestamp: time.Now(),
		Payload: events.SessionChangedPayload{
			Cause:           cause,
			IsAuthenticated: snap.IsAuthenticated,
			Claims:          snap.Claims,
			Loading:         snap.Loading,
			Reason:          reason,
		},
	})
	if err != nil {
		s.logger.Warn("session subscriber failed", zap.Error(err))
	}
	return snap
}

func (s *Store) clearLocal(ctx context.Context) {
	s.source.Clear()
	for _, c := range s.caches {
		if err := c.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear local cache", zap.Error(err))
		}
	}
}

func (s *Store) notifyBackendLogout(ctx context.Context) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
		defer cancel()
		if err := s.backend.Logout(callCtx); err != nil {
			s.logger.Warn("backend logout failed", zap.Error(err))
		}
	}()
}

func claimFields(c *domain.Claims) []zap.Field {
	if c == nil {
		return nil
	}
	return []zap.Field{
		zap.Int64("subject_id", c.SubjectID),
		zap.String("subject_name", c.SubjectName),
		zap.String("role", c.RoleID.String()),
		zap.Time("expires_at", c.ExpiresAtTime()),
	}
}
