package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/session"
	apperrors "github.com/spec-kit/staff-console/pkg/util"
)

// InvalidCredentialsMessage is shown for every rejected login, whatever the backend said,
// so the form never reveals whether a user name exists.
const InvalidCredentialsMessage = "Invalid username or password."

// Sessions is the part of the session store the services drive.
type Sessions interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, identifier, secret string) (session.Snapshot, error)
	Logout(ctx context.Context) session.Snapshot
	RefreshFromCredential() (session.Snapshot, bool)
}

// Toaster enqueues user-facing notifications.
type Toaster interface {
	Success(title, message string) string
	Error(title, message string) string
	Info(title, message string) string
}

// AuthService runs the login form and the sign-out action.
type AuthService struct {
	sessions Sessions
	toasts   Toaster
	logger   *zap.Logger
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Sessions Sessions
	Toasts   Toaster
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{sessions: deps.Sessions, toasts: deps.Toasts, logger: logger}
}

// SubmitLogin validates the form locally, then logs in. Any credential rejection is
// reported with InvalidCredentialsMessage; an unreachable backend is reported as such.
func (s *AuthService) SubmitLogin(ctx context.Context, userName, password string) (session.Snapshot, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" || password == "" {
		msg := "Username and password are required."
		s.toasts.Error("Login failed", msg)
		return s.sessions.Snapshot(), apperrors.NewValidationError(msg, nil)
	}

	snap, err := s.sessions.Login(ctx, userName, password)
	switch {
	case err == nil:
		name := userName
		if snap.Claims != nil && snap.Claims.SubjectName != "" {
			name = snap.Claims.SubjectName
		}
		s.toasts.Success("Welcome", "Signed in as "+name+".")
		return snap, nil
	case errors.Is(err, session.ErrLoginInProgress):
		return snap, apperrors.NewDomainError("LOGIN_IN_PROGRESS", apperrors.KindValidation,
			"A login is already in progress.", http.StatusConflict, nil)
	case apperrors.KindOf(err) == apperrors.KindTransport:
		s.toasts.Error("Login failed", "Unable to reach the server. Please try again.")
		return snap, err
	default:
		s.logger.Info("login form rejected", zap.String("user_name", userName), zap.Error(err))
		s.toasts.Error("Login failed", InvalidCredentialsMessage)
		return snap, apperrors.NewUnauthorized(InvalidCredentialsMessage)
	}
}

// SignOut logs the session out. It never fails.
func (s *AuthService) SignOut(ctx context.Context) session.Snapshot {
	wasAuthenticated := s.sessions.Snapshot().IsAuthenticated
	snap := s.sessions.Logout(ctx)
	if wasAuthenticated {
		s.toasts.Info("Signed out", "You have been signed out.")
	}
	return snap
}
