package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/domain"
	apperrors "github.com/spec-kit/staff-console/pkg/util"
)

const defaultMinPasswordLength = 6

// Backend is the set of account calls the console issues.
type Backend interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	RegisterUser(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	UpdateOwnCredentials(ctx context.Context, req domain.UpdateCredentialsRequest) error
	AdminUpdateUser(ctx context.Context, id int64, req domain.AdminUpdateUserRequest) (*domain.User, error)
}

// UserCache holds the last fetched user list.
type UserCache interface {
	Get(ctx context.Context) ([]domain.User, bool)
	Set(ctx context.Context, users []domain.User) error
	Clear(ctx context.Context) error
}

// AccountService backs the settings and administration views.
type AccountService struct {
	backend           Backend
	cache             UserCache
	sessions          Sessions
	toasts            Toaster
	logger            *zap.Logger
	minPasswordLength int
}

// AccountDependencies encapsulates collaborators of the account service.
type AccountDependencies struct {
	Backend  Backend
	Cache    UserCache
	Sessions Sessions
	Toasts   Toaster
	Logger   *zap.Logger
}

// NewAccountService builds the service. Cache may be nil.
func NewAccountService(minPasswordLength int, deps AccountDependencies) *AccountService {
	if minPasswordLength <= 0 {
		minPasswordLength = defaultMinPasswordLength
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		backend:           deps.Backend,
		cache:             deps.Cache,
		sessions:          deps.Sessions,
		toasts:            deps.Toasts,
		logger:            logger,
		minPasswordLength: minPasswordLength,
	}
}

// ListUsers serves the cached list when there is one.
func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	if s.cache != nil {
		if users, ok := s.cache.Get(ctx); ok {
			return users, nil
		}
	}
	users, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, s.surface("Could not load users", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, users); err != nil {
			s.logger.Warn("failed to cache user list", zap.Error(err))
		}
	}
	return users, nil
}

// DeleteUser removes an account. Deleting the caller's own account is refused locally.
func (s *AccountService) DeleteUser(ctx context.Context, id int64) error {
	if snap := s.sessions.Snapshot(); snap.Claims != nil && snap.Claims.SubjectID == id {
		return s.reject("Could not delete user", "You cannot delete your own account.")
	}
	if err := s.backend.DeleteUser(ctx, id); err != nil {
		return s.surface("Could not delete user", err)
	}
	s.invalidate(ctx)
	s.toasts.Success("User deleted", fmt.Sprintf("User #%d was deleted.", id))
	return nil
}

// RegisterUser creates an account.
func (s *AccountService) RegisterUser(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" {
		return nil, s.reject("Could not create user", "User name is required.")
	}
	if err := s.checkPassword("Could not create user", req.Password, true); err != nil {
		return nil, err
	}
	if !req.RoleID.Valid() {
		return nil, s.reject("Could not create user", "Role must be administrator or staff.")
	}

	user, err := s.backend.RegisterUser(ctx, req)
	if err != nil {
		return nil, s.surface("Could not create user", err)
	}
	s.invalidate(ctx)
	s.toasts.Success("User created", "User "+req.UserName+" was created.")
	return user, nil
}

// UpdateOwnCredentials changes the caller's account and adopts the credential the backend rotates.
func (s *AccountService) UpdateOwnCredentials(ctx context.Context, req domain.UpdateCredentialsRequest) error {
	if req.CurrentPassword == "" {
		return s.reject("Could not update account", "Current password is required.")
	}
	if err := s.checkPassword("Could not update account", req.NewPassword, false); err != nil {
		return err
	}
	req.UserName = strings.TrimSpace(req.UserName)

	if err := s.backend.UpdateOwnCredentials(ctx, req); err != nil {
		return s.surface("Could not update account", err)
	}
	s.invalidate(ctx)
	if _, ok := s.sessions.RefreshFromCredential(); ok {
		s.toasts.Success("Account updated", "Your account was updated.")
	}
	return nil
}

// AdminUpdateUser changes another account.
func (s *AccountService) AdminUpdateUser(ctx context.Context, id int64, req domain.AdminUpdateUserRequest) (*domain.User, error) {
	if err := s.checkPassword("Could not update user", req.Password, false); err != nil {
		return nil, err
	}
	if req.RoleID != 0 && !req.RoleID.Valid() {
		return nil, s.reject("Could not update user", "Role must be administrator or staff.")
	}
	req.UserName = strings.TrimSpace(req.UserName)

	user, err := s.backend.AdminUpdateUser(ctx, id, req)
	if err != nil {
		return nil, s.surface("Could not update user", err)
	}
	s.invalidate(ctx)
	s.toasts.Success("User updated", fmt.Sprintf("User #%d was updated.", id))
	return user, nil
}

func (s *AccountService) checkPassword(title, password string, required bool) error {
	if password == "" && !required {
		return nil
	}
	if len([]rune(password)) < s.minPasswordLength {
		return s.reject(title, fmt.Sprintf("Password must be at least %d characters.", s.minPasswordLength))
	}
	return nil
}

func (s *AccountService) reject(title, message string) error {
	s.toasts.Error(title, message)
	return apperrors.NewValidationError(message, nil)
}

// surface reports err to the user with backend detail when there is some. Authorization
// failures are left to the outbound wrapper, which already redirected.
func (s *AccountService) surface(title string, err error) error {
	de := apperrors.ToDomainError(err)
	switch de.Kind {
	case apperrors.KindUnauthenticated, apperrors.KindForbidden:
		return err
	case apperrors.KindTransport:
		s.toasts.Error(title, "Unable to reach the server. Please try again.")
	default:
		msg := de.Message
		if msg == "" || de.HTTPStatus >= http.StatusInternalServerError {
			msg = "Something went wrong. Please try again."
		}
		s.toasts.Error(title, msg)
	}
	return err
}

func (s *AccountService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("failed to drop cached user list", zap.Error(err))
	}
}
