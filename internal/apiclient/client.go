package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/spec-kit/staff-console/internal/config"
	"github.com/spec-kit/staff-console/internal/domain"
	apperrors "github.com/spec-kit/staff-console/pkg/util"
)

const (
	loginPath       = "/auth/login"
	logoutPath      = "/auth/logout"
	usersPath       = "/auth/users"
	registerPath    = "/auth/register"
	credentialsPath = "/auth/update-credentials"

	maxBodyBytes = 1 << 20
)

// envelope is the backend's response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client issues the backend calls the console relies on. Every call rides on the
// shared cookie jar, so the credential cookie is sent and rotated implicitly.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// NewCookieJar builds the jar shared by the client and the credential source.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// NewClient builds a client whose transport is the given interceptor.
func NewClient(cfg config.BackendConfig, jar http.CookieJar, transport http.RoundTripper, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		logger: logger,
	}, nil
}

// LoginURL is the endpoint whose response sets the credential cookie.
func (c *Client) LoginURL() *url.URL {
	return c.endpoint(loginPath)
}

// Login posts the credentials. On success the backend sets the credential cookie; the body is ignored.
func (c *Client) Login(ctx context.Context, identifier, secret string) error {
	body := domain.LoginRequest{UserName: identifier, Password: secret}
	return c.do(WithoutAuthHandling(ctx), http.MethodPost, loginPath, body, nil)
}

// Logout asks the backend to expire the credential cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(WithoutAuthHandling(ctx), http.MethodPost, logoutPath, struct{}{}, nil)
}

// ListUsers returns every operator account.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, usersPath, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, usersPath+"/"+strconv.FormatInt(id, 10), nil, nil)
}

// RegisterUser creates an account.
func (c *Client) RegisterUser(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPost, registerPath, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateOwnCredentials changes the caller's own account. The backend rotates the credential cookie.
func (c *Client) UpdateOwnCredentials(ctx context.Context, req domain.UpdateCredentialsRequest) error {
	return c.do(ctx, http.MethodPut, credentialsPath, req, nil)
}

// AdminUpdateUser changes another account.
func (c *Client) AdminUpdateUser(ctx context.Context, id int64, req domain.AdminUpdateUserRequest) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPut, usersPath+"/"+strconv.FormatInt(id, 10), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) endpoint(p string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	return &u
}

// do performs one call and folds every failure into a *apperrors.DomainError.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path).String(), reader)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return apperrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewTransportError(err)
	}
	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.FromStatus(resp.StatusCode, env.Message)
	}
	if decodeErr != nil {
		return apperrors.NewBackendError(http.StatusBadGateway, "malformed backend response")
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request rejected"
		}
		return apperrors.NewDomainError("REQUEST_REJECTED", apperrors.KindValidation, msg, resp.StatusCode, nil)
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.NewBackendError(http.StatusBadGateway, "malformed backend response")
		}
	}
	return nil
}

