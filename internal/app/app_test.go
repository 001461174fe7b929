package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-console/internal/apiclient"
	"github.com/spec-kit/staff-console/internal/config"
	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/guard"
	"github.com/spec-kit/staff-console/internal/service"
)

type account struct {
	id       int64
	name     string
	password string
	role     domain.Role
}

// fakeBackend plays the authentication backend: it sets and clears the credential cookie
// and answers the account endpoints.
type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	accounts map[string]*account
	ttl      time.Duration

	revoked     atomic.Bool
	logoutCalls atomic.Int32
	listCalls   atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:   t,
		ttl: time.Hour,
		accounts: map[string]*account{
			"ayse": {id: 2, name: "ayse", password: "secret1", role: domain.RoleStaff},
			"root": {id: 1, name: "root", password: "adminpass", role: domain.RoleAdministrator},
		},
	}
}

func (b *fakeBackend) token(a *account) string {
	now := time.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":    a.id,
		"user_name": a.name,
		"role_id":   int(a.role),
		"iat":       now.Unix(),
		"exp":       now.Add(b.ttl).Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(b.t, err)
	return tok
}

func (b *fakeBackend) caller(r *http.Request) *account {
	if b.revoked.Load() {
		return nil
	}
	c, err := r.Cookie("token")
	if err != nil {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (any, error) {
		return []byte("backend-secret"), nil
	}); err != nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if float64(a.id) == claims["userId"] {
			return a
		}
	}
	return nil
}

func reply(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "message": message, "data": data})
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		var req domain.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		a, ok := b.accounts[req.UserName]
		b.mu.Unlock()
		if !ok {
			reply(w, http.StatusUnauthorized, false, "User not found", nil)
			return
		}
		if a.password != req.Password {
			reply(w, http.StatusUnauthorized, false, "Wrong password", nil)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: b.token(a), Path: "/", HttpOnly: true})
		reply(w, http.StatusOK, true, "Login successful", nil)

	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout":
		b.logoutCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "token", Path: "/", MaxAge: -1})
		reply(w, http.StatusOK, true, "Logged out", nil)

	case r.URL.Path == "/api/auth/users" && r.Method == http.MethodGet:
		b.listCalls.Add(1)
		if b.caller(r) == nil {
			reply(w, http.StatusUnauthorized, false, "Unauthorized", nil)
			return
		}
		reply(w, http.StatusOK, true, "", []domain.User{{ID: 1, UserName: "root", RoleID: domain.RoleAdministrator}, {ID: 2, UserName: "ayse", RoleID: domain.RoleStaff}})

	case r.URL.Path == "/api/auth/update-credentials":
		a := b.caller(r)
		if a == nil {
			reply(w, http.StatusUnauthorized, false, "Unauthorized", nil)
			return
		}
		var req domain.UpdateCredentialsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.CurrentPassword != a.password {
			reply(w, http.StatusBadRequest, false, "Current password is incorrect", nil)
			return
		}
		b.mu.Lock()
		if req.UserName != "" {
			delete(b.accounts, a.name)
			a.name = req.UserName
			b.accounts[a.name] = a
		}
		b.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "token", Value: b.token(a), Path: "/", HttpOnly: true})
		reply(w, http.StatusOK, true, "Updated", nil)

	case strings.HasPrefix(r.URL.Path, "/api/auth/users/") && r.Method == http.MethodDelete:
		a := b.caller(r)
		if a == nil {
			reply(w, http.StatusUnauthorized, false, "Unauthorized", nil)
			return
		}
		if !a.role.IsAdministrator() {
			reply(w, http.StatusForbidden, false, "Forbidden", nil)
			return
		}
		reply(w, http.StatusOK, true, "Deleted", nil)

	default:
		reply(w, http.StatusNotFound, false, "not found", nil)
	}
}

// clock is the console's notion of now; tests move it forward to expire credentials.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	backend *fakeBackend
	console *Console
	redis   *miniredis.Miniredis
	clock   *clock
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCredentialFile(t, "")
}

func newFixtureWithCredentialFile(t *testing.T, credentialFile string) *fixture {
	t.Helper()
	backend := newFakeBackend(t)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		App:          config.AppConfig{Name: "staff-console", Version: "test", RequestTimeoutSeconds: 10},
		Backend:      config.BackendConfig{BaseURL: srv.URL + "/api", CookieName: "token", TimeoutSeconds: 5},
		Redis:        config.RedisConfig{Addr: mr.Addr(), UserListTTLSeconds: 60},
		Auth:         config.AuthConfig{LoginTimeoutSeconds: 5, LogoutTimeoutSeconds: 1, MinPasswordLength: 6, CredentialFile: credentialFile},
		Notification: config.NotificationConfig{DefaultTTLMillis: 60_000},
	}
	f := &fixture{backend: backend, redis: mr, clock: &clock{now: time.Now()}, cfg: cfg}
	f.console = f.start(t)
	return f
}

// start boots a console process against the fixture's backend.
func (f *fixture) start(t *testing.T) *Console {
	t.Helper()
	console, err := New(context.Background(), f.cfg, nil, Options{Now: f.clock.Now})
	require.NoError(t, err)
	t.Cleanup(console.Close)
	return console
}

// restart replaces the running console with a new process sharing the same configuration.
func (f *fixture) restart(t *testing.T) {
	t.Helper()
	f.console.Close()
	f.console = f.start(t)
}

func (f *fixture) do(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.console.Fiber.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (f *fixture) login(t *testing.T, name, password string) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/login", map[string]string{"user_name": name, "password": password})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, guard.LandingPath, resp.Header.Get("Location"))
}

func location(t *testing.T, resp *http.Response) (string, string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	u, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return u.Path, u.Query().Get("message")
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) notificationsOfKind(kind domain.NotificationKind) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.console.Queue.List() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestBootWithoutCredentialRedirectsToLogin(t *testing.T) {
	f := newFixture(t)

	snap := f.console.Store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Claims)
	assert.False(t, snap.Loading)

	path, message := location(t, f.do(t, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, guard.LoginPath, path)
	assert.Empty(t, message)

	resp := f.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAdoptsRotatedCredential(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ayse", "secret1")

	snap := f.console.Store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	assert.False(t, snap.Loading)
	assert.Equal(t, domain.RoleStaff, snap.Claims.RoleID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), snap.Claims.ExpiresAtTime(), 5*time.Second)

	path, _ := location(t, f.do(t, http.MethodGet, "/login", nil))
	assert.Equal(t, guard.LandingPath, path)

	resp := f.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode(t, resp)
	assert.Equal(t, "dashboard", view["view"])
	assert.Equal(t, "ayse", view["user"].(map[string]any)["name"])
}

func TestStaffIsKeptOutOfAdminWithoutLosingSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ayse", "secret1")

	path, message := location(t, f.do(t, http.MethodGet, "/admin", nil))
	assert.Equal(t, guard.LandingPath, path)
	assert.Equal(t, guard.ReasonAdminRequired, message)
	assert.True(t, f.console.Store.Snapshot().IsAuthenticated)
}

func TestAdministratorReachesAdmin(t *testing.T) {
	f := newFixture(t)
	f.login(t, "root", "adminpass")

	resp := f.do(t, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode(t, resp)
	users := view["data"].(map[string]any)["users"].([]any)
	assert.Len(t, users, 2)

	f.do(t, http.MethodGet, "/admin/users", nil)
	assert.EqualValues(t, 1, f.backend.listCalls.Load())
}

func TestUnauthenticatedResponseInvalidatesSessionOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t, "root", "adminpass")
	f.backend.revoked.Store(true)

	path, message := location(t, f.do(t, http.MethodGet, "/admin/users", nil))
	assert.Equal(t, guard.LoginPath, path)
	assert.Equal(t, guard.ReasonSessionExpired, message)

	snap := f.console.Store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Claims)

	path, _ = location(t, f.do(t, http.MethodGet, "/admin/users", nil))
	assert.Equal(t, guard.LoginPath, path)

	warnings := f.notificationsOfKind(domain.NotificationWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, guard.ReasonSessionExpired, warnings[0].Message)
	assert.EqualValues(t, 1, f.console.Metrics.Interceptions(http.StatusUnauthorized))
}

func TestForbiddenResponseRedirectsToLanding(t *testing.T) {
	f := newFixture(t)
	f.login(t, "root", "adminpass")

	// Demote the account behind the console's back: the cached role still says administrator.
	f.backend.mu.Lock()
	f.backend.accounts["root"].role = domain.RoleStaff
	f.backend.mu.Unlock()

	path, message := location(t, f.do(t, http.MethodDelete, "/admin/users/2", nil))
	assert.Equal(t, guard.LandingPath, path)
	assert.Equal(t, apiclient.ReasonInsufficientPermissions, message)
	assert.True(t, f.console.Store.Snapshot().IsAuthenticated)
}

func TestExpiredCredentialForcesLogout(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ayse", "secret1")
	require.True(t, f.console.Store.Snapshot().IsAuthenticated)

	f.clock.Advance(2 * time.Hour)

	path, message := location(t, f.do(t, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, guard.LoginPath, path)
	assert.Equal(t, guard.ReasonSessionExpired, message)
	assert.False(t, f.console.Store.Snapshot().IsAuthenticated)
	_, present := f.console.Source.Raw()
	assert.False(t, present)
}

func TestLoginWithAlreadyExpiredCredentialIsRejected(t *testing.T) {
	f := newFixture(t)
	f.backend.ttl = -time.Minute

	resp := f.do(t, http.MethodPost, "/login", map[string]string{"user_name": "ayse", "password": "secret1"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	snap := f.console.Store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Claims)
	assert.False(t, snap.Loading)
	_, present := f.console.Source.Raw()
	assert.False(t, present)
}

func TestStoredCredentialSurvivesRestart(t *testing.T) {
	file := filepath.Join(t.TempDir(), "credentials.json")
	f := newFixtureWithCredentialFile(t, file)
	f.login(t, "ayse", "secret1")
	require.FileExists(t, file)

	f.restart(t)

	snap := f.console.Store.Snapshot()
	require.True(t, snap.IsAuthenticated)
	assert.Equal(t, "ayse", snap.Claims.SubjectName)
	resp := f.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dashboard", decode(t, resp)["view"])

	path, _ := location(t, f.do(t, http.MethodPost, "/logout", nil))
	assert.Equal(t, guard.LoginPath, path)
	assert.NoFileExists(t, file)

	f.restart(t)
	assert.False(t, f.console.Store.Snapshot().IsAuthenticated)
}

func TestExpiredStoredCredentialIsDiscardedOnBoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "credentials.json")
	f := newFixtureWithCredentialFile(t, file)
	f.login(t, "ayse", "secret1")
	require.FileExists(t, file)

	f.clock.Advance(2 * time.Hour)
	f.restart(t)

	assert.False(t, f.console.Store.Snapshot().IsAuthenticated)
	assert.NoFileExists(t, file)
	path, message := location(t, f.do(t, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, guard.LoginPath, path)
	assert.Empty(t, message)
}

func TestWrongPasswordIsNotASessionExpiry(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"ayse", "nobody"} {
		resp := f.do(t, http.MethodPost, "/login", map[string]string{"user_name": name, "password": "wrong-pass"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, service.InvalidCredentialsMessage, body["error"].(map[string]any)["message"])
	}

	snap := f.console.Store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.Loading)
	assert.Empty(t, f.notificationsOfKind(domain.NotificationWarning))
	assert.Zero(t, f.console.Metrics.Interceptions(http.StatusUnauthorized))
}

func TestLogoutIsIdempotentAndClearsLocalState(t *testing.T) {
	f := newFixture(t)
	f.login(t, "root", "adminpass")
	f.do(t, http.MethodGet, "/admin/users", nil)
	require.True(t, f.redis.Exists("staff-console:users"))

	for i := 0; i < 2; i++ {
		path, _ := location(t, f.do(t, http.MethodPost, "/logout", nil))
		assert.Equal(t, guard.LoginPath, path)
	}
	f.console.Store.Wait()

	snap := f.console.Store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Claims)
	assert.False(t, f.redis.Exists("staff-console:users"))
	assert.EqualValues(t, 1, f.backend.logoutCalls.Load())
}

func TestCredentialUpdateRefreshesSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ayse", "secret1")

	resp := f.do(t, http.MethodPut, "/settings/credentials", map[string]string{
		"current_password": "secret1",
		"user_name":        "ayse.k",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ayse.k", f.console.Store.Snapshot().Claims.SubjectName)

	resp = f.do(t, http.MethodPut, "/settings/credentials", map[string]string{
		"current_password": "not-it",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := f.notificationsOfKind(domain.NotificationError)
	require.NotEmpty(t, errs)
	assert.Equal(t, "Current password is incorrect", errs[len(errs)-1].Message)
}

func TestRedirectMessageIsShownOnce(t *testing.T) {
	f := newFixture(t)

	view := decode(t, f.do(t, http.MethodGet, "/login?message="+url.QueryEscape(guard.ReasonSessionExpired), nil))
	assert.Equal(t, guard.ReasonSessionExpired, view["message"])

	view = decode(t, f.do(t, http.MethodGet, "/login", nil))
	assert.Nil(t, view["message"])
}

func TestNotificationsCanBeDismissed(t *testing.T) {
	f := newFixture(t)
	id := f.console.Queue.Info("Hello", "world")

	body := decode(t, f.do(t, http.MethodGet, "/notifications", nil))
	require.Len(t, body["data"], 1)
	listed := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, id, listed["id"])
	assert.EqualValues(t, 60_000, listed["ttl_ms"])

	resp := f.do(t, http.MethodDelete, "/notifications/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/notifications/unknown", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, f.console.Queue.Len())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health/live", nil).StatusCode)

	resp := f.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cache := decode(t, resp)["dependencies"].(map[string]any)["redis"].(map[string]any)
	assert.Equal(t, "ok", cache["state"])
	assert.Equal(t, f.redis.Addr(), cache["addr"])

	f.redis.Close()
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/health/ready", nil).StatusCode)
}
