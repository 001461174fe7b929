package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/session"
)

var now = time.Unix(1_760_000_000, 0)

func claims(role domain.Role, expiresIn time.Duration) *domain.Claims {
	return &domain.Claims{
		SubjectID:   11,
		SubjectName: "ayse",
		RoleID:      role,
		IssuedAt:    now.Add(-time.Minute).Unix(),
		ExpiresAt:   now.Add(expiresIn).Unix(),
	}
}

func authenticated(c *domain.Claims) session.Snapshot {
	return session.Snapshot{IsAuthenticated: true, Claims: c}
}

func TestRequireAuthenticatedAdmitsConsistentSession(t *testing.T) {
	c := claims(domain.RoleStaff, time.Hour)
	d := RequireAuthenticated(Input{Session: authenticated(c), Live: c, Now: now})
	assert.True(t, d.Admitted())
	assert.False(t, d.ClearSession)
}

func TestRequireAuthenticatedWithNoSessionRedirectsToLogin(t *testing.T) {
	d := RequireAuthenticated(Input{Now: now})
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, LoginPath, d.Path)
	assert.Empty(t, d.Reason)
}

func TestRequireAuthenticatedExpiredCredentialForcesLogout(t *testing.T) {
	cached := claims(domain.RoleStaff, time.Hour)
	live := claims(domain.RoleStaff, -time.Second)

	d := RequireAuthenticated(Input{Session: authenticated(cached), Live: live, Now: now})
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, LoginPath, d.Path)
	assert.Equal(t, ReasonSessionExpired, d.Reason)
	assert.True(t, d.ClearSession)
}

func TestRequireAuthenticatedExpiresExactlyAtDeadline(t *testing.T) {
	c := claims(domain.RoleStaff, 0)
	d := RequireAuthenticated(Input{Session: authenticated(c), Live: c, Now: now})
	assert.False(t, d.Admitted())
}

func TestRequireAuthenticatedDisagreements(t *testing.T) {
	good := claims(domain.RoleStaff, time.Hour)
	other := claims(domain.RoleStaff, time.Hour)
	other.SubjectID = 99

	cases := map[string]Input{
		"credential revoked":      {Session: authenticated(good), Live: nil, Now: now},
		"flag without claims":     {Session: session.Snapshot{IsAuthenticated: true}, Live: good, Now: now},
		"credential without flag": {Session: session.Snapshot{}, Live: good, Now: now},
		"different subject":       {Session: authenticated(good), Live: other, Now: now},
		"cached claims expired":   {Session: authenticated(claims(domain.RoleStaff, -time.Hour)), Live: good, Now: now},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			d := RequireAuthenticated(in)
			assert.Equal(t, Redirect, d.Outcome)
			assert.Equal(t, LoginPath, d.Path)
			assert.Equal(t, ReasonSessionExpired, d.Reason)
			assert.True(t, d.ClearSession)
		})
	}
}

func TestRequireUnauthenticated(t *testing.T) {
	assert.True(t, RequireUnauthenticated(Input{Now: now}).Admitted())

	c := claims(domain.RoleStaff, time.Hour)
	d := RequireUnauthenticated(Input{Session: authenticated(c), Live: c, Now: now})
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, LandingPath, d.Path)
	assert.False(t, d.ClearSession)
}

func TestRequirePrivilegedAdmitsAdministrator(t *testing.T) {
	c := claims(domain.RoleAdministrator, time.Hour)
	d := RequireAdministrator(Input{Session: authenticated(c), Live: c, Now: now})
	assert.True(t, d.Admitted())
}

func TestRequirePrivilegedDeniesStaffWithoutLoggingOut(t *testing.T) {
	c := claims(domain.RoleStaff, time.Hour)
	d := RequireAdministrator(Input{Session: authenticated(c), Live: c, Now: now})
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, LandingPath, d.Path)
	assert.Equal(t, ReasonAdminRequired, d.Reason)
	assert.False(t, d.ClearSession)
}

func TestRequirePrivilegedChecksBothRoleSources(t *testing.T) {
	cachedAdmin := claims(domain.RoleAdministrator, time.Hour)
	liveStaff := claims(domain.RoleStaff, time.Hour)

	d := RequireAdministrator(Input{Session: authenticated(cachedAdmin), Live: liveStaff, Now: now})
	assert.Equal(t, ReasonAdminRequired, d.Reason)

	d = RequireAdministrator(Input{Session: authenticated(liveStaff), Live: cachedAdmin, Now: now})
	assert.Equal(t, ReasonAdminRequired, d.Reason)
}

func TestRequirePrivilegedAuthenticationFailureWins(t *testing.T) {
	expiredStaff := claims(domain.RoleStaff, -time.Minute)
	d := RequireAdministrator(Input{Session: authenticated(expiredStaff), Live: expiredStaff, Now: now})
	assert.Equal(t, LoginPath, d.Path)
	assert.Equal(t, ReasonSessionExpired, d.Reason)
	assert.True(t, d.ClearSession)
}

func TestRequirePrivilegedNilPredicateDenies(t *testing.T) {
	c := claims(domain.RoleAdministrator, time.Hour)
	d := RequirePrivileged(nil)(Input{Session: authenticated(c), Live: c, Now: now})
	assert.False(t, d.Admitted())
}
