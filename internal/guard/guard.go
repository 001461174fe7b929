package guard

import (
	"time"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/session"
)

const (
	// LoginPath is the unauthenticated entry point.
	LoginPath = "/login"
	// LandingPath is the default authenticated landing area.
	LandingPath = "/dashboard"

	ReasonSessionExpired = session.ExpiredReason
	ReasonAdminRequired  = "Access denied. Admin privileges required."
)

// Outcome tags a Decision.
type Outcome int

const (
	Admit Outcome = iota
	Redirect
)

func (o Outcome) String() string {
	if o == Admit {
		return "admit"
	}
	return "redirect"
}

// Decision is the result of a guard: either Admit, or Redirect to Path with an optional Reason.
// ClearSession asks the router to log the session out before redirecting.
type Decision struct {
	Outcome      Outcome
	Path         string
	Reason       string
	ClearSession bool
}

// Admitted reports whether navigation may proceed.
func (d Decision) Admitted() bool {
	return d.Outcome == Admit
}

// Input is everything a guard reads: a session snapshot, a fresh decode of the live
// credential (nil when absent) and the evaluation instant.
type Input struct {
	Session session.Snapshot
	Live    *domain.Claims
	Now     time.Time
}

// Func is a route admission guard.
type Func func(Input) Decision

// RolePredicate decides whether a role is privileged enough.
type RolePredicate func(domain.Role) bool

// IsAdministrator admits only role_id 1.
func IsAdministrator(r domain.Role) bool {
	return r.IsAdministrator()
}

func admit() Decision {
	return Decision{Outcome: Admit}
}

func redirect(path, reason string, clear bool) Decision {
	return Decision{Outcome: Redirect, Path: path, Reason: reason, ClearSession: clear}
}

// RequireAuthenticated admits only when the session flag, the cached claims and the live
// credential all agree the user is logged in as the same subject and neither set of claims
// has expired. Any other combination clears the session and sends the user to LoginPath;
// the reason is "session expired" whenever some source still believed in a session.
func RequireAuthenticated(in Input) Decision {
	cached := in.Session.Claims
	live := in.Live

	if !in.Session.IsAuthenticated && cached == nil && live == nil {
		return redirect(LoginPath, "", true)
	}
	if !in.Session.IsAuthenticated || cached == nil || live == nil {
		return redirect(LoginPath, ReasonSessionExpired, true)
	}
	if !cached.SameSubject(*live) {
		return redirect(LoginPath, ReasonSessionExpired, true)
	}
	if live.Expired(in.Now) || cached.Expired(in.Now) {
		return redirect(LoginPath, ReasonSessionExpired, true)
	}
	return admit()
}

// RequireUnauthenticated keeps an authenticated user off the login screen.
func RequireUnauthenticated(in Input) Decision {
	if in.Session.IsAuthenticated {
		return redirect(LandingPath, "", false)
	}
	return admit()
}

// RequirePrivileged applies RequireAuthenticated first, so an authentication failure always
// wins over a privilege failure, then requires pred to hold for both the cached and the live role.
// A privilege failure keeps the session and redirects to LandingPath.
func RequirePrivileged(pred RolePredicate) Func {
	return func(in Input) Decision {
		if d := RequireAuthenticated(in); !d.Admitted() {
			return d
		}
		if pred == nil || !pred(in.Session.Claims.RoleID) || !pred(in.Live.RoleID) {
			return redirect(LandingPath, ReasonAdminRequired, false)
		}
		return admit()
	}
}

// RequireAdministrator is RequirePrivileged(IsAdministrator).
var RequireAdministrator = RequirePrivileged(IsAdministrator)
