package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/domain"
	"github.com/spec-kit/staff-console/internal/guard"
	"github.com/spec-kit/staff-console/internal/observability"
	"github.com/spec-kit/staff-console/internal/session"
)

// SessionGate is what route admission needs from the session store.
type SessionGate interface {
	Snapshot() session.Snapshot
	Logout(ctx context.Context) session.Snapshot
}

// LiveCredential decodes the credential currently held by the client.
type LiveCredential interface {
	Current() (*domain.Claims, bool)
}

// Gatekeeper turns guard decisions into fiber middleware.
type Gatekeeper struct {
	sessions SessionGate
	live     LiveCredential
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// GatekeeperDependencies encapsulates collaborators of the gatekeeper.
type GatekeeperDependencies struct {
	Sessions SessionGate
	Live     LiveCredential
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewGatekeeper builds a gatekeeper.
func NewGatekeeper(deps GatekeeperDependencies) *Gatekeeper {
	g := &Gatekeeper{
		sessions: deps.Sessions,
		live:     deps.Live,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Require admits the request only when fn admits it. A redirect that asks for the session
// to be cleared logs it out before redirecting.
func (g *Gatekeeper) Require(name string, fn guard.Func) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := fn(g.input())
		g.metrics.RecordDecision(name, d.Outcome.String())
		if d.Admitted() {
			return c.Next()
		}

		if d.ClearSession {
			g.sessions.Logout(c.UserContext())
		}
		g.logger.Info("navigation denied",
			zap.String("guard", name),
			zap.String("path", c.Path()),
			zap.String("to", d.Path),
			zap.String("reason", d.Reason),
			zap.Bool("cleared", d.ClearSession))
		return redirect(c, d)
	}
}

func (g *Gatekeeper) input() guard.Input {
	in := guard.Input{Session: g.sessions.Snapshot(), Now: g.now()}
	if live, ok := g.live.Current(); ok {
		in.Live = live
	}
	return in
}
