package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/staff-console/internal/api/http"
	"github.com/spec-kit/staff-console/internal/api/http/handlers"
	"github.com/spec-kit/staff-console/internal/apiclient"
	"github.com/spec-kit/staff-console/internal/cache"
	"github.com/spec-kit/staff-console/internal/config"
	"github.com/spec-kit/staff-console/internal/credential"
	"github.com/spec-kit/staff-console/internal/events"
	"github.com/spec-kit/staff-console/internal/notify"
	"github.com/spec-kit/staff-console/internal/observability"
	"github.com/spec-kit/staff-console/internal/persistence"
	"github.com/spec-kit/staff-console/internal/service"
	"github.com/spec-kit/staff-console/internal/session"
)

// Console is the assembled process: one session, one backend client, one router.
type Console struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Dispatcher  events.Dispatcher
	Queue       *notify.Queue
	Source      *credential.Source
	Client      *apiclient.Client
	Interceptor *apiclient.Interceptor
	Store       *session.Store
	Redis       *persistence.Redis
	Fiber       *fiber.App

	activity  *service.ActivityService
	closeOnce sync.Once
}

// Options adjusts assembly, mostly for tests.
type Options struct {
	// Transport is the round tripper below the interceptor; http.DefaultTransport when nil.
	Transport http.RoundTripper
	// Now is the clock credential expiry is checked against; time.Now when nil.
	Now func() time.Time
}

// New wires every component and bootstraps the session from whatever credential the
// client already holds.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Console, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Console{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		Dispatcher: events.NewInMemoryDispatcher(),
	}

	c.Queue = notify.NewQueue(
		notify.WithDefaultTTL(cfg.Notification.DefaultTTL()),
		notify.WithDispatcher(c.Dispatcher),
		notify.WithLogger(logger.Named("notify")),
	)

	jar, err := apiclient.NewCookieJar()
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	var persisted *credential.PersistentJar
	if cfg.Auth.CredentialFile != "" {
		files, err := credential.NewFileStore(cfg.Auth.CredentialFile)
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
		persisted = credential.NewPersistentJar(jar, cfg.Backend.CookieName, files, logger.Named("credential"))
		jar = persisted
	}
	c.Interceptor = apiclient.NewInterceptor(opts.Transport, logger.Named("apiclient"), c.Metrics)
	c.Client, err = apiclient.NewClient(cfg.Backend, jar, c.Interceptor, logger.Named("apiclient"))
	if err != nil {
		return nil, err
	}
	c.Source, err = credential.NewSource(jar, c.Client.LoginURL(), cfg.Backend.CookieName)
	if err != nil {
		return nil, err
	}

	c.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	var users *cache.UserListCache
	var caches []session.LocalCache
	if c.Redis != nil {
		users = cache.NewUserListCache(c.Redis.Client, cfg.Redis.UserListTTL(), logger.Named("cache"))
		caches = append(caches, users)
	}

	c.Store, err = session.NewStore(session.Config{
		LoginTimeout:  cfg.Auth.LoginTimeout(),
		LogoutTimeout: cfg.Auth.LogoutTimeout(),
		Now:           opts.Now,
	}, session.Dependencies{
		Source:     c.Source,
		Backend:    c.Client,
		Notifier:   c.Queue,
		Dispatcher: c.Dispatcher,
		Caches:     caches,
		Logger:     logger.Named("session"),
	})
	if err != nil {
		return nil, err
	}
	c.Interceptor.Bind(c.Store, apiclient.ContextNavigator{Logger: logger.Named("navigation")})

	c.activity = service.NewActivityService(c.Dispatcher, logger.Named("activity"))
	c.activity.RegisterHandlers()

	authService := service.NewAuthService(service.AuthDependencies{
		Sessions: c.Store,
		Toasts:   c.Queue,
		Logger:   logger.Named("auth"),
	})
	accountDeps := service.AccountDependencies{
		Backend:  c.Client,
		Sessions: c.Store,
		Toasts:   c.Queue,
		Logger:   logger.Named("accounts"),
	}
	if users != nil {
		accountDeps.Cache = users
	}
	accounts := service.NewAccountService(cfg.Auth.MinPasswordLength, accountDeps)

	views := handlers.NewViews(c.Store, c.Queue)
	c.Fiber = fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(c.Fiber, logger, c.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(c.Fiber, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, c.Redis),
		Session:       handlers.NewSessionHandler(authService, views),
		Console:       handlers.NewConsoleHandler(accounts, views),
		Admin:         handlers.NewAdminHandler(accounts, views),
		Notifications: handlers.NewNotificationsHandler(c.Queue),
		Gatekeeper: httptransport.NewGatekeeper(httptransport.GatekeeperDependencies{
			Sessions: c.Store,
			Live:     c.Source,
			Metrics:  c.Metrics,
			Logger:   logger.Named("guard"),
			Now:      opts.Now,
		}),
	})

	if persisted != nil {
		if _, err := persisted.Restore(); err != nil {
			logger.Warn("ignoring persisted credential", zap.Error(err))
		}
	}
	c.Store.Bootstrap()
	return c, nil
}

// Close stops background work and releases connections. Later calls do nothing.
func (c *Console) Close() {
	c.closeOnce.Do(func() {
		c.activity.Stop()
		c.Store.Wait()
		c.Queue.Clear()
		c.Redis.Close()
	})
}
