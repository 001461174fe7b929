package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/config"
)

// Cache states reported by Status.
const (
	CacheDisabled    = "disabled"
	CacheOK          = "ok"
	CacheUnavailable = "unavailable"
)

// Redis wraps the go-redis client backing the console's user list cache.
type Redis struct {
	Client *redis.Client
	addr   string
}

// CacheStatus is what the readiness view reports for the cache.
type CacheStatus struct {
	State     string `json:"state"`
	Addr      string `json:"addr,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Ready reports whether the console can serve with this cache state. A disabled cache is fine.
func (s CacheStatus) Ready() bool {
	return s.State != CacheUnavailable
}

// NewRedis returns nil when no address is configured; the console then runs without a cache.
// An unreachable server is logged but not fatal: cache reads miss and the backend is asked instead.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("redis not configured; user list cache disabled")
		return nil
	}
	r := &Redis{
		Client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		addr: cfg.Addr,
	}

	fields := []zap.Field{zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.Duration("user_list_ttl", cfg.UserListTTL())}
	if err := r.Ping(ctx); err != nil {
		logger.Warn("user list cache unreachable; continuing without hits", append(fields, zap.Error(err))...)
	} else {
		logger.Info("user list cache connected", fields...)
	}
	return r
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Status pings the cache and reports the outcome with its round-trip latency.
func (r *Redis) Status(ctx context.Context) CacheStatus {
	if r == nil || r.Client == nil {
		return CacheStatus{State: CacheDisabled}
	}
	start := time.Now()
	err := r.Ping(ctx)
	st := CacheStatus{State: CacheOK, Addr: r.addr, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		st.State = CacheUnavailable
		st.Error = err.Error()
	}
	return st
}
