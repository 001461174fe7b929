package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-console/internal/domain"
)

const userListKey = "staff-console:users"

// UserListCache keeps the last user list fetched from the backend. It is session-derived
// state: the session store clears it on every logout and forced invalidation.
type UserListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewUserListCache builds a cache over client. A nil client yields a nil cache, which
// misses on every Get and ignores writes.
func NewUserListCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *UserListCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserListCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached list. ok is false on a miss or any cache failure.
func (c *UserListCache) Get(ctx context.Context) (users []domain.User, ok bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, userListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("user list cache read failed", zap.Error(err))
		}
		return nil, false
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		c.logger.Warn("user list cache entry corrupt", zap.Error(err))
		_ = c.client.Del(ctx, userListKey).Err()
		return nil, false
	}
	return users, true
}

// Set stores users.
func (c *UserListCache) Set(ctx context.Context, users []domain.User) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userListKey, raw, c.ttl).Err()
}

// Clear drops the cached list.
func (c *UserListCache) Clear(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, userListKey).Err()
}
