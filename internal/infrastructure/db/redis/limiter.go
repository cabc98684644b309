package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 15 * time.Minute
)

// LoginLimiter counts failed logins per username.
// Key format: login_failures:<username>
type LoginLimiter struct {
	client      *redis.Client
	maxFailures int64
	lockout     time.Duration
}

// NewLoginLimiter creates a LoginLimiter wrapping the given Redis client.
func NewLoginLimiter(client *redis.Client, maxFailures int, lockout time.Duration) *LoginLimiter {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	return &LoginLimiter{client: client, maxFailures: int64(maxFailures), lockout: lockout}
}

// Client returns the underlying connection.
func (l *LoginLimiter) Client() *redis.Client {
	return l.client
}

// Blocked reports whether the username has reached the failure limit.
func (l *LoginLimiter) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := l.client.Get(ctx, key(username)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("login limiter get: %w", err)
	}
	return n >= l.maxFailures, nil
}

// RecordFailure increments the counter and returns the new count. The
// lockout window starts with the first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) (int64, error) {
	k := key(username)
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("login limiter incr: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username string) error {
	if err := l.client.Del(ctx, key(username)).Err(); err != nil {
		return fmt.Errorf("login limiter reset: %w", err)
	}
	return nil
}

func key(username string) string {
	return "login_failures:" + strings.ToLower(strings.TrimSpace(username))
}
