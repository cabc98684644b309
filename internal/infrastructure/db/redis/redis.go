package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// Config describes the throttle's Redis server and its lockout policy.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Timeout     time.Duration
	MaxFailures int
	Lockout     time.Duration
}

// Connect opens a client and pings it. An unreachable server is reported as
// domain.ErrBackendUnavailable.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %w", domain.ErrBackendUnavailable, cfg.Addr, err)
	}

	return client, nil
}

// OpenLoginLimiter connects and returns a limiter using cfg's policy. The
// caller closes the limiter's Client.
func OpenLoginLimiter(ctx context.Context, cfg Config) (*LoginLimiter, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewLoginLimiter(client, cfg.MaxFailures, cfg.Lockout), nil
}
