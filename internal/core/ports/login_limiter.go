package ports

import "context"

// LoginLimiter throttles repeated failed logins for a username.
type LoginLimiter interface {
	// Blocked reports whether username has reached the failure limit.
	Blocked(ctx context.Context, username string) (bool, error)
	// RecordFailure increments the failure counter and returns the new count.
	RecordFailure(ctx context.Context, username string) (int64, error)
	// Reset clears the counter after a successful login.
	Reset(ctx context.Context, username string) error
}
