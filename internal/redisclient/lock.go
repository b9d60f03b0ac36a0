package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a lock stays held by someone else for too long.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// AcquireLock takes lockKey for ttl and returns the token that owns it, or "" when it is held.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock releases lockKey only if token still owns it.
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return c.releaseToken.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Err()
}

// ExtendLock resets the ttl of lockKey if token still owns it. It reports
// false when the lock expired or passed to another owner.
func (c *Client) ExtendLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	n, err := c.extendToken.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return n == 1, nil
}

// WaitLock retries AcquireLock until it succeeds, ctx ends or the client's
// maximum wait elapses.
func (c *Client) WaitLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	deadline := time.Now().Add(c.lockMaxWait)
	for {
		token, err := c.AcquireLock(ctx, lockKey, ttl)
		if err != nil || token != "" {
			return token, err
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}
		timer := time.NewTimer(c.lockRetry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
