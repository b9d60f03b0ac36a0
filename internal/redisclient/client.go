package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps the Redis connection used for checkout sessions, session locks,
// the shipping offer cache and idempotency keys.
type Client struct {
	rdb          *redis.Client
	lockRetry    time.Duration
	lockMaxWait  time.Duration
	releaseToken *redis.Script
	extendToken  *redis.Script
}

const releaseLockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

const extendLockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
else
  return 0
end`

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return Wrap(rdb), nil
}

// Wrap builds a Client around an existing connection.
func Wrap(rdb *redis.Client) *Client {
	return &Client{
		rdb:          rdb,
		lockRetry:    25 * time.Millisecond,
		lockMaxWait:  3 * time.Second,
		releaseToken: redis.NewScript(releaseLockScript),
		extendToken:  redis.NewScript(extendLockScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping reports whether Redis answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// ClaimIdempotencyKey marks key as in flight. It returns false when the key is already claimed or completed.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(key), pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

// GetIdempotentOrderID returns the order recorded for key. pending is true
// while the first request holding the key is still running.
func (c *Client) GetIdempotentOrderID(ctx context.Context, key string) (orderID int64, pending bool, err error) {
	val, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return 0, true, nil
	}
	if _, err := fmt.Sscanf(val, "%d", &orderID); err != nil {
		return 0, false, fmt.Errorf("invalid idempotency value %q: %w", val, err)
	}
	return orderID, false, nil
}

// ReleaseIdempotencyKey forgets a claim whose request failed so it can be retried.
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}

const pendingMarker = "pending"

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
