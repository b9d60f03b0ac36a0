package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"checkout-service/internal/checkout"
	"checkout-service/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SessionStore keeps checkout sessions as JSON with a sliding TTL.
type SessionStore struct {
	client  *Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewSessionStore creates a session store
func NewSessionStore(client *Client, ttl, lockTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, lockTTL: lockTTL, logger: util.GetLogger()}
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func (s *SessionStore) Get(ctx context.Context, id string) (*checkout.Session, error) {
	raw, err := s.client.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkout session: %w", err)
	}
	var sess checkout.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *checkout.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}
	return s.client.rdb.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.rdb.Del(ctx, sessionKey(id)).Err()
}

// Lock serialises mutations of one session across instances. The lock is
// renewed every third of its ttl until unlock, so a slow holder such as an
// order submission keeps it for as long as it runs.
func (s *SessionStore) Lock(ctx context.Context, id string) (func(), error) {
	key := "checkout:session:" + id
	token, err := s.client.WaitLock(ctx, key, s.lockTTL)
	if errors.Is(err, ErrLockTimeout) {
		return nil, checkout.ErrSessionBusy
	}
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(id, key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := s.client.ReleaseLock(context.Background(), key, token); err != nil {
				s.logger.Error("Failed to release session lock", zap.String("session_id", id), zap.Error(err))
			}
		})
	}, nil
}

func (s *SessionStore) keepAlive(id, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := s.lockTTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			held, err := s.client.ExtendLock(ctx, key, token, s.lockTTL)
			cancel()
			if err != nil {
				s.logger.Warn("Failed to extend session lock", zap.String("session_id", id), zap.Error(err))
				continue
			}
			if !held {
				s.logger.Error("Session lock lost while held", zap.String("session_id", id))
				return
			}
		}
	}
}
