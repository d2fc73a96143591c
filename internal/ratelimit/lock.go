package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	lockRetryMin = 5 * time.Millisecond
	lockRetryMax = 100 * time.Millisecond
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("lock is held")

// Locker is a single-key redis mutex. A nil *Locker runs callbacks unlocked.
type Locker struct {
	client redis.UniversalClient
	script *redis.Script
}

func NewLocker(client redis.UniversalClient) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, ErrNotConfigured
	}
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release deletes key only while it still holds token.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// WithLock runs fn while holding key, failing with ErrLocked if it is
// already held.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	return l.WithLockWait(ctx, key, ttl, 0, fn)
}

// WithLockWait retries the acquisition with backoff for up to wait before
// giving up with ErrLocked.
func (l *Locker) WithLockWait(ctx context.Context, key string, ttl, wait time.Duration, fn func() error) error {
	if l == nil {
		return fn()
	}

	deadline := time.Now().Add(wait)
	backoff := lockRetryMin
	for {
		token, ok, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				_ = l.Release(context.WithoutCancel(ctx), key, token)
			}()
			return fn()
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrLocked
		}
		timer := time.NewTimer(min(backoff, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, lockRetryMax)
	}
}
