package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock is still held by someone else after Wait.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker provides a Redis-backed distributed lock.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	// Wait bounds how long WithLock keeps retrying. Zero waits until ctx is done.
	Wait time.Duration
	// Prefix is prepended to every key.
	Prefix string
}

// WithLock executes fn while holding a lock for the provided key. The lock is
// released automatically even if fn returns an error. When the lock cannot be
// acquired within Wait, ErrNotAcquired is returned; a cancelled ctx returns ctx.Err().
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key = l.Prefix + key
	token := uuid.NewString()
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	var deadline <-chan time.Time
	if l.Wait > 0 {
		waitTimer := time.NewTimer(l.Wait)
		defer waitTimer.Stop()
		deadline = waitTimer.C
	}

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			defer l.release(context.Background(), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline:
			timer.Stop()
			return ErrNotAcquired
		case <-timer.C:
		}
	}
}

func (l Locker) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := l.R.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
