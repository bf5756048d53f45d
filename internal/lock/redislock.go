// Package lock provides a Redis mutex for work that should run on a single
// API instance at a time, such as refilling a shared cache entry.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned when the Locker has no Redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker is a SETNX lock with token-checked release.
type Locker struct {
	Client *redis.Client
	// Retry is the poll interval while another holder owns the key.
	Retry time.Duration
}

// Enabled reports whether the Locker can take locks.
func (l *Locker) Enabled() bool {
	return l != nil && l.Client != nil
}

// WithLock runs fn while holding key. The lock expires after ttl if the holder
// dies, and is released when fn returns. Acquisition gives up when ctx ends.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if !l.Enabled() {
		return ErrNotConfigured
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	retry := l.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	token := uuid.NewString()

	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.Client, []string{key}, token).Err()
	}()
	return fn(ctx)
}
