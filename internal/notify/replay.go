package notify

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ReplayProtector records delivered events so an asynq retry of an event that
// already reached the webhook is not sent twice.
type ReplayProtector interface {
	// Acquire claims key for ttl and reports whether the caller won it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops the claim after a failed delivery.
	Release(ctx context.Context, key string) error
}

// RedisReplayProtector keeps claims as Redis keys holding the claim time.
// A nil Client disables the guard.
type RedisReplayProtector struct {
	Client *redis.Client
}

func (r RedisReplayProtector) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.Client == nil {
		return true, nil
	}
	return r.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release runs detached from ctx so a cancelled delivery still frees its claim.
func (r RedisReplayProtector) Release(ctx context.Context, key string) error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Del(context.WithoutCancel(ctx), key).Err()
}
