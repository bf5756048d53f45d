package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is a fixed-window limiter kept in process memory. Counts are
// not shared between replicas.
type MemoryLimiter struct {
	store limiter.Store
}

// NewMemoryLimiter builds an in-process limiter.
func NewMemoryLimiter(prefix string) *MemoryLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &MemoryLimiter{store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	// rate is part of the key so routes with different limits do not share counters
	res, err := limiter.New(l.store, rate).Get(ctx, fmt.Sprintf("%d:%s:%s", max, window, key))
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
