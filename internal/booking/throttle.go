package booking

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// Throttle limits booking attempts per source key.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisThrottle is a fixed-window counter shared by every replica.
type RedisThrottle struct {
	Client *redis.Client
	Max    int
	Window time.Duration
}

func NewRedisThrottle(client *redis.Client, max int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{Client: client, Max: max, Window: window}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t.Max <= 0 {
		return true, nil
	}
	k := "booking_throttle:" + key
	n, err := t.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := t.Client.Expire(ctx, k, t.Window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(t.Max), nil
}

// LocalThrottle keeps one token bucket per key in process memory. A bucket
// idle for a whole window is full again, so it is dropped on the next sweep.
type LocalThrottle struct {
	mu        sync.Mutex
	limiters  map[string]*localLimiter
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	Now       func() time.Time
}

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalThrottle(max int, window time.Duration) *LocalThrottle {
	t := &LocalThrottle{limiters: make(map[string]*localLimiter), burst: max, Now: time.Now}
	if max > 0 && window > 0 {
		t.limit = rate.Every(window / time.Duration(max))
		t.window = window
	}
	return t
}

func (t *LocalThrottle) Allow(_ context.Context, key string) (bool, error) {
	if t.burst <= 0 {
		return true, nil
	}
	now := t.Now()

	t.mu.Lock()
	t.sweep(now)
	entry, ok := t.limiters[key]
	if !ok {
		entry = &localLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	t.mu.Unlock()

	return entry.limiter.AllowN(now, 1), nil
}

// sweep must be called with mu held.
func (t *LocalThrottle) sweep(now time.Time) {
	if t.window <= 0 || now.Sub(t.lastSweep) < t.window {
		return
	}
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) >= t.window {
			delete(t.limiters, key)
		}
	}
	t.lastSweep = now
}
