package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// waitPollInterval is the fixed retry cadence for Wait.
const waitPollInterval = 50 * time.Millisecond

// RateLimiter paces outbound exchange API calls with a sliding window backed
// by a Redis sorted set, shared across every process hitting the same venue.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow reports whether a call for the given key fits under limit calls per
// window, counting the call when it does. Slightly permissive under
// concurrent callers; exchange limits have enough headroom that an
// occasional extra call is tolerable.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()
	cutoff := now - window.Microseconds()
	k := rateLimitKey(key)

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(cutoff, 10))
	countCmd := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}

	if countCmd.Val() >= int64(limit) {
		return false, nil
	}

	member := strconv.FormatInt(now, 10)
	pipe = rl.rdb.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now), Member: member})
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit count %s: %w", key, err)
	}
	return true, nil
}

// Wait blocks until a call for the given key is allowed under limit calls per
// window, polling at a fixed interval. Returns an error when the context is
// cancelled first.
func (rl *RateLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	for {
		allowed, err := rl.Allow(ctx, key, limit, window)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(waitPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}
