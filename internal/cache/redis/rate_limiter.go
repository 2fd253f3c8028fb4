package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a fixed-window counter:
// INCR on a per-window key that expires with the window.
type RateLimiter struct {
	c   *Client
	now func() time.Time
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{c: c, now: time.Now}
}

// Allow counts one request for key and reports whether the window total is
// still within limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, domain.ErrInvalidInput)
	}
	slot := rl.now().UnixNano() / int64(window)
	k := rl.c.Key("ratelimit", key, strconv.FormatInt(slot, 10))

	var incr *redis.IntCmd
	_, err := rl.c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
