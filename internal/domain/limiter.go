package domain

import (
	"context"
	"time"
)

// RateLimiter counts requests per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
