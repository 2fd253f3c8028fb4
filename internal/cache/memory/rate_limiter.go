package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// RateLimiter implements domain.RateLimiter with fixed windows held in a map.
// Expired windows are swept at most once per window length.
type RateLimiter struct {
	mu        sync.Mutex
	clock     clock.Clock
	windows   map[string]window
	lastSweep time.Time
}

type window struct {
	start time.Time
	size  time.Duration
	count int
}

func (w window) expired(now time.Time) bool {
	return now.Sub(w.start) >= w.size
}

// NewRateLimiter creates a RateLimiter reading time from clk.
func NewRateLimiter(clk clock.Clock) *RateLimiter {
	return &RateLimiter{clock: clk, windows: make(map[string]window), lastSweep: clk.Now()}
}

// Allow counts one request for key and reports whether it fits in limit for
// the current window.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= win {
		rl.sweep(now)
	}

	w, ok := rl.windows[key]
	if !ok || w.expired(now) {
		w = window{start: now, size: win}
	}
	w.count++
	rl.windows[key] = w
	return w.count <= limit, nil
}

// sweep drops every expired window. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, w := range rl.windows {
		if w.expired(now) {
			delete(rl.windows, k)
		}
	}
	rl.lastSweep = now
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
