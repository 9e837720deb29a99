package fetch

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate spaces call starts at least interval apart. One Gate should be shared
// by every outbound call to the same upstream.
type Gate struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewGate builds a gate; a non-positive interval never blocks.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{limiter: rate.NewLimiter(limit, 1), interval: interval}
}

// Wait suspends until the caller may start a call, or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// Interval reports the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	if g == nil {
		return 0
	}
	return g.interval
}
