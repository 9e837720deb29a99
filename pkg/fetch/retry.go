package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 5 * time.Second
	defaultBackoffFactor  = 2.0
	defaultMaxAttempts    = 2
)

// ErrFetchFailed is returned once every attempt has failed.
var ErrFetchFailed = errors.New("fetch: all attempts failed")

// RetryConfig encapsulates exponential backoff settings. MaxAttempts counts
// the first call, so 1 disables retries.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryHandler executes retryable operations with backoff.
type RetryHandler struct {
	cfg   RetryConfig
	sleep Sleeper
}

// NewRetryHandler constructs a handler, filling unset fields with defaults.
func NewRetryHandler(cfg RetryConfig) *RetryHandler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = defaultBackoffFactor
	}
	return &RetryHandler{cfg: cfg, sleep: sleepContext}
}

// WithSleeper returns a copy of the handler that waits using s.
func (r *RetryHandler) WithSleeper(s Sleeper) *RetryHandler {
	clone := *r
	if s != nil {
		clone.sleep = s
	}
	return &clone
}

// Config returns the effective configuration.
func (r *RetryHandler) Config() RetryConfig {
	return r.cfg
}

// Backoff returns the wait after the given failed attempt (1-based):
// min(InitialBackoff * Multiplier^(attempt-1), MaxBackoff).
func (r *RetryHandler) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(r.cfg.InitialBackoff) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
	return time.Duration(math.Min(d, float64(r.cfg.MaxBackoff)))
}

// Do runs fn up to MaxAttempts times. fn receives the 1-based attempt number.
// Only cancellation of ctx stops the loop early.
func (r *RetryHandler) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !shouldRetry(ctx, err) {
			return err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}
		if err := r.sleep(ctx, r.Backoff(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrFetchFailed, r.cfg.MaxAttempts, lastErr)
}

// shouldRetry treats every failure as transient unless the caller's own
// context has ended. Per-attempt deadlines are retryable.
func shouldRetry(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
