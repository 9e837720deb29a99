package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"marketboard/pkg/market"
)

// Status classifies upstream reachability.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Health is the result of one probe of the primary provider.
type Health struct {
	Status    Status        `json:"status"`
	Latency   time.Duration `json:"-"`
	LatencyMs int64         `json:"latencyMs"`
	Provider  string        `json:"provider"`
}

// CheckHealth pings the primary provider once, bounded by the health
// timeout. It never returns an error: failures are reported as StatusDown.
func (a *Aggregator) CheckHealth(ctx context.Context) Health {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, a.healthTimeout)
	defer cancel()

	start := time.Now()
	err := a.ping(probeCtx)
	latency := time.Since(start)

	status := a.classify(err, latency)
	healthChecks.WithLabelValues(string(status)).Inc()
	if err != nil {
		logx.WithContext(ctx).Errorf("aggregator: health probe %s status=%s err=%v", a.primaryName, status, err)
	}
	return Health{
		Status:    status,
		Latency:   latency,
		LatencyMs: latency.Milliseconds(),
		Provider:  a.primaryName,
	}
}

func (a *Aggregator) ping(ctx context.Context) (err error) {
	if a.primary == nil {
		return errors.New("aggregator: no primary provider")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregator: ping panicked: %v", r)
		}
	}()
	return a.primary.Ping(ctx)
}

func (a *Aggregator) classify(err error, latency time.Duration) Status {
	switch {
	case err == nil && latency <= a.degradedLatency:
		return StatusHealthy
	case err == nil, errors.Is(err, market.ErrUnexpectedPayload):
		return StatusDegraded
	default:
		return StatusDown
	}
}
