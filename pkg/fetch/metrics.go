package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketboard_fetch_attempts_total",
		Help: "Upstream HTTP attempts by client and outcome",
	}, []string{"client", "outcome"})

	attemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketboard_fetch_attempt_latency_ms",
		Help:    "Latency of individual upstream attempts in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000},
	}, []string{"client"})
)

const (
	outcomeOK          = "ok"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)
