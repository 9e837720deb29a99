package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cryptoPaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketboard_crypto_path_total",
		Help: "Which source served the crypto dataset",
	}, []string{"outcome"})

	healthChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketboard_health_checks_total",
		Help: "Provider health probes by resulting status",
	}, []string{"status"})
)

const (
	pathCache       = "cache"
	pathMirror      = "mirror"
	pathPrimary     = "primary"
	pathAlternate   = "alternate"
	pathStale       = "stale"
	pathSynthesized = "synthesized"
	pathSubstituted = "substituted"
	pathStatic      = "static"
)

func recordPath(outcome string) {
	cryptoPaths.WithLabelValues(outcome).Inc()
}
