package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketboard_polls_total",
		Help: "Completed poll cycles by outcome",
	}, []string{"outcome"})

	liveItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketboard_dataset_live_items",
		Help: "Items in the current dataset sourced from a provider",
	})

	mockItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketboard_dataset_synthesized_items",
		Help: "Items in the current dataset produced locally",
	})
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)
