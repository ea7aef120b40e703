// Package metrics provides Prometheus instrumentation for the backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SearchMetrics instruments sample-size search runs
type SearchMetrics struct {
	TrialsTotal    prometheus.Counter
	TrialFailures  prometheus.Counter
	SearchDuration prometheus.Histogram
	ActiveSearches prometheus.Gauge
}

// NewSearchMetrics registers and returns search metrics on the given
// registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	factory := promauto.With(reg)
	return &SearchMetrics{
		TrialsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volatility",
			Subsystem: "search",
			Name:      "trials_total",
			Help:      "Total walk-forward trials evaluated.",
		}),
		TrialFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volatility",
			Subsystem: "search",
			Name:      "trial_failures_total",
			Help:      "Walk-forward trials that failed and aborted a search.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "volatility",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of sample-size searches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		ActiveSearches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "volatility",
			Subsystem: "search",
			Name:      "active",
			Help:      "Number of searches currently running.",
		}),
	}
}
