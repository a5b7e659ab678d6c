// Package metrics exposes prometheus instrumentation for briefing runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for the briefing engine. A nil *Metrics is
// valid and records nothing, so instrumentation stays optional.
type Metrics struct {
	runsTotal        *prometheus.CounterVec
	topicsDiscovered prometheus.Counter
	summariesTotal   prometheus.Counter
	runDuration      prometheus.Histogram
}

// New registers the briefing collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsfold_runs_total",
			Help: "Briefing runs by terminal status.",
		}, []string{"status"}),
		topicsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsfold_topics_discovered_total",
			Help: "Topics created during categorization.",
		}),
		summariesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsfold_summaries_total",
			Help: "Topic summaries produced.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsfold_run_duration_seconds",
			Help:    "End-to-end briefing run duration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// RunCompleted records a finished run with its terminal status ("ok",
// "error", or "cancelled").
func (m *Metrics) RunCompleted(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// TopicDiscovered records one topic creation.
func (m *Metrics) TopicDiscovered() {
	if m == nil {
		return
	}
	m.topicsDiscovered.Inc()
}

// SummaryProduced records one completed topic summary.
func (m *Metrics) SummaryProduced() {
	if m == nil {
		return
	}
	m.summariesTotal.Inc()
}
