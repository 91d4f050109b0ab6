// Package metrics exposes Prometheus instruments for call-graph builds.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build outcome labels.
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callgraph_builds_total",
		Help: "Call graph builds by outcome",
	}, []string{"status"})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callgraph_build_duration_seconds",
		Help:    "Wall time of a complete call graph build",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	intervalsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callgraph_intervals_processed_total",
		Help: "Intervals routed through the stack level state machine",
	})

	threadsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callgraph_threads_built_total",
		Help: "Thread trees reconstructed",
	})

	orphansAdopted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callgraph_orphans_adopted_total",
		Help: "Intervals resolved after their caller surfaced",
	})
)

// ObserveBuild records the outcome and duration of one build.
func ObserveBuild(status string, seconds float64) {
	buildsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		buildDuration.Observe(seconds)
	}
}

// ObserveThread records the work done for one thread.
func ObserveThread(intervals, adopted int) {
	threadsBuilt.Inc()
	intervalsProcessed.Add(float64(intervals))
	orphansAdopted.Add(float64(adopted))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
