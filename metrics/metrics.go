package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DependencyUp reports the last probe result per upstream dependency
	// (1 = ONLINE, 0 = OFFLINE or UNKNOWN).
	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hw_dependency_up",
			Help: "Last observed liveness of an upstream dependency",
		},
		[]string{"dependency"},
	)

	// ProbeDuration tracks how long each liveness probe took.
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hw_health_probe_duration_seconds",
			Help:    "Duration of upstream liveness probes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dependency"},
	)

	// ComparisonsTotal counts comparison requests by final outcome.
	ComparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hw_comparisons_total",
			Help: "Comparison requests by outcome",
		},
		[]string{"outcome"},
	)

	// BaselinesSavedTotal counts baseline uploads, split by whether the
	// durable write succeeded.
	BaselinesSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hw_baselines_saved_total",
			Help: "Baseline uploads by durable persistence result",
		},
		[]string{"persisted"},
	)
)

// SetDependencyUp records a probe outcome for one dependency
func SetDependencyUp(dependency string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	DependencyUp.WithLabelValues(dependency).Set(value)
}
