package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	ReadinessWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_readiness_wait_seconds",
			Help:    "Time spent waiting for the hardware readiness signal",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	ReadinessTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_readiness_timeouts_total",
			Help: "Total number of readiness waits that expired",
		},
	)

	ConfigResolveSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_config_resolve_seconds",
			Help:    "Time spent resolving task configuration from metadata",
			Buckets: prometheus.DefBuckets,
		},
	)

	LifecycleState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_lifecycle_state",
			Help: "Current lifecycle state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	// Pipeline metrics
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_stage_duration_seconds",
			Help:    "Stage execution duration in seconds by stage name",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"stage"},
	)

	StagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_stages_failed_total",
			Help: "Total number of failed pipeline stages",
		},
	)

	// Termination metrics
	Terminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_terminations_total",
			Help: "Self-deletion attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ReadinessWaitSeconds)
	prometheus.MustRegister(ReadinessTimeouts)
	prometheus.MustRegister(ConfigResolveSeconds)
	prometheus.MustRegister(LifecycleState)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StagesFailed)
	prometheus.MustRegister(Terminations)
}

// SetLifecycleState marks the given state active and all others inactive.
func SetLifecycleState(state string) {
	states := []string{
		"initializing", "waiting_readiness", "resolving_config",
		"fetching_stages", "running", "completed", "failed", "terminating",
	}
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1.0
		}
		LifecycleState.WithLabelValues(s).Set(v)
	}
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
