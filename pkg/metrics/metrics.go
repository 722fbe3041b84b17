// Package metrics exposes Prometheus counters and histograms for the
// machinery engine: tool invocations, image cache behavior, and init-step
// durations. These are an ambient observability concern, not a feature
// spec.md names, so the surface stays deliberately small.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ToolInvocationsTotal counts every docker/docker-machine/docker-compose
	// invocation by tool name and outcome.
	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinery_tool_invocations_total",
			Help: "Total number of external tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	ToolInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinery_tool_invocation_duration_seconds",
			Help:    "Duration of external tool invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// ImageCacheHitsTotal / ImageCacheTransfersTotal track §4.5's identity
	// comparison outcome.
	ImageCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "machinery_image_cache_hits_total",
			Help: "Total number of images already present at the target with a matching id",
		},
	)

	ImageCacheTransfersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "machinery_image_cache_transfers_total",
			Help: "Total number of save/scp/load image transfers performed",
		},
	)

	// InitStepDuration times each §4.3 init-pipeline step.
	InitStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinery_init_step_duration_seconds",
			Help:    "Duration of an init-pipeline step in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// MachineStateTotal tracks bound machine count by state.
	MachineStateTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "machinery_machine_state_total",
			Help: "Number of machines currently in each lifecycle state",
		},
		[]string{"state"},
	)

	SwarmJoinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinery_swarm_joins_total",
			Help: "Total number of swarm join attempts by role and outcome",
		},
		[]string{"role", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		ToolInvocationsTotal,
		ToolInvocationDuration,
		ImageCacheHitsTotal,
		ImageCacheTransfersTotal,
		InitStepDuration,
		MachineStateTotal,
		SwarmJoinsTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
