// Package metrics defines the Prometheus metrics for the delf deletion
// engine and sweeper.
//
// Metric naming follows Prometheus conventions:
//   - delf_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ObjectsDeletedTotal counts object instances actually removed, by
	// object type.
	ObjectsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delf_objects_deleted_total",
			Help: "Total object instances actually removed from storage, by object type.",
		},
		[]string{"object"},
	)

	// EdgesDeletedTotal counts edge instances actually removed, by edge
	// name.
	EdgesDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delf_edges_deleted_total",
			Help: "Total edge instances actually removed from storage, by edge name.",
		},
		[]string{"edge"},
	)

	// CascadeErrorsTotal counts storage errors surfaced during a cascade,
	// by component (object or edge name) and operation.
	CascadeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delf_cascade_errors_total",
			Help: "Total storage errors encountered during a deletion cascade.",
		},
		[]string{"component", "operation"},
	)

	// CascadeDurationSeconds is a histogram of top-level delete_object /
	// delete_edge call duration.
	CascadeDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delf_cascade_duration_seconds",
			Help:    "Duration of a top-level delete_object or delete_edge call.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entry_point"},
	)

	// SweepDurationSeconds is a histogram of full sweeper-tick duration.
	SweepDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delf_sweep_duration_seconds",
			Help:    "Duration of a single short-TTL sweeper tick.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
	)

	// SweepExpiredTotal counts expired instances found by the sweeper, by
	// object type.
	SweepExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delf_sweep_expired_total",
			Help: "Total expired short_ttl instances found by the sweeper.",
		},
		[]string{"object"},
	)
)

func init() {
	prometheus.MustRegister(
		ObjectsDeletedTotal,
		EdgesDeletedTotal,
		CascadeErrorsTotal,
		CascadeDurationSeconds,
		SweepDurationSeconds,
		SweepExpiredTotal,
	)
}

// RecordObjectDeleted increments the deleted-object counter for object.
func RecordObjectDeleted(object string) {
	ObjectsDeletedTotal.WithLabelValues(object).Inc()
}

// RecordEdgeDeleted increments the deleted-edge counter for edge.
func RecordEdgeDeleted(edge string) {
	EdgesDeletedTotal.WithLabelValues(edge).Inc()
}

// RecordCascadeError increments the cascade-error counter for a failed
// storage call.
func RecordCascadeError(component, operation string) {
	CascadeErrorsTotal.WithLabelValues(component, operation).Inc()
}

// RecordCascadeDuration records how long a top-level entry point took.
func RecordCascadeDuration(entryPoint string, d time.Duration) {
	CascadeDurationSeconds.WithLabelValues(entryPoint).Observe(d.Seconds())
}

// RecordSweep records the duration of one sweeper tick.
func RecordSweep(d time.Duration) {
	SweepDurationSeconds.Observe(d.Seconds())
}

// RecordSweepExpired increments the expired-instance counter for object.
func RecordSweepExpired(object string, count int) {
	SweepExpiredTotal.WithLabelValues(object).Add(float64(count))
}
