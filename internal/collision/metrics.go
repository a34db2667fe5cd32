package collision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-entity labels)
var (
	beginDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collision_begin_duration_seconds",
		Help:    "Time spent snapshotting entity groups",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collision_process_duration_seconds",
		Help:    "Time spent in the broad and narrow phase",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	endDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collision_end_duration_seconds",
		Help:    "Time spent notifying colliding entities",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	pairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collision_pairs_total",
		Help: "Collision pairs detected",
	})

	candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collision_candidates_total",
		Help: "Broad-phase candidates returned by the spatial index",
	})

	narrowChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collision_narrow_checks_total",
		Help: "Candidate pairs passed to the narrow phase",
	})

	framesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collision_frames_discarded_total",
		Help: "Compute stages cancelled before completion",
	})

	// stage is bounded: "begin", "process", "end"
	phaseViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collision_phase_violations_total",
		Help: "Stage calls ignored because they arrived out of order",
	}, []string{"stage"})

	targetGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collision_targets",
		Help: "Targets in the current frame snapshot",
	})

	moverGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collision_movers",
		Help: "Movers in the current frame snapshot",
	})
)
