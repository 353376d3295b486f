package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PointsProcessed counts every point classified
	PointsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_points_processed_total",
			Help: "Total number of stream points classified",
		},
	)

	// PointsDiscarded counts invalid points dropped before classification
	PointsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_points_discarded_total",
			Help: "Total number of stream points discarded before classification",
		},
		[]string{"reason"},
	)

	// AnomaliesDetected counts anomalous verdicts
	AnomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_anomalies_detected_total",
			Help: "Total number of anomalous stream points detected",
		},
	)

	// CurrentScore tracks the latest anomaly score
	CurrentScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_current_score",
			Help: "Anomaly score of the most recent stream point, in standard deviations",
		},
	)

	// WindowFill tracks how many points the rolling window holds
	WindowFill = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_window_fill",
			Help: "Number of points currently buffered in the rolling window",
		},
	)

	// StepDuration tracks per-point processing latency
	StepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_step_duration_seconds",
			Help:    "Time spent classifying and forwarding one stream point",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)
)
