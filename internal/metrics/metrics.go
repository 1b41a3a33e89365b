// Package metrics defines the Prometheus collectors of the recognition pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FaceOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_face_outcomes_total",
		Help: "Per-face recognition outcomes",
	}, []string{"status", "reason", "source"})

	RemoteComparisons = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_remote_comparisons_total",
		Help: "Remote comparison calls by result",
	}, []string{"result"})

	RemoteMatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendance_remote_match_seconds",
		Help:    "Time taken by a full remote fallback match",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"matched"})

	AttendanceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_writes_total",
		Help: "Attendance store writes by status",
	}, []string{"status"})

	IndexedEmbeddings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_indexed_embeddings",
		Help: "Number of embeddings in the active identity index",
	})
)
