package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "build_jobs_total",
			Help: "Total number of processed build jobs by terminal status",
		},
		[]string{"status"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "build_duration_seconds",
			Help:    "Wall-clock duration of successful deployments",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	buildJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "build_jobs_in_progress",
			Help: "Number of jobs currently being processed",
		},
	)
)
