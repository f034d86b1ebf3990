package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitreos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "vitreos_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitreos_completion_requests_total",
			Help: "Completion endpoint calls by feature and outcome",
		},
		[]string{"feature", "outcome"},
	)

	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitreos_completion_latency_seconds",
			Help:    "Completion endpoint latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"feature"},
	)

	OrchestratorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitreos_orchestrator_runs_total",
			Help: "Feature orchestrator runs by feature and final state",
		},
		[]string{"feature", "state"},
	)

	ProfileComplete = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitreos_profile_complete",
			Help: "1 when a patient profile has been submitted or restored",
		},
	)
)
