package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recommendation pipeline and model backend metrics.
var (
	PipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Recommendation requests by terminal status and error kind",
		},
		[]string{"status", "kind"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120},
		},
		[]string{"stage"},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_requests_total",
			Help:      "Language model calls by backend and result",
		},
		[]string{"backend", "status"}, // status: success / timeout / unavailable
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Language model call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"backend"},
	)

	IngestItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_items_total",
			Help:      "Corpus items indexed by source kind",
		},
		[]string{"source"},
	)
)

var pipelineOnce sync.Once

// RegisterPipelineMetrics registers pipeline, model and ingest metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	pipelineOnce.Do(func() {
		prometheus.MustRegister(
			PipelineOutcomesTotal,
			PipelineStageDuration,
			ModelRequestsTotal,
			ModelRequestDuration,
			IngestItemsTotal,
		)
	})
}
