package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline and matcher Prometheus metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textspotter",
			Name:      "pipeline_runs_total",
			Help:      "Total number of detect-read pipeline runs",
		},
		[]string{"mode", "status"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "textspotter",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // "detect" / "recognize" / "total"
	)

	PipelineRegionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "textspotter",
			Name:      "pipeline_regions_total",
			Help:      "Total number of candidate regions handed to OCR",
		},
	)

	PipelineWordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "textspotter",
			Name:      "pipeline_words_total",
			Help:      "Total number of recognized words kept after filtering",
		},
	)

	PipelineRegionErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "textspotter",
			Name:      "pipeline_region_errors_total",
			Help:      "Total number of regions whose recognition failed",
		},
	)

	MatchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textspotter",
			Name:      "match_queries_total",
			Help:      "Total number of match queries",
		},
		[]string{"kind", "result"}, // kind: "word" / "phrase"; result: "found" / "not_found" / "truncated" / "rejected"
	)

	MatchAssignmentsExplored = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "textspotter",
			Name:      "match_assignments_explored",
			Help:      "Assignments visited per phrase search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

var registerOnce sync.Once

// Register registers the pipeline and matcher collectors with the default
// registry. Calls after the first are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PipelineRunsTotal,
			PipelineStageDuration,
			PipelineRegionsTotal,
			PipelineWordsTotal,
			PipelineRegionErrorsTotal,
			MatchQueriesTotal,
			MatchAssignmentsExplored,
		)
	})
}
