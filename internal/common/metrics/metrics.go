// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	RouterTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_router_turns_total",
			Help: "Total number of routed queries by intent and payload type",
		},
		[]string{"intent", "payload_type"},
	)

	RouterTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "case_router_turn_duration_seconds",
			Help:    "Duration of a routed query including repository calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	RepositoryCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_repository_calls_total",
			Help: "Case repository calls by backend, query type and outcome",
		},
		[]string{"backend", "query_type", "outcome"},
	)

	RepositoryCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "case_repository_call_duration_seconds",
			Help: "Duration of case repository calls in seconds",
		},
		[]string{"backend", "query_type"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_cache_lookups_total",
			Help: "Case cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ArticleDraftsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_drafts_published_total",
			Help: "Knowledge article drafts published by channel",
		},
		[]string{"channel"},
	)
)

// RegisterSessionGauge exposes the live session count. Calling it twice panics.
func RegisterSessionGauge(count func() int) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "case_sessions_active",
			Help: "Number of conversation sessions held in memory",
		},
		func() float64 { return float64(count()) },
	)
}
