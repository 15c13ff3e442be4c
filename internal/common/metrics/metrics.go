// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_assignment_outcomes_total",
			Help: "Total number of per-applicant assignment outcomes by status",
		},
		[]string{"operation", "status"},
	)

	ResultSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_result_submissions_total",
			Help: "Total number of interview result submissions by result",
		},
		[]string{"result"},
	)

	VerificationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_verification_decisions_total",
			Help: "Total number of home verification decisions by final result",
		},
		[]string{"result"},
	)

	ReportDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_report_dispatches_total",
			Help: "Total number of assignment report dispatches by outcome",
		},
		[]string{"outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "interview_request_duration_seconds",
			Help: "Duration of API request processing in seconds",
		},
		[]string{"route", "method"},
	)

	ProgressCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_progress_cache_total",
			Help: "Jurisdiction progress cache lookups by result",
		},
		[]string{"result"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "interview_requests_active",
			Help: "Number of in-flight API requests per route",
		},
		[]string{"route"},
	)
)
