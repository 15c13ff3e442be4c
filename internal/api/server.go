// internal/api/server.go

// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/common/observability"
	"admissions-engine/internal/interview/assignment"
	"admissions-engine/internal/interview/jurisdiction"
	"admissions-engine/internal/interview/results"
	"admissions-engine/internal/interview/roster"
	"admissions-engine/internal/interview/tracking"
	"admissions-engine/internal/interview/verification"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service interfaces keep the handlers testable without a database.

type AssignmentService interface {
	Assign(ctx context.Context, req *assignment.AssignRequest) ([]assignment.Outcome, error)
	Reassign(ctx context.Context, req *assignment.ReassignRequest) ([]assignment.Outcome, error)
}

type ResultsService interface {
	Submit(ctx context.Context, applicantID string, req *results.SubmitRequest) (*results.SubmitResponse, error)
}

type VerificationService interface {
	Submit(ctx context.Context, applicantID string, req *verification.SubmitRequest) (*verification.SubmitResponse, error)
}

type TrackingService interface {
	JurisdictionProgress(ctx context.Context, year int) ([]tracking.JurisdictionProgress, error)
	OverallProgress(ctx context.Context, year int) (*tracking.OverallProgress, error)
	ListApplicants(ctx context.Context, req *tracking.ListRequest) (*tracking.ListResponse, error)
	History(ctx context.Context, applicantID string, year int) (*tracking.History, error)
	UnassignedApplicants(ctx context.Context, jurisdictionCode string, year int) ([]tracking.ApplicantSummary, error)
	ReassignableApplicants(ctx context.Context, jurisdictionCode string, year int) ([]tracking.ApplicantSummary, error)
	InvalidateProgress(ctx context.Context, year int)
}

type ReportFetcher interface {
	FetchAssignmentReport(ctx context.Context, applicantIDs []string, interviewerID string, year int) (io.ReadCloser, string, error)
}

// Pinger is what healthz needs from the storage clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	logger       logger.Logger
	errs         *apperrors.ErrorHandler
	assignments  AssignmentService
	results      ResultsService
	verification VerificationService
	tracking     TrackingService
	directory    jurisdiction.Directory
	roster       roster.Roster
	reports      ReportFetcher
	postgres     Pinger
	redis        Pinger
	obs          *observability.Observability
}

type Deps struct {
	Logger       logger.Logger
	Assignments  AssignmentService
	Results      ResultsService
	Verification VerificationService
	Tracking     TrackingService
	Directory    jurisdiction.Directory
	Roster       roster.Roster
	Reports      ReportFetcher
	Postgres     Pinger
	Redis        Pinger
	Obs          *observability.Observability
}

func NewServer(deps Deps) *Server {
	return &Server{
		logger:       deps.Logger,
		errs:         apperrors.NewErrorHandler(deps.Logger),
		assignments:  deps.Assignments,
		results:      deps.Results,
		verification: deps.Verification,
		tracking:     deps.Tracking,
		directory:    deps.Directory,
		roster:       deps.Roster,
		reports:      deps.Reports,
		postgres:     deps.Postgres,
		redis:        deps.Redis,
		obs:          deps.Obs,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/interviews", func(r chi.Router) {
			r.Post("/assign", s.handleAssign)
			r.Post("/reassign", s.handleReassign)
			r.Post("/{applicantID}/result", s.handleSubmitResult)
		})
		r.Post("/verifications/{applicantID}", s.handleSubmitVerification)

		r.Route("/progress", func(r chi.Router) {
			r.Get("/overall", s.handleOverallProgress)
			r.Get("/jurisdictions", s.handleJurisdictionProgress)
		})

		r.Route("/applicants", func(r chi.Router) {
			r.Get("/", s.handleListApplicants)
			r.Get("/{applicantID}/history", s.handleHistory)
		})

		r.Route("/jurisdictions/{parentCode}", func(r chi.Router) {
			r.Get("/children", s.handleJurisdictionChildren)
			r.Get("/unassigned", s.handleUnassigned)
			r.Get("/reassignable", s.handleReassignable)
		})

		r.Get("/interviewers", s.handleInterviewers)
		r.Get("/reports/assignment", s.handleReportDownload)
	})

	return r
}

// instrument records per-route request durations and in-flight counts.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := r.URL.Path
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		metrics.ActiveRequests.WithLabelValues(route).Inc()
		defer func() {
			metrics.ActiveRequests.WithLabelValues(route).Dec()
			metrics.RequestDuration.WithLabelValues(route, r.Method).
				Observe(time.Since(start).Seconds())

			if s.obs != nil {
				outcome := "ok"
				if ww.Status() >= http.StatusInternalServerError {
					outcome = "error"
				}
				s.obs.RecordOperation(r.Context(), route, outcome)
				s.obs.RecordOperationDuration(r.Context(), route, time.Since(start), outcome)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if s.postgres != nil {
		if err := s.postgres.Ping(ctx); err != nil {
			status["postgres"] = err.Error()
			healthy = false
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
