// internal/interview/tracking/service.go
package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"admissions-engine/internal/common/database"
	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/interview"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const latestRoundJoin = `
	LEFT JOIN LATERAL (
		SELECT ir.interviewer_id, ir.round_number, ir.status, ir.result
		FROM interview_rounds ir
		WHERE ir.applicant_id = a.id AND ir.year = a.year
		ORDER BY ir.round_number DESC
		LIMIT 1
	) r ON true`

type Service struct {
	db       *sql.DB
	cache    *database.RedisClient
	logger   logger.Logger
	cacheTTL time.Duration
	pageSize int
	maxPage  int
}

func NewService(db *sql.DB, cache *database.RedisClient, cacheTTL time.Duration, log logger.Logger) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		logger:   log.WithFields(map[string]interface{}{"component": "tracking"}),
		cacheTTL: cacheTTL,
		pageSize: 20,
		maxPage:  100,
	}
}

// ==========================
// Progress
// ==========================

// JurisdictionProgress returns the per-jurisdiction dashboard counts,
// served from Redis when a fresh copy exists. Cache trouble is logged
// and the query runs directly.
func (s *Service) JurisdictionProgress(ctx context.Context, year int) ([]JurisdictionProgress, error) {
	cacheKey := fmt.Sprintf("progress:jurisdictions:%d", year)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var out []JurisdictionProgress
			if jsonErr := json.Unmarshal([]byte(cached), &out); jsonErr == nil {
				metrics.ProgressCacheHits.WithLabelValues("hit").Inc()
				return out, nil
			}
			metrics.ProgressCacheHits.WithLabelValues("decode_error").Inc()
		case err == redis.Nil:
			metrics.ProgressCacheHits.WithLabelValues("miss").Inc()
		default:
			metrics.ProgressCacheHits.WithLabelValues("error").Inc()
			s.logger.WithError(err).Warn("progress cache read failed", map[string]interface{}{
				"key": cacheKey,
			})
		}
	}

	out, err := s.queryJurisdictionProgress(ctx, year)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL); err != nil {
				s.logger.WithError(err).Warn("progress cache write failed", map[string]interface{}{
					"key": cacheKey,
				})
			}
		}
	}
	return out, nil
}

func (s *Service) queryJurisdictionProgress(ctx context.Context, year int) ([]JurisdictionProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.jurisdiction_code,
			COUNT(*) AS total_interview_required,
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM interview_rounds r
				WHERE r.applicant_id = a.id AND r.year = a.year
				  AND r.result IN ('Accepted', 'Rejected', 'HomeVerificationRequired')
			)) AS completed_interview,
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM interview_rounds r
				WHERE r.applicant_id = a.id AND r.year = a.year
				  AND r.result = 'HomeVerificationRequired'
			)) AS total_home_verification_required,
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM home_verifications v
				WHERE v.applicant_id = a.id AND v.year = a.year
			)) AS completed_home_verification
		FROM applicants a
		WHERE a.year = $1
		GROUP BY a.jurisdiction_code
		ORDER BY a.jurisdiction_code`,
		year,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("jurisdiction progress", err)
	}
	defer rows.Close()

	out := []JurisdictionProgress{}
	for rows.Next() {
		var p JurisdictionProgress
		if err := rows.Scan(&p.JurisdictionCode, &p.TotalInterviewRequired,
			&p.CompletedInterview, &p.TotalHomeVerificationRequired,
			&p.CompletedHomeVerification); err != nil {
			return nil, apperrors.NewPersistenceError("scan progress", err)
		}
		p.PendingEvaluation = p.TotalInterviewRequired - p.CompletedInterview
		p.Progress = progressPct(p.CompletedInterview, p.TotalInterviewRequired)
		out = append(out, p)
	}
	return out, rows.Err()
}

// OverallProgress aggregates the completion ratio across jurisdictions,
// weighting interviews and home verifications together.
func (s *Service) OverallProgress(ctx context.Context, year int) (*OverallProgress, error) {
	perJurisdiction, err := s.JurisdictionProgress(ctx, year)
	if err != nil {
		return nil, err
	}

	overall := &OverallProgress{Year: year}
	for _, p := range perJurisdiction {
		overall.TotalRequired += p.TotalInterviewRequired + p.TotalHomeVerificationRequired
		overall.TotalCompleted += p.CompletedInterview + p.CompletedHomeVerification
	}
	overall.Progress = progressPct(overall.TotalCompleted, overall.TotalRequired)
	return overall, nil
}

// progressPct never divides by zero; an empty cohort is 0%, not NaN.
func progressPct(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ==========================
// Listings
// ==========================

// ListApplicants returns one page of applicant summaries, each with
// its latest round. Interviewer, status and result filters OR-combine.
func (s *Service) ListApplicants(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 {
		size = s.pageSize
	}
	if size > s.maxPage {
		size = s.maxPage
	}

	query := `
		SELECT a.id, a.name, a.jurisdiction_code,
			r.interviewer_id, r.round_number, r.status, r.result,
			EXISTS(
				SELECT 1 FROM home_verifications v
				WHERE v.applicant_id = a.id AND v.year = a.year
			) AS has_verification,
			COUNT(*) OVER() AS total
		FROM applicants a` + latestRoundJoin + `
		WHERE a.year = $1`
	args := []interface{}{req.Year}

	var filters []string
	if req.InterviewerID != "" {
		args = append(args, req.InterviewerID)
		filters = append(filters, fmt.Sprintf("r.interviewer_id = $%d", len(args)))
	}
	if len(req.Statuses) > 0 {
		args = append(args, pq.Array(req.Statuses))
		filters = append(filters, fmt.Sprintf("r.status = ANY($%d)", len(args)))
	}
	if len(req.Results) > 0 {
		args = append(args, pq.Array(req.Results))
		filters = append(filters, fmt.Sprintf("r.result = ANY($%d)", len(args)))
	}
	if len(filters) > 0 {
		query += " AND (" + strings.Join(filters, " OR ") + ")"
	}

	args = append(args, size, (page-1)*size)
	query += fmt.Sprintf(" ORDER BY a.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list applicants", err)
	}
	defer rows.Close()

	resp := &ListResponse{Items: []ApplicantSummary{}, Page: page, PageSize: size}
	for rows.Next() {
		var (
			item          ApplicantSummary
			interviewerID sql.NullString
			roundNumber   sql.NullInt64
			status        sql.NullString
			result        sql.NullString
			hasVerif      bool
		)
		if err := rows.Scan(&item.ApplicantID, &item.Name, &item.JurisdictionCode,
			&interviewerID, &roundNumber, &status, &result, &hasVerif, &resp.Total); err != nil {
			return nil, apperrors.NewPersistenceError("scan applicant", err)
		}

		if roundNumber.Valid {
			item.LatestRound = &LatestRoundView{
				RoundNumber:   int(roundNumber.Int64),
				InterviewerID: interviewerID.String,
				Status:        status.String,
				Result:        result.String,
			}
			item.State = interview.LatestState([]interview.Round{{
				RoundNumber:   int(roundNumber.Int64),
				InterviewerID: interviewerID.String,
				Status:        interview.RoundStatus(status.String),
				Result:        interview.RoundResult(result.String),
			}}, hasVerif)
		} else {
			item.State = interview.LatestState(nil, hasVerif)
		}
		resp.Items = append(resp.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("list applicants", err)
	}
	resp.TotalPages = (resp.Total + size - 1) / size
	return resp, nil
}

// UnassignedApplicants lists applicants in a jurisdiction with no live
// round: never assigned, or latest round cancelled.
func (s *Service) UnassignedApplicants(ctx context.Context, jurisdictionCode string, year int) ([]ApplicantSummary, error) {
	return s.listByRoundPredicate(ctx, jurisdictionCode, year,
		"(r.round_number IS NULL OR r.status = 'Cancelled')")
}

// ReassignableApplicants lists applicants in a jurisdiction whose
// latest round is scheduled and still pending.
func (s *Service) ReassignableApplicants(ctx context.Context, jurisdictionCode string, year int) ([]ApplicantSummary, error) {
	return s.listByRoundPredicate(ctx, jurisdictionCode, year,
		"(r.status = 'Scheduled' AND r.result = 'Pending')")
}

func (s *Service) listByRoundPredicate(ctx context.Context, jurisdictionCode string, year int, predicate string) ([]ApplicantSummary, error) {
	query := `
		SELECT a.id, a.name, a.jurisdiction_code,
			r.interviewer_id, r.round_number, r.status, r.result
		FROM applicants a` + latestRoundJoin + `
		WHERE a.year = $1 AND a.jurisdiction_code = $2 AND ` + predicate + `
		ORDER BY a.id`

	rows, err := s.db.QueryContext(ctx, query, year, jurisdictionCode)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list by state", err)
	}
	defer rows.Close()

	out := []ApplicantSummary{}
	for rows.Next() {
		var (
			item          ApplicantSummary
			interviewerID sql.NullString
			roundNumber   sql.NullInt64
			status        sql.NullString
			result        sql.NullString
		)
		if err := rows.Scan(&item.ApplicantID, &item.Name, &item.JurisdictionCode,
			&interviewerID, &roundNumber, &status, &result); err != nil {
			return nil, apperrors.NewPersistenceError("scan applicant", err)
		}
		if roundNumber.Valid {
			item.LatestRound = &LatestRoundView{
				RoundNumber:   int(roundNumber.Int64),
				InterviewerID: interviewerID.String,
				Status:        status.String,
				Result:        result.String,
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ==========================
// History
// ==========================

// History returns every round ascending plus the home verification
// record when one exists.
func (s *Service) History(ctx context.Context, applicantID string, year int) (*History, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, interviewer_id, round_number, status, result,
			interview_date, interview_time, mode,
			score_goals, score_commitment, score_integrity, score_communication,
			remarks, attachment_ref, created_at, updated_at
		FROM interview_rounds
		WHERE applicant_id = $1 AND year = $2
		ORDER BY round_number ASC`,
		applicantID, year,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("load history", err)
	}
	defer rows.Close()

	history := &History{ApplicantID: applicantID, Rounds: []interview.Round{}}
	for rows.Next() {
		r := interview.Round{ApplicantID: applicantID, Year: year}
		var (
			interviewDate sql.NullTime
			interviewTime sql.NullString
			mode          sql.NullString
			goals         sql.NullInt64
			commitment    sql.NullInt64
			integrity     sql.NullInt64
			communication sql.NullInt64
			remarks       sql.NullString
			attachment    sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.InterviewerID, &r.RoundNumber, &r.Status, &r.Result,
			&interviewDate, &interviewTime, &mode,
			&goals, &commitment, &integrity, &communication,
			&remarks, &attachment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceError("scan round", err)
		}
		if interviewDate.Valid {
			d := interviewDate.Time
			r.InterviewDate = &d
		}
		r.InterviewTime = interviewTime.String
		r.Mode = interview.InterviewMode(mode.String)
		if goals.Valid {
			r.Scores = &interview.Scores{
				Goals:         int(goals.Int64),
				Commitment:    int(commitment.Int64),
				Integrity:     int(integrity.Int64),
				Communication: int(communication.Int64),
			}
		}
		r.Remarks = remarks.String
		r.AttachmentRef = attachment.String
		history.Rounds = append(history.Rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("load history", err)
	}

	verification, err := s.loadVerification(ctx, applicantID, year)
	if err != nil {
		return nil, err
	}
	history.Verification = verification
	return history, nil
}

func (s *Service) loadVerification(ctx context.Context, applicantID string, year int) (*interview.HomeVerificationRecord, error) {
	v := &interview.HomeVerificationRecord{ApplicantID: applicantID, Year: year}
	var (
		remarks    sql.NullString
		attachment sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, verification_date, status, verifier_name,
			verification_type, remarks, attachment_ref, created_at
		FROM home_verifications
		WHERE applicant_id = $1 AND year = $2`,
		applicantID, year,
	).Scan(&v.ID, &v.VerificationDate, &v.Status, &v.VerifierName,
		&v.Type, &remarks, &attachment, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("load verification", err)
	}
	v.Remarks = remarks.String
	v.AttachmentRef = attachment.String
	return v, nil
}

// InvalidateProgress drops the cached progress for a year. Write paths
// call it best-effort after mutations.
func (s *Service) InvalidateProgress(ctx context.Context, year int) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("progress:jurisdictions:%d", year)
	if err := s.cache.Del(ctx, key); err != nil {
		s.logger.WithError(err).Warn("progress cache invalidation failed", map[string]interface{}{
			"key": key,
		})
	}
}
