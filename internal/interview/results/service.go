// internal/interview/results/service.go
package results

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/interview"
)

type Service struct {
	db     *sql.DB
	logger logger.Logger
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "results"}),
	}
}

// Submit records the evaluation of the applicant's active round. The
// round must be Scheduled with a Pending result; the guard is repeated
// in the UPDATE predicate so a concurrent submitter loses the race on
// the row instead of overwriting it.
func (s *Service) Submit(ctx context.Context, applicantID string, req *SubmitRequest) (*SubmitResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	var (
		roundID     string
		roundNumber int
		status      interview.RoundStatus
		result      interview.RoundResult
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, round_number, status, result
		FROM interview_rounds
		WHERE applicant_id = $1 AND year = $2
		ORDER BY round_number DESC
		LIMIT 1`,
		applicantID, req.Year,
	).Scan(&roundID, &roundNumber, &status, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Interview round", applicantID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("load latest round", err)
	}

	if status != interview.StatusScheduled || result != interview.ResultPending {
		return nil, apperrors.NewConflictError("interview result already recorded").
			WithMetadata("interviewRound", roundNumber)
	}

	if err := validateResultForRound(interview.RoundStatus(req.Status), interview.RoundResult(req.Result), roundNumber); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	interviewDate, err := time.Parse("2006-01-02", req.InterviewDate)
	if err != nil {
		return nil, apperrors.NewValidationError("interviewDate must be YYYY-MM-DD")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_rounds
		SET status = $1, result = $2, interview_date = $3, interview_time = $4,
		    mode = $5, score_goals = $6, score_commitment = $7,
		    score_integrity = $8, score_communication = $9, remarks = $10,
		    attachment_ref = $11, updated_at = NOW()
		WHERE id = $12 AND status = 'Scheduled' AND result = 'Pending'`,
		req.Status, req.Result, interviewDate, req.InterviewTime,
		req.Mode, req.Scores.Goals, req.Scores.Commitment,
		req.Scores.Integrity, req.Scores.Communication, req.Remarks,
		req.AttachmentRef, roundID,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("record result", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.NewPersistenceError("record result", err)
	}
	if affected == 0 {
		// Someone else closed the round between our read and write.
		return nil, apperrors.NewConflictError("interview result already recorded").
			WithMetadata("interviewRound", roundNumber)
	}

	metrics.ResultSubmissions.WithLabelValues(req.Result).Inc()
	s.logger.Info("interview result recorded", map[string]interface{}{
		"applicantId": applicantID,
		"round":       roundNumber,
		"result":      req.Result,
	})

	return &SubmitResponse{
		ApplicantID: applicantID,
		Round:       roundNumber,
		Result:      req.Result,
	}, nil
}
