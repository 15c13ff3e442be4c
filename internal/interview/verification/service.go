// internal/interview/verification/service.go
package verification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/interview"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Service struct {
	db     *sql.DB
	logger logger.Logger
}

func NewService(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "verification"}),
	}
}

// Submit appends the home verification record. At most one record per
// applicant exists; the unique constraint on the table settles any
// race and surfaces as a conflict.
func (s *Service) Submit(ctx context.Context, applicantID string, req *SubmitRequest) (*SubmitResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	var (
		latestResult interview.RoundResult
		latestStatus interview.RoundStatus
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT status, result
		FROM interview_rounds
		WHERE applicant_id = $1 AND year = $2
		ORDER BY round_number DESC
		LIMIT 1`,
		applicantID, req.Year,
	).Scan(&latestStatus, &latestResult)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Interview round", applicantID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("load latest round", err)
	}

	if latestResult != interview.ResultHomeVerificationRequired {
		return nil, apperrors.NewConflictError("applicant is not awaiting home verification")
	}

	verificationDate, err := time.Parse("2006-01-02", req.VerificationDate)
	if err != nil {
		return nil, apperrors.NewValidationError("verificationDate must be YYYY-MM-DD")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO home_verifications (
			id, applicant_id, year, verification_date, status,
			verifier_name, verification_type, remarks, attachment_ref, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		uuid.New().String(), applicantID, req.Year, verificationDate,
		req.Status, req.VerifierName, req.Type, req.Remarks, req.AttachmentRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("home verification already recorded")
		}
		return nil, apperrors.NewPersistenceError("insert verification", err)
	}

	metrics.VerificationDecisions.WithLabelValues(req.Status).Inc()
	s.logger.Info("home verification recorded", map[string]interface{}{
		"applicantId": applicantID,
		"status":      req.Status,
		"type":        req.Type,
	})

	return &SubmitResponse{ApplicantID: applicantID, Status: req.Status}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
