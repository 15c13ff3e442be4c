// internal/interview/assignment/service.go
package assignment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/interview"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	reasonSameInterviewer = "same interviewer previously assigned"
	reasonMaxRounds       = "maximum of 3 rounds reached"
	reasonConcurrent      = "concurrent modification"
	reasonNotFound        = "applicant not found for the specified year"
)

// ReportDispatcher receives the ids that were successfully assigned so
// a downstream service can produce the assignment report.
type ReportDispatcher interface {
	DispatchAssignment(ctx context.Context, applicantIDs []string, interviewerID string, year int) error
}

type Service struct {
	db      *sql.DB
	logger  logger.Logger
	reports ReportDispatcher
	// reportTimeout bounds the fire-and-forget dispatch.
	reportTimeout time.Duration
}

func NewService(db *sql.DB, reports ReportDispatcher, log logger.Logger) *Service {
	return &Service{
		db:            db,
		logger:        log.WithFields(map[string]interface{}{"component": "assignment"}),
		reports:       reports,
		reportTimeout: 15 * time.Second,
	}
}

// Assign schedules the interviewer for each applicant in the batch.
// Items are processed independently; one applicant's failure never
// affects the others.
func (s *Service) Assign(ctx context.Context, req *AssignRequest) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(req.ApplicantIDs))
	var succeeded []string

	for _, applicantID := range req.ApplicantIDs {
		outcome := s.withItemTx(ctx, applicantID, func(tx *sql.Tx) (Outcome, error) {
			return s.assignOne(ctx, tx, applicantID, req.InterviewerID, req.Year)
		})
		outcomes = append(outcomes, outcome)
		metrics.AssignmentOutcomes.WithLabelValues("assign", string(outcome.Status)).Inc()
		if outcome.Status == OutcomeAssigned {
			succeeded = append(succeeded, applicantID)
		}
	}

	s.dispatchReport(succeeded, req.InterviewerID, req.Year)
	return outcomes, nil
}

// Reassign redirects or cancels the active round for each applicant.
func (s *Service) Reassign(ctx context.Context, req *ReassignRequest) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(req.ApplicantIDs))
	var succeeded []string

	for _, applicantID := range req.ApplicantIDs {
		outcome := s.withItemTx(ctx, applicantID, func(tx *sql.Tx) (Outcome, error) {
			return s.reassignOne(ctx, tx, applicantID, req.Target, req.Year)
		})
		outcomes = append(outcomes, outcome)
		metrics.AssignmentOutcomes.WithLabelValues("reassign", string(outcome.Status)).Inc()
		if outcome.Status == OutcomeReassigned {
			succeeded = append(succeeded, applicantID)
		}
	}

	if !req.Target.IsUnassign() {
		s.dispatchReport(succeeded, req.Target.InterviewerID(), req.Year)
	}
	return outcomes, nil
}

// withItemTx runs fn inside a per-applicant transaction, retrying once
// on a storage conflict before reporting the item as Failed.
func (s *Service) withItemTx(ctx context.Context, applicantID string, fn func(tx *sql.Tx) (Outcome, error)) Outcome {
	for attempt := 0; attempt < 2; attempt++ {
		outcome, err := s.runItemTx(ctx, fn)
		if err == nil {
			return outcome
		}

		if isRetryableConflict(err) && attempt == 0 {
			s.logger.Warn("assignment conflict, retrying", map[string]interface{}{
				"applicantId": applicantID,
			})
			continue
		}

		if isRetryableConflict(err) {
			return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: reasonConcurrent}
		}

		s.logger.WithError(err).Error("assignment item failed", map[string]interface{}{
			"applicantId": applicantID,
		})
		return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: err.Error()}
	}
	return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: reasonConcurrent}
}

func (s *Service) runItemTx(ctx context.Context, fn func(tx *sql.Tx) (Outcome, error)) (Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("begin tx: %w", err)
	}

	outcome, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return Outcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, fmt.Errorf("commit: %w", err)
	}
	return outcome, nil
}

func (s *Service) assignOne(ctx context.Context, tx *sql.Tx, applicantID, interviewerID string, year int) (Outcome, error) {
	known, err := applicantExists(ctx, tx, applicantID, year)
	if err != nil {
		return Outcome{}, err
	}
	if !known {
		return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: reasonNotFound}, nil
	}

	rounds, err := loadRoundsForUpdate(ctx, tx, applicantID, year)
	if err != nil {
		return Outcome{}, err
	}
	verified, err := hasVerification(ctx, tx, applicantID, year)
	if err != nil {
		return Outcome{}, err
	}

	state := interview.LatestState(rounds, verified)
	if !interview.CanAssign(state) {
		return Outcome{
			ApplicantID: applicantID,
			Status:      OutcomeSkipped,
			Reason:      skipReason(state),
		}, nil
	}

	if hadInterviewer(rounds, interviewerID) {
		return Outcome{
			ApplicantID: applicantID,
			Status:      OutcomeSkipped,
			Reason:      reasonSameInterviewer,
		}, nil
	}

	latest := interview.LatestRound(rounds)

	// A cancelled round is re-opened in place rather than burning a
	// round number.
	if latest != nil && latest.Status == interview.StatusCancelled {
		_, err := tx.ExecContext(ctx, `
			UPDATE interview_rounds
			SET interviewer_id = $1, status = $2, result = $3, updated_at = NOW()
			WHERE id = $4`,
			interviewerID, interview.StatusScheduled, interview.ResultPending, latest.ID,
		)
		if err != nil {
			return Outcome{}, fmt.Errorf("reopen round: %w", err)
		}
		s.logger.Info("round reopened", map[string]interface{}{
			"applicantId": applicantID,
			"round":       latest.RoundNumber,
		})
		return Outcome{ApplicantID: applicantID, Status: OutcomeAssigned, Round: latest.RoundNumber}, nil
	}

	next := 1
	if latest != nil {
		next = latest.RoundNumber + 1
	}
	if next > interview.MaxRounds {
		return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: reasonMaxRounds}, nil
	}

	if err := insertRound(ctx, tx, applicantID, interviewerID, year, next); err != nil {
		return Outcome{}, err
	}

	s.logger.Info("round scheduled", map[string]interface{}{
		"applicantId":   applicantID,
		"interviewerId": interviewerID,
		"round":         next,
	})
	return Outcome{ApplicantID: applicantID, Status: OutcomeAssigned, Round: next}, nil
}

func (s *Service) reassignOne(ctx context.Context, tx *sql.Tx, applicantID string, target Target, year int) (Outcome, error) {
	known, err := applicantExists(ctx, tx, applicantID, year)
	if err != nil {
		return Outcome{}, err
	}
	if !known {
		return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: reasonNotFound}, nil
	}

	rounds, err := loadRoundsForUpdate(ctx, tx, applicantID, year)
	if err != nil {
		return Outcome{}, err
	}
	verified, err := hasVerification(ctx, tx, applicantID, year)
	if err != nil {
		return Outcome{}, err
	}

	state := interview.LatestState(rounds, verified)
	if !interview.CanReassign(state) {
		return Outcome{
			ApplicantID: applicantID,
			Status:      OutcomeSkipped,
			Reason:      skipReason(state),
		}, nil
	}

	active := interview.LatestRound(rounds)

	if target.IsUnassign() {
		_, err := tx.ExecContext(ctx, `
			UPDATE interview_rounds
			SET status = $1, updated_at = NOW()
			WHERE id = $2`,
			interview.StatusCancelled, active.ID,
		)
		if err != nil {
			return Outcome{}, fmt.Errorf("cancel round: %w", err)
		}
		s.logger.Info("round cancelled", map[string]interface{}{
			"applicantId": applicantID,
			"round":       active.RoundNumber,
		})
		return Outcome{ApplicantID: applicantID, Status: OutcomeCancelled, Round: active.RoundNumber}, nil
	}

	if hadInterviewer(rounds, target.InterviewerID()) {
		return Outcome{
			ApplicantID: applicantID,
			Status:      OutcomeSkipped,
			Reason:      reasonSameInterviewer,
		}, nil
	}

	next := active.RoundNumber + 1
	if next > interview.MaxRounds {
		return Outcome{ApplicantID: applicantID, Status: OutcomeFailed, Reason: reasonMaxRounds}, nil
	}

	// The superseded round keeps its interviewer for the history.
	_, err = tx.ExecContext(ctx, `
		UPDATE interview_rounds
		SET status = $1, updated_at = NOW()
		WHERE id = $2`,
		interview.StatusRescheduled, active.ID,
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("supersede round: %w", err)
	}

	if err := insertRound(ctx, tx, applicantID, target.InterviewerID(), year, next); err != nil {
		return Outcome{}, err
	}

	s.logger.Info("round reassigned", map[string]interface{}{
		"applicantId":   applicantID,
		"interviewerId": target.InterviewerID(),
		"round":         next,
	})
	return Outcome{ApplicantID: applicantID, Status: OutcomeReassigned, Round: next}, nil
}

// dispatchReport hands successful ids to the report generator without
// blocking the caller. Failures are logged, never surfaced.
func (s *Service) dispatchReport(applicantIDs []string, interviewerID string, year int) {
	if s.reports == nil || len(applicantIDs) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.reportTimeout)
		defer cancel()

		if err := s.reports.DispatchAssignment(ctx, applicantIDs, interviewerID, year); err != nil {
			metrics.ReportDispatches.WithLabelValues("failed").Inc()
			s.logger.WithError(err).Warn("assignment report dispatch failed", map[string]interface{}{
				"interviewerId": interviewerID,
				"applicants":    len(applicantIDs),
			})
			return
		}
		metrics.ReportDispatches.WithLabelValues("ok").Inc()
	}()
}

// ==========================
// SQL helpers
// ==========================

func applicantExists(ctx context.Context, tx *sql.Tx, applicantID string, year int) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applicants
			WHERE id = $1 AND year = $2
		)`, applicantID, year).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("applicant check: %w", err)
	}
	return exists, nil
}

func loadRoundsForUpdate(ctx context.Context, tx *sql.Tx, applicantID string, year int) ([]interview.Round, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, interviewer_id, round_number, status, result
		FROM interview_rounds
		WHERE applicant_id = $1 AND year = $2
		ORDER BY round_number ASC
		FOR UPDATE`,
		applicantID, year,
	)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	defer rows.Close()

	var rounds []interview.Round
	for rows.Next() {
		r := interview.Round{ApplicantID: applicantID, Year: year}
		if err := rows.Scan(&r.ID, &r.InterviewerID, &r.RoundNumber, &r.Status, &r.Result); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func hasVerification(ctx context.Context, tx *sql.Tx, applicantID string, year int) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM home_verifications
			WHERE applicant_id = $1 AND year = $2
		)`, applicantID, year).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("verification check: %w", err)
	}
	return exists, nil
}

func insertRound(ctx context.Context, tx *sql.Tx, applicantID, interviewerID string, year, number int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO interview_rounds (
			id, applicant_id, year, interviewer_id, round_number,
			status, result, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		uuid.New().String(), applicantID, year, interviewerID, number,
		interview.StatusScheduled, interview.ResultPending,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// hadInterviewer checks every round regardless of status.
func hadInterviewer(rounds []interview.Round, interviewerID string) bool {
	for _, r := range rounds {
		if r.InterviewerID == interviewerID {
			return true
		}
	}
	return false
}

func skipReason(state interview.State) string {
	switch state {
	case interview.StateAssigned:
		return "interview already scheduled"
	case interview.StateUnassigned, interview.StateAwaitingNextRound:
		return "no active round to reassign"
	case interview.StatePendingVerification:
		return "home verification pending"
	case interview.StateTerminal:
		return "pipeline already terminal"
	default:
		return "applicant not eligible"
	}
}

// isRetryableConflict detects the Postgres conflict classes worth a
// single retry: serialization failures, deadlocks and unique
// violations. A first-round race locks nothing under FOR UPDATE, so
// the loser surfaces as 23505 on the interview_rounds unique index;
// the retry then sees the winner's row and resolves normally.
func isRetryableConflict(err error) bool {
	if pqErr, ok := unwrapPQ(err); ok {
		return pqErr.Code == "40001" || pqErr.Code == "40P01" || pqErr.Code == "23505"
	}
	return false
}

func unwrapPQ(err error) (*pq.Error, bool) {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return pqErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
