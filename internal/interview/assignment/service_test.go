// internal/interview/assignment/service_test.go
package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/interview"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type captureDispatcher struct {
	called chan struct{}
	ids    []string
	err    error
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{called: make(chan struct{}, 1)}
}

func (d *captureDispatcher) DispatchAssignment(ctx context.Context, applicantIDs []string, interviewerID string, year int) error {
	d.ids = applicantIDs
	d.called <- struct{}{}
	return d.err
}

func roundRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "interviewer_id", "round_number", "status", "result"})
}

func expectRoundLoad(mock sqlmock.Sqlmock, applicantID string, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT id, interviewer_id, round_number, status, result`).
		WithArgs(applicantID, 2025).
		WillReturnRows(rows)
}

func expectApplicantCheck(mock sqlmock.Sqlmock, applicantID string, exists bool) {
	mock.ExpectQuery(`FROM applicants`).
		WithArgs(applicantID, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectVerificationCheck(mock sqlmock.Sqlmock, applicantID string, exists bool) {
	mock.ExpectQuery(`FROM home_verifications`).
		WithArgs(applicantID, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

// ==========================
// Assign Tests
// ==========================

func TestAssign_FirstRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows())
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`INSERT INTO interview_rounds`).
		WithArgs(sqlmock.AnyArg(), "applicant-001", 2025, "interviewer-001", 1,
			string(interview.StatusScheduled), string(interview.ResultPending)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeAssigned, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Round)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_SkipsAlreadyScheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-009", 1, "Scheduled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.Equal(t, "interview already scheduled", outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_SkipsRepeatInterviewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// interviewer-001 already saw this applicant in round 1, even though
	// that round is long closed.
	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-001", 1, "Rescheduled", "AnotherRoundRequired"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.Equal(t, reasonSameInterviewer, outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_ReopensCancelledRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-2", "interviewer-009", 2, "Cancelled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`UPDATE interview_rounds`).
		WithArgs("interviewer-001", string(interview.StatusScheduled),
			string(interview.ResultPending), "round-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAssigned, outcomes[0].Status)
	assert.Equal(t, 2, outcomes[0].Round)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_NextRoundAfterAnotherRoundRequired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-009", 1, "Rescheduled", "AnotherRoundRequired"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`INSERT INTO interview_rounds`).
		WithArgs(sqlmock.AnyArg(), "applicant-001", 2025, "interviewer-002", 2,
			string(interview.StatusScheduled), string(interview.ResultPending)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-002",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAssigned, outcomes[0].Status)
	assert.Equal(t, 2, outcomes[0].Round)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_BatchItemsIndependent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// First applicant hits a storage error, second still succeeds.
	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	mock.ExpectQuery(`SELECT id, interviewer_id, round_number, status, result`).
		WithArgs("applicant-001", 2025).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-002", true)
	expectRoundLoad(mock, "applicant-002", roundRows())
	expectVerificationCheck(mock, "applicant-002", false)
	mock.ExpectExec(`INSERT INTO interview_rounds`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001", "applicant-002"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, OutcomeAssigned, outcomes[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_DispatchesReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows())
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`INSERT INTO interview_rounds`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	dispatcher := newCaptureDispatcher()
	svc := NewService(db, dispatcher, logger.NewNoOpLogger())
	_, err = svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})
	require.NoError(t, err)

	select {
	case <-dispatcher.called:
		assert.Equal(t, []string{"applicant-001"}, dispatcher.ids)
	case <-time.After(2 * time.Second):
		t.Fatal("report dispatch never happened")
	}
}

func TestAssign_UnknownApplicant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-404", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-404"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, reasonNotFound, outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_ConcurrentConflictRetriesOnceThenFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Both attempts lose the serialization race.
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		expectApplicantCheck(mock, "applicant-001", true)
		mock.ExpectQuery(`SELECT id, interviewer_id, round_number, status, result`).
			WithArgs("applicant-001", 2025).
			WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
	}

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, reasonConcurrent, outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_UniqueViolationRetrySeesWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// First attempt races a concurrent first assignment: FOR UPDATE on
	// an empty set locks nothing and the insert hits the unique index.
	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows())
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`INSERT INTO interview_rounds`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	// The retry sees the winner's row and skips.
	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-009", 1, "Scheduled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Assign(context.Background(), &AssignRequest{
		ApplicantIDs:  []string{"applicant-001"},
		InterviewerID: "interviewer-001",
		Year:          2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.Equal(t, "interview already scheduled", outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Reassign Tests
// ==========================

func TestReassign_SupersedesActiveRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-009", 1, "Scheduled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`UPDATE interview_rounds`).
		WithArgs(string(interview.StatusRescheduled), "round-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO interview_rounds`).
		WithArgs(sqlmock.AnyArg(), "applicant-001", 2025, "interviewer-002", 2,
			string(interview.StatusScheduled), string(interview.ResultPending)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Reassign(context.Background(), &ReassignRequest{
		ApplicantIDs: []string{"applicant-001"},
		Target:       TargetInterviewer("interviewer-002"),
		Year:         2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeReassigned, outcomes[0].Status)
	assert.Equal(t, 2, outcomes[0].Round)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassign_Unassign(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-009", 1, "Scheduled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectExec(`UPDATE interview_rounds`).
		WithArgs(string(interview.StatusCancelled), "round-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Reassign(context.Background(), &ReassignRequest{
		ApplicantIDs: []string{"applicant-001"},
		Target:       TargetUnassign(),
		Year:         2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Round)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassign_SkipsRepeatInterviewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The reassignment target already handled round 1; only the active
	// round 2 would be superseded, but the rule spans all rounds.
	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-001", 1, "Rescheduled", "AnotherRoundRequired").
		AddRow("round-2", "interviewer-009", 2, "Scheduled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Reassign(context.Background(), &ReassignRequest{
		ApplicantIDs: []string{"applicant-001"},
		Target:       TargetInterviewer("interviewer-001"),
		Year:         2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.Equal(t, reasonSameInterviewer, outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassign_MaxRoundsReached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows().
		AddRow("round-1", "interviewer-007", 1, "Rescheduled", "AnotherRoundRequired").
		AddRow("round-2", "interviewer-008", 2, "Rescheduled", "AnotherRoundRequired").
		AddRow("round-3", "interviewer-009", 3, "Scheduled", "Pending"))
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Reassign(context.Background(), &ReassignRequest{
		ApplicantIDs: []string{"applicant-001"},
		Target:       TargetInterviewer("interviewer-002"),
		Year:         2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, reasonMaxRounds, outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassign_SkipsWithoutActiveRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectApplicantCheck(mock, "applicant-001", true)
	expectRoundLoad(mock, "applicant-001", roundRows())
	expectVerificationCheck(mock, "applicant-001", false)
	mock.ExpectCommit()

	svc := NewService(db, nil, logger.NewNoOpLogger())
	outcomes, err := svc.Reassign(context.Background(), &ReassignRequest{
		ApplicantIDs: []string{"applicant-001"},
		Target:       TargetInterviewer("interviewer-002"),
		Year:         2025,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.Equal(t, "no active round to reassign", outcomes[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
