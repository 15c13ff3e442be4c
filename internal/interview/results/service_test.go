// internal/interview/results/service_test.go
package results

import (
	"context"
	"testing"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/interview"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func validSubmit() *SubmitRequest {
	return &SubmitRequest{
		Year:          2025,
		InterviewDate: "2025-08-14",
		InterviewTime: "10:30",
		Mode:          string(interview.ModeOnline),
		Status:        string(interview.StatusCompleted),
		Scores:        interview.Scores{Goals: 8, Commitment: 7, Integrity: 9, Communication: 6},
		Remarks:       "clear goals, strong communication",
		AttachmentRef: "cohort-2025/applicant-001-round1.pdf",
		Result:        string(interview.ResultAccepted),
	}
}

func expectLatestRound(mock sqlmock.Sqlmock, roundID string, number int, status, result string) {
	mock.ExpectQuery(`SELECT id, round_number, status, result`).
		WithArgs("applicant-001", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id", "round_number", "status", "result"}).
			AddRow(roundID, number, status, result))
}

// ==========================
// Submit Tests
// ==========================

func TestSubmit_CompletedAccepted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "round-1", 1, "Scheduled", "Pending")
	mock.ExpectExec(`UPDATE interview_rounds`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewService(db, logger.NewNoOpLogger())
	resp, err := svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Round)
	assert.Equal(t, string(interview.ResultAccepted), resp.Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_RescheduledAnotherRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "round-2", 2, "Scheduled", "Pending")
	mock.ExpectExec(`UPDATE interview_rounds`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := validSubmit()
	req.Status = string(interview.StatusRescheduled)
	req.Result = string(interview.ResultAnotherRoundRequired)

	svc := NewService(db, logger.NewNoOpLogger())
	resp, err := svc.Submit(context.Background(), "applicant-001", req)

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Round)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_RejectsAnotherRoundAtRoundThree(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "round-3", 3, "Scheduled", "Pending")

	req := validSubmit()
	req.Status = string(interview.StatusRescheduled)
	req.Result = string(interview.ResultAnotherRoundRequired)

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", req)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_RejectsCompletedWithNonVerdict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "round-1", 1, "Scheduled", "Pending")

	req := validSubmit()
	req.Result = string(interview.ResultHomeVerificationRequired)

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", req)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_FieldValidationBeforeAnyQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, logger.NewNoOpLogger())

	cases := map[string]func(*SubmitRequest){
		"blank remarks":      func(r *SubmitRequest) { r.Remarks = "   " },
		"missing attachment": func(r *SubmitRequest) { r.AttachmentRef = "" },
		"score too high":     func(r *SubmitRequest) { r.Scores.Goals = 11 },
		"score too low":      func(r *SubmitRequest) { r.Scores.Integrity = 0 },
		"bad status":         func(r *SubmitRequest) { r.Status = "Done" },
		"bad mode":           func(r *SubmitRequest) { r.Mode = "Phone" },
		"bad date":           func(r *SubmitRequest) { r.InterviewDate = "14-08-2025" },
		"pending result":     func(r *SubmitRequest) { r.Result = "Pending" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validSubmit()
			mutate(req)

			_, err := svc.Submit(context.Background(), "applicant-001", req)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
		})
	}

	// No SQL may have run for any of the rejected payloads.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_ConflictOnClosedRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "round-1", 1, "Completed", "Accepted")

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_ConflictWhenRaceLost(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Round looks open at read time but another submitter wins the
	// write; the guarded UPDATE touches zero rows.
	expectLatestRound(mock, "round-1", 1, "Scheduled", "Pending")
	mock.ExpectExec(`UPDATE interview_rounds`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_NotFoundWithoutRounds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, round_number, status, result`).
		WithArgs("applicant-001", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id", "round_number", "status", "result"}))

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
