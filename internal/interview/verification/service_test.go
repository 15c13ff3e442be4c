// internal/interview/verification/service_test.go
package verification

import (
	"context"
	"testing"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func validSubmit() *SubmitRequest {
	return &SubmitRequest{
		Year:             2025,
		VerificationDate: "2025-09-02",
		Status:           "Accepted",
		VerifierName:     "R. Nair",
		Type:             "Physical",
		Remarks:          "residence confirmed",
		AttachmentRef:    "cohort-2025/applicant-001-verification.pdf",
	}
}

func expectLatestRound(mock sqlmock.Sqlmock, status, result string) {
	mock.ExpectQuery(`SELECT status, result`).
		WithArgs("applicant-001", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"status", "result"}).AddRow(status, result))
}

// ==========================
// Submit Tests
// ==========================

func TestSubmit_RecordsVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "Rescheduled", "HomeVerificationRequired")
	mock.ExpectExec(`INSERT INTO home_verifications`).
		WithArgs(sqlmock.AnyArg(), "applicant-001", 2025, sqlmock.AnyArg(),
			"Accepted", "R. Nair", "Physical", "residence confirmed",
			"cohort-2025/applicant-001-verification.pdf").
		WillReturnResult(sqlmock.NewResult(1, 1))

	svc := NewService(db, logger.NewNoOpLogger())
	resp, err := svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.NoError(t, err)
	assert.Equal(t, "Accepted", resp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_ConflictWhenNotAwaitingVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "Scheduled", "Pending")

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_ConflictOnDuplicateRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLatestRound(mock, "Rescheduled", "HomeVerificationRequired")
	mock.ExpectExec(`INSERT INTO home_verifications`).
		WillReturnError(&pq.Error{Code: "23505"})

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

	mock.ExpectQuery(`SELECT status, result`).
		WithArgs("applicant-001", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"status", "result"}))

	svc := NewService(db, logger.NewNoOpLogger())
	_, err = svc.Submit(context.Background(), "applicant-001", validSubmit())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_FieldValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, logger.NewNoOpLogger())

	cases := map[string]func(*SubmitRequest){
		"blank verifier": func(r *SubmitRequest) { r.VerifierName = " " },
		"bad status":     func(r *SubmitRequest) { r.Status = "Maybe" },
		"bad type":       func(r *SubmitRequest) { r.Type = "Drive-by" },
		"bad date":       func(r *SubmitRequest) { r.VerificationDate = "02/09/2025" },
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

	assert.NoError(t, mock.ExpectationsWereMet())
}
