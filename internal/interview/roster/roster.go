// internal/interview/roster/roster.go

// Package roster is the read-only view over the applicant and
// interviewer tables the engine consumes but never writes.
package roster

import (
	"context"
	"database/sql"
	"errors"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
)

// Interviewer is one selectable interviewer.
type Interviewer struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	JurisdictionCode string `json:"jurisdictionCode"`
}

// Roster answers existence and jurisdiction questions about applicants
// and lists interviewers.
type Roster interface {
	Exists(ctx context.Context, applicantID string, year int) (bool, error)
	JurisdictionOf(ctx context.Context, applicantID string) (string, error)
	Interviewers(ctx context.Context) ([]Interviewer, error)
}

type pgRoster struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRoster(db *sql.DB, log logger.Logger) Roster {
	return &pgRoster{db: db, logger: log}
}

func (r *pgRoster) Exists(ctx context.Context, applicantID string, year int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM applicants WHERE id = $1 AND year = $2)`,
		applicantID, year).Scan(&exists)
	if err != nil {
		return false, apperrors.NewPersistenceError("applicant lookup", err)
	}
	return exists, nil
}

func (r *pgRoster) JurisdictionOf(ctx context.Context, applicantID string) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx, `
		SELECT jurisdiction_code FROM applicants WHERE id = $1`,
		applicantID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFoundError("Applicant", applicantID)
	}
	if err != nil {
		return "", apperrors.NewPersistenceError("applicant jurisdiction", err)
	}
	return code, nil
}

func (r *pgRoster) Interviewers(ctx context.Context) ([]Interviewer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, jurisdiction_code
		FROM interviewers
		ORDER BY name`)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list interviewers", err)
	}
	defer rows.Close()

	out := []Interviewer{}
	for rows.Next() {
		var i Interviewer
		if err := rows.Scan(&i.ID, &i.Name, &i.JurisdictionCode); err != nil {
			return nil, apperrors.NewPersistenceError("scan interviewer", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
