// internal/interview/jurisdiction/directory.go

// Package jurisdiction exposes the read-only geography directory the
// pipeline filters by: state, division, district, block.
package jurisdiction

import (
	"context"
	"database/sql"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
)

// Unit is one node of the jurisdiction tree.
type Unit struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Level      string `json:"level"`
	ParentCode string `json:"parentCode,omitempty"`
}

// Directory resolves jurisdiction codes to their children.
type Directory interface {
	ResolveChildren(ctx context.Context, parentCode string) ([]Unit, error)
}

type pgDirectory struct {
	db     *sql.DB
	logger logger.Logger
}

func NewDirectory(db *sql.DB, log logger.Logger) Directory {
	return &pgDirectory{db: db, logger: log}
}

func (d *pgDirectory) ResolveChildren(ctx context.Context, parentCode string) ([]Unit, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM jurisdictions WHERE code = $1)`,
		parentCode).Scan(&exists)
	if err != nil {
		return nil, apperrors.NewPersistenceError("jurisdiction lookup", err)
	}
	if !exists {
		return nil, apperrors.NewNotFoundError("Jurisdiction", parentCode)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT code, name, level, parent_code
		FROM jurisdictions
		WHERE parent_code = $1
		ORDER BY name`,
		parentCode,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("jurisdiction children", err)
	}
	defer rows.Close()

	out := []Unit{}
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.Code, &u.Name, &u.Level, &u.ParentCode); err != nil {
			return nil, apperrors.NewPersistenceError("scan jurisdiction", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
