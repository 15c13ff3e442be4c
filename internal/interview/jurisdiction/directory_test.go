// internal/interview/jurisdiction/directory_test.go
package jurisdiction

import (
	"context"
	"testing"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveChildren(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("DIST-01").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT code, name, level, parent_code`).
		WithArgs("DIST-01").
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "level", "parent_code"}).
			AddRow("BLOCK-01", "North Block", "block", "DIST-01").
			AddRow("BLOCK-02", "South Block", "block", "DIST-01"))

	dir := NewDirectory(db, logger.NewNoOpLogger())
	units, err := dir.ResolveChildren(context.Background(), "DIST-01")

	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "BLOCK-01", units[0].Code)
	assert.Equal(t, "block", units[0].Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveChildren_UnknownParent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("NOWHERE").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	dir := NewDirectory(db, logger.NewNoOpLogger())
	_, err = dir.ResolveChildren(context.Background(), "NOWHERE")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveChildren_LeafHasNoChildren(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("BLOCK-01").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT code, name, level, parent_code`).
		WithArgs("BLOCK-01").
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "level", "parent_code"}))

	dir := NewDirectory(db, logger.NewNoOpLogger())
	units, err := dir.ResolveChildren(context.Background(), "BLOCK-01")

	require.NoError(t, err)
	assert.Empty(t, units)
	assert.NoError(t, mock.ExpectationsWereMet())
}
