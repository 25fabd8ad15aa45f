package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnet/internal/errors"
)

func TestRunCreatesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS analysis_runs`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRunner().Run(context.Background(), sqlx.NewDb(db, "sqlmock"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunReportsDatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS analysis_runs`).WillReturnError(fmt.Errorf("permission denied"))

	err = NewRunner().Run(context.Background(), sqlx.NewDb(db, "sqlmock"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "1.0.0", NewRunner().Version())
}
