package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnet/domain/core"
	"regnet/domain/network"
	"regnet/domain/run"
	"regnet/internal/errors"
)

func setupRunRepo(t *testing.T) (*RunRepositoryImpl, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewRunRepository(sqlx.NewDb(db, "sqlmock"))
	return repo, mock, db
}

func sampleReport(t *testing.T) *run.Report {
	t.Helper()
	m, err := network.NewMatrixFromRows([]string{"T1", "T2"}, []string{"T1", "T2"}, [][]float64{{1, 0.5}, {0, 1}})
	require.NoError(t, err)
	return &run.Report{
		ID:         core.NewRunID(),
		CreatedAt:  core.Now(),
		Parameters: run.Parameters{Method: "bere", NullCount: 10},
		Transition: &network.TransitionMatrix{Matrix: *m, Regularized: true, Lambda: 1e-3},
		NullSize:   9,
		NullFailures: []network.NullFailure{
			{Index: 3, Seed: 4, Error: "validation failed"},
		},
	}
}

func TestRunRepository_Save(t *testing.T) {
	repo, mock, db := setupRunRepo(t)
	defer db.Close()

	t.Run("upserts report", func(t *testing.T) {
		report := sampleReport(t)
		mock.ExpectExec(`INSERT INTO analysis_runs`).
			WithArgs(report.ID.String(), sqlmock.AnyArg(), "bere", 9, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Save(context.Background(), report)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO analysis_runs`).WillReturnError(fmt.Errorf("connection reset"))

		err := repo.Save(context.Background(), sampleReport(t))
		require.Error(t, err)
		assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunRepository_Get(t *testing.T) {
	repo, mock, db := setupRunRepo(t)
	defer db.Close()

	t.Run("decodes stored report", func(t *testing.T) {
		report := sampleReport(t)
		payload, err := json.Marshal(report)
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT report`).
			WithArgs(report.ID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(payload))

		got, err := repo.Get(context.Background(), report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.ID, got.ID)
		assert.Equal(t, 9, got.NullSize)
		assert.Equal(t, report.NullFailures, got.NullFailures)
		require.NotNil(t, got.Transition)
		assert.True(t, got.Transition.Regularized)
		assert.Equal(t, report.Transition.Rows(), got.Transition.Rows())
		assert.Nil(t, got.Baseline)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing report", func(t *testing.T) {
		mock.ExpectQuery(`SELECT report`).WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), core.NewRunID())
		assert.ErrorIs(t, err, core.ErrRunNotFound)
		assert.True(t, core.IsNotFoundError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunRepository_List(t *testing.T) {
	repo, mock, db := setupRunRepo(t)
	defer db.Close()

	newer := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	t.Run("with limit", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, created_at, method, null_size`).
			WithArgs(0, 2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "method", "null_size"}).
				AddRow("0195a0c4-0000-7000-8000-000000000002", newer, "bere", 100).
				AddRow("0195a0c4-0000-7000-8000-000000000001", older, "pearson", 0))

		summaries, err := repo.List(context.Background(), 2, 0)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, core.RunID("0195a0c4-0000-7000-8000-000000000002"), summaries[0].ID)
		assert.Equal(t, newer, summaries[0].CreatedAt.Time())
		assert.Equal(t, "pearson", summaries[1].Method)
		assert.Equal(t, 100, summaries[0].NullSize)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without limit", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, created_at, method, null_size`).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "method", "null_size"}))

		summaries, err := repo.List(context.Background(), 0, 5)
		require.NoError(t, err)
		assert.Empty(t, summaries)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunRepository_Migrate(t *testing.T) {
	repo, mock, db := setupRunRepo(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS analysis_runs`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
