package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"regnet/domain/core"
	"regnet/domain/run"
	"regnet/internal/errors"
	"regnet/internal/migration"
	"regnet/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements ports.RunRepository for PostgreSQL. Reports
// are stored whole as JSONB next to the columns used for listing.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*RunRepositoryImpl)(nil)

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

// Migrate creates the analysis_runs schema if it does not exist
func (r *RunRepositoryImpl) Migrate(ctx context.Context) error {
	return migration.NewRunner().Run(ctx, r.db)
}

// Save inserts a report or replaces the stored report with the same ID
func (r *RunRepositoryImpl) Save(ctx context.Context, report *run.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "failed to encode report")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, created_at, method, null_size, report)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET created_at = EXCLUDED.created_at, method = EXCLUDED.method,
			null_size = EXCLUDED.null_size, report = EXCLUDED.report
	`, report.ID.String(), report.CreatedAt.Time(), report.Parameters.Method, report.NullSize, payload)
	if err != nil {
		return errors.DatabaseError("failed to save report", err)
	}
	return nil
}

// Get retrieves a report by ID
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*run.Report, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT report
		FROM analysis_runs
		WHERE id = $1
	`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load report", err)
	}

	var report run.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, errors.Wrap(err, "failed to decode report")
	}
	return &report, nil
}

type summaryRow struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Method    string    `db:"method"`
	NullSize  int       `db:"null_size"`
}

// List returns report summaries, newest first. A non-positive limit returns
// every report.
func (r *RunRepositoryImpl) List(ctx context.Context, limit, offset int) ([]run.Summary, error) {
	query := `
		SELECT id, created_at, method, null_size
		FROM analysis_runs
		ORDER BY created_at DESC
		OFFSET $1
	`
	args := []interface{}{offset}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to list reports", err)
	}

	summaries := make([]run.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, run.Summary{
			ID:        core.RunID(row.ID),
			CreatedAt: core.NewTimestamp(row.CreatedAt),
			Method:    row.Method,
			NullSize:  row.NullSize,
		})
	}
	return summaries, nil
}
