package ports

import (
	"context"

	"regnet/domain/core"
	"regnet/domain/run"
)

// RunRepository persists analysis reports
type RunRepository interface {
	// Save stores a report, replacing any report with the same ID
	Save(ctx context.Context, report *run.Report) error

	// Get returns the report with the given ID or core.ErrRunNotFound
	Get(ctx context.Context, id core.RunID) (*run.Report, error)

	// List returns summaries of the most recent reports, newest first
	List(ctx context.Context, limit, offset int) ([]run.Summary, error)
}
