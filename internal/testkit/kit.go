package testkit

import (
	"context"
	"sort"
	"sync"

	"regnet/domain/core"
	"regnet/domain/run"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	runs *InMemoryRunRepository
}

// NewTestKit creates a new test kit with an empty in-memory repository
func NewTestKit() *TestKit {
	return &TestKit{runs: NewInMemoryRunRepository()}
}

// RunRepository returns the kit's shared repository
func (t *TestKit) RunRepository() *InMemoryRunRepository {
	return t.runs
}

// Dataset generates the default synthetic dataset
func (t *TestKit) Dataset() (*Dataset, error) {
	return NewNetworkDataGenerator(DefaultNetworkConfig()).Generate()
}

// InMemoryRunRepository implements ports.RunRepository with in-memory storage
type InMemoryRunRepository struct {
	reports map[core.RunID]*run.Report
	mu      sync.RWMutex
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{reports: make(map[core.RunID]*run.Report)}
}

func (r *InMemoryRunRepository) Save(ctx context.Context, report *run.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = report
	return nil
}

func (r *InMemoryRunRepository) Get(ctx context.Context, id core.RunID) (*run.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return report, nil
}

func (r *InMemoryRunRepository) List(ctx context.Context, limit, offset int) ([]run.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]run.Summary, 0, len(r.reports))
	for _, report := range r.reports {
		summaries = append(summaries, run.Summary{
			ID:        report.ID,
			CreatedAt: report.CreatedAt,
			Method:    report.Parameters.Method,
			NullSize:  report.NullSize,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Time().After(summaries[j].CreatedAt.Time())
	})

	if offset >= len(summaries) {
		return []run.Summary{}, nil
	}
	summaries = summaries[offset:]
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Len returns the number of stored reports
func (r *InMemoryRunRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}
