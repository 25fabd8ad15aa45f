package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnet/domain/core"
	"regnet/internal/alignment"
	"regnet/internal/inference"
	"regnet/internal/testkit"
	"regnet/internal/transition"
)

func request(t *testing.T, method inference.Method, nullCount int) AnalysisRequest {
	t.Helper()
	data, err := testkit.NewTestKit().Dataset()
	require.NoError(t, err)

	inf := inference.DefaultOptions()
	inf.Method = method
	return AnalysisRequest{
		Edges:         data.Edges,
		Baseline:      data.Baseline,
		Alternate:     data.Alternate,
		Inference:     inf,
		Transition:    transition.DefaultOptions(),
		Null:          transition.NullConfig{Count: nullCount, Workers: 2, Seed: 9},
		Randomization: alignment.WithinGene,
	}
}

func TestAnalysisServiceRun(t *testing.T) {
	repo := testkit.NewInMemoryRunRepository()
	service := NewAnalysisService(repo, nil)

	report, err := service.Run(context.Background(), request(t, inference.Bere, 4))
	require.NoError(t, err)

	assert.False(t, report.ID == "")
	assert.Equal(t, "bere", report.Parameters.Method)
	assert.Equal(t, "within-gene", report.Parameters.Randomization)
	assert.Equal(t, 4, report.NullSize)
	assert.Empty(t, report.NullFailures)
	require.NotNil(t, report.Transition)
	require.NotNil(t, report.ZScores)
	require.NotNil(t, report.NormalPValues)
	require.NotNil(t, report.EmpiricalP)
	assert.Equal(t, report.Transition.RowIDs, report.ZScores.RowIDs)
	assert.Equal(t, report.Baseline.RowIDs, report.Transition.RowIDs)
	assert.False(t, report.Fingerprint.Fingerprint.IsEmpty())

	stored, err := service.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Same(t, report, stored)

	list, err := service.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAnalysisServiceWithoutNull(t *testing.T) {
	service := NewAnalysisService(nil, nil)

	report, err := service.Run(context.Background(), request(t, inference.Pearson, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, report.NullSize)
	assert.Nil(t, report.ZScores)

	_, err = service.Get(context.Background(), report.ID)
	assert.True(t, core.IsNotFoundError(err))
}

func TestAnalysisServiceFingerprintIsStable(t *testing.T) {
	service := NewAnalysisService(nil, nil)
	a, err := service.Run(context.Background(), request(t, inference.Pearson, 0))
	require.NoError(t, err)
	b, err := service.Run(context.Background(), request(t, inference.Pearson, 0))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Fingerprint.Fingerprint, b.Fingerprint.Fingerprint)
}

func TestAnalysisServiceRejectsInvalidOptions(t *testing.T) {
	req := request(t, inference.Bere, 2)
	req.Inference.Weight = 2

	_, err := NewAnalysisService(nil, nil).Run(context.Background(), req)
	kind, ok := core.ValidationKindOf(err)
	require.True(t, ok)
	assert.Equal(t, core.KindInvalidOption, kind)
}

func TestAnalysisServiceSkipsSignificanceWhenNullFails(t *testing.T) {
	req := request(t, inference.Pearson, 3)
	// every null member rejects a missing randomization
	req.Randomization = alignment.None

	report, err := NewAnalysisService(nil, nil).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, report.NullSize)
	assert.Len(t, report.NullFailures, 3)
	assert.Nil(t, report.ZScores)
}
