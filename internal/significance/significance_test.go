package significance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnet/domain/core"
	"regnet/domain/network"
)

var tfs = []string{"T1", "T2"}

func transition(t *testing.T, values ...float64) *network.TransitionMatrix {
	t.Helper()
	m, err := network.NewMatrixFromRows(tfs, tfs, [][]float64{values[:2], values[2:]})
	require.NoError(t, err)
	return &network.TransitionMatrix{Matrix: *m}
}

func ensembleOf(t *testing.T, members ...[]float64) *network.NullEnsemble {
	t.Helper()
	e := &network.NullEnsemble{}
	for _, v := range members {
		e.Members = append(e.Members, transition(t, v...))
	}
	return e
}

func TestZScores(t *testing.T) {
	observed := transition(t, 3, 0, 5, 1)
	null := ensembleOf(t,
		[]float64{1, 0, 1, 0},
		[]float64{2, 0, 2, 1},
		[]float64{3, 0, 3, 2},
	)

	z, err := ZScores(observed, null)
	require.NoError(t, err)
	// entry (0,0): mean 2, sample sd 1
	assert.InDelta(t, 1.0, z.Data.At(0, 0), 1e-12)
	// constant null scores 0
	assert.Equal(t, 0.0, z.Data.At(0, 1))
	assert.InDelta(t, 3.0, z.Data.At(1, 0), 1e-12)
	assert.InDelta(t, 0.0, z.Data.At(1, 1), 1e-12)
}

func TestZScoresSingleMember(t *testing.T) {
	z, err := ZScores(transition(t, 1, 2, 3, 4), ensembleOf(t, []float64{0, 0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, z.Data.RawMatrix().Data)
}

func TestEmpiricalPValues(t *testing.T) {
	observed := transition(t, 3, -0.5, 0, 10)
	null := ensembleOf(t,
		[]float64{1, 1, 0, 1},
		[]float64{-4, 0.1, 0, 2},
		[]float64{2, -2, 0, 3},
	)

	p, err := EmpiricalPValues(observed, null)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/4, p.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 3.0/4, p.Data.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, p.Data.At(1, 0), 1e-12)
	assert.InDelta(t, 1.0/4, p.Data.At(1, 1), 1e-12)
}

func TestEmptyEnsemble(t *testing.T) {
	observed := transition(t, 1, 2, 3, 4)
	for _, e := range []*network.NullEnsemble{nil, {}} {
		_, err := ZScores(observed, e)
		kind, ok := core.ValidationKindOf(err)
		require.True(t, ok)
		assert.Equal(t, core.KindInsufficientNull, kind)

		_, err = EmpiricalPValues(observed, e)
		assert.True(t, core.IsValidationError(err))
	}
}

func TestMembersAreAlignedByLabel(t *testing.T) {
	observed := transition(t, 1, 0, 0, 1)
	m, err := network.NewMatrixFromRows([]string{"T2", "T1"}, []string{"T2", "T1"}, [][]float64{{4, 3}, {2, 1}})
	require.NoError(t, err)
	null := &network.NullEnsemble{Members: []*network.TransitionMatrix{{Matrix: *m}}}

	q, err := NullQuantile(observed, null, 50)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, q.Data.RawMatrix().Data)

	other, err := network.NewMatrixFromRows([]string{"T1", "T9"}, tfs, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	_, err = ZScores(observed, &network.NullEnsemble{Members: []*network.TransitionMatrix{{Matrix: *other}}})
	kind, _ := core.ValidationKindOf(err)
	assert.Equal(t, core.KindIdentifierMismatch, kind)
}

func TestNormalPValues(t *testing.T) {
	z, err := network.NewMatrixFromRows(tfs, tfs, [][]float64{{0, 1.959963984540054}, {-1.959963984540054, math.Inf(1)}})
	require.NoError(t, err)

	p := NormalPValues(z)
	assert.InDelta(t, 1.0, p.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 0.05, p.Data.At(0, 1), 1e-9)
	assert.InDelta(t, 0.05, p.Data.At(1, 0), 1e-9)
	assert.Equal(t, 0.0, p.Data.At(1, 1))
}

func TestNullQuantileRejectsBadPercentile(t *testing.T) {
	_, err := NullQuantile(transition(t, 1, 2, 3, 4), ensembleOf(t, []float64{1, 2, 3, 4}), 0)
	assert.True(t, core.IsValidationError(err))
}
