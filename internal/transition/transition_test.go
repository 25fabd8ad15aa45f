package transition

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"regnet/domain/core"
	"regnet/domain/network"
	"regnet/internal/alignment"
	"regnet/internal/inference"
	"regnet/internal/testkit"
)

func inferred(t *testing.T, tfs, genes []string, rows [][]float64) *network.InferredNetwork {
	t.Helper()
	m, err := network.NewMatrixFromRows(tfs, genes, rows)
	require.NoError(t, err)
	return &network.InferredNetwork{Matrix: *m, Method: "bere"}
}

var (
	threeTFs  = []string{"T1", "T2", "T3"}
	fiveGenes = []string{"G1", "G2", "G3", "G4", "G5"}
	baseRows  = [][]float64{
		{1, 0, 2, 0.5, 3},
		{0, 1, 1, 2, 0},
		{2, 1, 0, 1, 1},
	}
)

func TestEstimateIdentity(t *testing.T) {
	net := inferred(t, threeTFs, fiveGenes, baseRows)

	tm, err := Estimate(net, net, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, tm.Regularized)
	assert.Equal(t, threeTFs, tm.RowIDs)
	assert.Equal(t, threeTFs, tm.ColIDs)

	identity := mat.NewDiagDense(3, []float64{1, 1, 1})
	assert.True(t, mat.EqualApprox(identity, tm.Data, 1e-9))
}

func TestEstimateRecoversKnownTransition(t *testing.T) {
	baseline := inferred(t, threeTFs, fiveGenes, baseRows)
	want := mat.NewDense(3, 3, []float64{
		0.5, 1, 0,
		0, 2, -1,
		1, 0, 1,
	})
	var alt mat.Dense
	alt.Mul(want, baseline.Data)
	alternate := inferred(t, threeTFs, fiveGenes, rowsOf(&alt))

	tm, err := Estimate(baseline, alternate, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, tm.Data, 1e-9))
}

func TestEstimateReordersAlternate(t *testing.T) {
	baseline := inferred(t, threeTFs, fiveGenes, baseRows)
	shuffled, err := baseline.Reorder([]string{"T3", "T1", "T2"}, []string{"G5", "G4", "G3", "G2", "G1"})
	require.NoError(t, err)
	alternate := &network.InferredNetwork{Matrix: *shuffled}

	tm, err := Estimate(baseline, alternate, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(mat.NewDiagDense(3, []float64{1, 1, 1}), tm.Data, 1e-9))
}

func TestEstimateUnderdeterminedUsesRidge(t *testing.T) {
	tfs := []string{"T1", "T2", "T3", "T4"}
	genes := []string{"G1", "G2"}
	baseline := inferred(t, tfs, genes, [][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 9}})
	alternate := inferred(t, tfs, genes, [][]float64{{2, 1}, {4, 3}, {6, 5}, {9, 7}})

	tm, err := Estimate(baseline, alternate, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, tm.Regularized)
	assert.Equal(t, DefaultFallbackLambda, tm.Lambda)
	assert.False(t, tm.HasMissing())
	for _, row := range tm.Rows() {
		for _, v := range row {
			assert.False(t, math.IsInf(v, 0))
		}
	}
}

func TestEstimateRankDeficientUsesRidge(t *testing.T) {
	rows := [][]float64{baseRows[0], baseRows[0], baseRows[2]}
	baseline := inferred(t, threeTFs, fiveGenes, rows)

	tm, err := Estimate(baseline, baseline, Options{FallbackLambda: 0.01})
	require.NoError(t, err)
	assert.True(t, tm.Regularized)
	assert.Equal(t, 0.01, tm.Lambda)
}

func TestEstimateExplicitLambda(t *testing.T) {
	net := inferred(t, threeTFs, fiveGenes, baseRows)
	tm, err := Estimate(net, net, Options{Lambda: 0.5})
	require.NoError(t, err)
	assert.True(t, tm.Regularized)
	assert.Equal(t, 0.5, tm.Lambda)
	// shrinkage pulls the diagonal below one
	assert.Less(t, tm.Data.At(0, 0), 1.0)
}

func TestEstimateValidation(t *testing.T) {
	baseline := inferred(t, threeTFs, fiveGenes, baseRows)

	otherTFs := inferred(t, []string{"T1", "T2", "T9"}, fiveGenes, baseRows)
	_, err := Estimate(baseline, otherTFs, DefaultOptions())
	kind, _ := core.ValidationKindOf(err)
	assert.Equal(t, core.KindIdentifierMismatch, kind)

	otherGenes := inferred(t, threeTFs, []string{"G1", "G2", "G3", "G4", "G9"}, baseRows)
	_, err = Estimate(baseline, otherGenes, DefaultOptions())
	kind, _ = core.ValidationKindOf(err)
	assert.Equal(t, core.KindIdentifierMismatch, kind)

	missing := baseline.Clone()
	missing.Data.Set(1, 1, math.NaN())
	_, err = Estimate(baseline, &network.InferredNetwork{Matrix: *missing}, DefaultOptions())
	kind, _ = core.ValidationKindOf(err)
	assert.Equal(t, core.KindMissingValues, kind)

	_, err = Estimate(baseline, baseline, Options{Lambda: -1})
	kind, _ = core.ValidationKindOf(err)
	assert.Equal(t, core.KindInvalidOption, kind)
}

func inputs(t *testing.T) Inputs {
	t.Helper()
	data, err := testkit.NewTestKit().Dataset()
	require.NoError(t, err)
	return Inputs{Edges: data.Edges, Baseline: data.Baseline, Alternate: data.Alternate}
}

func memberOptions(method inference.Method) MemberOptions {
	inf := inference.DefaultOptions()
	inf.Method = method
	return MemberOptions{
		Inference:     inf,
		Transition:    DefaultOptions(),
		Randomization: alignment.WithinGene,
	}
}

func TestNullMemberIsDeterministic(t *testing.T) {
	in := inputs(t)
	opts := memberOptions(inference.Bere)

	a, err := NullMember(context.Background(), in, opts, 11)
	require.NoError(t, err)
	b, err := NullMember(context.Background(), in, opts, 11)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.Data, b.Data))

	c, err := NullMember(context.Background(), in, opts, 12)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.Data, c.Data))
}

func TestNullMemberNeedsRandomization(t *testing.T) {
	opts := memberOptions(inference.Pearson)
	opts.Randomization = alignment.None
	_, err := NullMember(context.Background(), inputs(t), opts, 1)
	kind, _ := core.ValidationKindOf(err)
	assert.Equal(t, core.KindInvalidOption, kind)
}

func TestBuildNullEnsemble(t *testing.T) {
	in := inputs(t)
	opts := memberOptions(inference.Pearson)

	serial, err := BuildNullEnsemble(context.Background(), in, opts, NullConfig{Count: 6, Workers: 1, Seed: 100})
	require.NoError(t, err)
	assert.Equal(t, 6, serial.Size())
	assert.Empty(t, serial.Failures)

	parallel, err := BuildNullEnsemble(context.Background(), in, opts, NullConfig{Count: 6, Workers: 4, Seed: 100})
	require.NoError(t, err)
	require.Equal(t, serial.Size(), parallel.Size())
	for i := range serial.Members {
		assert.True(t, mat.Equal(serial.Members[i].Data, parallel.Members[i].Data))
	}

	// member i is NullMember with seed Seed+i
	third, err := NullMember(context.Background(), in, opts, 102)
	require.NoError(t, err)
	assert.True(t, mat.Equal(third.Data, serial.Members[2].Data))
}

func TestBuildNullEnsembleRecordsFailures(t *testing.T) {
	in := inputs(t)
	narrow, err := in.Alternate.SelectRows(in.Alternate.RowIDs)
	require.NoError(t, err)
	twoConditions, err := network.NewMatrix(narrow.RowIDs, narrow.ColIDs[:2], mat.DenseCopyOf(narrow.Data.Slice(0, len(narrow.RowIDs), 0, 2)))
	require.NoError(t, err)
	in.Alternate = &network.ExpressionMatrix{Matrix: *twoConditions}

	ensemble, err := BuildNullEnsemble(context.Background(), in, memberOptions(inference.Pearson), NullConfig{Count: 3, Workers: 2, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, ensemble.Size())
	require.Len(t, ensemble.Failures, 3)
	for i, f := range ensemble.Failures {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, int64(5+i), f.Seed)
		assert.Contains(t, f.Error, "insufficient")
	}
}

func TestBuildNullEnsembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildNullEnsemble(ctx, inputs(t), memberOptions(inference.Pearson), NullConfig{Count: 4, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildNullEnsembleEmpty(t *testing.T) {
	ensemble, err := BuildNullEnsemble(context.Background(), inputs(t), memberOptions(inference.Pearson), NullConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, ensemble.Size())
}

func rowsOf(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
