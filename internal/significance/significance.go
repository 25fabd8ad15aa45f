// Package significance scores an observed transition matrix against its
// permutation null ensemble.
package significance

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"regnet/domain/core"
	"regnet/domain/network"
)

// ZScores returns (observed - mean) / sd per entry, where mean and sd are
// taken over the ensemble members at that entry. Entries whose null values
// do not vary score 0.
func ZScores(observed *network.TransitionMatrix, ensemble *network.NullEnsemble) (*network.Matrix, error) {
	samples, err := nullSamples(observed, ensemble)
	if err != nil {
		return nil, err
	}
	return mapEntries(observed, func(i, j int, obs float64) (float64, error) {
		null := samples[i][j]
		mean, err := stats.Mean(null)
		if err != nil {
			return 0, err
		}
		if len(null) < 2 {
			return 0, nil
		}
		sd, err := stats.StandardDeviationSample(null)
		if err != nil {
			return 0, err
		}
		if sd == 0 || math.IsNaN(sd) {
			return 0, nil
		}
		return (obs - mean) / sd, nil
	})
}

// EmpiricalPValues returns, per entry, the two-sided permutation p-value
// (#{|null| >= |observed|} + 1) / (n + 1)
func EmpiricalPValues(observed *network.TransitionMatrix, ensemble *network.NullEnsemble) (*network.Matrix, error) {
	samples, err := nullSamples(observed, ensemble)
	if err != nil {
		return nil, err
	}
	return mapEntries(observed, func(i, j int, obs float64) (float64, error) {
		null := samples[i][j]
		extreme := 0
		for _, v := range null {
			if math.Abs(v) >= math.Abs(obs) {
				extreme++
			}
		}
		return float64(extreme+1) / float64(len(null)+1), nil
	})
}

// NormalPValues converts z-scores to two-sided p-values under a standard
// normal null
func NormalPValues(z *network.Matrix) *network.Matrix {
	out := z.Clone()
	out.Data.Apply(func(_, _ int, v float64) float64 {
		return 2 * distuv.UnitNormal.Survival(math.Abs(v))
	}, z.Data)
	return out
}

// NullQuantile returns the q-th percentile (0-100) of the null values per entry
func NullQuantile(observed *network.TransitionMatrix, ensemble *network.NullEnsemble, q float64) (*network.Matrix, error) {
	if q <= 0 || q > 100 {
		return nil, core.NewValidationError(core.KindInvalidOption, "percentile must be in (0,100], got %v", q)
	}
	samples, err := nullSamples(observed, ensemble)
	if err != nil {
		return nil, err
	}
	return mapEntries(observed, func(i, j int, _ float64) (float64, error) {
		return stats.Percentile(samples[i][j], q)
	})
}

// nullSamples gathers, for every entry of observed, the values of all
// ensemble members at that entry. Members are aligned to observed's labels.
func nullSamples(observed *network.TransitionMatrix, ensemble *network.NullEnsemble) ([][]stats.Float64Data, error) {
	if observed == nil || observed.Data == nil {
		return nil, core.NewValidationError(core.KindShapeMismatch, "no observed transition matrix")
	}
	n := ensemble.Size()
	if n == 0 {
		return nil, core.NewValidationError(core.KindInsufficientNull, "null ensemble has no members")
	}

	r, c := observed.Dims()
	samples := make([][]stats.Float64Data, r)
	for i := range samples {
		samples[i] = make([]stats.Float64Data, c)
		for j := range samples[i] {
			samples[i][j] = make(stats.Float64Data, 0, n)
		}
	}
	for _, member := range ensemble.Members {
		aligned, err := member.Reorder(observed.RowIDs, observed.ColIDs)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				samples[i][j] = append(samples[i][j], aligned.Data.At(i, j))
			}
		}
	}
	return samples, nil
}

func mapEntries(observed *network.TransitionMatrix, fn func(i, j int, obs float64) (float64, error)) (*network.Matrix, error) {
	r, c := observed.Dims()
	data := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v, err := fn(i, j, observed.Data.At(i, j))
			if err != nil {
				return nil, err
			}
			data.Set(i, j, v)
		}
	}
	return network.NewMatrix(observed.RowIDs, observed.ColIDs, data)
}
