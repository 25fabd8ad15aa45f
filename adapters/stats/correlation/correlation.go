// Package correlation computes Pearson correlation matrices over the rows of
// a numeric matrix (rows are entities, columns are conditions).
//
// Two interchangeable strategies are provided. The accelerated strategy
// standardizes every row and multiplies the result by its transpose; it
// requires complete data. The pairwise strategy correlates each pair of rows
// over the columns where both are observed, and is used whenever missing
// values (NaN) are present.
package correlation

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Strategy selects how correlations are computed
type Strategy int

const (
	// Auto uses Accelerated when the data has no missing values, Pairwise otherwise
	Auto Strategy = iota
	// Accelerated is z-score then Z·Zᵀ/(n-1). Falls back to Pairwise on missing values.
	Accelerated
	// Pairwise computes each pair over pairwise-complete columns
	Pairwise
)

func (s Strategy) String() string {
	switch s {
	case Auto:
		return "auto"
	case Accelerated:
		return "accelerated"
	case Pairwise:
		return "pairwise"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps "auto", "accelerated" and "pairwise" to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "accelerated", "fast":
		return Accelerated, nil
	case "pairwise":
		return Pairwise, nil
	default:
		return Auto, fmt.Errorf("unknown correlation strategy %q", s)
	}
}

// Correlate returns the symmetric matrix of Pearson correlations between the
// rows of m. Pairs with fewer than two complete columns, or with a constant
// row, are NaN.
func Correlate(m mat.Matrix, strategy Strategy) *mat.SymDense {
	r, _ := m.Dims()
	if useAccelerated(strategy, m) {
		z, n := standardize(m)
		out := mat.NewSymDense(r, nil)
		if n < 2 {
			fillSymNaN(out)
			return out
		}
		out.SymOuterK(1/float64(n-1), z)
		return out
	}

	out := mat.NewSymDense(r, nil)
	rows := rowsOf(m)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			out.SetSym(i, j, pairwise(rows[i], rows[j]))
		}
	}
	return out
}

// Cross returns the rows(a) x rows(b) matrix of Pearson correlations between
// rows of a and rows of b. Both must have the same number of columns.
func Cross(a, b mat.Matrix, strategy Strategy) *mat.Dense {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ca != cb {
		panic(fmt.Sprintf("correlation: column mismatch %d != %d", ca, cb))
	}

	out := mat.NewDense(ra, rb, nil)
	if useAccelerated(strategy, a) && useAccelerated(strategy, b) {
		za, n := standardize(a)
		zb, _ := standardize(b)
		if n < 2 {
			out.Apply(func(int, int, float64) float64 { return math.NaN() }, out)
			return out
		}
		out.Mul(za, zb.T())
		out.Scale(1/float64(n-1), out)
		return out
	}

	rowsA, rowsB := rowsOf(a), rowsOf(b)
	for i := 0; i < ra; i++ {
		for j := 0; j < rb; j++ {
			out.Set(i, j, pairwise(rowsA[i], rowsB[j]))
		}
	}
	return out
}

// ZeroNaN replaces every NaN in m with 0, in place
func ZeroNaN(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		if math.IsNaN(v) {
			return 0
		}
		return v
	}, m)
}

// HasMissing reports whether m contains a NaN
func HasMissing(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(m.At(i, j)) {
				return true
			}
		}
	}
	return false
}

func useAccelerated(strategy Strategy, m mat.Matrix) bool {
	if strategy == Pairwise {
		return false
	}
	return !HasMissing(m)
}

// standardize z-scores each row with the sample standard deviation.
// Constant rows become NaN so that they propagate to NaN correlations.
func standardize(m mat.Matrix) (*mat.Dense, int) {
	r, c := m.Dims()
	z := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := mat.Row(nil, i, m)
		mean, sd := stat.MeanStdDev(row, nil)
		for j, v := range row {
			if sd == 0 || math.IsNaN(sd) {
				z.Set(i, j, math.NaN())
				continue
			}
			z.Set(i, j, (v-mean)/sd)
		}
	}
	return z, c
}

func pairwise(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func rowsOf(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}

func fillSymNaN(s *mat.SymDense) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, math.NaN())
		}
	}
}
