package rank

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Average assigns 1-based ranks to data, giving tied values the average of
// the ranks they span.
func Average(data []float64) []float64 {
	n := len(data)
	ranks := make([]float64, n)

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, v := range data {
		pairs[i] = pair{v, i}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	i := 0
	for i < n {
		j := i
		for j < n-1 && pairs[j+1].value == pairs[i].value {
			j++
		}

		avgRank := float64(i+j)/2.0 + 1
		for k := i; k <= j; k++ {
			ranks[pairs[k].index] = avgRank
		}

		i = j + 1
	}

	return ranks
}

// Matrix ranks every entry of m against all other entries of m (not per row
// or column), with average ranks for ties. The result has m's shape.
func Matrix(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	flat := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			flat = append(flat, m.At(i, j))
		}
	}
	return mat.NewDense(r, c, Average(flat))
}
