package network

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"regnet/domain/core"
)

// MotifEdge is one TF binding-motif hit on a gene. A collection may repeat a
// (TF, Gene) pair; repeats are averaged when converted to matrix form.
type MotifEdge struct {
	TF    string  `json:"tf"`
	Gene  string  `json:"gene"`
	Score float64 `json:"score"`
}

// Matrix is a dense matrix with identifier labels on both axes.
// NaN entries denote missing values.
type Matrix struct {
	RowIDs []string
	ColIDs []string
	Data   *mat.Dense
}

// NewMatrix wraps data with labels. Labels must match the dimensions of data
// and be unique on each axis.
func NewMatrix(rowIDs, colIDs []string, data *mat.Dense) (*Matrix, error) {
	if len(rowIDs) == 0 || len(colIDs) == 0 {
		return nil, core.NewValidationError(core.KindShapeMismatch, "matrix needs at least one row and one column, got %d x %d", len(rowIDs), len(colIDs))
	}
	if data == nil {
		data = mat.NewDense(len(rowIDs), len(colIDs), nil)
	}
	r, c := data.Dims()
	if r != len(rowIDs) || c != len(colIDs) {
		return nil, core.NewValidationError(core.KindShapeMismatch, "data is %d x %d but labels are %d x %d", r, c, len(rowIDs), len(colIDs))
	}
	if dup, ok := firstDuplicate(rowIDs); ok {
		return nil, core.NewValidationError(core.KindDuplicateIdentifier, "duplicate row identifier %q", dup)
	}
	if dup, ok := firstDuplicate(colIDs); ok {
		return nil, core.NewValidationError(core.KindDuplicateIdentifier, "duplicate column identifier %q", dup)
	}
	return &Matrix{
		RowIDs: append([]string(nil), rowIDs...),
		ColIDs: append([]string(nil), colIDs...),
		Data:   data,
	}, nil
}

// NewMatrixFromRows builds a Matrix from row-major values
func NewMatrixFromRows(rowIDs, colIDs []string, rows [][]float64) (*Matrix, error) {
	if len(rows) != len(rowIDs) {
		return nil, core.NewValidationError(core.KindShapeMismatch, "%d value rows for %d row identifiers", len(rows), len(rowIDs))
	}
	flat := make([]float64, 0, len(rowIDs)*len(colIDs))
	for i, row := range rows {
		if len(row) != len(colIDs) {
			return nil, core.NewValidationError(core.KindShapeMismatch, "row %q has %d values, expected %d", rowIDs[i], len(row), len(colIDs))
		}
		flat = append(flat, row...)
	}
	if len(flat) == 0 {
		return NewMatrix(rowIDs, colIDs, nil)
	}
	return NewMatrix(rowIDs, colIDs, mat.NewDense(len(rowIDs), len(colIDs), flat))
}

// Dims returns the number of rows and columns
func (m *Matrix) Dims() (int, int) {
	return len(m.RowIDs), len(m.ColIDs)
}

// RowIndex maps row identifiers to positions
func (m *Matrix) RowIndex() map[string]int {
	return indexOf(m.RowIDs)
}

// ColIndex maps column identifiers to positions
func (m *Matrix) ColIndex() map[string]int {
	return indexOf(m.ColIDs)
}

// At returns the value at the labeled position
func (m *Matrix) At(row, col string) (float64, bool) {
	i, ok := m.RowIndex()[row]
	if !ok {
		return 0, false
	}
	j, ok := m.ColIndex()[col]
	if !ok {
		return 0, false
	}
	return m.Data.At(i, j), true
}

// Row returns a copy of row i
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Data)
}

// Rows returns a row-major copy of the values
func (m *Matrix) Rows() [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Clone deep-copies labels and data
func (m *Matrix) Clone() *Matrix {
	return &Matrix{
		RowIDs: append([]string(nil), m.RowIDs...),
		ColIDs: append([]string(nil), m.ColIDs...),
		Data:   mat.DenseCopyOf(m.Data),
	}
}

// HasMissing reports whether any entry is NaN
func (m *Matrix) HasMissing() bool {
	r, c := m.Data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(m.Data.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// SelectRows returns a new matrix restricted to ids, in the given order.
// Every id must exist.
func (m *Matrix) SelectRows(ids []string) (*Matrix, error) {
	idx := m.RowIndex()
	_, c := m.Dims()
	data := mat.NewDense(len(ids), c, nil)
	for k, id := range ids {
		i, ok := idx[id]
		if !ok {
			return nil, core.NewValidationError(core.KindIdentifierMismatch, "row %q not present", id)
		}
		data.SetRow(k, m.Row(i))
	}
	return NewMatrix(ids, m.ColIDs, data)
}

// Reorder returns a copy with rows and columns permuted to the given label
// orders. Both label sets must equal the matrix's own label sets.
func (m *Matrix) Reorder(rowIDs, colIDs []string) (*Matrix, error) {
	if !SameSet(m.RowIDs, rowIDs) {
		return nil, core.NewValidationError(core.KindIdentifierMismatch, "row identifiers differ: %s", describeDifference(m.RowIDs, rowIDs))
	}
	if !SameSet(m.ColIDs, colIDs) {
		return nil, core.NewValidationError(core.KindIdentifierMismatch, "column identifiers differ: %s", describeDifference(m.ColIDs, colIDs))
	}
	ri, ci := m.RowIndex(), m.ColIndex()
	data := mat.NewDense(len(rowIDs), len(colIDs), nil)
	for i, r := range rowIDs {
		for j, c := range colIDs {
			data.Set(i, j, m.Data.At(ri[r], ci[c]))
		}
	}
	return NewMatrix(rowIDs, colIDs, data)
}

// ExpressionMatrix holds expression values, genes x samples
type ExpressionMatrix struct {
	Matrix
}

// NewExpressionMatrix builds an expression matrix from row-major values.
// Use math.NaN() for missing measurements.
func NewExpressionMatrix(genes, samples []string, values [][]float64) (*ExpressionMatrix, error) {
	m, err := NewMatrixFromRows(genes, samples, values)
	if err != nil {
		return nil, err
	}
	return &ExpressionMatrix{Matrix: *m}, nil
}

// Genes returns the row identifiers
func (e *ExpressionMatrix) Genes() []string { return e.RowIDs }

// Samples returns the column identifiers
func (e *ExpressionMatrix) Samples() []string { return e.ColIDs }

// RegulatoryNetwork holds motif scores, TFs x genes, 0 where no motif
type RegulatoryNetwork struct {
	Matrix
}

// TFs returns the row identifiers
func (n *RegulatoryNetwork) TFs() []string { return n.RowIDs }

// Genes returns the column identifiers
func (n *RegulatoryNetwork) Genes() []string { return n.ColIDs }

// Indicator returns 1 where a motif score is positive, 0 elsewhere
func (n *RegulatoryNetwork) Indicator() *mat.Dense {
	r, c := n.Data.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	}, n.Data)
	return out
}

// InferredNetwork holds edge confidence scores, TFs x genes
type InferredNetwork struct {
	Matrix
	Method        string
	MotifIncluded bool
	// FallbackGenes lists genes whose regression failed and were scored
	// with the per-gene fallback value.
	FallbackGenes []string
}

// TFs returns the row identifiers
func (n *InferredNetwork) TFs() []string { return n.RowIDs }

// Genes returns the column identifiers
func (n *InferredNetwork) Genes() []string { return n.ColIDs }

// TransitionMatrix is the TF x TF linear map taking a baseline network's
// regulatory profiles to an alternate network's.
type TransitionMatrix struct {
	Matrix
	Regularized bool
	Lambda      float64
}

// NullFailure records one null ensemble member that could not be computed
type NullFailure struct {
	Index int    `json:"index"`
	Seed  int64  `json:"seed"`
	Error string `json:"error"`
}

// NullEnsemble is the set of transition matrices computed on randomized
// inputs. Member order carries no meaning.
type NullEnsemble struct {
	Members  []*TransitionMatrix
	Failures []NullFailure
}

// Size returns the number of successful members
func (e *NullEnsemble) Size() int {
	if e == nil {
		return 0
	}
	return len(e.Members)
}

// SameSet reports whether a and b contain the same identifiers
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
		if seen[s] < 0 {
			return false
		}
	}
	return true
}

// SortedCopy returns a lexicographically sorted copy of ids
func SortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func indexOf(ids []string) map[string]int {
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return idx
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}

func describeDifference(have, want []string) string {
	hs, ws := indexOf(have), indexOf(want)
	var missing, extra []string
	for _, w := range want {
		if _, ok := hs[w]; !ok {
			missing = append(missing, w)
		}
	}
	for _, h := range have {
		if _, ok := ws[h]; !ok {
			extra = append(extra, h)
		}
	}
	return fmt.Sprintf("missing %v, unexpected %v", truncate(missing), truncate(extra))
}

func truncate(ids []string) []string {
	const limit = 5
	if len(ids) <= limit {
		return ids
	}
	out := append([]string(nil), ids[:limit]...)
	return append(out, fmt.Sprintf("... (%d more)", len(ids)-limit))
}
