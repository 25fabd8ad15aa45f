package network

import (
	"encoding/json"
	"math"
)

// matrixJSON is the wire form of Matrix. Missing values encode as null.
type matrixJSON struct {
	Rows   []string     `json:"rows"`
	Cols   []string     `json:"cols"`
	Values [][]*float64 `json:"values"`
}

// MarshalJSON encodes labels and values; NaN becomes null
func (m Matrix) MarshalJSON() ([]byte, error) {
	out := matrixJSON{Rows: m.RowIDs, Cols: m.ColIDs}
	if m.Data != nil {
		r, c := m.Data.Dims()
		out.Values = make([][]*float64, r)
		for i := 0; i < r; i++ {
			row := make([]*float64, c)
			for j := 0; j < c; j++ {
				v := m.Data.At(i, j)
				if !math.IsNaN(v) {
					row[j] = &v
				}
			}
			out.Values[i] = row
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON; null becomes NaN
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var in matrixJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rows := make([][]float64, len(in.Values))
	for i, row := range in.Values {
		rows[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				rows[i][j] = math.NaN()
			} else {
				rows[i][j] = *v
			}
		}
	}
	parsed, err := NewMatrixFromRows(in.Rows, in.Cols, rows)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

type inferredJSON struct {
	Matrix        Matrix   `json:"matrix"`
	Method        string   `json:"method"`
	MotifIncluded bool     `json:"motif_included"`
	FallbackGenes []string `json:"fallback_genes,omitempty"`
}

func (n InferredNetwork) MarshalJSON() ([]byte, error) {
	return json.Marshal(inferredJSON{Matrix: n.Matrix, Method: n.Method, MotifIncluded: n.MotifIncluded, FallbackGenes: n.FallbackGenes})
}

func (n *InferredNetwork) UnmarshalJSON(data []byte) error {
	var in inferredJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = InferredNetwork{Matrix: in.Matrix, Method: in.Method, MotifIncluded: in.MotifIncluded, FallbackGenes: in.FallbackGenes}
	return nil
}

type transitionJSON struct {
	Matrix      Matrix  `json:"matrix"`
	Regularized bool    `json:"regularized"`
	Lambda      float64 `json:"lambda"`
}

func (t TransitionMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(transitionJSON{Matrix: t.Matrix, Regularized: t.Regularized, Lambda: t.Lambda})
}

func (t *TransitionMatrix) UnmarshalJSON(data []byte) error {
	var in transitionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = TransitionMatrix{Matrix: in.Matrix, Regularized: in.Regularized, Lambda: in.Lambda}
	return nil
}
