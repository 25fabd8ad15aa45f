package loader

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"regnet/domain/network"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadMotifEdgesCSV(t *testing.T) {
	path := writeFile(t, "motifs.csv", "tf,gene,score\nTF1,G1,1\nTF1,G2,0.5\n\nTF2,G2,1\n")

	edges, err := ReadMotifEdges(path)
	require.NoError(t, err)
	assert.Equal(t, []network.MotifEdge{
		{TF: "TF1", Gene: "G1", Score: 1},
		{TF: "TF1", Gene: "G2", Score: 0.5},
		{TF: "TF2", Gene: "G2", Score: 1},
	}, edges)
}

func TestReadMotifEdgesTSVWithoutScores(t *testing.T) {
	path := writeFile(t, "motifs.tsv", "TF\tGene\nTF1\tG1\nTF2\tG3\n")

	edges, err := ReadMotifEdges(path)
	require.NoError(t, err)
	assert.Equal(t, []network.MotifEdge{
		{TF: "TF1", Gene: "G1", Score: 1},
		{TF: "TF2", Gene: "G3", Score: 1},
	}, edges)
}

func TestParseMotifEdgesErrors(t *testing.T) {
	_, err := ParseMotifEdges([][]string{{"TF1", "G1", "1"}, {"TF1", "G2", "high"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ParseMotifEdges([][]string{{"TF1"}})
	assert.Error(t, err)

	_, err = ParseMotifEdges(nil)
	assert.Error(t, err)
}

func TestReadExpressionMatrixCSV(t *testing.T) {
	path := writeFile(t, "expr.csv", "gene,S1,S2,S3\nG1,1,2,3\nG2,NA,,4.5\nG3,1e-3,2\n")

	expr, err := ReadExpressionMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "G2", "G3"}, expr.Genes())
	assert.Equal(t, []string{"S1", "S2", "S3"}, expr.Samples())
	assert.Equal(t, []float64{1, 2, 3}, expr.Row(0))

	g2 := expr.Row(1)
	assert.True(t, math.IsNaN(g2[0]))
	assert.True(t, math.IsNaN(g2[1]))
	assert.Equal(t, 4.5, g2[2])
	// short rows are padded with missing values
	assert.True(t, math.IsNaN(expr.Row(2)[2]))
}

func TestParseExpressionMatrixErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{"empty", nil},
		{"no samples", [][]string{{"gene"}, {"G1"}}},
		{"no genes", [][]string{{"gene", "S1"}}},
		{"bad value", [][]string{{"gene", "S1"}, {"G1", "x"}}},
		{"too many values", [][]string{{"gene", "S1"}, {"G1", "1", "2"}}},
		{"duplicate gene", [][]string{{"gene", "S1"}, {"G1", "1"}, {"G1", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpressionMatrix(tt.rows)
			assert.Error(t, err)
		})
	}
}

func TestReadExpressionMatrixXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"gene", "S1", "S2", "S3"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"G1", 1.5, 2, 3}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"G2", 4, "NA", 6}))
	path := filepath.Join(t.TempDir(), "expr.xlsx")
	require.NoError(t, f.SaveAs(path))

	expr, err := ReadExpressionMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "G2"}, expr.Genes())
	assert.Equal(t, []float64{1.5, 2, 3}, expr.Row(0))
	assert.True(t, math.IsNaN(expr.Row(1)[1]))
}

func TestReadMotifEdgesXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"tf", "gene", "score"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"TF1", "G1", 0.75}))
	path := filepath.Join(t.TempDir(), "motifs.xlsx")
	require.NoError(t, f.SaveAs(path))

	edges, err := ReadMotifEdges(path)
	require.NoError(t, err)
	assert.Equal(t, []network.MotifEdge{{TF: "TF1", Gene: "G1", Score: 0.75}}, edges)
}

func TestReadRowsMissingFile(t *testing.T) {
	_, err := ReadRows(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("a.csv"))
	assert.Equal(t, FormatTSV, DetectFormat("a.TSV"))
	assert.Equal(t, FormatXLSX, DetectFormat("dir/a.xlsx"))
	assert.Equal(t, FormatCSV, DetectFormat("a"))
}

func TestWriteMatrixCSV(t *testing.T) {
	m, err := network.NewMatrixFromRows([]string{"T1", "T2"}, []string{"G1", "G2"}, [][]float64{{0.5, math.NaN()}, {1, -2}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMatrixCSV(&buf, m))
	assert.Equal(t, ",G1,G2\nT1,0.5,NA\nT2,1,-2\n", buf.String())

	// the output reads back as an expression-style matrix
	rows, err := ReadDelimited(strings.NewReader(buf.String()), FormatCSV)
	require.NoError(t, err)
	back, err := ParseExpressionMatrix(rows)
	require.NoError(t, err)
	assert.Equal(t, m.RowIDs, back.RowIDs)
	assert.True(t, math.IsNaN(back.Row(0)[1]))
}

func TestWriteMatrixFile(t *testing.T) {
	m, err := network.NewMatrixFromRows([]string{"T1"}, []string{"T1"}, [][]float64{{1}})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, WriteMatrixFile(path, m))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ",T1\nT1,1\n", string(data))
}
