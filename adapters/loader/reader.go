// Package loader reads motif edges and expression matrices from delimited
// text (CSV, TSV) and Excel workbooks, and writes labeled matrices as CSV.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"regnet/domain/network"
)

// Format is a tabular file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension; unknown extensions
// are read as CSV
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab", ".txt":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ReadRows returns the cells of the file at path. Excel files are read from
// their first sheet.
func ReadRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	format := DetectFormat(path)
	if format == FormatXLSX {
		return readExcelRows(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", format, err)
	}
	defer file.Close()
	return ReadDelimited(file, format)
}

// ReadDelimited reads CSV or TSV rows from r
func ReadDelimited(r io.Reader, format Format) ([][]string, error) {
	reader := csv.NewReader(r)
	if format == FormatTSV {
		reader.Comma = '\t'
		reader.LazyQuotes = true
	}
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", format, err)
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// ReadMotifEdges loads motif edges from path
func ReadMotifEdges(path string) ([]network.MotifEdge, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	edges, err := ParseMotifEdges(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return edges, nil
}

// ParseMotifEdges converts rows of (TF, gene[, score]) into edges. A missing
// score counts as 1. A first row whose score cell is not numeric, or a
// two-column first row naming a gene column, is treated as a header. Blank
// rows are skipped.
func ParseMotifEdges(rows [][]string) ([]network.MotifEdge, error) {
	var edges []network.MotifEdge
	for i, row := range rows {
		row = trimCells(row)
		if isBlank(row) {
			continue
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			return nil, fmt.Errorf("line %d: expected TF and gene columns", i+1)
		}
		if len(row) == 2 && i == firstNonBlank(rows) && isGeneHeader(row[1]) {
			continue
		}
		score := 1.0
		if len(row) >= 3 && row[2] != "" {
			v, err := strconv.ParseFloat(row[2], 64)
			if err != nil {
				if len(edges) == 0 && i == firstNonBlank(rows) {
					continue
				}
				return nil, fmt.Errorf("line %d: invalid score %q", i+1, row[2])
			}
			score = v
		}
		edges = append(edges, network.MotifEdge{TF: row[0], Gene: row[1], Score: score})
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("no motif edges found")
	}
	return edges, nil
}

// ReadExpressionMatrix loads an expression matrix from path
func ReadExpressionMatrix(path string) (*network.ExpressionMatrix, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	expr, err := ParseExpressionMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return expr, nil
}

// ParseExpressionMatrix converts rows into an expression matrix. The first
// row holds sample identifiers after a corner cell; every other row is a
// gene identifier followed by its values. Empty, NA and NaN cells are
// missing values, as are cells absent from short rows.
func ParseExpressionMatrix(rows [][]string) (*network.ExpressionMatrix, error) {
	start := firstNonBlank(rows)
	if start < 0 {
		return nil, fmt.Errorf("expression data is empty")
	}
	header := trimCells(rows[start])
	if len(header) < 2 {
		return nil, fmt.Errorf("header must name at least one sample")
	}
	samples := header[1:]

	var genes []string
	var values [][]float64
	for i := start + 1; i < len(rows); i++ {
		row := trimCells(rows[i])
		if isBlank(row) {
			continue
		}
		if row[0] == "" {
			return nil, fmt.Errorf("line %d: missing gene identifier", i+1)
		}
		if len(row)-1 > len(samples) {
			return nil, fmt.Errorf("line %d: %d values for %d samples", i+1, len(row)-1, len(samples))
		}
		vals := make([]float64, len(samples))
		for j := range vals {
			cell := ""
			if j+1 < len(row) {
				cell = row[j+1]
			}
			v, err := parseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d, sample %s: %w", i+1, samples[j], err)
			}
			vals[j] = v
		}
		genes = append(genes, row[0])
		values = append(values, vals)
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("expression data has no gene rows")
	}
	return network.NewExpressionMatrix(genes, samples, values)
}

func isGeneHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "gene", "genes", "target", "gene_id":
		return true
	}
	return false
}

func parseValue(cell string) (float64, error) {
	switch strings.ToUpper(cell) {
	case "", "NA", "NAN", "N/A", "NULL":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", cell)
	}
	return v, nil
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func firstNonBlank(rows [][]string) int {
	for i, row := range rows {
		if !isBlank(row) {
			return i
		}
	}
	return -1
}
