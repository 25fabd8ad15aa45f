package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"regnet/domain/network"
)

// WriteMatrixCSV writes m with a header of column identifiers and one line
// per row identifier. Missing values are written as NA.
func WriteMatrixCSV(w io.Writer, m *network.Matrix) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, m.ColIDs...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, id := range m.RowIDs {
		record := make([]string, 0, len(m.ColIDs)+1)
		record = append(record, id)
		for _, v := range m.Row(i) {
			record = append(record, formatValue(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMatrixFile writes m as CSV to path, or to stdout when path is "" or "-"
func WriteMatrixFile(path string, m *network.Matrix) error {
	if path == "" || path == "-" {
		return WriteMatrixCSV(os.Stdout, m)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteMatrixCSV(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
