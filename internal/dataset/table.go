// Package dataset persists feature records as CSV tables and joins them into
// the three-dimensional points the partitioner consumes.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"produce-sorter/internal/features"
)

var (
	ErrTableMissing = errors.New("feature table not found")
	ErrEmptyTable   = errors.New("feature table has no rows")
)

var colorHeader = []string{"Archivo", "Promedio R", "Promedio G", "Promedio B"}

func shapeHeader() []string {
	header := []string{"Archivo"}
	for i := 1; i <= features.HuCount; i++ {
		header = append(header, fmt.Sprintf("Hu_%d", i))
	}
	return header
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteColorTable writes one row per record after the header.
func WriteColorTable(path string, records []features.ColorRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Filename, formatFloat(r.R), formatFloat(r.G), formatFloat(r.B)})
	}
	return writeTable(path, colorHeader, rows)
}

// WriteShapeTable writes one row per record after the header.
func WriteShapeTable(path string, records []features.ShapeRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{r.Filename}
		for _, v := range r.Hu {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	return writeTable(path, shapeHeader(), rows)
}

func writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}

	return f.Close()
}

// ReadColorTable parses a table written by WriteColorTable.
func ReadColorTable(path string) ([]features.ColorRecord, error) {
	rows, err := readTable(path, len(colorHeader))
	if err != nil {
		return nil, err
	}

	records := make([]features.ColorRecord, 0, len(rows))
	for i, row := range rows {
		vals, err := parseFloats(row[1:])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		records = append(records, features.ColorRecord{Filename: row[0], R: vals[0], G: vals[1], B: vals[2]})
	}

	return records, nil
}

// ReadShapeTable parses a table written by WriteShapeTable.
func ReadShapeTable(path string) ([]features.ShapeRecord, error) {
	rows, err := readTable(path, features.HuCount+1)
	if err != nil {
		return nil, err
	}

	records := make([]features.ShapeRecord, 0, len(rows))
	for i, row := range rows {
		vals, err := parseFloats(row[1:])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		rec := features.ShapeRecord{Filename: row[0]}
		copy(rec.Hu[:], vals)
		records = append(records, rec)
	}

	return records, nil
}

// readTable returns the data rows of a CSV file, dropping the header.
func readTable(path string, columns int) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = columns

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
	}

	return rows, nil
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse value %q as float: %w", s, err)
		}
		vals[i] = v
	}
	return vals, nil
}
