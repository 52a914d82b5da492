// Package weapcsv writes datasets in the CSV dialect read by WEAP: optional
// comment lines, list separator and decimal symbol directives, then a
// "$Columns = " header row.
package weapcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Directive rows written before the header.
const (
	ListSeparator = "$ListSeparator = ,"
	DecimalSymbol = "$DecimalSymbol = ."
	columnsPrefix = "$Columns = "
)

// Header returns the header row: the index column with the columns
// directive, then each value column with the unit label appended.
func Header(ds domain.Dataset) []string {
	h := make([]string, 0, len(ds.Table.Columns)+1)
	h = append(h, columnsPrefix+ds.Table.Index)
	for _, c := range ds.Table.Columns {
		if ds.Unit != "" {
			c = fmt.Sprintf("%s [%s]", c, ds.Unit)
		}
		h = append(h, c)
	}
	return h
}

// Write encodes ds. Every preamble and directive row is padded with empty
// cells to the table width. Values keep the table's column order; missing
// values are written as empty cells.
func Write(w io.Writer, ds domain.Dataset) error {
	width := len(ds.Table.Columns) + 1
	cw := csv.NewWriter(w)

	pad := func(first string) []string {
		row := make([]string, width)
		row[0] = first
		return row
	}
	lines := append(append([]string(nil), ds.Preamble...), ListSeparator, DecimalSymbol)
	for _, l := range lines {
		if err := cw.Write(pad(l)); err != nil {
			return fmt.Errorf("write preamble: %w", err)
		}
	}
	if err := cw.Write(Header(ds)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range ds.Table.Rows {
		if len(r.Values) != len(ds.Table.Columns) {
			return fmt.Errorf("row %s: %d values for %d columns", r.Key, len(r.Values), len(ds.Table.Columns))
		}
		rec := make([]string, 0, width)
		rec = append(rec, r.Key)
		for _, v := range r.Values {
			rec = append(rec, formatValue(v))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FileName returns the output file name for ds.
func FileName(ds domain.Dataset) string { return ds.Name + ".csv" }

// FileSink writes each dataset to <dir>/<name>.csv.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink, creating dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Name identifies the sink in logs and metrics.
func (s *FileSink) Name() string { return "csv" }

// LoadBatch writes every dataset, stopping at the first failure.
func (s *FileSink) LoadBatch(ctx context.Context, datasets []domain.Dataset) error {
	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.WriteFile(ds); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes one dataset and returns its path.
func (s *FileSink) WriteFile(ds domain.Dataset) (path string, err error) {
	path = filepath.Join(s.dir, FileName(ds))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := Write(f, ds); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
