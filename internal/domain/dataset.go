package domain

import (
	"math"
	"time"
)

// Table is a rectangular export table: an index column followed by numeric
// value columns. A NaN value is a missing cell.
type Table struct {
	Index   string
	Columns []string
	Rows    []Row
}

// Row is one line of a Table.
type Row struct {
	Key    string
	Values []float64
}

// Value returns the cell at (row key, column) and whether it is present.
func (t Table) Value(key, column string) (float64, bool) {
	col := -1
	for i, c := range t.Columns {
		if c == column {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, false
	}
	for _, r := range t.Rows {
		if r.Key == key {
			v := r.Values[col]
			return v, !math.IsNaN(v)
		}
	}
	return 0, false
}

// Dataset is a named table ready for export in the WEAP dialect.
type Dataset struct {
	// Name is the output file stem.
	Name string
	// Unit, when non-empty, is appended to every value column header.
	Unit string
	// Preamble holds extra lines written before the separator directives.
	Preamble []string
	Table    Table

	// SkippedRows is the audit count of input rows dropped while loading.
	SkippedRows int
	ExportedAt  time.Time
}
