package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WardID identifies a ward. Identifiers are compared as normalized strings
// so that spreadsheet values such as "3" and "3.0" refer to the same ward.
type WardID string

// NormalizeWardID trims whitespace and strips a trailing ".0" from integral
// numeric identifiers.
func NormalizeWardID(raw string) WardID {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return WardID(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return WardID(s)
}

// Record holds the named numeric fields of one ward. An absent key is a
// missing value; it is never implicitly zero.
type Record map[string]float64

// FillPolicy declares how a merge treats cells that are missing after an
// outer join.
type FillPolicy int

const (
	// KeepMissing leaves missing cells absent.
	KeepMissing FillPolicy = iota
	// FillZero writes 0 into every missing cell.
	FillZero
	// ErrorOnMissing fails the merge if any cell is missing.
	ErrorOnMissing
)

// WardTable is a ward-indexed table of named numeric fields. Row and column
// order are insertion order and are preserved through every operation.
type WardTable struct {
	columns []string
	colSet  map[string]bool
	order   []WardID
	rows    map[WardID]Record
}

// NewWardTable creates an empty table with the given columns.
func NewWardTable(columns ...string) *WardTable {
	t := &WardTable{
		colSet: make(map[string]bool),
		rows:   make(map[WardID]Record),
	}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// AddColumn registers a column without setting any values.
func (t *WardTable) AddColumn(name string) {
	if t.colSet[name] {
		return
	}
	t.colSet[name] = true
	t.columns = append(t.columns, name)
}

// AddWard registers a ward row without setting any values.
func (t *WardTable) AddWard(id WardID) {
	if _, ok := t.rows[id]; ok {
		return
	}
	t.rows[id] = Record{}
	t.order = append(t.order, id)
}

// Set stores v at (id, column), creating the row and column if needed.
func (t *WardTable) Set(id WardID, column string, v float64) {
	t.AddWard(id)
	t.AddColumn(column)
	t.rows[id][column] = v
}

// Get returns the value at (id, column) and whether it is present.
func (t *WardTable) Get(id WardID, column string) (float64, bool) {
	r, ok := t.rows[id]
	if !ok {
		return 0, false
	}
	v, ok := r[column]
	return v, ok
}

// Has reports whether the ward has a row.
func (t *WardTable) Has(id WardID) bool {
	_, ok := t.rows[id]
	return ok
}

// HasColumn reports whether the column exists.
func (t *WardTable) HasColumn(name string) bool { return t.colSet[name] }

// Wards returns the ward identifiers in row order.
func (t *WardTable) Wards() []WardID {
	out := make([]WardID, len(t.order))
	copy(out, t.order)
	return out
}

// Columns returns the column names in order.
func (t *WardTable) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *WardTable) Len() int { return len(t.order) }

// Row returns a copy of the ward's record.
func (t *WardTable) Row(id WardID) Record {
	out := Record{}
	for k, v := range t.rows[id] {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy.
func (t *WardTable) Clone() *WardTable {
	c := NewWardTable(t.columns...)
	for _, id := range t.order {
		c.AddWard(id)
		for k, v := range t.rows[id] {
			c.rows[id][k] = v
		}
	}
	return c
}

// Select returns a copy containing only the named columns, in the given order.
func (t *WardTable) Select(columns ...string) (*WardTable, error) {
	for _, c := range columns {
		if !t.colSet[c] {
			return nil, fmt.Errorf("select: unknown column %q", c)
		}
	}
	out := NewWardTable(columns...)
	for _, id := range t.order {
		out.AddWard(id)
		for _, c := range columns {
			if v, ok := t.rows[id][c]; ok {
				out.rows[id][c] = v
			}
		}
	}
	return out, nil
}

// Fill applies policy to the missing cells of the named columns and returns
// the number of cells that were missing.
func (t *WardTable) Fill(policy FillPolicy, columns ...string) (int, error) {
	missing := 0
	for _, id := range t.order {
		for _, c := range columns {
			if _, ok := t.rows[id][c]; ok {
				continue
			}
			missing++
			switch policy {
			case FillZero:
				t.AddColumn(c)
				t.rows[id][c] = 0
			case ErrorOnMissing:
				return missing, fmt.Errorf("ward %s: missing value for %q", id, c)
			}
		}
	}
	return missing, nil
}

// OuterJoin merges two tables on ward identifier. Every ward of either input
// appears in the result, left rows first. Column names must not collide.
// Missing cells are then handled according to policy; the returned count is
// the number of cells that were missing after the join.
func OuterJoin(left, right *WardTable, policy FillPolicy) (*WardTable, int, error) {
	for _, c := range right.columns {
		if left.colSet[c] {
			return nil, 0, fmt.Errorf("outer join: column %q present in both tables", c)
		}
	}
	out := left.Clone()
	for _, c := range right.columns {
		out.AddColumn(c)
	}
	for _, id := range right.order {
		out.AddWard(id)
		for k, v := range right.rows[id] {
			out.rows[id][k] = v
		}
	}
	missing, err := out.Fill(policy, out.columns...)
	if err != nil {
		return nil, missing, fmt.Errorf("outer join: %w", err)
	}
	return out, missing, nil
}

// ToTable converts the ward table into an export table indexed by ward.
func (t *WardTable) ToTable(index string) Table {
	tbl := Table{Index: index, Columns: t.Columns()}
	for _, id := range t.order {
		vals := make([]float64, len(t.columns))
		for i, c := range t.columns {
			v, ok := t.rows[id][c]
			if !ok {
				v = math.NaN()
			}
			vals[i] = v
		}
		tbl.Rows = append(tbl.Rows, Row{Key: string(id), Values: vals})
	}
	return tbl
}
