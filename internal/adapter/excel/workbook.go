// Package excel reads hydro, meteo and census spreadsheets.
package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// WardColumn is the key column of census workbooks.
const WardColumn = "Ward"

// Workbook is an open spreadsheet file.
type Workbook struct {
	path string
	file *excelize.File
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Sheet is a worksheet read as a header row plus data rows. Cells are raw
// values, so date cells appear as spreadsheet serial numbers.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Sheet reads the named worksheet. Blank rows are dropped; short rows are
// padded to the header width.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", name, w.path, err)
	}
	if len(rows) == 0 {
		return nil, &domain.ColumnFormatError{Column: name, Reason: "sheet has no header row"}
	}
	s := &Sheet{Name: name}
	for _, h := range rows[0] {
		s.Header = append(s.Header, strings.TrimSpace(h))
	}
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		row := make([]string, len(s.Header))
		copy(row, r)
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// ColumnIndex returns the position of column in the header, or -1.
func (s *Sheet) ColumnIndex(column string) int {
	for i, h := range s.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// LoadWardTable reads the first worksheet of the workbook at path into a ward
// table keyed by the Ward column, keeping only columns. Empty cells are left
// missing; any other non-numeric cell is a format error.
func LoadWardTable(path string, columns ...string) (*domain.WardTable, error) {
	s, err := FirstSheet(path)
	if err != nil {
		return nil, err
	}
	return s.WardTable(columns...)
}

// FirstSheet opens the workbook at path and reads its first worksheet.
func FirstSheet(path string) (*Sheet, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets := wb.SheetNames()
	if len(sheets) == 0 {
		return nil, &domain.ColumnFormatError{Column: path, Reason: "workbook has no sheets"}
	}
	return wb.Sheet(sheets[0])
}

// WardTable converts the sheet into a ward table over columns. A ward listed
// twice is a ColumnFormatError.
func (s *Sheet) WardTable(columns ...string) (*domain.WardTable, error) {
	wardIdx := s.ColumnIndex(WardColumn)
	if wardIdx < 0 {
		return nil, &domain.ColumnFormatError{Column: WardColumn, Reason: "missing from sheet " + s.Name}
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = s.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, &domain.ColumnFormatError{Column: c, Reason: "missing from sheet " + s.Name}
		}
	}

	tbl := domain.NewWardTable(columns...)
	for _, r := range s.Rows {
		id := domain.NormalizeWardID(r[wardIdx])
		if id == "" {
			continue
		}
		if tbl.Has(id) {
			return nil, &domain.ColumnFormatError{Column: WardColumn, Reason: fmt.Sprintf("duplicate ward %s in sheet %s", id, s.Name)}
		}
		tbl.AddWard(id)
		for i, c := range columns {
			v, ok, err := ParseNumber(r[idx[i]])
			if err != nil {
				return nil, &domain.ColumnFormatError{Column: c, Reason: fmt.Sprintf("ward %s: %v", id, err)}
			}
			if ok {
				tbl.Set(id, c, v)
			}
		}
	}
	return tbl, nil
}

// ParseNumber parses a numeric cell. Empty cells report ok=false.
func ParseNumber(raw string) (v float64, ok bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
