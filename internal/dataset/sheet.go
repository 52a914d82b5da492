package dataset

import (
	"github.com/alluvium/nepal-weap-prep/internal/adapter/excel"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// DateColumn is the date header of every station sheet.
const DateColumn = "Date"

// cellDates normalizes raw Date cells, which hold serial day numbers when
// the cell is formatted as a date.
var cellDates = domain.NewDateNormalizer(domain.WithSpreadsheetSerials())

// sheetObservations holds one sheet's values per column keyed by ISO date.
type sheetObservations struct {
	values  map[string]map[string]float64
	skipped int // rows whose date did not parse
	invalid int // non-numeric value cells, treated as missing
}

// readObservations extracts columns from s, normalizing the Date column.
// Rows with unparseable dates are skipped and counted. When a date repeats,
// the later row wins.
func readObservations(s *excel.Sheet, columns []string) (*sheetObservations, error) {
	dateIdx := s.ColumnIndex(DateColumn)
	if dateIdx < 0 {
		return nil, &domain.ColumnFormatError{Column: DateColumn, Reason: "missing from sheet " + s.Name}
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = s.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, &domain.ColumnFormatError{Column: c, Reason: "missing from sheet " + s.Name}
		}
	}

	obs := &sheetObservations{values: make(map[string]map[string]float64, len(columns))}
	for _, c := range columns {
		obs.values[c] = make(map[string]float64)
	}
	for _, row := range s.Rows {
		date, ok := cellDates.Normalize(row[dateIdx])
		if !ok {
			obs.skipped++
			continue
		}
		for i, c := range columns {
			v, ok, err := excel.ParseNumber(row[idx[i]])
			if err != nil {
				obs.invalid++
				continue
			}
			if ok {
				obs.values[c][date] = v
			}
		}
	}
	return obs, nil
}

// valueColumns returns the sheet's headers other than the date column.
func valueColumns(s *excel.Sheet) []string {
	var out []string
	for _, h := range s.Header {
		if h != DateColumn && h != "" {
			out = append(out, h)
		}
	}
	return out
}
