package domain

import "math"

// Series is a date-indexed collection of named columns (usually one per
// station) for a single measured variable. Every date of the modelling
// range has a row; dates without observations hold missing values.
type Series struct {
	Measure     string
	Unit        string
	SkippedRows int

	dates   []string
	index   map[string]int
	columns []string
	values  map[string][]float64
}

// NewSeries creates an empty series over the given ISO dates.
func NewSeries(measure, unit string, dates []string) *Series {
	idx := make(map[string]int, len(dates))
	for i, d := range dates {
		idx[d] = i
	}
	return &Series{
		Measure: measure,
		Unit:    unit,
		dates:   dates,
		index:   idx,
		values:  make(map[string][]float64),
	}
}

// AddColumn left-joins observations keyed by ISO date onto the series date
// range. Observations outside the range are ignored; their count is returned.
// Adding an existing column overwrites it.
func (s *Series) AddColumn(name string, obs map[string]float64) int {
	col := make([]float64, len(s.dates))
	for i := range col {
		col[i] = math.NaN()
	}
	outside := 0
	for d, v := range obs {
		i, ok := s.index[d]
		if !ok {
			outside++
			continue
		}
		col[i] = v
	}
	if _, exists := s.values[name]; !exists {
		s.columns = append(s.columns, name)
	}
	s.values[name] = col
	return outside
}

// Dates returns the series date range.
func (s *Series) Dates() []string { return s.dates }

// Columns returns the column names in insertion order.
func (s *Series) Columns() []string { return s.columns }

// Value returns the observation for (column, date) and whether it is present.
func (s *Series) Value(column, date string) (float64, bool) {
	col, ok := s.values[column]
	if !ok {
		return 0, false
	}
	i, ok := s.index[date]
	if !ok || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// Dataset converts the series into an export dataset named
// "<source>_<measure>".
func (s *Series) Dataset(source string) Dataset {
	tbl := Table{Index: "Date", Columns: append([]string(nil), s.columns...)}
	for i, d := range s.dates {
		vals := make([]float64, len(s.columns))
		for j, c := range s.columns {
			vals[j] = s.values[c][i]
		}
		tbl.Rows = append(tbl.Rows, Row{Key: d, Values: vals})
	}
	return Dataset{
		Name:        source + "_" + s.Measure,
		Unit:        s.Unit,
		Table:       tbl,
		SkippedRows: s.SkippedRows,
	}
}
