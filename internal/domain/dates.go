package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// isoDate is the canonical output layout for every normalized date.
const isoDate = "2006-01-02"

// Accepted input layouts in priority order. Day-first numeric dates win over
// month-first ones, so "03/04/2020" is 3 April; "12/25/2020" only parses
// month-first.
var dateLayouts = []string{
	isoDate,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2/Jan/2006",
	"2/1/2006",
	"1/2/2006",
}

// Excel serial day bounds: 1900-01-01 through 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// DateNormalizer converts raw date cells into ISO-8601 YYYY-MM-DD strings.
type DateNormalizer struct {
	layouts     []string
	excelSerial bool
}

// DateOption configures a DateNormalizer.
type DateOption func(*DateNormalizer)

// WithSpreadsheetSerials accepts numeric spreadsheet serial day numbers as a
// last resort. Use it only for raw date cells read from a workbook; anywhere
// else a bare number such as a year is not a date.
func WithSpreadsheetSerials() DateOption {
	return func(n *DateNormalizer) { n.excelSerial = true }
}

// NewDateNormalizer returns a normalizer with the default layout priority.
func NewDateNormalizer(opts ...DateOption) *DateNormalizer {
	n := &DateNormalizer{layouts: dateLayouts}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize returns the ISO date for raw and true, or "" and false when no
// accepted layout matches.
func (n *DateNormalizer) Normalize(raw string) (string, bool) {
	t, ok := n.Parse(raw)
	if !ok {
		return "", false
	}
	return t.Format(isoDate), true
}

// Parse returns the calendar date encoded in raw.
func (n *DateNormalizer) Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range n.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	if n.excelSerial {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				return truncateDay(t), true
			}
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange returns every day from start to end inclusive as ISO strings.
func DateRange(n *DateNormalizer, start, end string) ([]string, error) {
	s, ok := n.Parse(start)
	if !ok {
		return nil, &ParameterError{Name: "start_date", Value: start, Reason: "unrecognised date"}
	}
	e, ok := n.Parse(end)
	if !ok {
		return nil, &ParameterError{Name: "end_date", Value: end, Reason: "unrecognised date"}
	}
	if e.Before(s) {
		return nil, &ParameterError{Name: "end_date", Value: end, Reason: "before start_date " + start}
	}
	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(isoDate))
	}
	return out, nil
}
