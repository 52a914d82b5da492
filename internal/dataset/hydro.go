package dataset

import (
	"fmt"
	"log/slog"

	"github.com/alluvium/nepal-weap-prep/internal/adapter/excel"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Hydro defaults.
var (
	DefaultHydroMeasurements = []string{"Streamflow"}
	DefaultHydroUnits        = []string{"m3/s"}
)

// HydroOptions describes a streamflow workbook with one sheet per gauge
// station.
type HydroOptions struct {
	File         string
	Stations     []string
	Start        string
	End          string
	Measurements []string
	Units        []string
}

// PrepareHydro builds one dataset per measurement with a column per matched
// station over the daily range Start..End. Each sheet holds a Date column and
// either a column named after the measurement or a single value column.
func PrepareHydro(opts HydroOptions, logger *slog.Logger) ([]domain.Dataset, error) {
	if len(opts.Measurements) == 0 {
		opts.Measurements = DefaultHydroMeasurements
		if len(opts.Units) == 0 {
			opts.Units = DefaultHydroUnits
		}
	}
	if len(opts.Units) != len(opts.Measurements) {
		return nil, &domain.ParameterError{
			Name:   "units",
			Value:  opts.Units,
			Reason: fmt.Sprintf("need one unit per measurement (%d)", len(opts.Measurements)),
		}
	}

	dates, err := domain.DateRange(domain.NewDateNormalizer(), opts.Start, opts.End)
	if err != nil {
		return nil, err
	}

	wb, err := excel.Open(opts.File)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	stations, err := MatchNames(opts.File, opts.Stations, wb.SheetNames(), logger)
	if err != nil {
		return nil, err
	}

	sheets := make([]*excel.Sheet, len(stations))
	for i, st := range stations {
		if sheets[i], err = wb.Sheet(st); err != nil {
			return nil, err
		}
	}

	source := SourceName(opts.File)
	out := make([]domain.Dataset, 0, len(opts.Measurements))
	for m, measure := range opts.Measurements {
		series := domain.NewSeries(measure, opts.Units[m], dates)
		for i, st := range stations {
			col, err := hydroValueColumn(sheets[i], measure)
			if err != nil {
				return nil, err
			}
			obs, err := readObservations(sheets[i], []string{col})
			if err != nil {
				return nil, err
			}
			series.SkippedRows += obs.skipped
			if obs.invalid > 0 {
				logger.Warn("non-numeric values treated as missing",
					"source", source, "station", st, "cells", obs.invalid)
			}
			outside := series.AddColumn(st, obs.values[col])
			logger.Debug("station loaded",
				"source", source, "measure", measure, "station", st,
				"skipped_rows", obs.skipped, "outside_range", outside)
		}
		if series.SkippedRows > 0 {
			logger.Warn("rows with unrecognised dates skipped",
				"source", source, "measure", measure, "skipped_rows", series.SkippedRows)
		}
		out = append(out, series.Dataset(source))
	}
	return out, nil
}

func hydroValueColumn(s *excel.Sheet, measure string) (string, error) {
	if s.ColumnIndex(measure) >= 0 {
		return measure, nil
	}
	cols := valueColumns(s)
	if len(cols) != 1 {
		return "", &domain.ColumnFormatError{
			Column: measure,
			Reason: fmt.Sprintf("sheet %s has %d value columns and none named after the measurement", s.Name, len(cols)),
		}
	}
	return cols[0], nil
}
