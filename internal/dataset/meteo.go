package dataset

import (
	"fmt"
	"log/slog"

	"github.com/alluvium/nepal-weap-prep/internal/adapter/excel"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// DefaultMeteoMeasurements are the worksheet names of a standard climate
// workbook.
var DefaultMeteoMeasurements = []string{"Precip", "Temp_max", "Temp_min", "Relative humidity"}

// MeteoOptions describes a climate workbook with one sheet per variable and
// one column per weather station.
type MeteoOptions struct {
	File         string
	Stations     []string
	Start        string
	End          string
	Measurements []string
	// Units, when set, holds one unit per measurement.
	Units []string
}

// PrepareMeteo builds one dataset per matched measurement sheet holding the
// requested stations over the daily range Start..End.
func PrepareMeteo(opts MeteoOptions, logger *slog.Logger) ([]domain.Dataset, error) {
	if len(opts.Measurements) == 0 {
		opts.Measurements = DefaultMeteoMeasurements
	}
	if len(opts.Units) != 0 && len(opts.Units) != len(opts.Measurements) {
		return nil, &domain.ParameterError{
			Name:   "units",
			Value:  opts.Units,
			Reason: fmt.Sprintf("need one unit per measurement (%d)", len(opts.Measurements)),
		}
	}
	unitOf := make(map[string]string, len(opts.Units))
	for i, u := range opts.Units {
		unitOf[opts.Measurements[i]] = u
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

	measures, err := MatchNames(opts.File, opts.Measurements, wb.SheetNames(), logger)
	if err != nil {
		return nil, err
	}

	source := SourceName(opts.File)
	out := make([]domain.Dataset, 0, len(measures))
	for _, measure := range measures {
		sheet, err := wb.Sheet(measure)
		if err != nil {
			return nil, err
		}
		stations, err := MatchNames(source+"/"+measure, opts.Stations, valueColumns(sheet), logger)
		if err != nil {
			return nil, err
		}
		obs, err := readObservations(sheet, stations)
		if err != nil {
			return nil, err
		}
		if obs.invalid > 0 {
			logger.Warn("non-numeric values treated as missing",
				"source", source, "measure", measure, "cells", obs.invalid)
		}
		if obs.skipped > 0 {
			logger.Warn("rows with unrecognised dates skipped",
				"source", source, "measure", measure, "skipped_rows", obs.skipped)
		}

		series := domain.NewSeries(measure, unitOf[measure], dates)
		series.SkippedRows = obs.skipped
		for _, st := range stations {
			series.AddColumn(st, obs.values[st])
		}
		out = append(out, series.Dataset(source))
	}
	return out, nil
}
