package dataset

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/alluvium/nepal-weap-prep/internal/adapter/excel"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sheetData struct {
	name string
	rows [][]any
}

func writeBook(t *testing.T, file string, sheets ...sheetData) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.name, cell, &row))
		}
	}
	path := filepath.Join(t.TempDir(), file)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestMatchNames(t *testing.T) {
	kept, err := MatchNames("book", []string{"A", "B", "A", "Z"}, []string{"B", "A", "C"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, kept)

	_, err = MatchNames("book", []string{"Z"}, []string{"A"}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoMatch)
	var nm *domain.NoMatchError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, []string{"A"}, nm.Available)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "Streamflow_data", SourceName("/in/Hydro/Streamflow_data.xlsx"))
}

func TestReadObservations_SerialDateCells(t *testing.T) {
	s := &excel.Sheet{
		Name:   "Bheri",
		Header: []string{"Date", "Flow"},
		Rows: [][]string{
			{"43831", "10"},
			{"2020-01-02", "11"},
			{"", "12"},
		},
	}
	obs, err := readObservations(s, []string{"Flow"})
	require.NoError(t, err)
	assert.Equal(t, 1, obs.skipped)
	assert.InDelta(t, 10, obs.values["Flow"]["2020-01-01"], 1e-9)
	assert.InDelta(t, 11, obs.values["Flow"]["2020-01-02"], 1e-9)
}

func TestPrepareHydro(t *testing.T) {
	path := writeBook(t, "Gauges.xlsx",
		sheetData{"Bheri", [][]any{
			{"Date", "Flow"},
			{"2020-01-01", 10.5},
			{"03/Jan/2020", 12},
			{"not a date", 99},
			{"2019-12-31", 1},
		}},
		sheetData{"Karnali", [][]any{
			{"Date", "Flow"},
			{"2020-01-02", 40},
		}},
	)

	out, err := PrepareHydro(HydroOptions{
		File:     path,
		Stations: []string{"Bheri", "Karnali", "Seti"},
		Start:    "2020-01-01",
		End:      "2020-01-03",
	}, discardLogger())
	require.NoError(t, err)
	require.Len(t, out, 1)

	ds := out[0]
	assert.Equal(t, "Gauges_Streamflow", ds.Name)
	assert.Equal(t, "m3/s", ds.Unit)
	assert.Equal(t, 1, ds.SkippedRows)
	assert.Equal(t, "Date", ds.Table.Index)
	assert.Equal(t, []string{"Bheri", "Karnali"}, ds.Table.Columns)
	require.Len(t, ds.Table.Rows, 3)

	v, ok := ds.Table.Value("2020-01-03", "Bheri")
	require.True(t, ok)
	assert.InDelta(t, 12, v, 1e-9)
	_, ok = ds.Table.Value("2020-01-02", "Bheri")
	assert.False(t, ok, "dates without observations stay empty")
	v, ok = ds.Table.Value("2020-01-02", "Karnali")
	require.True(t, ok)
	assert.InDelta(t, 40, v, 1e-9)
}

func TestPrepareHydro_NoStationMatches(t *testing.T) {
	path := writeBook(t, "Gauges.xlsx", sheetData{"Bheri", [][]any{{"Date", "Flow"}}})

	_, err := PrepareHydro(HydroOptions{
		File: path, Stations: []string{"Seti"}, Start: "2020-01-01", End: "2020-01-02",
	}, discardLogger())
	assert.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestPrepareHydro_UnitsMismatch(t *testing.T) {
	_, err := PrepareHydro(HydroOptions{
		Measurements: []string{"Streamflow", "Stage"},
		Units:        []string{"m3/s"},
	}, discardLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestPrepareHydro_AmbiguousValueColumn(t *testing.T) {
	path := writeBook(t, "Gauges.xlsx", sheetData{"Bheri", [][]any{{"Date", "Flow", "Stage"}, {"2020-01-01", 1, 2}}})

	_, err := PrepareHydro(HydroOptions{
		File: path, Stations: []string{"Bheri"}, Start: "2020-01-01", End: "2020-01-01",
	}, discardLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidColumnFormat)
}

func TestPrepareMeteo(t *testing.T) {
	path := writeBook(t, "Climate.xlsx",
		sheetData{"Precip", [][]any{
			{"Date", "Jumla", "Surkhet", "Dipayal"},
			{"2020-01-01", 1.5, 0, 3},
			{"2020-01-02", "", 2.5, 4},
			{"bad", 1, 1, 1},
		}},
		sheetData{"Temp_max", [][]any{
			{"Date", "Jumla", "Surkhet"},
			{"2020-01-01", 12, 18},
		}},
	)

	out, err := PrepareMeteo(MeteoOptions{
		File:         path,
		Stations:     []string{"Surkhet", "Jumla"},
		Start:        "2020-01-01",
		End:          "2020-01-02",
		Measurements: []string{"Precip", "Temp_max", "Wind"},
	}, discardLogger())
	require.NoError(t, err)
	require.Len(t, out, 2)

	precip := out[0]
	assert.Equal(t, "Climate_Precip", precip.Name)
	assert.Equal(t, []string{"Surkhet", "Jumla"}, precip.Table.Columns, "request order, Dipayal dropped")
	assert.Equal(t, 1, precip.SkippedRows)
	_, ok := precip.Table.Value("2020-01-02", "Jumla")
	assert.False(t, ok)
	v, ok := precip.Table.Value("2020-01-02", "Surkhet")
	require.True(t, ok)
	assert.InDelta(t, 2.5, v, 1e-9)

	assert.Equal(t, "Climate_Temp_max", out[1].Name)
	assert.Equal(t, 0, out[1].SkippedRows)
}

func TestPrepareMeteo_NoSheetMatches(t *testing.T) {
	path := writeBook(t, "Climate.xlsx", sheetData{"Precip", [][]any{{"Date", "Jumla"}}})

	_, err := PrepareMeteo(MeteoOptions{
		File: path, Stations: []string{"Jumla"}, Start: "2020-01-01", End: "2020-01-01",
		Measurements: []string{"Wind"},
	}, discardLogger())
	assert.ErrorIs(t, err, domain.ErrNoMatch)
}
