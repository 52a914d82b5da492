package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alluvium/nepal-weap-prep/internal/demand"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		header  string
		want    int
		wantErr bool
	}{
		{"2011", 2011, false},
		{"Pop_2021", 2021, false},
		{"Census 2001 (total)", 2001, false},
		{"Pop_202", 0, true},
		{"Pop_20211", 0, true},
		{"Population", 0, true},
		{"2011_v2", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ParseYear(tt.header)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidColumnFormat)
				var ce *domain.ColumnFormatError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, tt.header, ce.Column)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseYearColumns_SortsAndRejectsDuplicates(t *testing.T) {
	cols, err := ParseYearColumns([]string{"Pop_2021", "Pop_2001", "Pop_2011"})
	require.NoError(t, err)
	assert.Equal(t, []YearColumn{{"Pop_2001", 2001}, {"Pop_2011", 2011}, {"Pop_2021", 2021}}, cols)

	_, err = ParseYearColumns([]string{"2011", "Pop_2011"})
	assert.ErrorIs(t, err, domain.ErrInvalidColumnFormat)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.1, Clamp(0.25, 0.1))
	assert.Equal(t, -0.1, Clamp(-0.3, 0.1))
	assert.Equal(t, 0.1, Clamp(0.1, 0.1))
	assert.Equal(t, -0.1, Clamp(-0.1, 0.1))
	assert.Equal(t, 0.03, Clamp(0.03, 0.1))
}

func TestRate_PairwiseSum(t *testing.T) {
	rate, err := Rate([]Observation{{2001, 1000}, {2011, 1200}, {2021, 1500}})
	require.NoError(t, err)
	// (200 + 300) / 20 years / 1000
	assert.InDelta(t, 0.025, rate, 1e-15)
}

func TestRate_ZeroBaseline(t *testing.T) {
	_, err := Rate([]Observation{{2011, 0}, {2021, 50}})
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeZeroBaseline, de.Code)
}

func TestRate_InsufficientHistory(t *testing.T) {
	_, err := Rate([]Observation{{2021, 50}})
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeInsufficientHistory, de.Code)
}

func census(rows map[domain.WardID][2]float64) *domain.WardTable {
	t := domain.NewWardTable("Pop_2011", "Pop_2021")
	for _, w := range []domain.WardID{"1", "2", "3", "4"} {
		r, ok := rows[w]
		if !ok {
			continue
		}
		t.Set(w, "Pop_2011", r[0])
		t.Set(w, "Pop_2021", r[1])
	}
	return t
}

func TestForecast_ClampAndProject(t *testing.T) {
	pop := census(map[domain.WardID][2]float64{
		"1": {100, 300}, // raw 0.2, clamped
		"2": {100, 200}, // raw exactly 0.1
		"3": {100, 10},  // raw -0.09
		"4": {100, 0},   // raw -0.1
	})
	res, err := Forecast(pop, 2031, DefaultGrowthCap)
	require.NoError(t, err)

	assert.Equal(t, "Pop_2031", res.ProjectedColumn)
	assert.Equal(t, []string{"Pop_2011", "Pop_2021", RateColumn, "Pop_2031"}, res.Table.Columns())

	r1 := res.Table.Row("1")
	assert.Equal(t, 0.1, r1[RateColumn])
	assert.InDelta(t, 300*1.1*1.1*1.1*1.1*1.1*1.1*1.1*1.1*1.1*1.1, r1["Pop_2031"], 1e-6)

	r2 := res.Table.Row("2")
	assert.Equal(t, 0.1, r2[RateColumn], "rate at the cap passes through")

	r3 := res.Table.Row("3")
	assert.InDelta(t, -0.09, r3[RateColumn], 1e-15)

	r4 := res.Table.Row("4")
	assert.Equal(t, -0.1, r4[RateColumn])
	assert.Equal(t, 0.0, r4["Pop_2031"])
}

func TestForecast_RawRateAboveCapIsCapped(t *testing.T) {
	pop := census(map[domain.WardID][2]float64{"1": {10, 1000}})
	res, err := Forecast(pop, 2022, DefaultGrowthCap)
	require.NoError(t, err)
	r := res.Table.Row("1")
	assert.Equal(t, 0.1, r[RateColumn])
	assert.InDelta(t, 1100.0, r["Pop_2022"], 1e-9)

	pop = domain.NewWardTable("Pop_2019", "Pop_2021")
	pop.Set("1", "Pop_2019", 1000)
	pop.Set("1", "Pop_2021", 10)
	res, err = Forecast(pop, 2022, DefaultGrowthCap)
	require.NoError(t, err)
	assert.Equal(t, -0.1, res.Table.Row("1")[RateColumn])
}

func TestForecast_FlatPopulation(t *testing.T) {
	pop := census(map[domain.WardID][2]float64{"1": {4321, 4321}})
	for _, year := range []int{2022, 2030, 2050, 2100} {
		res, err := Forecast(pop, year, DefaultGrowthCap)
		require.NoError(t, err)
		assert.Equal(t, 4321.0, res.Table.Row("1")[res.ProjectedColumn], "year %d", year)
	}
}

func TestForecast_SkipsMissingCells(t *testing.T) {
	pop := domain.NewWardTable("Pop_2001", "Pop_2011", "Pop_2021")
	pop.Set("1", "Pop_2001", 1000)
	pop.Set("1", "Pop_2021", 1200)
	res, err := Forecast(pop, 2031, DefaultGrowthCap)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, res.Table.Row("1")[RateColumn], 1e-15)
}

func TestForecast_Errors(t *testing.T) {
	bad := domain.NewWardTable("Pop_2011", "Pop_202")
	bad.Set("1", "Pop_2011", 10)
	bad.Set("1", "Pop_202", 20)
	_, err := Forecast(bad, 2031, DefaultGrowthCap)
	assert.ErrorIs(t, err, domain.ErrInvalidColumnFormat)

	zero := census(map[domain.WardID][2]float64{"1": {10, 20}, "2": {0, 20}})
	_, err = Forecast(zero, 2031, DefaultGrowthCap)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeZeroBaseline, de.Code)
	assert.Equal(t, "ward 2", de.Subject)

	single := domain.NewWardTable("Pop_2011", "Pop_2021")
	single.Set("1", "Pop_2021", 20)
	_, err = Forecast(single, 2031, DefaultGrowthCap)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.CodeInsufficientHistory, de.Code)

	_, err = Forecast(census(map[domain.WardID][2]float64{"1": {1, 2}}), 2021, DefaultGrowthCap)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = Forecast(census(map[domain.WardID][2]float64{"1": {1, 2}}), 2031, -0.1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestPopulationForYear(t *testing.T) {
	pop := census(map[domain.WardID][2]float64{"1": {400, 400}, "2": {100, 200}})
	res, err := Forecast(pop, 2031, DefaultGrowthCap)
	require.NoError(t, err)

	cen := domain.NewWardTable(demand.ColAvgHouseholdSize)
	cen.Set("1", demand.ColAvgHouseholdSize, 4)
	cen.Set("2", demand.ColAvgHouseholdSize, 5)

	out, err := PopulationForYear(res, cen)
	require.NoError(t, err)
	r1 := out.Row("1")
	assert.Equal(t, 400.0, r1[demand.ColTotalPopulation])
	assert.Equal(t, 100.0, r1[demand.ColHouseholds])
	assert.Equal(t, 4.0, r1[demand.ColAvgHouseholdSize])

	p := demand.DefaultParams()
	p.PercentFullPlumb = 80
	assert.InDelta(t, 39.44, demand.DomesticDemand(r1[demand.ColHouseholds], r1[demand.ColAvgHouseholdSize], p), 1e-9)

	partial := domain.NewWardTable(demand.ColAvgHouseholdSize)
	partial.Set("1", demand.ColAvgHouseholdSize, 4)
	_, err = PopulationForYear(res, partial)
	require.Error(t, err)
}
