// Package forecast projects ward populations forward from historical census
// columns using a capped compound annual growth rate.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// DefaultGrowthCap bounds the annual growth rate to +/-10%.
const DefaultGrowthCap = 0.1

// RateColumn is the column holding each ward's clamped annual rate.
const RateColumn = "Growth rate"

// YearColumn is a census column and the year it encodes.
type YearColumn struct {
	Name string
	Year int
}

// ParseYear extracts the census year from a column header by removing every
// non-digit character. The remainder must be exactly four digits.
func ParseYear(header string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, header)
	if len(digits) != 4 {
		return 0, &domain.ColumnFormatError{
			Column: header,
			Reason: fmt.Sprintf("expected 4 digits after removing non-digits, found %q", digits),
		}
	}
	y, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &domain.ColumnFormatError{Column: header, Reason: err.Error()}
	}
	return y, nil
}

// ParseYearColumns parses every header and returns them sorted by year.
// Two headers encoding the same year are rejected.
func ParseYearColumns(headers []string) ([]YearColumn, error) {
	out := make([]YearColumn, 0, len(headers))
	byYear := make(map[int]string, len(headers))
	for _, h := range headers {
		y, err := ParseYear(h)
		if err != nil {
			return nil, err
		}
		if prev, ok := byYear[y]; ok {
			return nil, &domain.ColumnFormatError{
				Column: h,
				Reason: fmt.Sprintf("year %d already encoded by %q", y, prev),
			}
		}
		byYear[y] = h
		out = append(out, YearColumn{Name: h, Year: y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// Clamp limits rate to [-limit, +limit].
func Clamp(rate, limit float64) float64 {
	switch {
	case rate > limit:
		return limit
	case rate < -limit:
		return -limit
	default:
		return rate
	}
}

// Rate returns the annual growth rate implied by the observations, which
// must be sorted by year: the summed change over consecutive pairs divided
// by the summed elapsed years, relative to the earliest population.
func Rate(obs []Observation) (float64, error) {
	if len(obs) < 2 {
		return 0, &domain.DomainError{
			Code:   domain.CodeInsufficientHistory,
			Detail: fmt.Sprintf("need at least two census values, have %d", len(obs)),
		}
	}
	var change, years float64
	for i := 1; i < len(obs); i++ {
		change += obs[i].Population - obs[i-1].Population
		years += float64(obs[i].Year - obs[i-1].Year)
	}
	if obs[0].Population == 0 {
		return 0, &domain.DomainError{
			Code:   domain.CodeZeroBaseline,
			Detail: fmt.Sprintf("earliest population (%d) is zero", obs[0].Year),
		}
	}
	return change / years / obs[0].Population, nil
}

// Observation is one census value of a ward.
type Observation struct {
	Year       int
	Population float64
}

// Project compounds latest forward to targetYear at rate.
func Project(latest Observation, rate float64, targetYear int) float64 {
	return latest.Population * math.Pow(1+rate, float64(targetYear-latest.Year))
}

// Result is a forecast table plus the names of the columns it added.
type Result struct {
	Table           *domain.WardTable
	Years           []YearColumn
	ProjectedColumn string
}

// Forecast computes a clamped growth rate per ward from every census column
// of pop and projects each ward to targetYear. The returned table holds the
// original columns followed by RateColumn and the projected column. Missing
// cells are skipped; a ward needs at least two census values.
func Forecast(pop *domain.WardTable, targetYear int, growthCap float64) (Result, error) {
	if math.IsNaN(growthCap) || growthCap < 0 {
		return Result{}, &domain.ParameterError{Name: "growth_cap", Value: growthCap, Reason: "must be non-negative"}
	}
	years, err := ParseYearColumns(pop.Columns())
	if err != nil {
		return Result{}, err
	}
	if len(years) < 2 {
		return Result{}, &domain.DomainError{
			Code:   domain.CodeInsufficientHistory,
			Detail: fmt.Sprintf("need at least two census columns, have %d", len(years)),
		}
	}
	last := years[len(years)-1]
	if targetYear <= last.Year {
		return Result{}, &domain.ParameterError{
			Name:   "target_year",
			Value:  targetYear,
			Reason: fmt.Sprintf("must follow latest census year %d", last.Year),
		}
	}
	projected := projectedName(last, targetYear)

	out := pop.Clone()
	out.AddColumn(RateColumn)
	out.AddColumn(projected)
	for _, w := range pop.Wards() {
		obs := make([]Observation, 0, len(years))
		for _, yc := range years {
			if v, ok := pop.Get(w, yc.Name); ok && !math.IsNaN(v) {
				obs = append(obs, Observation{Year: yc.Year, Population: v})
			}
		}
		rate, err := Rate(obs)
		if err != nil {
			var de *domain.DomainError
			if errors.As(err, &de) {
				de.Subject = "ward " + string(w)
			}
			return Result{}, err
		}
		rate = Clamp(rate, growthCap)
		out.Set(w, RateColumn, rate)
		out.Set(w, projected, Project(obs[len(obs)-1], rate, targetYear))
	}
	return Result{Table: out, Years: years, ProjectedColumn: projected}, nil
}

// projectedName reuses the latest header with its year replaced, so
// "Pop_2021" projected to 2031 becomes "Pop_2031".
func projectedName(latest YearColumn, targetYear int) string {
	ys := strconv.Itoa(latest.Year)
	if strings.Count(latest.Name, ys) == 1 {
		return strings.Replace(latest.Name, ys, strconv.Itoa(targetYear), 1)
	}
	return strconv.Itoa(targetYear)
}
