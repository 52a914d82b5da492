package demand

import (
	"fmt"
	"log/slog"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Input column names, as they appear in the census workbooks.
const (
	ColTotalPopulation  = "Total population"
	ColHouseholds       = "Number of households"
	ColAvgHouseholdSize = "Average household size"
	ColStudents         = "Currently attending"
)

// Output demand columns, each in m3/d.
const (
	ColDomestic      = "Domestic demand"
	ColInstitutional = "Institutional demand"
	ColCommercial    = "Commercial demand"
	ColMunicipal     = "Municipal demand"
	ColIndustrial    = "Industrial demand"
	ColTotal         = "Total demand"
)

// Unit is the unit of every demand column.
const Unit = "m3/d"

// DemandColumns lists the output columns in export order.
var DemandColumns = []string{
	ColDomestic, ColInstitutional, ColCommercial, ColMunicipal, ColIndustrial, ColTotal,
}

// Components are the independently sourced ward tables that feed the
// demand model. Scaled holds one column per commercial category, as
// produced by Rescale.
type Components struct {
	Population *domain.WardTable
	Students   *domain.WardTable
	Scaled     *domain.WardTable
}

// DomesticDemand returns household demand for a ward.
func DomesticDemand(households, avgSize float64, p Params) float64 {
	pop := households * avgSize
	plumbed := pop * p.plumbedFraction()
	unplumbed := pop * (1 - p.plumbedFraction())
	return plumbed*p.DemandFullPlumb + unplumbed*p.DemandNotPlumb
}

// InstitutionalDemand returns education demand for a ward.
func InstitutionalDemand(students float64, p Params) float64 {
	return students * p.DemandStudent
}

// CommercialDemand returns amenity demand plus the per-person remainder.
// scaled maps category to the ward's census-scaled amenity count.
func CommercialDemand(scaled map[string]float64, totalPopulation float64, p Params) float64 {
	d := 0.0
	for _, c := range p.Commercial {
		d += scaled[c.Category] * c.BedsPerUnit * c.DemandPerBed
	}
	if p.DemandPerOther > 0 {
		d += totalPopulation / p.OtherDenominator * p.DemandPerOther
	}
	return d
}

// Aggregate outer-joins the component tables on ward, fills gaps with zero
// and computes every demand column. The returned count is the number of
// cells filled during the merge.
func Aggregate(in Components, p Params, logger *slog.Logger) (*domain.WardTable, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}
	if in.Population == nil {
		return nil, 0, fmt.Errorf("aggregate: population table is required")
	}
	for _, c := range []string{ColTotalPopulation, ColHouseholds, ColAvgHouseholdSize} {
		if !in.Population.HasColumn(c) {
			return nil, 0, fmt.Errorf("aggregate: population table lacks column %q", c)
		}
	}

	merged, err := in.Population.Select(ColTotalPopulation, ColHouseholds, ColAvgHouseholdSize)
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate: %w", err)
	}
	students := in.Students
	if students != nil {
		if students, err = students.Select(ColStudents); err != nil {
			return nil, 0, fmt.Errorf("aggregate: students table: %w", err)
		}
	}
	filled := 0
	for _, t := range []*domain.WardTable{students, in.Scaled} {
		if t == nil {
			continue
		}
		var n int
		merged, n, err = domain.OuterJoin(merged, t, domain.FillZero)
		if err != nil {
			return nil, 0, fmt.Errorf("aggregate: %w", err)
		}
		filled += n
	}
	needed := append(merged.Columns(), ColStudents)
	for _, c := range p.Commercial {
		needed = append(needed, c.Category)
	}
	n, err := merged.Fill(domain.FillZero, needed...)
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate: %w", err)
	}
	filled += n
	if filled > 0 {
		logger.Warn("missing ward values filled with zero", "cells", filled)
	}

	out := domain.NewWardTable(DemandColumns...)
	for _, w := range merged.Wards() {
		r := merged.Row(w)
		scaled := make(map[string]float64, len(p.Commercial))
		for _, c := range p.Commercial {
			scaled[c.Category] = r[c.Category]
		}
		dom := DomesticDemand(r[ColHouseholds], r[ColAvgHouseholdSize], p)
		inst := InstitutionalDemand(r[ColStudents], p)
		com := CommercialDemand(scaled, r[ColTotalPopulation], p)
		base := dom + inst + com
		mun := base * p.MunicipalFraction
		ind := base * p.IndustrialFraction

		out.Set(w, ColDomestic, dom)
		out.Set(w, ColInstitutional, inst)
		out.Set(w, ColCommercial, com)
		out.Set(w, ColMunicipal, mun)
		out.Set(w, ColIndustrial, ind)
		out.Set(w, ColTotal, dom+inst+com+mun+ind)
	}
	return out, filled, nil
}
