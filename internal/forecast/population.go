package forecast

import (
	"fmt"

	"github.com/alluvium/nepal-weap-prep/internal/demand"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// PopulationForYear turns a projected population column into the
// population table the demand model consumes. Each ward keeps its census
// average household size, and households are projected population divided
// by that size. Wards absent from census are an error.
func PopulationForYear(projected Result, census *domain.WardTable) (*domain.WardTable, error) {
	if !census.HasColumn(demand.ColAvgHouseholdSize) {
		return nil, fmt.Errorf("population for year: census table lacks column %q", demand.ColAvgHouseholdSize)
	}
	out := domain.NewWardTable(demand.ColTotalPopulation, demand.ColHouseholds, demand.ColAvgHouseholdSize)
	for _, w := range projected.Table.Wards() {
		pop, ok := projected.Table.Get(w, projected.ProjectedColumn)
		if !ok {
			return nil, fmt.Errorf("population for year: ward %s has no projection", w)
		}
		size, ok := census.Get(w, demand.ColAvgHouseholdSize)
		if !ok {
			return nil, fmt.Errorf("population for year: ward %s has no average household size", w)
		}
		if size <= 0 {
			return nil, &domain.DomainError{
				Code:    domain.CodeZeroBaseline,
				Subject: "ward " + string(w),
				Detail:  "average household size must be positive",
			}
		}
		out.Set(w, demand.ColTotalPopulation, pop)
		out.Set(w, demand.ColHouseholds, pop/size)
		out.Set(w, demand.ColAvgHouseholdSize, size)
	}
	return out, nil
}
