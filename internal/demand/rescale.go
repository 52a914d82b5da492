package demand

import (
	"gonum.org/v1/gonum/floats"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Rescale distributes censusNum over wards in proportion to the raw counts
// in column category of counts. The result has one column named category
// and a row for every ward of counts; its values sum to censusNum.
//
// A missing count is read as zero. A zero censusNum yields zero for every
// ward whatever was counted. Otherwise, if no ward has a count the
// distribution is undefined and a DomainError is returned.
func Rescale(counts *domain.WardTable, category string, censusNum float64) (*domain.WardTable, error) {
	if censusNum == 0 {
		out := domain.NewWardTable(category)
		for _, w := range counts.Wards() {
			out.Set(w, category, 0)
		}
		return out, nil
	}
	if !counts.HasColumn(category) {
		return nil, &domain.DomainError{
			Code:    domain.CodeNoObservations,
			Subject: "category " + category,
			Detail:  "no points were counted",
		}
	}
	wards := counts.Wards()
	raw := make([]float64, len(wards))
	for i, w := range wards {
		v, _ := counts.Get(w, category)
		raw[i] = v
	}
	total := floats.Sum(raw)
	if total == 0 {
		return nil, &domain.DomainError{
			Code:    domain.CodeNoObservations,
			Subject: "category " + category,
			Detail:  "raw counts sum to zero, cannot distribute census total",
		}
	}

	out := domain.NewWardTable(category)
	for i, w := range wards {
		out.Set(w, category, raw[i]/total*censusNum)
	}
	return out, nil
}
