package zonal

import (
	"fmt"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// WEAP land use classes and the ICIMOD categories summed into each.
var lulcRollup = []struct {
	name    string
	sources []string
}{
	{"Agriculture", []string{"Cropland"}},
	{"Forest", []string{"Forest", "Other wooded land"}},
	{"Grassland", []string{"Grassland", "Bare soil", "Bare rock"}},
	{"Waterbody", []string{"Waterbody", "Riverbed"}},
	{"Urban", []string{"Built-up area"}},
}

// LULCOptions controls land use export.
type LULCOptions struct {
	// Area prefixes every output name.
	Area string
	// Years run from StartYear up to but excluding EndYear.
	StartYear int
	EndYear   int
	// PixelSize is the raster resolution in metres.
	PixelSize float64
}

// LULCAreas converts per-subcatchment ICIMOD cell counts into one dataset
// per subcatchment. Each dataset has a row per year holding the same
// hectare areas.
func LULCAreas(counts *domain.WardTable, opts LULCOptions) ([]domain.Dataset, error) {
	if opts.PixelSize <= 0 {
		return nil, &domain.ParameterError{Name: "pixel_size", Value: opts.PixelSize, Reason: "must be positive"}
	}
	if opts.EndYear <= opts.StartYear {
		return nil, &domain.ParameterError{
			Name:   "end_year",
			Value:  opts.EndYear,
			Reason: fmt.Sprintf("must be after start_year %d", opts.StartYear),
		}
	}
	for _, r := range lulcRollup {
		for _, s := range r.sources {
			if !counts.HasColumn(s) {
				return nil, fmt.Errorf("lulc: count table lacks category %q", s)
			}
		}
	}
	pixelHa := opts.PixelSize * opts.PixelSize / 10000

	columns := make([]string, len(lulcRollup))
	for i, r := range lulcRollup {
		columns[i] = r.name
	}

	out := make([]domain.Dataset, 0, counts.Len())
	for _, sub := range counts.Wards() {
		row := counts.Row(sub)
		areas := make([]float64, len(lulcRollup))
		for i, r := range lulcRollup {
			for _, s := range r.sources {
				areas[i] += row[s] * pixelHa
			}
		}
		tbl := domain.Table{Index: "Year", Columns: columns}
		for y := opts.StartYear; y < opts.EndYear; y++ {
			tbl.Rows = append(tbl.Rows, domain.Row{
				Key:    fmt.Sprint(y),
				Values: append([]float64(nil), areas...),
			})
		}
		out = append(out, domain.Dataset{
			Name:     fmt.Sprintf("%s_%s_LULC_Areas", opts.Area, sub),
			Unit:     "ha",
			Preamble: []string{"# Catchment " + string(sub)},
			Table:    tbl,
		})
	}
	return out, nil
}
