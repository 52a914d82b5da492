// Package zonal counts categorical raster cells inside polygons and turns
// land cover counts into WEAP land use area tables.
package zonal

import (
	"log/slog"
	"sort"

	"github.com/ctessum/geom"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/spatial"
)

// NoneClass is the reserved category for unclassified cells. It is always
// the last column of a count table.
const NoneClass = "None"

// ClassMap maps raster cell codes to category names.
type ClassMap map[int]string

// ICIMOD returns the ICIMOD land cover classification.
func ICIMOD() ClassMap {
	return ClassMap{
		1:  "Waterbody",
		2:  "Glacier",
		3:  "Snow",
		4:  "Forest",
		5:  "Riverbed",
		6:  "Built-up area",
		7:  "Cropland",
		8:  "Bare soil",
		9:  "Bare rock",
		10: "Grassland",
		11: "Other wooded land",
		15: NoneClass,
	}
}

// Categories returns category names ordered by code, each name once, with
// NoneClass moved to the end.
func (m ClassMap) Categories() []string {
	codes := make([]int, 0, len(m))
	for c := range m {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	seen := map[string]bool{NoneClass: true}
	out := make([]string, 0, len(codes)+1)
	for _, c := range codes {
		if name := m[c]; !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return append(out, NoneClass)
}

// CountCategories counts, for each polygon, the raster cells whose centre
// lies strictly inside it, by category. Codes absent from classes count as
// NoneClass and no-data cells are ignored. Every polygon appears in the
// result and every category of classes is a column, zero filled. Polygons
// must be in the raster's reference system.
func CountCategories(r *domain.Raster, polygons []spatial.Zone, classes ClassMap, logger *slog.Logger) (*domain.WardTable, error) {
	if err := spatial.CheckUniqueIDs(polygons); err != nil {
		return nil, &domain.ParameterError{Name: "polygons", Value: len(polygons), Reason: err.Error()}
	}
	if r.CellSize <= 0 || r.Cols <= 0 || r.Rows <= 0 || len(r.Values) != r.Cols*r.Rows {
		return nil, &domain.ParameterError{Name: "raster", Value: r.CellSize, Reason: "grid dimensions are inconsistent"}
	}

	out := domain.NewWardTable(classes.Categories()...)
	for _, p := range polygons {
		id := domain.WardID(p.ID)
		out.AddWard(id)
		counts := make(map[string]int)

		b := p.Geometry.Bounds()
		c0, c1, r0, r1, ok := r.CellRange(b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
		if ok {
			for row := r0; row <= r1; row++ {
				for col := c0; col <= c1; col++ {
					v := r.At(col, row)
					if r.IsNoData(v) {
						continue
					}
					x, y := r.CellCenter(col, row)
					if (geom.Point{X: x, Y: y}).Within(p.Geometry) != geom.Inside {
						continue
					}
					name, known := classes[int(v)]
					if !known {
						name = NoneClass
					}
					counts[name]++
				}
			}
		}
		for _, c := range out.Columns() {
			out.Set(id, c, float64(counts[c]))
		}
		logger.Debug("zonal counts computed", "polygon", p.ID, "cells", sum(counts))
	}
	return out, nil
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
