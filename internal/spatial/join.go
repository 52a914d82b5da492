package spatial

import (
	"log/slog"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// PointCounts holds the number of amenity points of each category that fall
// strictly inside each ward. Every ward passed to CountPoints is present,
// including wards with no points.
type PointCounts struct {
	wards      []string
	categories []string
	counts     map[string]map[string]int
	// Dropped is the number of points discarded for non-finite coordinates.
	Dropped int
	// Unassigned is the number of valid points that fell inside no ward.
	Unassigned int
}

// Wards returns ward identifiers in input order.
func (c *PointCounts) Wards() []string { return append([]string(nil), c.wards...) }

// Categories returns the counted categories in first-seen order.
func (c *PointCounts) Categories() []string { return append([]string(nil), c.categories...) }

// Count returns the number of category points inside ward.
func (c *PointCounts) Count(ward, category string) int {
	return c.counts[ward][category]
}

// Total returns the number of category points assigned to any ward.
func (c *PointCounts) Total(category string) int {
	n := 0
	for _, w := range c.wards {
		n += c.counts[w][category]
	}
	return n
}

// WardTable converts the counts into a ward table with one column per
// category.
func (c *PointCounts) WardTable() *domain.WardTable {
	t := domain.NewWardTable(c.categories...)
	for _, w := range c.wards {
		id := domain.WardID(w)
		t.AddWard(id)
		for _, cat := range c.categories {
			t.Set(id, cat, float64(c.counts[w][cat]))
		}
	}
	return t
}

// CountPoints assigns each point to the ward that strictly contains it and
// counts points per ward and category. Points on a ward boundary or outside
// every ward are not assigned. When wards overlap, the earliest ward in
// input order wins. Categories listed in categories are always reported,
// even with zero points.
//
// Points use X = longitude and Y = latitude, and ward geometries must be in
// the same reference system.
func CountPoints(points []domain.AmenityPoint, wards []Zone, logger *slog.Logger, categories ...string) (*PointCounts, error) {
	if err := CheckUniqueIDs(wards); err != nil {
		return nil, &domain.ParameterError{Name: "wards", Value: len(wards), Reason: err.Error()}
	}

	type item struct {
		geom.Polygonal
		id    string
		order int
	}
	index := rtree.NewTree(25, 50)
	res := &PointCounts{
		wards:  make([]string, len(wards)),
		counts: make(map[string]map[string]int, len(wards)),
	}
	for i := range wards {
		index.Insert(&item{Polygonal: wards[i].Geometry, id: wards[i].ID, order: i})
		res.wards[i] = wards[i].ID
		res.counts[wards[i].ID] = make(map[string]int)
	}

	seen := make(map[string]bool)
	addCategory := func(cat string) {
		if !seen[cat] {
			seen[cat] = true
			res.categories = append(res.categories, cat)
		}
	}
	for _, cat := range categories {
		addCategory(cat)
	}

	for _, p := range points {
		if !finite(p.Lon) || !finite(p.Lat) {
			res.Dropped++
			continue
		}
		addCategory(p.Category)
		pt := geom.Point{X: p.Lon, Y: p.Lat}
		best := -1
		var bestID string
		for _, c := range index.SearchIntersect(pt.Bounds()) {
			it := c.(*item)
			if best >= 0 && it.order > best {
				continue
			}
			if pt.Within(it.Polygonal) == geom.Inside {
				best = it.order
				bestID = it.id
			}
		}
		if best < 0 {
			res.Unassigned++
			continue
		}
		res.counts[bestID][p.Category]++
	}

	if res.Dropped > 0 {
		logger.Warn("dropped points with invalid coordinates", "count", res.Dropped)
	}
	logger.Debug("points assigned to wards",
		"points", len(points),
		"wards", len(wards),
		"unassigned", res.Unassigned,
	)
	return res, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
