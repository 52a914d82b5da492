package spatial

import (
	"fmt"
	"log/slog"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Piece is the part of one ward that lies inside a service area.
type Piece struct {
	Ward         domain.WardID
	OriginalArea float64
	NewArea      float64
	AreaFraction float64
	// Geometry is expressed in the caller's reference system.
	Geometry geom.Polygonal
	Values   map[string]float64
}

// ServiceAreaDemand holds ward values reallocated onto one service area.
type ServiceAreaDemand struct {
	ServiceArea string
	Columns     []string
	Totals      map[string]float64
	Pieces      []Piece
}

// Interpolator reallocates ward values onto service areas assuming each
// value is spread uniformly over its ward's area. Areas are measured in the
// projector's target (equal-area) reference system.
type Interpolator struct {
	proj    *Projector
	missing domain.FillPolicy
	logger  *slog.Logger
}

// InterpolatorOption configures an Interpolator.
type InterpolatorOption func(*Interpolator)

// WithMissingPolicy sets how wards lacking a value are treated. The default
// is domain.ErrorOnMissing.
func WithMissingPolicy(p domain.FillPolicy) InterpolatorOption {
	return func(ip *Interpolator) { ip.missing = p }
}

// NewInterpolator creates an Interpolator. proj maps caller geometry into an
// equal-area reference system.
func NewInterpolator(proj *Projector, logger *slog.Logger, opts ...InterpolatorOption) *Interpolator {
	ip := &Interpolator{proj: proj, missing: domain.ErrorOnMissing, logger: logger}
	for _, o := range opts {
		o(ip)
	}
	return ip
}

// Interpolate computes, for every column, the sum over wards of
// value * (area of ward inside area / area of ward). Wards outside the
// service area contribute nothing; a service area touching no ward yields
// zero totals.
func (ip *Interpolator) Interpolate(wards []Zone, values *domain.WardTable, columns []string, area Zone) (ServiceAreaDemand, error) {
	if err := checkColumns(values, columns); err != nil {
		return ServiceAreaDemand{}, err
	}
	projected, err := ip.proj.ForwardZones(wards)
	if err != nil {
		return ServiceAreaDemand{}, fmt.Errorf("interpolate: %w", err)
	}
	return ip.interpolate(projected, values, columns, area)
}

func checkColumns(values *domain.WardTable, columns []string) error {
	for _, c := range columns {
		if !values.HasColumn(c) {
			return fmt.Errorf("interpolate: unknown column %q", c)
		}
	}
	return nil
}

// interpolate reallocates onto area from wards already in the equal-area
// reference system.
func (ip *Interpolator) interpolate(projected []Zone, values *domain.WardTable, columns []string, area Zone) (ServiceAreaDemand, error) {
	target, err := ip.proj.Forward(area.Geometry)
	if err != nil {
		return ServiceAreaDemand{}, fmt.Errorf("interpolate: project service area %s: %w", area.ID, err)
	}

	out := ServiceAreaDemand{
		ServiceArea: area.ID,
		Columns:     append([]string(nil), columns...),
		Totals:      make(map[string]float64, len(columns)),
	}
	contrib := make(map[string][]float64, len(columns))
	targetBounds := target.Bounds()

	for _, w := range projected {
		if !targetBounds.Overlaps(w.Geometry.Bounds()) {
			continue
		}
		ogArea := w.Geometry.Area()
		if ogArea <= 0 {
			return ServiceAreaDemand{}, &domain.DomainError{
				Code:    domain.CodeZeroArea,
				Subject: "ward " + w.ID,
				Detail:  "ward polygon has no area in the equal-area projection",
			}
		}

		var piece geom.Polygonal
		var newArea float64
		if containedIn(w.Geometry, target) {
			piece, newArea = w.Geometry, ogArea
		} else {
			isect := target.Intersection(w.Geometry)
			if isect == nil {
				continue
			}
			piece, newArea = isect, isect.Area()
		}
		if newArea <= 0 {
			continue
		}
		frac := newArea / ogArea
		if frac > 1 {
			frac = 1
		}

		id := domain.WardID(w.ID)
		p := Piece{
			Ward:         id,
			OriginalArea: ogArea,
			NewArea:      newArea,
			AreaFraction: frac,
			Values:       make(map[string]float64, len(columns)),
		}
		for _, c := range columns {
			v, ok := values.Get(id, c)
			if !ok {
				if ip.missing == domain.ErrorOnMissing {
					return ServiceAreaDemand{}, fmt.Errorf("interpolate: ward %s has no value for %q", id, c)
				}
				ip.logger.Warn("ward value missing, treated as zero", "ward", string(id), "column", c)
				v = 0
			}
			p.Values[c] = v * frac
			contrib[c] = append(contrib[c], v*frac)
		}
		if p.Geometry, err = ip.proj.Inverse(piece); err != nil {
			return ServiceAreaDemand{}, fmt.Errorf("interpolate: reproject piece of ward %s: %w", id, err)
		}
		out.Pieces = append(out.Pieces, p)
	}

	for _, c := range columns {
		if len(contrib[c]) == 0 {
			out.Totals[c] = 0
			continue
		}
		out.Totals[c] = floats.Sum(contrib[c])
	}
	ip.logger.Debug("service area interpolated",
		"service_area", area.ID,
		"pieces", len(out.Pieces),
	)
	return out, nil
}

// InterpolateAll runs Interpolate once per service area, in order. Wards
// are projected once for all areas.
func (ip *Interpolator) InterpolateAll(wards []Zone, values *domain.WardTable, columns []string, areas []Zone) ([]ServiceAreaDemand, error) {
	if err := CheckUniqueIDs(wards); err != nil {
		return nil, &domain.ParameterError{Name: "wards", Value: len(wards), Reason: err.Error()}
	}
	if err := checkColumns(values, columns); err != nil {
		return nil, err
	}
	projected, err := ip.proj.ForwardZones(wards)
	if err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}
	out := make([]ServiceAreaDemand, 0, len(areas))
	for _, a := range areas {
		r, err := ip.interpolate(projected, values, columns, a)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ServiceAreaTable concatenates interpolation results into one table with a
// row per service area.
func ServiceAreaTable(results []ServiceAreaDemand, columns []string) domain.Table {
	t := domain.Table{Index: "Service_Area", Columns: append([]string(nil), columns...)}
	for _, r := range results {
		vals := make([]float64, len(columns))
		for i, c := range columns {
			vals[i] = r.Totals[c]
		}
		t.Rows = append(t.Rows, domain.Row{Key: r.ServiceArea, Values: vals})
	}
	return t
}

// containedIn reports whether inner lies entirely inside outer: every vertex
// and edge midpoint of inner is inside or on outer, and no vertex of outer
// is strictly inside inner. Fully covered wards skip polygon clipping.
func containedIn(inner, outer geom.Polygonal) bool {
	if !outer.Bounds().Overlaps(inner.Bounds()) {
		return false
	}
	for _, poly := range inner.Polygons() {
		for _, path := range poly {
			n := len(path)
			for i, pt := range path {
				if pt.Within(outer) == geom.Outside {
					return false
				}
				next := path[(i+1)%n]
				mid := geom.Point{X: (pt.X + next.X) / 2, Y: (pt.Y + next.Y) / 2}
				if mid.Within(outer) == geom.Outside {
					return false
				}
			}
		}
	}
	for _, poly := range outer.Polygons() {
		for _, path := range poly {
			for _, pt := range path {
				if pt.Within(inner) == geom.Inside {
					return false
				}
			}
		}
	}
	return true
}
