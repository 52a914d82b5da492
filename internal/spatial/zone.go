// Package spatial assigns amenity points to wards and reallocates ward
// values onto utility service areas by equal-area overlay.
package spatial

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Zone is an identified polygon: a ward, a utility service area or a
// subcatchment.
type Zone struct {
	ID       string
	Geometry geom.Polygonal
}

// CheckUniqueIDs returns an error naming the first repeated zone identifier.
func CheckUniqueIDs(zones []Zone) error {
	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		if seen[z.ID] {
			return fmt.Errorf("duplicate zone identifier %q", z.ID)
		}
		seen[z.ID] = true
	}
	return nil
}

// ExtentOf returns the combined bounds of all zones.
func ExtentOf(zones []Zone) *geom.Bounds {
	b := geom.NewBounds()
	for _, z := range zones {
		b.Extend(z.Geometry.Bounds())
	}
	return b
}

// Projection strings.
const (
	// GeographicProj is WGS84 longitude/latitude (EPSG:4326).
	GeographicProj = "+proj=longlat +datum=WGS84 +no_defs"
	// DefaultEqualAreaProj is the Asia North Albers equal-area conic
	// (ESRI:102025), which covers Nepal with negligible area error.
	DefaultEqualAreaProj = "+proj=aea +lat_1=15 +lat_2=65 +lat_0=30 +lon_0=95 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs"
)

// Projector moves polygons between a source reference system and a target
// reference system. An identity projector leaves geometry untouched.
type Projector struct {
	forward proj.Transformer
	inverse proj.Transformer
}

// IdentityProjector returns a projector for geometry that is already in the
// target reference system.
func IdentityProjector() *Projector { return &Projector{} }

// NewProjector builds forward and inverse transforms between two proj4
// definitions. Identical definitions yield an identity projector.
func NewProjector(source, target string) (*Projector, error) {
	if source == target {
		return IdentityProjector(), nil
	}
	src, err := proj.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse source projection: %w", err)
	}
	dst, err := proj.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target projection: %w", err)
	}
	fwd, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("forward transform: %w", err)
	}
	inv, err := dst.NewTransform(src)
	if err != nil {
		return nil, fmt.Errorf("inverse transform: %w", err)
	}
	return &Projector{forward: fwd, inverse: inv}, nil
}

// Forward projects g into the target reference system.
func (p *Projector) Forward(g geom.Polygonal) (geom.Polygonal, error) {
	return transformPolygonal(g, p.forward)
}

// Inverse projects g back into the source reference system.
func (p *Projector) Inverse(g geom.Polygonal) (geom.Polygonal, error) {
	return transformPolygonal(g, p.inverse)
}

// ForwardZones projects every zone geometry.
func (p *Projector) ForwardZones(zones []Zone) ([]Zone, error) {
	out := make([]Zone, len(zones))
	for i, z := range zones {
		g, err := p.Forward(z.Geometry)
		if err != nil {
			return nil, fmt.Errorf("project zone %s: %w", z.ID, err)
		}
		out[i] = Zone{ID: z.ID, Geometry: g}
	}
	return out, nil
}

func transformPolygonal(g geom.Polygonal, t proj.Transformer) (geom.Polygonal, error) {
	if t == nil || g == nil {
		return g, nil
	}
	out, err := g.Transform(t)
	if err != nil {
		return nil, err
	}
	p, ok := out.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("transform produced %T, want polygonal geometry", out)
	}
	return p, nil
}
