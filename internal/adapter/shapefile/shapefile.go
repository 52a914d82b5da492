// Package shapefile loads ward, service area and subcatchment polygons.
package shapefile

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/spatial"
)

// Options controls how a shapefile is read.
type Options struct {
	// IDField is the attribute holding each polygon's identifier.
	IDField string
	// SourceProj is used when the shapefile has no .prj sidecar.
	SourceProj string
	// TargetProj, when set, is the reference system zones are returned in.
	TargetProj string
	// WardIDs normalizes numeric identifiers ("3.0" -> "3") so they match
	// spreadsheet ward keys.
	WardIDs bool
}

// Load reads every polygon of the shapefile at path.
func Load(path string, opts Options) ([]spatial.Zone, error) {
	if opts.IDField == "" {
		return nil, &domain.ParameterError{Name: "id_field", Value: "", Reason: "must name an attribute column"}
	}
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	trans, err := transformFor(dec, opts)
	if err != nil {
		return nil, fmt.Errorf("shapefile %s: %w", path, err)
	}

	var zones []spatial.Zone
	for {
		g, fields, more := dec.DecodeRowFields(opts.IDField)
		if !more {
			break
		}
		raw, ok := fields[opts.IDField]
		if !ok {
			return nil, &domain.ColumnFormatError{Column: opts.IDField, Reason: "missing from " + path}
		}
		id := strings.TrimSpace(strings.ReplaceAll(raw, "\x00", ""))
		if opts.WardIDs {
			id = string(domain.NormalizeWardID(id))
		}
		if trans != nil {
			if g, err = g.Transform(trans); err != nil {
				return nil, fmt.Errorf("reproject %s %s: %w", opts.IDField, id, err)
			}
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("shapefile %s: feature %s is %T, want polygons", path, id, g)
		}
		zones = append(zones, spatial.Zone{ID: id, Geometry: poly})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode shapefile %s: %w", path, err)
	}
	if err := spatial.CheckUniqueIDs(zones); err != nil {
		return nil, fmt.Errorf("shapefile %s: %w", path, err)
	}
	return zones, nil
}

func transformFor(dec *shp.Decoder, opts Options) (proj.Transformer, error) {
	if opts.TargetProj == "" {
		return nil, nil
	}
	src, err := dec.SR()
	if err != nil {
		if opts.SourceProj == "" {
			return nil, fmt.Errorf("no .prj file and no source projection given: %w", err)
		}
		if opts.SourceProj == opts.TargetProj {
			return nil, nil
		}
		if src, err = proj.Parse(opts.SourceProj); err != nil {
			return nil, fmt.Errorf("parse source projection: %w", err)
		}
	}
	dst, err := proj.Parse(opts.TargetProj)
	if err != nil {
		return nil, fmt.Errorf("parse target projection: %w", err)
	}
	return src.NewTransform(dst)
}
