package domain

import "context"

// AmenityPoint is a located amenity returned by a LocationLookup, in
// geographic coordinates (EPSG:4326).
type AmenityPoint struct {
	Name     string
	Category string
	Lat      float64
	Lon      float64
}

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// LocationLookup finds amenity locations matching every key=value pair of
// tags inside bbox. Implementations may return an empty slice and must not
// return the same feature twice.
type LocationLookup interface {
	FindPoints(ctx context.Context, tags map[string]string, bbox BBox) ([]AmenityPoint, error)
}
