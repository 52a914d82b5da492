package demand

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/spatial"
)

// UrbanInputs are the loaded inputs for one municipality. Ward geometry is
// in EPSG:4326; service areas are in the same reference system.
type UrbanInputs struct {
	Municipality string
	Wards        []spatial.Zone
	Population   *domain.WardTable
	Students     *domain.WardTable
	ServiceAreas []spatial.Zone
}

// UrbanResult is the ward demand table plus its reallocation onto each
// service area.
type UrbanResult struct {
	Wards        *domain.WardTable
	Counts       *spatial.PointCounts
	ServiceAreas []spatial.ServiceAreaDemand
	FilledCells  int
}

// Datasets returns the exportable tables: ward demand, then service-area
// demand when service areas were given.
func (r UrbanResult) Datasets(municipality string) []domain.Dataset {
	out := []domain.Dataset{{
		Name:  municipality + "_Ward_Demand",
		Unit:  Unit,
		Table: r.Wards.ToTable("Ward"),
	}}
	if len(r.ServiceAreas) > 0 {
		out = append(out, domain.Dataset{
			Name:  municipality + "_Service_Area_Demand",
			Unit:  Unit,
			Table: spatial.ServiceAreaTable(r.ServiceAreas, DemandColumns),
		})
	}
	return out
}

// UrbanDemand runs amenity lookup, ward counting, census rescaling, demand
// aggregation and service-area interpolation for one municipality.
type UrbanDemand struct {
	lookup domain.LocationLookup
	interp *spatial.Interpolator
	logger *slog.Logger
}

// NewUrbanDemand creates an UrbanDemand.
func NewUrbanDemand(lookup domain.LocationLookup, interp *spatial.Interpolator, logger *slog.Logger) *UrbanDemand {
	return &UrbanDemand{lookup: lookup, interp: interp, logger: logger}
}

// Build computes ward and service-area demand.
func (u *UrbanDemand) Build(ctx context.Context, in UrbanInputs, p Params) (UrbanResult, error) {
	if err := p.Validate(); err != nil {
		return UrbanResult{}, err
	}
	if len(in.Wards) == 0 {
		return UrbanResult{}, &domain.ParameterError{Name: "wards", Value: 0, Reason: "at least one ward polygon is required"}
	}

	ext := spatial.ExtentOf(in.Wards)
	bbox := domain.BBox{MinLat: ext.Min.Y, MinLon: ext.Min.X, MaxLat: ext.Max.Y, MaxLon: ext.Max.X}

	var points []domain.AmenityPoint
	categories := make([]string, 0, len(p.Commercial))
	for _, c := range p.Commercial {
		found, err := u.lookup.FindPoints(ctx, c.Tags, bbox)
		if err != nil {
			return UrbanResult{}, fmt.Errorf("look up %s locations: %w", c.Category, err)
		}
		for i := range found {
			found[i].Category = c.Category
		}
		u.logger.Info("amenity locations found",
			"municipality", in.Municipality,
			"category", c.Category,
			"count", len(found),
		)
		points = append(points, found...)
		categories = append(categories, c.Category)
	}

	counts, err := spatial.CountPoints(points, in.Wards, u.logger, categories...)
	if err != nil {
		return UrbanResult{}, fmt.Errorf("count amenities: %w", err)
	}
	countTable := counts.WardTable()

	var scaled *domain.WardTable
	for _, c := range p.Commercial {
		s, err := Rescale(countTable, c.Category, c.CensusCount)
		if err != nil {
			return UrbanResult{}, err
		}
		if scaled == nil {
			scaled = s
			continue
		}
		if scaled, _, err = domain.OuterJoin(scaled, s, domain.FillZero); err != nil {
			return UrbanResult{}, fmt.Errorf("merge scaled counts: %w", err)
		}
	}

	wards, filled, err := Aggregate(Components{
		Population: in.Population,
		Students:   in.Students,
		Scaled:     scaled,
	}, p, u.logger)
	if err != nil {
		return UrbanResult{}, err
	}

	res := UrbanResult{Wards: wards, Counts: counts, FilledCells: filled}
	if len(in.ServiceAreas) == 0 {
		return res, nil
	}
	res.ServiceAreas, err = u.interp.InterpolateAll(in.Wards, wards, DemandColumns, in.ServiceAreas)
	if err != nil {
		return UrbanResult{}, fmt.Errorf("interpolate service areas: %w", err)
	}
	return res, nil
}
