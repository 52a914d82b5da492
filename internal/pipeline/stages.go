package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alluvium/nepal-weap-prep/internal/adapter/ascgrid"
	"github.com/alluvium/nepal-weap-prep/internal/adapter/excel"
	"github.com/alluvium/nepal-weap-prep/internal/adapter/shapefile"
	"github.com/alluvium/nepal-weap-prep/internal/dataset"
	"github.com/alluvium/nepal-weap-prep/internal/demand"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/forecast"
	"github.com/alluvium/nepal-weap-prep/internal/job"
	"github.com/alluvium/nepal-weap-prep/internal/observability"
	"github.com/alluvium/nepal-weap-prep/internal/spatial"
	"github.com/alluvium/nepal-weap-prep/internal/zonal"
)

// Stage kinds.
const (
	KindHydro        = "hydro"
	KindMeteo        = "meteo"
	KindLULC         = "lulc"
	KindUrbanDemand  = "urban_demand"
	KindFutureDemand = "future_demand"
)

// Deps are the shared collaborators of job stages.
type Deps struct {
	Lookup        domain.LocationLookup
	EqualAreaProj string
	Logger        *slog.Logger
	Metrics       *observability.Metrics
}

// StagesFromJob builds the stages of j in run order.
func StagesFromJob(j *job.Job, deps Deps) []Stage {
	var out []Stage
	for _, h := range j.Hydro {
		out = append(out, &hydroStage{cfg: h, logger: deps.Logger})
	}
	for _, m := range j.Meteo {
		out = append(out, &meteoStage{cfg: m, logger: deps.Logger})
	}
	for _, l := range j.LULC {
		out = append(out, &lulcStage{cfg: l, logger: deps.Logger})
	}
	for _, u := range j.UrbanDemand {
		out = append(out, &urbanStage{cfg: u, deps: deps})
	}
	for _, f := range j.FutureDemand {
		out = append(out, &futureStage{cfg: f, deps: deps})
	}
	return out
}

type hydroStage struct {
	cfg    job.Hydro
	logger *slog.Logger
}

func (s *hydroStage) Kind() string { return KindHydro }
func (s *hydroStage) Name() string { return dataset.SourceName(s.cfg.File) }

func (s *hydroStage) Prepare(_ context.Context) ([]domain.Dataset, error) {
	return dataset.PrepareHydro(dataset.HydroOptions{
		File:         s.cfg.File,
		Stations:     s.cfg.Stations,
		Start:        s.cfg.Start,
		End:          s.cfg.End,
		Measurements: s.cfg.Measurements,
		Units:        s.cfg.Units,
	}, s.logger)
}

type meteoStage struct {
	cfg    job.Meteo
	logger *slog.Logger
}

func (s *meteoStage) Kind() string { return KindMeteo }
func (s *meteoStage) Name() string { return dataset.SourceName(s.cfg.File) }

func (s *meteoStage) Prepare(_ context.Context) ([]domain.Dataset, error) {
	return dataset.PrepareMeteo(dataset.MeteoOptions{
		File:         s.cfg.File,
		Stations:     s.cfg.Stations,
		Start:        s.cfg.Start,
		End:          s.cfg.End,
		Measurements: s.cfg.Measurements,
		Units:        s.cfg.Units,
	}, s.logger)
}

type lulcStage struct {
	cfg    job.LULC
	logger *slog.Logger
}

func (s *lulcStage) Kind() string { return KindLULC }
func (s *lulcStage) Name() string { return s.cfg.Area }

// Prepare reprojects subcatchments into the raster's reference system and
// counts land cover cells within each.
func (s *lulcStage) Prepare(_ context.Context) ([]domain.Dataset, error) {
	raster, err := ascgrid.Load(s.cfg.Raster, s.cfg.RasterProj)
	if err != nil {
		return nil, err
	}
	zones, err := shapefile.Load(s.cfg.Subcatchments, shapefile.Options{
		IDField:    s.cfg.IDField,
		SourceProj: s.cfg.VectorProj,
		TargetProj: s.cfg.RasterProj,
	})
	if err != nil {
		return nil, err
	}
	counts, err := zonal.CountCategories(raster, zones, zonal.ICIMOD(), s.logger)
	if err != nil {
		return nil, err
	}
	return zonal.LULCAreas(counts, zonal.LULCOptions{
		Area:      s.cfg.Area,
		StartYear: s.cfg.StartYear,
		EndYear:   s.cfg.EndYear,
		PixelSize: s.cfg.PixelSize,
	})
}

type urbanStage struct {
	cfg  job.Urban
	deps Deps
}

func (s *urbanStage) Kind() string { return KindUrbanDemand }
func (s *urbanStage) Name() string { return s.cfg.Municipality }

func (s *urbanStage) Prepare(ctx context.Context) ([]domain.Dataset, error) {
	in, err := loadUrbanInputs(s.cfg)
	if err != nil {
		return nil, err
	}
	res, err := buildDemand(ctx, s.deps, in, *s.cfg.Params)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.FilledCells.WithLabelValues(KindUrbanDemand).Add(float64(res.FilledCells))
	return res.Datasets(s.cfg.Municipality), nil
}

type futureStage struct {
	cfg  job.Future
	deps Deps
}

func (s *futureStage) Kind() string { return KindFutureDemand }
func (s *futureStage) Name() string {
	return s.cfg.Municipality + "_" + strconv.Itoa(s.cfg.TargetYear)
}

// Prepare projects census history to the target year, derives the
// population table from it and runs the demand model on that.
func (s *futureStage) Prepare(ctx context.Context) ([]domain.Dataset, error) {
	in, err := loadUrbanInputs(s.cfg.Urban)
	if err != nil {
		return nil, err
	}
	history, err := loadCensusHistory(s.cfg.CensusHistory)
	if err != nil {
		return nil, err
	}
	projected, err := forecast.Forecast(history, s.cfg.TargetYear, *s.cfg.GrowthCap)
	if err != nil {
		return nil, err
	}
	if in.Population, err = forecast.PopulationForYear(projected, in.Population); err != nil {
		return nil, err
	}

	res, err := buildDemand(ctx, s.deps, in, *s.cfg.Params)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.FilledCells.WithLabelValues(KindFutureDemand).Add(float64(res.FilledCells))

	out := []domain.Dataset{{
		Name:  s.cfg.Municipality + "_Population_Forecast",
		Table: projected.Table.ToTable("Ward"),
	}}
	return append(out, res.Datasets(s.Name())...), nil
}

func buildDemand(ctx context.Context, deps Deps, in demand.UrbanInputs, p demand.Params) (demand.UrbanResult, error) {
	proj, err := spatial.NewProjector(spatial.GeographicProj, deps.EqualAreaProj)
	if err != nil {
		return demand.UrbanResult{}, err
	}
	interp := spatial.NewInterpolator(proj, deps.Logger)
	return demand.NewUrbanDemand(deps.Lookup, interp, deps.Logger).Build(ctx, in, p)
}

func loadUrbanInputs(cfg job.Urban) (demand.UrbanInputs, error) {
	in := demand.UrbanInputs{Municipality: cfg.Municipality}
	var err error
	in.Wards, err = shapefile.Load(cfg.Wards, shapefile.Options{
		IDField:    cfg.WardField,
		SourceProj: spatial.GeographicProj,
		TargetProj: spatial.GeographicProj,
		WardIDs:    true,
	})
	if err != nil {
		return in, err
	}
	if cfg.ServiceAreas != "" {
		in.ServiceAreas, err = shapefile.Load(cfg.ServiceAreas, shapefile.Options{
			IDField:    cfg.ServiceAreaField,
			SourceProj: spatial.GeographicProj,
			TargetProj: spatial.GeographicProj,
		})
		if err != nil {
			return in, err
		}
	}
	in.Population, err = excel.LoadWardTable(cfg.Population,
		demand.ColTotalPopulation, demand.ColHouseholds, demand.ColAvgHouseholdSize)
	if err != nil {
		return in, fmt.Errorf("population table: %w", err)
	}
	in.Students, err = excel.LoadWardTable(cfg.Students, demand.ColStudents)
	if err != nil {
		return in, fmt.Errorf("student table: %w", err)
	}
	return in, nil
}

// loadCensusHistory reads every year-labelled column of the workbook's first
// sheet, such as Pop_2001, Pop_2011 and Pop_2021.
func loadCensusHistory(path string) (*domain.WardTable, error) {
	sheet, err := excel.FirstSheet(path)
	if err != nil {
		return nil, err
	}
	var years []string
	for _, h := range sheet.Header {
		if h == excel.WardColumn {
			continue
		}
		if _, err := forecast.ParseYear(h); err == nil {
			years = append(years, h)
		}
	}
	tbl, err := sheet.WardTable(years...)
	if err != nil {
		return nil, fmt.Errorf("census history: %w", err)
	}
	return tbl, nil
}
