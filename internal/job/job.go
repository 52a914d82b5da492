// Package job loads the YAML description of a preparation run: which
// datasets to build and with what inputs and parameters.
package job

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/alluvium/nepal-weap-prep/internal/demand"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/forecast"
	"github.com/alluvium/nepal-weap-prep/internal/spatial"
)

// Job is a full preparation run. Stages run in the order hydro, meteo, lulc,
// urban_demand, future_demand, and in file order within each kind.
type Job struct {
	Hydro        []Hydro  `yaml:"hydro"`
	Meteo        []Meteo  `yaml:"meteo"`
	LULC         []LULC   `yaml:"lulc"`
	UrbanDemand  []Urban  `yaml:"urban_demand"`
	FutureDemand []Future `yaml:"future_demand"`
}

// Hydro is one streamflow workbook.
type Hydro struct {
	File         string   `yaml:"file"`
	Stations     []string `yaml:"stations"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Measurements []string `yaml:"measurements"`
	Units        []string `yaml:"units"`
}

// Meteo is one climate workbook.
type Meteo struct {
	File         string   `yaml:"file"`
	Stations     []string `yaml:"stations"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Measurements []string `yaml:"measurements"`
	Units        []string `yaml:"units"`
}

// LULC is one land cover raster counted over a subcatchment shapefile.
type LULC struct {
	Area          string `yaml:"area"`
	Raster        string `yaml:"raster"`
	RasterProj    string `yaml:"raster_proj"`
	Subcatchments string `yaml:"subcatchments"`
	IDField       string `yaml:"id_field"`
	// VectorProj is the subcatchment reference system when the shapefile
	// has no .prj sidecar. Defaults to geographic coordinates.
	VectorProj string  `yaml:"vector_proj"`
	StartYear  int     `yaml:"start_year"`
	EndYear    int     `yaml:"end_year"`
	PixelSize  float64 `yaml:"pixel_size"`
}

// Urban is one municipality's demand model run.
type Urban struct {
	Municipality     string         `yaml:"municipality"`
	Wards            string         `yaml:"wards"`
	WardField        string         `yaml:"ward_field"`
	ServiceAreas     string         `yaml:"service_areas"`
	ServiceAreaField string         `yaml:"service_area_field"`
	Population       string         `yaml:"population"`
	Students         string         `yaml:"students"`
	Params           *demand.Params `yaml:"params"`
}

// Future is a demand run on population projected to TargetYear from the
// census history workbook.
type Future struct {
	Urban         `yaml:",inline"`
	CensusHistory string   `yaml:"census_history"`
	TargetYear    int      `yaml:"target_year"`
	GrowthCap     *float64 `yaml:"growth_cap"`
}

// Load reads and validates the job file at path. Relative input paths are
// resolved against inputDir.
func Load(path, inputDir string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	j, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("job file %s: %w", path, err)
	}
	j.resolve(inputDir)
	return j, nil
}

// Parse decodes and validates a job document. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var j Job
	if err := dec.Decode(&j); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	j.applyDefaults()
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Stages returns the number of stages in the job.
func (j *Job) Stages() int {
	return len(j.Hydro) + len(j.Meteo) + len(j.LULC) + len(j.UrbanDemand) + len(j.FutureDemand)
}

func (j *Job) applyDefaults() {
	for i := range j.LULC {
		l := &j.LULC[i]
		if l.PixelSize == 0 {
			l.PixelSize = 30
		}
		if l.VectorProj == "" {
			l.VectorProj = spatial.GeographicProj
		}
	}
	for i := range j.UrbanDemand {
		j.UrbanDemand[i].applyDefaults()
	}
	for i := range j.FutureDemand {
		f := &j.FutureDemand[i]
		f.applyDefaults()
		if f.GrowthCap == nil {
			c := forecast.DefaultGrowthCap
			f.GrowthCap = &c
		}
	}
}

func (u *Urban) applyDefaults() {
	if u.WardField == "" {
		u.WardField = "Ward"
	}
	if u.ServiceAreaField == "" {
		u.ServiceAreaField = "Name"
	}
	if u.Params == nil {
		p := demand.DefaultParams()
		u.Params = &p
	}
}

// Validate reports every invalid stage setting at once.
func (j *Job) Validate() error {
	var errs []error
	if j.Stages() == 0 {
		errs = append(errs, &domain.ParameterError{Name: "job", Value: 0, Reason: "defines no stages"})
	}
	for i, h := range j.Hydro {
		errs = append(errs, series(fmt.Sprintf("hydro[%d]", i), h.File, h.Stations, h.Start, h.End)...)
	}
	for i, m := range j.Meteo {
		errs = append(errs, series(fmt.Sprintf("meteo[%d]", i), m.File, m.Stations, m.Start, m.End)...)
	}
	for i, l := range j.LULC {
		errs = append(errs, l.validate(fmt.Sprintf("lulc[%d]", i))...)
	}
	for i, u := range j.UrbanDemand {
		errs = append(errs, u.validate(fmt.Sprintf("urban_demand[%d]", i))...)
	}
	for i, f := range j.FutureDemand {
		prefix := fmt.Sprintf("future_demand[%d]", i)
		errs = append(errs, f.validate(prefix)...)
		errs = append(errs, required(prefix+".census_history", f.CensusHistory)...)
		if f.TargetYear < 1000 || f.TargetYear > 9999 {
			errs = append(errs, &domain.ParameterError{Name: prefix + ".target_year", Value: f.TargetYear, Reason: "must be a four digit year"})
		}
		if f.GrowthCap != nil && *f.GrowthCap < 0 {
			errs = append(errs, &domain.ParameterError{Name: prefix + ".growth_cap", Value: *f.GrowthCap, Reason: "must be non-negative"})
		}
	}
	return errors.Join(errs...)
}

func series(prefix, file string, stations []string, start, end string) []error {
	errs := required(prefix+".file", file)
	if len(stations) == 0 {
		errs = append(errs, &domain.ParameterError{Name: prefix + ".stations", Value: stations, Reason: "at least one station is required"})
	}
	if _, err := domain.DateRange(domain.NewDateNormalizer(), start, end); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
	}
	return errs
}

func (l LULC) validate(prefix string) []error {
	errs := required(prefix+".area", l.Area)
	errs = append(errs, required(prefix+".raster", l.Raster)...)
	errs = append(errs, required(prefix+".raster_proj", l.RasterProj)...)
	errs = append(errs, required(prefix+".subcatchments", l.Subcatchments)...)
	errs = append(errs, required(prefix+".id_field", l.IDField)...)
	if l.EndYear <= l.StartYear {
		errs = append(errs, &domain.ParameterError{Name: prefix + ".end_year", Value: l.EndYear, Reason: fmt.Sprintf("must be after start_year %d", l.StartYear)})
	}
	if l.PixelSize <= 0 {
		errs = append(errs, &domain.ParameterError{Name: prefix + ".pixel_size", Value: l.PixelSize, Reason: "must be positive"})
	}
	return errs
}

func (u Urban) validate(prefix string) []error {
	errs := required(prefix+".municipality", u.Municipality)
	errs = append(errs, required(prefix+".wards", u.Wards)...)
	errs = append(errs, required(prefix+".population", u.Population)...)
	errs = append(errs, required(prefix+".students", u.Students)...)
	if u.Params != nil {
		if err := u.Params.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s.params: %w", prefix, err))
		}
		if err := u.Params.RequireCensusCounts(); err != nil {
			errs = append(errs, fmt.Errorf("%s.params: %w", prefix, err))
		}
	}
	return errs
}

func required(name, v string) []error {
	if v != "" {
		return nil
	}
	return []error{&domain.ParameterError{Name: name, Value: v, Reason: "is required"}}
}

func (j *Job) resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	for i := range j.Hydro {
		abs(&j.Hydro[i].File)
	}
	for i := range j.Meteo {
		abs(&j.Meteo[i].File)
	}
	for i := range j.LULC {
		abs(&j.LULC[i].Raster)
		abs(&j.LULC[i].Subcatchments)
	}
	resolveUrban := func(u *Urban) {
		abs(&u.Wards)
		abs(&u.ServiceAreas)
		abs(&u.Population)
		abs(&u.Students)
	}
	for i := range j.UrbanDemand {
		resolveUrban(&j.UrbanDemand[i])
	}
	for i := range j.FutureDemand {
		resolveUrban(&j.FutureDemand[i].Urban)
		abs(&j.FutureDemand[i].CensusHistory)
	}
}
