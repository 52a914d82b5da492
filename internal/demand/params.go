// Package demand builds per-ward urban water demand tables and reallocates
// them onto utility service areas.
package demand

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Default per-unit demand rates in m3/d.
const (
	DefaultDemandFullPlumb = 0.112
	DefaultDemandNotPlumb  = 0.045
	DefaultDemandStudent   = 0.01
)

// Amenity categories looked up for commercial demand.
const (
	CategoryHotel    = "Hotel"
	CategoryHospital = "Hospital"
)

// Commercial describes one amenity category whose census total is
// distributed over wards according to looked-up point locations.
type Commercial struct {
	Category string            `yaml:"category"`
	Tags     map[string]string `yaml:"tags"`
	// CensusCount is the authoritative number of amenities in the area.
	CensusCount  float64 `yaml:"census_count"`
	BedsPerUnit  float64 `yaml:"beds_per_unit"`
	DemandPerBed float64 `yaml:"demand_per_bed"`

	// censusGiven records that census_count was present in decoded YAML.
	censusGiven bool
}

// UnmarshalYAML decodes a commercial category and notes whether the census
// count was listed, since zero is a valid count.
func (c *Commercial) UnmarshalYAML(value *yaml.Node) error {
	type plain Commercial
	var d plain
	if err := value.Decode(&d); err != nil {
		return err
	}
	*c = Commercial(d)
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "census_count" {
			c.censusGiven = true
		}
	}
	return nil
}

// Params holds the demand model inputs for one municipality.
type Params struct {
	// PercentFullPlumb is the share of households with full plumbing, 0-100.
	PercentFullPlumb float64 `yaml:"percent_full_plumb"`
	DemandFullPlumb  float64 `yaml:"demand_full_plumb"`
	DemandNotPlumb   float64 `yaml:"demand_not_plumb"`
	DemandStudent    float64 `yaml:"demand_student"`

	Commercial []Commercial `yaml:"commercial"`
	// Remaining commercial demand is (total population / OtherDenominator)
	// * DemandPerOther. A zero DemandPerOther disables the term.
	OtherDenominator float64 `yaml:"other_commercial_denominator"`
	DemandPerOther   float64 `yaml:"demand_per_other"`

	MunicipalFraction  float64 `yaml:"municipal_fraction"`
	IndustrialFraction float64 `yaml:"industrial_fraction"`
}

// DefaultParams returns the default rates with hotel and hospital
// categories. Census counts and bed figures must still be supplied.
func DefaultParams() Params {
	return Params{
		DemandFullPlumb: DefaultDemandFullPlumb,
		DemandNotPlumb:  DefaultDemandNotPlumb,
		DemandStudent:   DefaultDemandStudent,
		Commercial: []Commercial{
			{Category: CategoryHotel, Tags: map[string]string{"tourism": "hotel"}},
			{Category: CategoryHospital, Tags: map[string]string{"amenity": "hospital"}},
		},
	}
}

// UnmarshalYAML decodes over DefaultParams so a job file only lists the
// values it changes. A commercial list replaces the default categories.
func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	type plain Params
	d := plain(DefaultParams())
	if err := value.Decode(&d); err != nil {
		return err
	}
	*p = Params(d)
	return nil
}

// Validate rejects out-of-domain parameters.
func (p Params) Validate() error {
	if math.IsNaN(p.PercentFullPlumb) || p.PercentFullPlumb < 0 || p.PercentFullPlumb > 100 {
		return &domain.ParameterError{
			Name:   "percent_full_plumb",
			Value:  p.PercentFullPlumb,
			Reason: "must be in range [0,100]",
		}
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"demand_full_plumb", p.DemandFullPlumb},
		{"demand_not_plumb", p.DemandNotPlumb},
		{"demand_student", p.DemandStudent},
		{"demand_per_other", p.DemandPerOther},
		{"municipal_fraction", p.MunicipalFraction},
		{"industrial_fraction", p.IndustrialFraction},
	}
	for _, f := range nonNegative {
		if math.IsNaN(f.v) || f.v < 0 {
			return &domain.ParameterError{Name: f.name, Value: f.v, Reason: "must be non-negative"}
		}
	}
	if p.DemandPerOther > 0 && p.OtherDenominator <= 0 {
		return &domain.ParameterError{
			Name:   "other_commercial_denominator",
			Value:  p.OtherDenominator,
			Reason: "must be positive when demand_per_other is set",
		}
	}
	seen := make(map[string]bool, len(p.Commercial))
	for i, c := range p.Commercial {
		field := fmt.Sprintf("commercial[%d]", i)
		switch {
		case c.Category == "":
			return &domain.ParameterError{Name: field + ".category", Value: c.Category, Reason: "is required"}
		case seen[c.Category]:
			return &domain.ParameterError{Name: field + ".category", Value: c.Category, Reason: "is duplicated"}
		case len(c.Tags) == 0:
			return &domain.ParameterError{Name: field + ".tags", Value: c.Tags, Reason: "at least one tag is required"}
		case c.CensusCount < 0:
			return &domain.ParameterError{Name: field + ".census_count", Value: c.CensusCount, Reason: "must be non-negative"}
		case c.BedsPerUnit < 0 || c.DemandPerBed < 0:
			return &domain.ParameterError{Name: field, Value: c.Category, Reason: "beds and demand per bed must be non-negative"}
		}
		seen[c.Category] = true
	}
	return nil
}

// RequireCensusCounts reports commercial categories decoded from YAML
// without a census_count, including the default categories when a job file
// lists no commercial block.
func (p Params) RequireCensusCounts() error {
	var errs []error
	for i, c := range p.Commercial {
		if !c.censusGiven {
			errs = append(errs, &domain.ParameterError{
				Name:   fmt.Sprintf("commercial[%d].census_count", i),
				Value:  c.Category,
				Reason: "is required",
			})
		}
	}
	return errors.Join(errs...)
}

// plumbedFraction converts the percentage to a proportion.
func (p Params) plumbedFraction() float64 { return p.PercentFullPlumb / 100 }
