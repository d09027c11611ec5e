// Package rules defines the legal-parameter model for zoning feasibility and
// the repository interface that supplies it. All zone/use-specific values
// come from the store; nothing here hardcodes a legal parameter.
package rules

// ZoneRule holds the urbanistic parameters for one (zone code, use code)
// pair. At most one rule exists per pair. Optional fields are pointers: a
// nil means "not on record", which is different from zero.
type ZoneRule struct {
	ZoneCode string `json:"zone_code" yaml:"zone_code"`
	UseCode  string `json:"use_code" yaml:"use_code"`

	// Ratios over lot area. Occupancy (TO) and permeability (TP) are
	// required for any calculation; floor-area (IA) bounds the total built
	// area and may exceed 1.
	OccupancyMax    *float64 `json:"occupancy_max" yaml:"occupancy_max"`
	PermeabilityMin *float64 `json:"permeability_min" yaml:"permeability_min"`
	FloorAreaMin    *float64 `json:"floor_area_min" yaml:"floor_area_min"`
	FloorAreaMax    *float64 `json:"floor_area_max" yaml:"floor_area_max"`
	// Sub-occupancy bounds basement floors, where the zone regulates them.
	BasementOccupancyMax *float64 `json:"basement_occupancy_max" yaml:"basement_occupancy_max"`

	// Setbacks in meters.
	SetbackFrontM *float64 `json:"setback_front_m" yaml:"setback_front_m"`
	SetbackSideM  *float64 `json:"setback_side_m" yaml:"setback_side_m"`
	SetbackRearM  *float64 `json:"setback_rear_m" yaml:"setback_rear_m"`
	// AllowAttachOneSide permits zeroing one lateral setback.
	AllowAttachOneSide bool `json:"allow_attach_one_side" yaml:"allow_attach_one_side"`

	// Height limit, as meters or an explicit floor count.
	HeightLimitM *float64 `json:"height_limit_m" yaml:"height_limit_m"`
	FloorLimit   *int     `json:"floor_limit" yaml:"floor_limit"`

	// Lot geometry minima/maxima.
	LotAreaMinM2         *float64 `json:"lot_area_min_m2" yaml:"lot_area_min_m2"`
	LotAreaMaxM2         *float64 `json:"lot_area_max_m2" yaml:"lot_area_max_m2"`
	FrontageMinMidBlockM *float64 `json:"frontage_min_mid_block_m" yaml:"frontage_min_mid_block_m"`
	FrontageMinCornerM   *float64 `json:"frontage_min_corner_m" yaml:"frontage_min_corner_m"`
	FrontageMaxM         *float64 `json:"frontage_max_m" yaml:"frontage_max_m"`

	RequiresSubzone bool   `json:"requires_subzone" yaml:"requires_subzone"`
	SubzoneCode     string `json:"subzone_code" yaml:"subzone_code"`
	Notes           string `json:"notes" yaml:"notes"`
	SourceRef       string `json:"source_ref" yaml:"source_ref"`
}

// ParkingMetric is the quantity a parking rule is computed against.
type ParkingMetric string

const (
	MetricUsableArea    ParkingMetric = "area_util_m2"
	MetricSeats         ParkingMetric = "lugares"
	MetricBeds          ParkingMetric = "leitos"
	MetricLodgingUnits  ParkingMetric = "unidades_hospedagem"
	MetricDwellingUnits ParkingMetric = "apartamentos"
)

// ParkingGeneration identifies which annex generation a rule came from.
type ParkingGeneration string

const (
	GenerationCurrent ParkingGeneration = "current"
	GenerationLegacy  ParkingGeneration = "legacy"
)

// ParkingRule is the parsed, closed-variant form of a parking requirement.
// Terms evaluate in order; the effective requirement is the maximum over
// the applicable terms.
type ParkingRule struct {
	UseCode    string
	Metric     ParkingMetric
	Terms      []ParkingTerm
	CargoText  string
	Notes      []string
	SourceRef  string
	Generation ParkingGeneration

	// Legacy-generation extras. UnitAreaRate selects a per-dwelling rate by
	// average unit area, which needs a second input the terms cannot carry.
	UnitAreaRate *UnitAreaRateSpec
	MinSpaces    *int
	MotoShareMax *float64
}

// UnitAreaRateSpec is the legacy "rate per dwelling, stepped by average unit
// area" rule shape. Units with area below ThresholdM2 use RateBelow, others
// RateAtOrAbove; the product is rounded up.
type UnitAreaRateSpec struct {
	ThresholdM2   float64
	RateBelow     float64
	RateAtOrAbove float64
	RuleText      string
}

// ParkingTerm is one clause of a parking rule. Evaluate returns the raw
// (unrounded) space count implied by the term, and whether the term applies
// to the given metric value at all.
type ParkingTerm interface {
	Evaluate(metricValue float64) (raw float64, applicable bool)
	Text() string
}

// RatioTerm requires one space per PerUnit units of the base metric.
type RatioTerm struct {
	PerUnit  float64
	RuleText string
}

func (t RatioTerm) Evaluate(v float64) (float64, bool) {
	if t.PerUnit <= 0 {
		return 0, false
	}
	return v / t.PerUnit, true
}
func (t RatioTerm) Text() string { return t.RuleText }

// FixedTerm is a flat minimum space count.
type FixedTerm struct {
	Count    float64
	RuleText string
}

func (t FixedTerm) Evaluate(float64) (float64, bool) { return t.Count, true }
func (t FixedTerm) Text() string                     { return t.RuleText }

// RatioBand is one area band of a BandRatioTerm. MaxM2 nil means open-ended.
type RatioBand struct {
	MinM2    float64
	MaxM2    *float64
	PerM2    float64
	RuleText string
}

// BandRatioTerm applies a per-m² ratio chosen by the area band the metric
// value falls into. Only meaningful for the usable-area metric.
type BandRatioTerm struct {
	Bands []RatioBand
}

func (t BandRatioTerm) Evaluate(v float64) (float64, bool) {
	for _, b := range t.Bands {
		if v < b.MinM2 {
			continue
		}
		if b.MaxM2 != nil && v > *b.MaxM2 {
			continue
		}
		if b.PerM2 <= 0 {
			return 0, false
		}
		return v / b.PerM2, true
	}
	return 0, false
}

func (t BandRatioTerm) Text() string {
	for _, b := range t.Bands {
		if b.RuleText != "" {
			return b.RuleText
		}
	}
	return ""
}

// RatioAboveThresholdTerm applies a per-m² ratio only at or above a floor
// area threshold.
type RatioAboveThresholdTerm struct {
	MinM2    float64
	PerM2    float64
	RuleText string
}

func (t RatioAboveThresholdTerm) Evaluate(v float64) (float64, bool) {
	if v < t.MinM2 || t.PerM2 <= 0 {
		return 0, false
	}
	return v / t.PerM2, true
}
func (t RatioAboveThresholdTerm) Text() string { return t.RuleText }

// ThresholdFixedTerm is a flat count that applies up to a maximum area.
type ThresholdFixedTerm struct {
	MaxM2    float64
	Count    float64
	RuleText string
}

func (t ThresholdFixedTerm) Evaluate(v float64) (float64, bool) {
	if v > t.MaxM2 {
		return 0, false
	}
	return t.Count, true
}
func (t ThresholdFixedTerm) Text() string { return t.RuleText }

// PerUnitTerm requires Rate spaces per unit of the base metric (dwelling
// units, lodging units).
type PerUnitTerm struct {
	Rate     float64
	RuleText string
}

func (t PerUnitTerm) Evaluate(v float64) (float64, bool) {
	if t.Rate <= 0 {
		return 0, false
	}
	return v * t.Rate, true
}
func (t PerUnitTerm) Text() string { return t.RuleText }

// FixtureCount is either a literal fixture count or a "1 per N m² or
// fraction" formula, parsed once at the repository boundary.
type FixtureCount struct {
	Literal   *int     `yaml:"literal"`
	PerAreaM2 *float64 `yaml:"per_area_m2"`
}

// Defined reports whether the band specifies this fixture at all.
func (f FixtureCount) Defined() bool { return f.Literal != nil || f.PerAreaM2 != nil }

// SanitaryBand is one usable-area range [MinM2, MaxM2) with its fixture
// requirements. MaxM2 nil means open-ended.
type SanitaryBand struct {
	MinM2      float64      `yaml:"min_m2"`
	MaxM2      *float64     `yaml:"max_m2"`
	Lavatories FixtureCount `yaml:"lavatories"`
	Toilets    FixtureCount `yaml:"toilets"`
	Urinals    FixtureCount `yaml:"urinals"`
	Showers    FixtureCount `yaml:"showers"`
	Note       string       `yaml:"note"`
}

// SanitaryGroup is a named occupant group (e.g. public vs staff) with its
// own band table. Group totals sum in the result.
type SanitaryGroup struct {
	Name  string         `yaml:"name"`
	Bands []SanitaryBand `yaml:"bands"`
}

// SanitaryProfile is the full fixture table for a sanitary profile id.
type SanitaryProfile struct {
	ID        string          `yaml:"id"`
	Title     string          `yaml:"title"`
	Groups    []SanitaryGroup `yaml:"groups"`
	SourceRef string          `yaml:"source_ref"`
}

// UseType is one selectable land use.
type UseType struct {
	Code     string `json:"code" yaml:"code"`
	Label    string `json:"label" yaml:"label"`
	Category string `json:"category" yaml:"category"`
}
