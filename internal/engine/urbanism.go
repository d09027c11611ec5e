// Package engine implements the feasibility calculations: urbanistic limits
// and setback envelope, parking requirements, sanitary fixtures, and the
// lay-person simulation. Every computation is a pure function of its inputs;
// the study orchestrator owns the repository and resolver calls.
package engine

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/lotefacil/feasibility-cli/internal/rules"
)

// ErrInvalidLotDimensions rejects a lot with non-positive frontage or depth.
var ErrInvalidLotDimensions = eris.New("engine: invalid lot dimensions")

// Lot describes the input lot geometry. TwoFronts is only meaningful when
// Corner is set.
type Lot struct {
	FrontageM float64 `json:"frontage_m"`
	DepthM    float64 `json:"depth_m"`
	Corner    bool    `json:"corner"`
	TwoFronts bool    `json:"two_fronts"`
}

// AreaM2 returns frontage times depth.
func (l Lot) AreaM2() float64 { return l.FrontageM * l.DepthM }

// EnvelopeKind names the setback geometry applied.
type EnvelopeKind string

const (
	EnvelopeMidBlock          EnvelopeKind = "mid_block"
	EnvelopeCornerTwoFronts   EnvelopeKind = "corner_two_fronts"
	EnvelopeCornerSingleFront EnvelopeKind = "corner_single_front"
)

// Envelope is the buildable core after subtracting setbacks. Negative
// dimensions clamp to zero; an over-constrained lot yields a zero core, not
// a negative area.
type Envelope struct {
	UsableWidthM float64      `json:"usable_width_m"`
	UsableDepthM float64      `json:"usable_depth_m"`
	CoreAreaM2   float64      `json:"core_area_m2"`
	Kind         EnvelopeKind `json:"kind"`
}

// EnvelopeOption is one siting option: a named setback set with its envelope
// and the resulting ground-floor ceiling.
type EnvelopeOption struct {
	Name                 string   `json:"name"`
	SetbackFrontM        float64  `json:"setback_front_m"`
	SetbackSideM         float64  `json:"setback_side_m"`
	SetbackRearM         float64  `json:"setback_rear_m"`
	Envelope             Envelope `json:"envelope"`
	MaxGroundFloorAreaM2 float64  `json:"max_ground_floor_area_m2"`
	// Limiting names the binding constraint: "occupancy" when the ratio
	// ceiling is lower than the envelope, "setbacks" otherwise.
	Limiting string `json:"limiting"`
}

// UrbanismResult carries the computed limits for one (lot, rule) pair.
type UrbanismResult struct {
	ZoneCode  string  `json:"zone_code"`
	UseCode   string  `json:"use_code"`
	LotAreaM2 float64 `json:"lot_area_m2"`

	MaxOccupancyAreaM2  float64  `json:"max_occupancy_area_m2"`
	MinPermeableAreaM2  float64  `json:"min_permeable_area_m2"`
	MaxTotalBuiltAreaM2 *float64 `json:"max_total_built_area_m2"`
	MaxBasementAreaM2   *float64 `json:"max_basement_area_m2"`

	// Envelope is nil when the rule omits any setback; the occupancy ceiling
	// then stands alone and EnvelopeVerified is false.
	Envelope               *Envelope `json:"envelope"`
	EnvelopeVerified       bool      `json:"envelope_verified"`
	RealMaxOccupancyAreaM2 float64   `json:"real_max_occupancy_area_m2"`

	EstimatedFloors int `json:"estimated_floors"`

	// Standard is the zone's setbacks as written; Flexibility is the
	// alternate envelope with zeroed front and lateral setbacks, present
	// only for uses the flexibility article covers.
	Standard    *EnvelopeOption `json:"standard"`
	Flexibility *EnvelopeOption `json:"flexibility"`

	Notes     string `json:"notes,omitempty"`
	SourceRef string `json:"source_ref,omitempty"`
}

// ComputeUrbanism derives the urbanistic limits for a lot under a zone rule.
// Occupancy max and permeability min are required; their absence is
// ErrRuleIncomplete, never a default.
func ComputeUrbanism(lot Lot, rule *rules.ZoneRule, useCode, useLabel string) (*UrbanismResult, error) {
	if lot.FrontageM <= 0 || lot.DepthM <= 0 {
		return nil, eris.Wrapf(ErrInvalidLotDimensions, "frontage %.2f depth %.2f", lot.FrontageM, lot.DepthM)
	}
	if rule.OccupancyMax == nil {
		return nil, eris.Wrapf(rules.ErrRuleIncomplete, "zone rule %s/%s: occupancy max", rule.ZoneCode, rule.UseCode)
	}
	if rule.PermeabilityMin == nil {
		return nil, eris.Wrapf(rules.ErrRuleIncomplete, "zone rule %s/%s: permeability min", rule.ZoneCode, rule.UseCode)
	}

	lotArea := lot.AreaM2()
	res := &UrbanismResult{
		ZoneCode:           rule.ZoneCode,
		UseCode:            useCode,
		LotAreaM2:          lotArea,
		MaxOccupancyAreaM2: *rule.OccupancyMax * lotArea,
		MinPermeableAreaM2: *rule.PermeabilityMin * lotArea,
		EstimatedFloors:    estimateFloors(rule.FloorLimit, rule.HeightLimitM),
		Notes:              rule.Notes,
		SourceRef:          rule.SourceRef,
	}
	if rule.FloorAreaMax != nil {
		v := *rule.FloorAreaMax * lotArea
		res.MaxTotalBuiltAreaM2 = &v
	}
	if rule.BasementOccupancyMax != nil {
		v := *rule.BasementOccupancyMax * lotArea
		res.MaxBasementAreaM2 = &v
	}

	if rule.SetbackFrontM != nil && rule.SetbackSideM != nil && rule.SetbackRearM != nil {
		front, side, rear := *rule.SetbackFrontM, *rule.SetbackSideM, *rule.SetbackRearM

		env := envelopeFor(lot, front, side, rear, rule.AllowAttachOneSide)
		res.Envelope = &env
		res.EnvelopeVerified = true
		res.RealMaxOccupancyAreaM2 = math.Min(res.MaxOccupancyAreaM2, env.CoreAreaM2)

		res.Standard = buildOption("standard setbacks", front, side, rear, env, res.MaxOccupancyAreaM2)

		if flexibilityApplies(useCode, useLabel) {
			flexEnv := envelopeFor(lot, 0, 0, rear, false)
			res.Flexibility = buildOption("zero front and lateral setbacks", 0, 0, rear, flexEnv, res.MaxOccupancyAreaM2)
		}
	} else {
		res.RealMaxOccupancyAreaM2 = res.MaxOccupancyAreaM2
	}

	return res, nil
}

// flexibilityApplies limits the alternate envelope to single-family
// residential use.
func flexibilityApplies(useCode, useLabel string) bool {
	return rules.IsSingleFamily(useCode, useLabel)
}

func buildOption(name string, front, side, rear float64, env Envelope, occupancyCeiling float64) *EnvelopeOption {
	opt := &EnvelopeOption{
		Name:                 name,
		SetbackFrontM:        front,
		SetbackSideM:         side,
		SetbackRearM:         rear,
		Envelope:             env,
		MaxGroundFloorAreaM2: math.Min(occupancyCeiling, env.CoreAreaM2),
		Limiting:             "setbacks",
	}
	if occupancyCeiling <= env.CoreAreaM2 {
		opt.Limiting = "occupancy"
	}
	return opt
}

// envelopeFor subtracts setbacks from the lot. A mid-block lot loses both
// laterals from the width; a corner lot with two fronts loses one lateral
// plus the second frontal; a corner without two fronts behaves like
// mid-block. attachOneSide zeroes the internal lateral.
func envelopeFor(lot Lot, front, side, rear float64, attachOneSide bool) Envelope {
	latInternal := side
	if attachOneSide {
		latInternal = 0
	}

	kind := EnvelopeMidBlock
	width := lot.FrontageM - (latInternal + side)
	if lot.Corner {
		if lot.TwoFronts {
			kind = EnvelopeCornerTwoFronts
			width = lot.FrontageM - (latInternal + front)
		} else {
			kind = EnvelopeCornerSingleFront
		}
	}

	depth := lot.DepthM - front - rear
	width = math.Max(width, 0)
	depth = math.Max(depth, 0)

	return Envelope{
		UsableWidthM: width,
		UsableDepthM: depth,
		CoreAreaM2:   width * depth,
		Kind:         kind,
	}
}

// estimateFloors prefers an explicit floor count, then floor(heightM/3)
// with a floor of 1, then 1.
func estimateFloors(floorLimit *int, heightM *float64) int {
	if floorLimit != nil && *floorLimit > 0 {
		return *floorLimit
	}
	if heightM != nil && *heightM > 0 {
		if n := int(*heightM / 3.0); n > 1 {
			return n
		}
	}
	return 1
}
