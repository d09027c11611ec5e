package engine

import "math"

// SimulationMode distinguishes the two simulation flavors.
type SimulationMode string

const (
	// SimulationAuto reports the maxima the zone allows for the typology.
	SimulationAuto SimulationMode = "auto_limits"
	// SimulationProject checks a proposed program against the limits.
	SimulationProject SimulationMode = "project"
)

// SimulationInput is the lay-person program. Zero values select the
// automatic behavior: total area from the zone maxima, floors from the
// estimate, usable area equal to the simulated total.
type SimulationInput struct {
	DesiredTotalAreaM2 float64 `json:"desired_total_area_m2"`
	DesiredFloors      int     `json:"desired_floors"`
	UsableAreaM2       float64 `json:"usable_area_m2"`
}

// Failing constraint names, stable for the presentation layer.
const (
	ConstraintOccupancy    = "occupancy"
	ConstraintFloorArea    = "floor_area"
	ConstraintPermeability = "permeability"
)

// SimulationVerdict is the viable/non-viable outcome with the numbers that
// produced it.
type SimulationVerdict struct {
	Mode         SimulationMode `json:"mode"`
	Floors       int            `json:"floors"`
	TotalAreaM2  float64        `json:"total_area_m2"`
	FootprintM2  float64        `json:"footprint_m2"`
	UsableAreaM2 float64        `json:"usable_area_m2"`

	Viable bool `json:"viable"`
	// FailedConstraints names every check that failed; empty when viable.
	FailedConstraints []string `json:"failed_constraints,omitempty"`
	// Warnings flag limits that could not be checked for lack of rule data.
	Warnings []string `json:"warnings,omitempty"`
}

const simulationEps = 1e-9

// Simulate wraps an urbanism result into a lay-person verdict. Pure: the
// repository was already consulted to produce urb.
func Simulate(urb *UrbanismResult, in SimulationInput) *SimulationVerdict {
	floors := in.DesiredFloors
	if floors <= 0 {
		floors = urb.EstimatedFloors
	}
	if floors <= 0 {
		floors = 1
	}

	v := &SimulationVerdict{Mode: SimulationProject, Floors: floors}

	if in.DesiredTotalAreaM2 > 0 {
		v.TotalAreaM2 = in.DesiredTotalAreaM2
	} else {
		v.Mode = SimulationAuto
		v.TotalAreaM2 = autoTotal(urb, floors)
	}

	v.FootprintM2 = v.TotalAreaM2 / float64(floors)

	v.UsableAreaM2 = in.UsableAreaM2
	if v.UsableAreaM2 <= 0 {
		v.UsableAreaM2 = v.TotalAreaM2
	}

	v.Viable = true
	if v.FootprintM2 > urb.RealMaxOccupancyAreaM2+simulationEps {
		v.Viable = false
		v.FailedConstraints = append(v.FailedConstraints, ConstraintOccupancy)
	}
	if urb.MaxTotalBuiltAreaM2 != nil {
		if v.TotalAreaM2 > *urb.MaxTotalBuiltAreaM2+simulationEps {
			v.Viable = false
			v.FailedConstraints = append(v.FailedConstraints, ConstraintFloorArea)
		}
	} else {
		v.Warnings = append(v.Warnings, "floor-area maximum not on record; total area unchecked")
	}
	if urb.LotAreaM2-v.FootprintM2 < urb.MinPermeableAreaM2-simulationEps {
		v.Viable = false
		v.FailedConstraints = append(v.FailedConstraints, ConstraintPermeability)
	}
	if !urb.EnvelopeVerified {
		v.Warnings = append(v.Warnings, "setbacks not on record; occupancy checked against the ratio ceiling only")
	}

	return v
}

// autoTotal is the largest total area the zone permits for the typology:
// the floor-area ceiling capped by what the footprint ceiling supports over
// the given floor count.
func autoTotal(urb *UrbanismResult, floors int) float64 {
	candidates := []float64{}
	if urb.MaxTotalBuiltAreaM2 != nil && *urb.MaxTotalBuiltAreaM2 > 0 {
		candidates = append(candidates, *urb.MaxTotalBuiltAreaM2)
	}
	if urb.RealMaxOccupancyAreaM2 > 0 {
		candidates = append(candidates, urb.RealMaxOccupancyAreaM2*float64(floors))
	}
	if len(candidates) == 0 {
		return 0
	}
	total := candidates[0]
	for _, c := range candidates[1:] {
		total = math.Min(total, c)
	}
	return total
}
