package engine

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lotefacil/feasibility-cli/internal/rules"
	"github.com/lotefacil/feasibility-cli/internal/spatial"
)

// StudyRequest is one feasibility study: a coordinate, a use, the lot
// geometry, and the per-metric quantities the parking and sanitary engines
// consume.
type StudyRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	UseCode string `json:"use_code"`
	Lot     Lot    `json:"lot"`

	// Metrics supplies the value for whichever base metric the resolved
	// parking rule declares (usable area, dwelling units, beds, ...).
	Metrics map[rules.ParkingMetric]float64 `json:"metrics"`

	Parking    ParkingOptions   `json:"parking"`
	Simulation *SimulationInput `json:"simulation,omitempty"`
}

// StudyResult aggregates every engine's output for one request. Sanitary is
// nil when the use has no profile on record; that absence is reported in
// Warnings, not invented.
type StudyResult struct {
	Location spatial.LocationResult `json:"location"`
	UseCode  string                 `json:"use_code"`

	Urbanism   *UrbanismResult    `json:"urbanism"`
	Parking    *ParkingResult     `json:"parking"`
	Sanitary   *SanitaryResult    `json:"sanitary,omitempty"`
	Simulation *SimulationVerdict `json:"simulation,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Study runs the resolve, rule-fetch, calculate pipeline. The resolver and
// repository are fixed at construction; each Run is independent.
type Study struct {
	resolver *spatial.Resolver
	repo     rules.Repository
	log      *zap.Logger
}

// NewStudy wires the pipeline.
func NewStudy(resolver *spatial.Resolver, repo rules.Repository) *Study {
	return &Study{
		resolver: resolver,
		repo:     repo,
		log:      zap.L().With(zap.String("component", "study")),
	}
}

// Run executes one study. A coordinate outside every zone fails with
// ErrZoneNotFound; a (zone, use) pair without a rule fails with
// ErrRuleNotFound. Neither is papered over with defaults.
func (s *Study) Run(ctx context.Context, req StudyRequest) (*StudyResult, error) {
	loc := s.resolver.Resolve(req.Lat, req.Lon)
	if loc.Zone == nil {
		return nil, eris.Wrapf(spatial.ErrZoneNotFound, "point (%.6f, %.6f)", req.Lat, req.Lon)
	}

	useLabel := s.lookupUseLabel(ctx, req.UseCode)

	rule, err := s.repo.GetZoneRule(ctx, loc.Zone.Code, req.UseCode)
	if err != nil {
		return nil, err
	}

	urb, err := ComputeUrbanism(req.Lot, rule, req.UseCode, useLabel)
	if err != nil {
		return nil, err
	}

	res := &StudyResult{Location: loc, UseCode: req.UseCode, Urbanism: urb}

	parkingOpts := req.Parking
	if !parkingOpts.LocalStreet && isLocalStreet(loc.StreetHierarchy) {
		parkingOpts.LocalStreet = true
	}

	if res.Simulation = s.simulate(urb, req); res.Simulation != nil {
		// The simulated program feeds parking and sanitary when the caller
		// did not supply a usable area.
		if req.Metrics == nil {
			req.Metrics = map[rules.ParkingMetric]float64{}
		}
		if req.Metrics[rules.MetricUsableArea] == 0 {
			req.Metrics[rules.MetricUsableArea] = res.Simulation.UsableAreaM2
		}
	}

	parking, err := ComputeParking(ctx, s.repo, req.UseCode, useLabel, req.Metrics, parkingOpts)
	if err != nil {
		return nil, err
	}
	res.Parking = parking

	usableArea := req.Metrics[rules.MetricUsableArea]
	sanitary, err := ComputeSanitary(ctx, s.repo, req.UseCode, usableArea)
	switch {
	case err == nil:
		res.Sanitary = sanitary
	case eris.Is(err, rules.ErrRuleNotFound):
		res.Warnings = append(res.Warnings, "no sanitary profile on record for this use")
	default:
		return nil, err
	}

	s.log.Debug("study complete",
		zap.String("zone", loc.ZoneCode),
		zap.String("use", req.UseCode),
		zap.Float64("lot_area_m2", urb.LotAreaM2))
	return res, nil
}

// simulate runs the lay-person simulation for residential uses when the
// caller asked for one.
func (s *Study) simulate(urb *UrbanismResult, req StudyRequest) *SimulationVerdict {
	if req.Simulation == nil {
		return nil
	}
	return Simulate(urb, *req.Simulation)
}

// lookupUseLabel resolves the display label for residential detection. Best
// effort: a store miss leaves the label empty and detection falls back to
// the code alone.
func (s *Study) lookupUseLabel(ctx context.Context, useCode string) string {
	uses, err := s.repo.ListActiveUseTypes(ctx)
	if err != nil {
		return ""
	}
	for _, u := range uses {
		if strings.EqualFold(u.Code, useCode) {
			return u.Label
		}
	}
	return ""
}

func isLocalStreet(hierarchy string) bool {
	return strings.Contains(strings.ToLower(hierarchy), "local")
}
