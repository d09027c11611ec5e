package engine

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/lotefacil/feasibility-cli/internal/rules"
)

// ParkingStatus is the outcome class of a parking evaluation.
type ParkingStatus string

const (
	// ParkingRequired means a positive space count was computed.
	ParkingRequired ParkingStatus = "required"
	// ParkingNotRequired means the use is exempt by rule (single-family).
	ParkingNotRequired ParkingStatus = "not_required"
	// ParkingExempt means a policy exemption zeroed the requirement.
	ParkingExempt ParkingStatus = "exempt"
	// ParkingUndetermined means no rule generation could produce a count.
	// Must be surfaced as-is, never shown as zero.
	ParkingUndetermined ParkingStatus = "undetermined"
)

// ParkingOptions carries the policy flags for one evaluation.
type ParkingOptions struct {
	// NearTransit applies the 20% rapid-transit reduction after rounding.
	NearTransit bool `json:"near_transit"`
	// LocalStreet enables the non-residential small-footprint exemption.
	LocalStreet bool `json:"local_street"`
	// UnitAreaM2 is the average dwelling-unit area, used by the legacy
	// unit-area-stepped rule.
	UnitAreaM2 float64 `json:"unit_area_m2"`
}

// ParkingAdjustment records one post-rounding policy adjustment.
type ParkingAdjustment struct {
	Kind string `json:"kind"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// ParkingResult is the evaluated requirement for one use.
type ParkingResult struct {
	UseCode     string                  `json:"use_code"`
	Status      ParkingStatus           `json:"status"`
	Generation  rules.ParkingGeneration `json:"generation,omitempty"`
	Metric      rules.ParkingMetric     `json:"metric,omitempty"`
	MetricValue float64                 `json:"metric_value,omitempty"`

	Raw      float64 `json:"raw"`
	Required int     `json:"required"`

	AppliedRuleText string              `json:"applied_rule_text,omitempty"`
	Adjustments     []ParkingAdjustment `json:"adjustments,omitempty"`
	CargoText       string              `json:"cargo_text,omitempty"`
	Notes           []string            `json:"notes,omitempty"`
	MotoShareMax    *float64            `json:"moto_share_max,omitempty"`
}

// ComputeParking resolves and evaluates the parking requirement for a use.
// Generations are tried in order, current then legacy; a use with neither is
// Undetermined. metrics supplies the value for whichever base metric the
// resolved rule declares.
func ComputeParking(ctx context.Context, repo rules.Repository, useCode, useLabel string, metrics map[rules.ParkingMetric]float64, opts ParkingOptions) (*ParkingResult, error) {
	// Single-family residential never requires spaces, whatever the store says.
	if rules.IsSingleFamily(useCode, useLabel) {
		return &ParkingResult{
			UseCode:         useCode,
			Status:          ParkingNotRequired,
			AppliedRuleText: "residencial unifamiliar: sem exigência mínima de vagas",
		}, nil
	}

	rule, err := resolveParkingRule(ctx, repo, useCode)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return &ParkingResult{UseCode: useCode, Status: ParkingUndetermined}, nil
	}

	metricValue := metrics[rule.Metric]
	res := &ParkingResult{
		UseCode:      useCode,
		Generation:   rule.Generation,
		Metric:       rule.Metric,
		MetricValue:  metricValue,
		CargoText:    rule.CargoText,
		Notes:        rule.Notes,
		MotoShareMax: rule.MotoShareMax,
	}

	if opts.LocalStreet && rule.Metric == rules.MetricUsableArea &&
		metricValue > 0 && metricValue <= 100 && !rules.IsResidential(useCode, useLabel) {
		res.Status = ParkingExempt
		res.AppliedRuleText = "dispensa: não residencial até 100m² em via local"
		return res, nil
	}

	raw, text, ok := evaluateTerms(rule, metricValue, opts)
	if !ok {
		res.Status = ParkingUndetermined
		return res, nil
	}
	res.Raw = raw
	res.AppliedRuleText = text

	required := roundRequirement(raw)
	if rule.MinSpaces != nil && required < *rule.MinSpaces {
		required = *rule.MinSpaces
	}

	if opts.NearTransit && required > 0 {
		reduced := int(math.Ceil(float64(required) * 0.8))
		res.Adjustments = append(res.Adjustments, ParkingAdjustment{Kind: "transit_20pct", From: required, To: reduced})
		required = reduced
	}

	res.Required = required
	res.Status = ParkingRequired
	if required == 0 {
		res.Status = ParkingExempt
	}
	return res, nil
}

// resolveParkingRule walks the generation order. nil with no error means
// both generations are absent.
func resolveParkingRule(ctx context.Context, repo rules.Repository, useCode string) (*rules.ParkingRule, error) {
	lookups := []func(context.Context, string) (*rules.ParkingRule, error){
		repo.GetCurrentParkingRule,
		repo.GetLegacyParkingRule,
	}
	for _, lookup := range lookups {
		rule, err := lookup(ctx, useCode)
		if err == nil {
			return rule, nil
		}
		if eris.Is(err, rules.ErrRuleNotFound) {
			continue
		}
		return nil, err
	}
	return nil, nil
}

// evaluateTerms returns the maximum over all applicable terms. The legacy
// unit-area-stepped rule competes on the same footing when the unit area is
// known.
func evaluateTerms(rule *rules.ParkingRule, metricValue float64, opts ParkingOptions) (raw float64, text string, ok bool) {
	best := math.Inf(-1)
	for _, term := range rule.Terms {
		v, applicable := term.Evaluate(metricValue)
		if !applicable {
			continue
		}
		if v > best {
			best = v
			text = term.Text()
		}
		ok = true
	}

	if spec := rule.UnitAreaRate; spec != nil && opts.UnitAreaM2 > 0 {
		rate := spec.RateBelow
		if opts.UnitAreaM2 >= spec.ThresholdM2 {
			rate = spec.RateAtOrAbove
		}
		v := math.Ceil(metricValue * rate)
		if !ok || v > best {
			best = v
			text = spec.RuleText
		}
		ok = true
	}

	if !ok {
		return 0, "", false
	}
	return best, text, true
}

// roundRequirement applies the annex rounding: round to one decimal, then a
// tenths digit of 5 or more rounds up to the next integer.
func roundRequirement(x float64) int {
	if x <= 0 {
		return 0
	}
	tenths := math.Round(x * 10)
	whole := math.Floor(tenths / 10)
	if tenths-whole*10 >= 5 {
		return int(whole) + 1
	}
	return int(whole)
}
