package rules

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Structured payloads are parsed once, at the repository boundary. An
// unrecognized term type or an unparseable formula fails the whole rule with
// ErrMalformedRuleData: a rule the engine cannot fully evaluate must not be
// half-applied.

type currentRulePayload struct {
	UseCode    string            `json:"use_code"`
	BaseMetric string            `json:"base_metric"`
	Rules      []json.RawMessage `json:"rules"`
	Cargo      *struct {
		Text string `json:"text"`
	} `json:"cargo_loading"`
	GeneralNotes []string `json:"general_notes"`
}

type currentTermPayload struct {
	Type      string               `json:"type" yaml:"type"`
	Text      string               `json:"text" yaml:"text"`
	Value     float64              `json:"value" yaml:"value"`
	PerM2     float64              `json:"per_m2" yaml:"per_m2"`
	PerUnits  float64              `json:"per_units" yaml:"per_units"`
	PerUnit   float64              `json:"per_unit" yaml:"per_unit"`
	MinM2     float64              `json:"min_m2" yaml:"min_m2"`
	MaxM2     *float64             `json:"max_m2" yaml:"max_m2"`
	Count     float64              `json:"count" yaml:"count"`
	Condition string               `json:"condition" yaml:"condition"`
	Bands     []currentBandPayload `json:"bands" yaml:"bands"`
}

type currentBandPayload struct {
	MinM2 float64  `json:"min_m2" yaml:"min_m2"`
	MaxM2 *float64 `json:"max_m2" yaml:"max_m2"`
	PerM2 float64  `json:"per_m2" yaml:"per_m2"`
	Text  string   `json:"text" yaml:"text"`
}

// ParseCurrentRule decodes a current-generation parking payload into the
// closed term set.
func ParseCurrentRule(useCode string, payload []byte, sourceRef string) (*ParkingRule, error) {
	var p currentRulePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, eris.Wrapf(ErrMalformedRuleData, "parking payload for %s: %v", useCode, err)
	}

	metric := ParkingMetric(p.BaseMetric)
	switch metric {
	case MetricUsableArea, MetricSeats, MetricBeds, MetricLodgingUnits, MetricDwellingUnits:
	case "":
		return nil, eris.Wrapf(ErrMalformedRuleData, "parking payload for %s: missing base_metric", useCode)
	default:
		return nil, eris.Wrapf(ErrMalformedRuleData, "parking payload for %s: unknown base_metric %q", useCode, p.BaseMetric)
	}

	rule := &ParkingRule{
		UseCode:    useCode,
		Metric:     metric,
		Notes:      p.GeneralNotes,
		SourceRef:  sourceRef,
		Generation: GenerationCurrent,
	}
	if p.Cargo != nil {
		rule.CargoText = p.Cargo.Text
	}

	for i, raw := range p.Rules {
		var t currentTermPayload
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, eris.Wrapf(ErrMalformedRuleData, "parking payload for %s: term %d: %v", useCode, i, err)
		}
		term, err := buildTerm(t, metric)
		if err != nil {
			return nil, eris.Wrapf(err, "parking payload for %s: term %d", useCode, i)
		}
		rule.Terms = append(rule.Terms, term)
	}
	if len(rule.Terms) == 0 {
		return nil, eris.Wrapf(ErrMalformedRuleData, "parking payload for %s: no evaluable terms", useCode)
	}
	return rule, nil
}

func buildTerm(t currentTermPayload, metric ParkingMetric) (ParkingTerm, error) {
	switch t.Type {
	case "fixed":
		return FixedTerm{Count: t.Value, RuleText: t.Text}, nil

	case "ratio":
		per := t.PerM2
		if metric != MetricUsableArea {
			per = t.PerUnits
		}
		if per <= 0 {
			return nil, eris.Wrap(ErrMalformedRuleData, "ratio term without a positive divisor")
		}
		return RatioTerm{PerUnit: per, RuleText: t.Text}, nil

	case "band_ratio":
		if metric != MetricUsableArea {
			return nil, eris.Wrap(ErrMalformedRuleData, "band_ratio term on a non-area metric")
		}
		if len(t.Bands) == 0 {
			return nil, eris.Wrap(ErrMalformedRuleData, "band_ratio term without bands")
		}
		bt := BandRatioTerm{}
		for _, b := range t.Bands {
			if b.PerM2 <= 0 {
				return nil, eris.Wrap(ErrMalformedRuleData, "band without a positive divisor")
			}
			bt.Bands = append(bt.Bands, RatioBand{MinM2: b.MinM2, MaxM2: b.MaxM2, PerM2: b.PerM2, RuleText: b.Text})
		}
		return bt, nil

	case "threshold_fixed", "fixed_or_band":
		if metric != MetricUsableArea {
			return nil, eris.Wrapf(ErrMalformedRuleData, "%s term on a non-area metric", t.Type)
		}
		if t.MaxM2 == nil {
			return nil, eris.Wrapf(ErrMalformedRuleData, "%s term without max_m2", t.Type)
		}
		return ThresholdFixedTerm{MaxM2: *t.MaxM2, Count: t.Count, RuleText: t.Text}, nil

	case "ratio_above_threshold":
		if metric != MetricUsableArea {
			return nil, eris.Wrap(ErrMalformedRuleData, "ratio_above_threshold term on a non-area metric")
		}
		if t.PerM2 <= 0 {
			return nil, eris.Wrap(ErrMalformedRuleData, "ratio_above_threshold term without a positive divisor")
		}
		return RatioAboveThresholdTerm{MinM2: t.MinM2, PerM2: t.PerM2, RuleText: t.Text}, nil

	case "per_unit", "per_unit_with_condition":
		if strings.TrimSpace(t.Condition) != "" {
			// Free-form conditions are not evaluable here.
			return nil, eris.Wrap(ErrMalformedRuleData, "per_unit term with a free-form condition")
		}
		rate := t.Value
		if rate == 0 {
			rate = t.PerUnit
		}
		if rate <= 0 {
			return nil, eris.Wrap(ErrMalformedRuleData, "per_unit term without a positive rate")
		}
		return PerUnitTerm{Rate: rate, RuleText: t.Text}, nil

	default:
		return nil, eris.Wrapf(ErrMalformedRuleData, "unknown term type %q", t.Type)
	}
}

type legacyUnitAreaPayload struct {
	Type           string   `json:"type"`
	DisplayText    string   `json:"display_text"`
	ThresholdM2    *float64 `json:"threshold_unit_area_m2"`
	RateBelow      *float64 `json:"rate_below"`
	RateAtOrAbove  *float64 `json:"rate_at_or_above"`
	MotoPercentMax *float64 `json:"moto_percent_max"`
}

// ParseLegacyRule maps a legacy-generation parking row onto the same term
// set. metric is the row's discriminator column, not a ParkingMetric.
func ParseLegacyRule(useCode, metric string, value float64, minSpaces *int, ruleJSON []byte, sourceRef string) (*ParkingRule, error) {
	rule := &ParkingRule{
		UseCode:    useCode,
		SourceRef:  sourceRef,
		Generation: GenerationLegacy,
		MinSpaces:  minSpaces,
	}

	switch metric {
	case "fixed":
		rule.Metric = MetricUsableArea
		rule.Terms = []ParkingTerm{FixedTerm{Count: value}}

	case "per_unit":
		rule.Metric = MetricDwellingUnits
		if value <= 0 {
			return nil, eris.Wrapf(ErrMalformedRuleData, "legacy rule for %s: per_unit without a positive rate", useCode)
		}
		rule.Terms = []ParkingTerm{PerUnitTerm{Rate: value}}

	case "per_area":
		rule.Metric = MetricUsableArea
		if value <= 0 {
			return nil, eris.Wrapf(ErrMalformedRuleData, "legacy rule for %s: per_area without a positive rate", useCode)
		}
		// Stored as spaces per m2; the term set divides, so invert.
		rule.Terms = []ParkingTerm{RatioTerm{PerUnit: 1 / value}}

	case "json_rule":
		var p legacyUnitAreaPayload
		if err := json.Unmarshal(ruleJSON, &p); err != nil {
			return nil, eris.Wrapf(ErrMalformedRuleData, "legacy rule for %s: %v", useCode, err)
		}
		if p.Type != "per_unit_by_unit_area" {
			return nil, eris.Wrapf(ErrMalformedRuleData, "legacy rule for %s: unknown json rule type %q", useCode, p.Type)
		}
		spec := &UnitAreaRateSpec{ThresholdM2: 90, RateBelow: 1.0, RateAtOrAbove: 1.5, RuleText: p.DisplayText}
		if p.ThresholdM2 != nil {
			spec.ThresholdM2 = *p.ThresholdM2
		}
		if p.RateBelow != nil {
			spec.RateBelow = *p.RateBelow
		}
		if p.RateAtOrAbove != nil {
			spec.RateAtOrAbove = *p.RateAtOrAbove
		}
		rule.Metric = MetricDwellingUnits
		rule.UnitAreaRate = spec
		rule.MotoShareMax = p.MotoPercentMax

	default:
		return nil, eris.Wrapf(ErrMalformedRuleData, "legacy rule for %s: unknown metric %q", useCode, metric)
	}

	return rule, nil
}

// "1/300,00m² ou fração" -> 300.0
var formulaDivisorRe = regexp.MustCompile(`1\s*/\s*([\d\.,]+)\s*m`)

// ParseFormulaDivisor extracts the per-area divisor from a fixture formula.
// Brazilian number format: "." groups thousands, "," is the decimal mark.
func ParseFormulaDivisor(formula string) (float64, error) {
	m := formulaDivisorRe.FindStringSubmatch(formula)
	if m == nil {
		return 0, eris.Wrapf(ErrMalformedRuleData, "fixture formula %q", formula)
	}
	raw := strings.ReplaceAll(m[1], ".", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	div, err := strconv.ParseFloat(raw, 64)
	if err != nil || div <= 0 {
		return 0, eris.Wrapf(ErrMalformedRuleData, "fixture formula %q", formula)
	}
	return div, nil
}

type sanitaryPayload struct {
	Groups []struct {
		Group string            `json:"group"`
		Bands []json.RawMessage `json:"bands"`
	} `json:"groups"`
}

// Fixture keys as they appear in the stored payloads.
const (
	keyLavatories = "lavatórios"
	keyToilets    = "aparelhos_sanitários"
	keyShowers    = "chuveiros"
	keyUrinals    = "mictórios"
)

// ParseSanitaryProfile decodes a stored sanitary payload into a profile.
// Each fixture in a band is either a literal count or a "_formula" string.
func ParseSanitaryProfile(id, title string, payload []byte, sourceRef string) (*SanitaryProfile, error) {
	var p sanitaryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, eris.Wrapf(ErrMalformedRuleData, "sanitary payload for %s: %v", id, err)
	}

	profile := &SanitaryProfile{ID: id, Title: title, SourceRef: sourceRef}
	for _, g := range p.Groups {
		group := SanitaryGroup{Name: g.Group}
		if group.Name == "" {
			group.Name = "GERAL"
		}
		for i, raw := range g.Bands {
			band, err := parseSanitaryBand(raw)
			if err != nil {
				return nil, eris.Wrapf(err, "sanitary payload for %s: group %q band %d", id, group.Name, i)
			}
			group.Bands = append(group.Bands, band)
		}
		profile.Groups = append(profile.Groups, group)
	}
	if len(profile.Groups) == 0 {
		return nil, eris.Wrapf(ErrMalformedRuleData, "sanitary payload for %s: no groups", id)
	}
	return profile, nil
}

func parseSanitaryBand(raw json.RawMessage) (SanitaryBand, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return SanitaryBand{}, eris.Wrap(ErrMalformedRuleData, err.Error())
	}

	band := SanitaryBand{}
	if v, ok := fields["min_m2"].(float64); ok {
		band.MinM2 = v
	}
	if v, ok := fields["max_m2"].(float64); ok {
		band.MaxM2 = &v
	}
	if v, ok := fields["note"].(string); ok {
		band.Note = v
	}

	var err error
	if band.Lavatories, err = parseFixture(fields, keyLavatories); err != nil {
		return SanitaryBand{}, err
	}
	if band.Toilets, err = parseFixture(fields, keyToilets); err != nil {
		return SanitaryBand{}, err
	}
	if band.Showers, err = parseFixture(fields, keyShowers); err != nil {
		return SanitaryBand{}, err
	}
	if band.Urinals, err = parseFixture(fields, keyUrinals); err != nil {
		return SanitaryBand{}, err
	}
	return band, nil
}

func parseFixture(fields map[string]any, key string) (FixtureCount, error) {
	if v, ok := fields[key].(float64); ok {
		n := int(v)
		return FixtureCount{Literal: &n}, nil
	}
	f, ok := fields[key+"_formula"].(string)
	if !ok || strings.TrimSpace(f) == "" {
		return FixtureCount{}, nil
	}
	div, err := ParseFormulaDivisor(f)
	if err != nil {
		return FixtureCount{}, err
	}
	return FixtureCount{PerAreaM2: &div}, nil
}
