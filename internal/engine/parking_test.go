package engine

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotefacil/feasibility-cli/internal/rules"
)

// stubRepo is an in-memory rules.Repository for engine tests.
type stubRepo struct {
	zoneRules      map[string]*rules.ZoneRule
	currentParking map[string]*rules.ParkingRule
	legacyParking  map[string]*rules.ParkingRule
	sanitary       map[string]*rules.SanitaryProfile
	useSanitary    map[string]string
	useTypes       []rules.UseType

	listErr error
}

func (s *stubRepo) GetZoneRule(_ context.Context, zoneCode, useCode string) (*rules.ZoneRule, error) {
	if zr, ok := s.zoneRules[zoneCode+"|"+useCode]; ok {
		return zr, nil
	}
	return nil, eris.Wrapf(rules.ErrRuleNotFound, "zone rule %s/%s", zoneCode, useCode)
}

func (s *stubRepo) GetCurrentParkingRule(_ context.Context, useCode string) (*rules.ParkingRule, error) {
	if r, ok := s.currentParking[useCode]; ok {
		return r, nil
	}
	return nil, eris.Wrapf(rules.ErrRuleNotFound, "parking rule %s", useCode)
}

func (s *stubRepo) GetLegacyParkingRule(_ context.Context, useCode string) (*rules.ParkingRule, error) {
	if r, ok := s.legacyParking[useCode]; ok {
		return r, nil
	}
	return nil, eris.Wrapf(rules.ErrRuleNotFound, "legacy parking rule %s", useCode)
}

func (s *stubRepo) GetUseSanitaryProfileID(_ context.Context, useCode string) (string, error) {
	if id, ok := s.useSanitary[useCode]; ok {
		return id, nil
	}
	return "", eris.Wrapf(rules.ErrRuleNotFound, "sanitary profile for %s", useCode)
}

func (s *stubRepo) GetSanitaryProfile(_ context.Context, profileID string) (*rules.SanitaryProfile, error) {
	if sp, ok := s.sanitary[profileID]; ok {
		return sp, nil
	}
	return nil, eris.Wrapf(rules.ErrRuleNotFound, "sanitary profile %s", profileID)
}

func (s *stubRepo) ListActiveUseTypes(context.Context) ([]rules.UseType, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.useTypes, nil
}

func (s *stubRepo) Migrate(context.Context) error { return nil }
func (s *stubRepo) Close() error                  { return nil }

func areaRule(useCode string, perM2 float64) *rules.ParkingRule {
	return &rules.ParkingRule{
		UseCode:    useCode,
		Metric:     rules.MetricUsableArea,
		Terms:      []rules.ParkingTerm{rules.RatioTerm{PerUnit: perM2, RuleText: "1 vaga por área"}},
		Generation: rules.GenerationCurrent,
	}
}

func TestRoundRequirement(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  float64
		want int
	}{
		{raw: 0, want: 0},
		{raw: -1, want: 0},
		{raw: 0.4, want: 0},
		{raw: 0.5, want: 1},
		{raw: 9.4, want: 9},
		{raw: 9.5, want: 10},
		{raw: 9.64, want: 10},
		{raw: 9.65, want: 10},
		{raw: 9.6667, want: 10},
		{raw: 9.44, want: 9},
		{raw: 10.0, want: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundRequirement(tt.raw), "raw=%v", tt.raw)
	}
}

func TestComputeParking_AreaRatio(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{currentParking: map[string]*rules.ParkingRule{"COM_VAREJO": areaRule("COM_VAREJO", 30)}}

	// 290 / 30 = 9.67 -> 10 spaces.
	res, err := ComputeParking(context.Background(), repo, "COM_VAREJO", "Comércio",
		map[rules.ParkingMetric]float64{rules.MetricUsableArea: 290}, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, ParkingRequired, res.Status)
	assert.Equal(t, 10, res.Required)
	assert.Equal(t, rules.GenerationCurrent, res.Generation)
	assert.Equal(t, "1 vaga por área", res.AppliedRuleText)
}

func TestComputeParking_TransitReduction(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{currentParking: map[string]*rules.ParkingRule{"COM_VAREJO": areaRule("COM_VAREJO", 30)}}

	// 10 spaces reduced to ceil(10 * 0.8) = 8, after rounding.
	res, err := ComputeParking(context.Background(), repo, "COM_VAREJO", "",
		map[rules.ParkingMetric]float64{rules.MetricUsableArea: 290}, ParkingOptions{NearTransit: true})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Required)
	require.Len(t, res.Adjustments, 1)
	assert.Equal(t, "transit_20pct", res.Adjustments[0].Kind)
	assert.Equal(t, 10, res.Adjustments[0].From)
	assert.Equal(t, 8, res.Adjustments[0].To)
}

func TestComputeParking_SingleFamilyNeverRequires(t *testing.T) {
	t.Parallel()
	// Even with a rule on record, the use class wins.
	repo := &stubRepo{currentParking: map[string]*rules.ParkingRule{"RES_UNI": areaRule("RES_UNI", 10)}}

	res, err := ComputeParking(context.Background(), repo, "RES_UNI", "Residência Unifamiliar",
		map[rules.ParkingMetric]float64{rules.MetricUsableArea: 500}, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, ParkingNotRequired, res.Status)
	assert.Zero(t, res.Required)
}

func TestComputeParking_LocalStreetExemption(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{currentParking: map[string]*rules.ParkingRule{"COM_VAREJO": areaRule("COM_VAREJO", 30)}}
	ctx := context.Background()
	metrics := func(area float64) map[rules.ParkingMetric]float64 {
		return map[rules.ParkingMetric]float64{rules.MetricUsableArea: area}
	}

	res, err := ComputeParking(ctx, repo, "COM_VAREJO", "Comércio", metrics(100), ParkingOptions{LocalStreet: true})
	require.NoError(t, err)
	assert.Equal(t, ParkingExempt, res.Status)

	// Above 100 m2 the exemption does not apply.
	res, err = ComputeParking(ctx, repo, "COM_VAREJO", "Comércio", metrics(101), ParkingOptions{LocalStreet: true})
	require.NoError(t, err)
	assert.Equal(t, ParkingRequired, res.Status)

	// Residential multi-family is never exempted this way.
	repo.currentParking["RES_MULTI"] = &rules.ParkingRule{
		UseCode:    "RES_MULTI",
		Metric:     rules.MetricUsableArea,
		Terms:      []rules.ParkingTerm{rules.RatioTerm{PerUnit: 50}},
		Generation: rules.GenerationCurrent,
	}
	res, err = ComputeParking(ctx, repo, "RES_MULTI", "Residência Multifamiliar", metrics(80), ParkingOptions{LocalStreet: true})
	require.NoError(t, err)
	assert.NotEqual(t, ParkingExempt, res.Status)
}

func TestComputeParking_MaxOverTerms(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{currentParking: map[string]*rules.ParkingRule{
		"SERVICOS": {
			UseCode: "SERVICOS",
			Metric:  rules.MetricUsableArea,
			Terms: []rules.ParkingTerm{
				rules.RatioTerm{PerUnit: 100, RuleText: "1/100m²"},
				rules.FixedTerm{Count: 3, RuleText: "mínimo 3 vagas"},
			},
			Generation: rules.GenerationCurrent,
		},
	}}
	ctx := context.Background()

	// Small area: the fixed floor wins.
	res, err := ComputeParking(ctx, repo, "SERVICOS", "", map[rules.ParkingMetric]float64{rules.MetricUsableArea: 150}, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Required)
	assert.Equal(t, "mínimo 3 vagas", res.AppliedRuleText)

	// Large area: the ratio wins.
	res, err = ComputeParking(ctx, repo, "SERVICOS", "", map[rules.ParkingMetric]float64{rules.MetricUsableArea: 900}, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Required)
	assert.Equal(t, "1/100m²", res.AppliedRuleText)
}

func TestComputeParking_LegacyFallback(t *testing.T) {
	t.Parallel()
	minTwo := 2
	repo := &stubRepo{
		legacyParking: map[string]*rules.ParkingRule{
			"IND": {
				UseCode:    "IND",
				Metric:     rules.MetricUsableArea,
				Terms:      []rules.ParkingTerm{rules.RatioTerm{PerUnit: 200}},
				Generation: rules.GenerationLegacy,
				MinSpaces:  &minTwo,
			},
		},
	}

	res, err := ComputeParking(context.Background(), repo, "IND", "Indústria",
		map[rules.ParkingMetric]float64{rules.MetricUsableArea: 250}, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, rules.GenerationLegacy, res.Generation)
	// 250/200 = 1.25 -> 1, lifted to the 2-space minimum.
	assert.Equal(t, 2, res.Required)
}

func TestComputeParking_UnitAreaStepped(t *testing.T) {
	t.Parallel()
	moto := 0.2
	rule := &rules.ParkingRule{
		UseCode:      "RES_MULTI",
		Metric:       rules.MetricDwellingUnits,
		Generation:   rules.GenerationLegacy,
		UnitAreaRate: &rules.UnitAreaRateSpec{ThresholdM2: 90, RateBelow: 1.0, RateAtOrAbove: 1.5, RuleText: "por unidade"},
		MotoShareMax: &moto,
	}
	repo := &stubRepo{legacyParking: map[string]*rules.ParkingRule{"RES_MULTI": rule}}
	ctx := context.Background()
	units := map[rules.ParkingMetric]float64{rules.MetricDwellingUnits: 10}

	// Below the threshold: 10 * 1.0 = 10.
	res, err := ComputeParking(ctx, repo, "RES_MULTI", "Residência Multifamiliar", units, ParkingOptions{UnitAreaM2: 70})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Required)
	require.NotNil(t, res.MotoShareMax)
	assert.Equal(t, 0.2, *res.MotoShareMax)

	// At the threshold: 10 * 1.5 = 15.
	res, err = ComputeParking(ctx, repo, "RES_MULTI", "Residência Multifamiliar", units, ParkingOptions{UnitAreaM2: 90})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Required)

	// Unknown unit area: nothing is evaluable.
	res, err = ComputeParking(ctx, repo, "RES_MULTI", "Residência Multifamiliar", units, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, ParkingUndetermined, res.Status)
}

func TestComputeParking_Undetermined(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{}

	res, err := ComputeParking(context.Background(), repo, "HELIPONTO", "",
		map[rules.ParkingMetric]float64{rules.MetricUsableArea: 500}, ParkingOptions{})
	require.NoError(t, err)
	assert.Equal(t, ParkingUndetermined, res.Status)
	assert.Zero(t, res.Required)
}

func TestComputeParking_RequirementMonotonicInArea(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{currentParking: map[string]*rules.ParkingRule{"COM_VAREJO": areaRule("COM_VAREJO", 35)}}
	ctx := context.Background()

	prev := 0
	for area := 50.0; area <= 2000; area += 37.5 {
		res, err := ComputeParking(ctx, repo, "COM_VAREJO", "",
			map[rules.ParkingMetric]float64{rules.MetricUsableArea: area}, ParkingOptions{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Required, prev, "area=%v", area)
		prev = res.Required
	}
}
