package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ruleFixture = `
use_types:
  - code: RES_UNI
    label: Residência Unifamiliar
    category: Residencial
  - code: COM_VAREJO
    label: Comércio Varejista
    category: Comercial

zone_rules:
  - zone_code: ZR1
    use_code: RES_UNI
    occupancy_max: 0.6
    permeability_min: 0.2
    floor_area_max: 1.5
    setback_front_m: 3
    setback_side_m: 1.5
    setback_rear_m: 3
    floor_limit: 2
    source_ref: "Anexo II"

parking_rules:
  - use_code: COM_VAREJO
    base_metric: area_util_m2
    terms:
      - type: ratio
        per_m2: 30
        text: "1 vaga / 30m²"
    cargo_loading: "carga acima de 500m²"
    source_ref: "Anexo IV"

legacy_parking_rules:
  - use_code: IND
    metric: per_area
    value: 0.02
    min_vagas: 3

sanitary_profiles:
  - id: COM_01
    title: Comércio
    groups:
      - name: PUBLICO
        bands:
          - min_m2: 0
            lavatories:
              per_area_m2: 300
            toilets:
              per_area_m2: 300

use_sanitary_profiles:
  COM_VAREJO: COM_01
`

func fixtureRepo(t *testing.T) *FileRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ruleFixture), 0o644))
	repo, err := NewFileRepository(path)
	require.NoError(t, err)
	return repo
}

func TestFileRepository_ZoneRule(t *testing.T) {
	t.Parallel()
	repo := fixtureRepo(t)
	ctx := context.Background()

	zr, err := repo.GetZoneRule(ctx, "ZR1", "RES_UNI")
	require.NoError(t, err)
	require.NotNil(t, zr.OccupancyMax)
	assert.Equal(t, 0.6, *zr.OccupancyMax)
	require.NotNil(t, zr.FloorLimit)
	assert.Equal(t, 2, *zr.FloorLimit)
	assert.Equal(t, "Anexo II", zr.SourceRef)

	// Codes are matched case-insensitively.
	_, err = repo.GetZoneRule(ctx, "zr1", "res_uni")
	assert.NoError(t, err)

	_, err = repo.GetZoneRule(ctx, "ZR1", "HOTEL")
	assert.True(t, eris.Is(err, ErrRuleNotFound))
}

func TestFileRepository_Parking(t *testing.T) {
	t.Parallel()
	repo := fixtureRepo(t)
	ctx := context.Background()

	rule, err := repo.GetCurrentParkingRule(ctx, "COM_VAREJO")
	require.NoError(t, err)
	assert.Equal(t, GenerationCurrent, rule.Generation)
	assert.Equal(t, MetricUsableArea, rule.Metric)
	require.Len(t, rule.Terms, 1)

	_, err = repo.GetCurrentParkingRule(ctx, "IND")
	assert.True(t, eris.Is(err, ErrRuleNotFound))

	legacy, err := repo.GetLegacyParkingRule(ctx, "IND")
	require.NoError(t, err)
	assert.Equal(t, GenerationLegacy, legacy.Generation)
	require.NotNil(t, legacy.MinSpaces)
	assert.Equal(t, 3, *legacy.MinSpaces)
}

func TestFileRepository_Sanitary(t *testing.T) {
	t.Parallel()
	repo := fixtureRepo(t)
	ctx := context.Background()

	id, err := repo.GetUseSanitaryProfileID(ctx, "COM_VAREJO")
	require.NoError(t, err)
	assert.Equal(t, "COM_01", id)

	profile, err := repo.GetSanitaryProfile(ctx, id)
	require.NoError(t, err)
	require.Len(t, profile.Groups, 1)
	require.NotNil(t, profile.Groups[0].Bands[0].Lavatories.PerAreaM2)
	assert.Equal(t, 300.0, *profile.Groups[0].Bands[0].Lavatories.PerAreaM2)

	_, err = repo.GetUseSanitaryProfileID(ctx, "RES_UNI")
	assert.True(t, eris.Is(err, ErrRuleNotFound))
}

func TestFileRepository_UseTypes(t *testing.T) {
	t.Parallel()
	repo := fixtureRepo(t)

	uses, err := repo.ListActiveUseTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, uses, 2)
	assert.Equal(t, "RES_UNI", uses[0].Code)
	assert.Equal(t, "Comercial", uses[1].Category)
}

func TestNewFileRepository_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewFileRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("parking_rules:\n  - use_code: X\n    base_metric: area_util_m2\n    terms:\n      - type: mystery\n"), 0o644))
	_, err = NewFileRepository(bad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedRuleData))
}
