package rules

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestPostgresRepository_GetZoneRule(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := mock.NewRows([]string{
		"zone_sigla", "use_type_code",
		"to_max", "tp_min", "ia_min", "ia_max", "to_sub_max",
		"recuo_frontal_m", "recuo_lateral_m", "recuo_fundos_m",
		"gabarito_m", "gabarito_pav",
		"area_min_lote_m2", "area_max_lote_m2",
		"testada_min_meio_m", "testada_min_esquina_m", "testada_max_m",
		"allow_attach_one_side", "requires_subzone", "subzone_code",
		"notes", "source_ref",
	}).AddRow(
		"ZR1", "RES_UNI",
		fptr(0.6), fptr(0.2), nil, fptr(1.5), nil,
		fptr(3.0), fptr(1.5), fptr(3.0),
		nil, iptr(2),
		fptr(200.0), nil,
		fptr(10.0), fptr(12.0), nil,
		true, false, "",
		"", "Anexo II",
	)
	mock.ExpectQuery(`FROM zone_rules`).WithArgs("ZR1", "RES_UNI").WillReturnRows(rows)

	zr, err := repo.GetZoneRule(context.Background(), "ZR1", "RES_UNI")
	require.NoError(t, err)
	assert.Equal(t, "ZR1", zr.ZoneCode)
	require.NotNil(t, zr.OccupancyMax)
	assert.Equal(t, 0.6, *zr.OccupancyMax)
	assert.Nil(t, zr.HeightLimitM)
	require.NotNil(t, zr.FloorLimit)
	assert.Equal(t, 2, *zr.FloorLimit)
	assert.True(t, zr.AllowAttachOneSide)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetZoneRule_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM zone_rules`).WithArgs("ZX", "HOTEL").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetZoneRule(context.Background(), "ZX", "HOTEL")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrRuleNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetCurrentParkingRule(t *testing.T) {
	repo, mock := newMockRepo(t)

	payload := []byte(`{"base_metric":"area_util_m2","rules":[{"type":"ratio","per_m2":30,"text":"1/30m²"}]}`)
	rows := mock.NewRows([]string{"use_code", "rule_json", "source_ref"}).
		AddRow("COM_VAREJO", payload, "Anexo IV")
	mock.ExpectQuery(`FROM parking_rules_v2`).WithArgs("COM_VAREJO").WillReturnRows(rows)

	rule, err := repo.GetCurrentParkingRule(context.Background(), "COM_VAREJO")
	require.NoError(t, err)
	assert.Equal(t, GenerationCurrent, rule.Generation)
	require.Len(t, rule.Terms, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetCurrentParkingRule_Malformed(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := mock.NewRows([]string{"use_code", "rule_json", "source_ref"}).
		AddRow("X", []byte(`{"base_metric":"area_util_m2","rules":[{"type":"mystery"}]}`), "")
	mock.ExpectQuery(`FROM parking_rules_v2`).WithArgs("X").WillReturnRows(rows)

	_, err := repo.GetCurrentParkingRule(context.Background(), "X")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedRuleData))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetLegacyParkingRule(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := mock.NewRows([]string{"use_type_code", "metric", "value", "min_vagas", "rule_json", "source_ref"}).
		AddRow("RES_MULTI", "per_unit", 1.0, iptr(2), nil, "lei antiga")
	mock.ExpectQuery(`FROM parking_rules`).WithArgs("RES_MULTI").WillReturnRows(rows)

	rule, err := repo.GetLegacyParkingRule(context.Background(), "RES_MULTI")
	require.NoError(t, err)
	assert.Equal(t, GenerationLegacy, rule.Generation)
	require.NotNil(t, rule.MinSpaces)
	assert.Equal(t, 2, *rule.MinSpaces)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Sanitary(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM use_sanitary_profile`).WithArgs("COM_VAREJO").
		WillReturnRows(mock.NewRows([]string{"sanitary_profile"}).AddRow("COM_01"))

	id, err := repo.GetUseSanitaryProfileID(ctx, "COM_VAREJO")
	require.NoError(t, err)
	assert.Equal(t, "COM_01", id)

	payload := []byte(`{"groups":[{"group":"PUBLICO","bands":[{"min_m2":0,"lavatórios_formula":"1/300,00m² ou fração"}]}]}`)
	mock.ExpectQuery(`FROM sanitary_profiles`).WithArgs("COM_01").
		WillReturnRows(mock.NewRows([]string{"sanitary_profile", "title", "rule_json", "source_ref"}).
			AddRow("COM_01", "Comércio", payload, "Anexo III"))

	profile, err := repo.GetSanitaryProfile(ctx, "COM_01")
	require.NoError(t, err)
	require.Len(t, profile.Groups, 1)
	require.NotNil(t, profile.Groups[0].Bands[0].Lavatories.PerAreaM2)
	assert.Equal(t, 300.0, *profile.Groups[0].Bands[0].Lavatories.PerAreaM2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListActiveUseTypes(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := mock.NewRows([]string{"code", "label", "category"}).
		AddRow("COM_VAREJO", "Comércio Varejista", "Comercial").
		AddRow("RES_UNI", "Residência Unifamiliar", "Residencial")
	mock.ExpectQuery(`FROM use_types`).WillReturnRows(rows)

	uses, err := repo.ListActiveUseTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, uses, 2)
	assert.Equal(t, "COM_VAREJO", uses[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpsertZoneRule(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`ON CONFLICT \(zone_sigla, use_type_code\)`).
		WithArgs(
			"ZR1", "RES_UNI",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertZoneRule(context.Background(), ZoneRule{
		ZoneCode: "ZR1", UseCode: "RES_UNI", OccupancyMax: fptr(0.6),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
