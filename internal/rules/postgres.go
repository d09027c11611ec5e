package rules

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/lotefacil/feasibility-cli/internal/db"
)

// PostgresRepository implements Repository over pgx. Table and column names
// follow the municipal data load; structured payloads live in JSONB columns
// and are parsed here, at read time.
type PostgresRepository struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres opens a pool against the given connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := db.Connect(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(ErrRepositoryUnavailable, err.Error())
	}
	return &PostgresRepository{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests via pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS use_types (
	code      TEXT PRIMARY KEY,
	label     TEXT NOT NULL,
	category  TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS zone_rules (
	zone_sigla            TEXT NOT NULL,
	use_type_code         TEXT NOT NULL,
	to_max                DOUBLE PRECISION,
	tp_min                DOUBLE PRECISION,
	ia_min                DOUBLE PRECISION,
	ia_max                DOUBLE PRECISION,
	to_sub_max            DOUBLE PRECISION,
	recuo_frontal_m       DOUBLE PRECISION,
	recuo_lateral_m       DOUBLE PRECISION,
	recuo_fundos_m        DOUBLE PRECISION,
	gabarito_m            DOUBLE PRECISION,
	gabarito_pav          INTEGER,
	area_min_lote_m2      DOUBLE PRECISION,
	area_max_lote_m2      DOUBLE PRECISION,
	testada_min_meio_m    DOUBLE PRECISION,
	testada_min_esquina_m DOUBLE PRECISION,
	testada_max_m         DOUBLE PRECISION,
	allow_attach_one_side BOOLEAN NOT NULL DEFAULT FALSE,
	requires_subzone      BOOLEAN NOT NULL DEFAULT FALSE,
	subzone_code          TEXT NOT NULL DEFAULT '',
	notes                 TEXT NOT NULL DEFAULT '',
	source_ref            TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (zone_sigla, use_type_code)
);

CREATE TABLE IF NOT EXISTS parking_rules_v2 (
	use_code   TEXT PRIMARY KEY,
	rule_json  JSONB NOT NULL,
	source_ref TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS parking_rules (
	use_type_code TEXT PRIMARY KEY,
	metric        TEXT NOT NULL,
	value         DOUBLE PRECISION NOT NULL DEFAULT 0,
	min_vagas     INTEGER,
	rule_json     JSONB,
	source_ref    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sanitary_profiles (
	sanitary_profile TEXT PRIMARY KEY,
	title            TEXT NOT NULL DEFAULT '',
	rule_json        JSONB NOT NULL,
	source_ref       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS use_sanitary_profile (
	use_type_code    TEXT PRIMARY KEY,
	sanitary_profile TEXT NOT NULL REFERENCES sanitary_profiles(sanitary_profile)
);

CREATE INDEX IF NOT EXISTS idx_zone_rules_zone ON zone_rules(zone_sigla);
CREATE INDEX IF NOT EXISTS idx_use_types_active ON use_types(is_active);
`

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	if r.closeFn != nil {
		r.closeFn()
	}
	return nil
}

const getZoneRuleSQL = `
SELECT zone_sigla, use_type_code,
       to_max, tp_min, ia_min, ia_max, to_sub_max,
       recuo_frontal_m, recuo_lateral_m, recuo_fundos_m,
       gabarito_m, gabarito_pav,
       area_min_lote_m2, area_max_lote_m2,
       testada_min_meio_m, testada_min_esquina_m, testada_max_m,
       allow_attach_one_side, requires_subzone, subzone_code,
       notes, source_ref
FROM zone_rules
WHERE zone_sigla = $1 AND use_type_code = $2`

func (r *PostgresRepository) GetZoneRule(ctx context.Context, zoneCode, useCode string) (*ZoneRule, error) {
	var zr ZoneRule
	err := r.pool.QueryRow(ctx, getZoneRuleSQL, zoneCode, useCode).Scan(
		&zr.ZoneCode, &zr.UseCode,
		&zr.OccupancyMax, &zr.PermeabilityMin, &zr.FloorAreaMin, &zr.FloorAreaMax, &zr.BasementOccupancyMax,
		&zr.SetbackFrontM, &zr.SetbackSideM, &zr.SetbackRearM,
		&zr.HeightLimitM, &zr.FloorLimit,
		&zr.LotAreaMinM2, &zr.LotAreaMaxM2,
		&zr.FrontageMinMidBlockM, &zr.FrontageMinCornerM, &zr.FrontageMaxM,
		&zr.AllowAttachOneSide, &zr.RequiresSubzone, &zr.SubzoneCode,
		&zr.Notes, &zr.SourceRef,
	)
	if err != nil {
		return nil, mapPgError(err, "zone rule %s/%s", zoneCode, useCode)
	}
	return &zr, nil
}

const getCurrentParkingSQL = `
SELECT use_code, rule_json, source_ref FROM parking_rules_v2 WHERE use_code = $1`

func (r *PostgresRepository) GetCurrentParkingRule(ctx context.Context, useCode string) (*ParkingRule, error) {
	var (
		code      string
		payload   []byte
		sourceRef string
	)
	err := r.pool.QueryRow(ctx, getCurrentParkingSQL, useCode).Scan(&code, &payload, &sourceRef)
	if err != nil {
		return nil, mapPgError(err, "parking rule %s", useCode)
	}
	return ParseCurrentRule(code, payload, sourceRef)
}

const getLegacyParkingSQL = `
SELECT use_type_code, metric, value, min_vagas, rule_json, source_ref
FROM parking_rules WHERE use_type_code = $1`

func (r *PostgresRepository) GetLegacyParkingRule(ctx context.Context, useCode string) (*ParkingRule, error) {
	var (
		code      string
		metric    string
		value     float64
		minSpaces *int
		payload   []byte
		sourceRef string
	)
	err := r.pool.QueryRow(ctx, getLegacyParkingSQL, useCode).Scan(&code, &metric, &value, &minSpaces, &payload, &sourceRef)
	if err != nil {
		return nil, mapPgError(err, "legacy parking rule %s", useCode)
	}
	return ParseLegacyRule(code, metric, value, minSpaces, payload, sourceRef)
}

const getUseSanitarySQL = `
SELECT sanitary_profile FROM use_sanitary_profile WHERE use_type_code = $1`

func (r *PostgresRepository) GetUseSanitaryProfileID(ctx context.Context, useCode string) (string, error) {
	var id string
	if err := r.pool.QueryRow(ctx, getUseSanitarySQL, useCode).Scan(&id); err != nil {
		return "", mapPgError(err, "sanitary profile for %s", useCode)
	}
	return id, nil
}

const getSanitaryProfileSQL = `
SELECT sanitary_profile, title, rule_json, source_ref
FROM sanitary_profiles WHERE sanitary_profile = $1`

func (r *PostgresRepository) GetSanitaryProfile(ctx context.Context, profileID string) (*SanitaryProfile, error) {
	var (
		id        string
		title     string
		payload   []byte
		sourceRef string
	)
	err := r.pool.QueryRow(ctx, getSanitaryProfileSQL, profileID).Scan(&id, &title, &payload, &sourceRef)
	if err != nil {
		return nil, mapPgError(err, "sanitary profile %s", profileID)
	}
	return ParseSanitaryProfile(id, title, payload, sourceRef)
}

const listUseTypesSQL = `
SELECT code, label, category FROM use_types WHERE is_active ORDER BY category, label`

func (r *PostgresRepository) ListActiveUseTypes(ctx context.Context) ([]UseType, error) {
	rows, err := r.pool.Query(ctx, listUseTypesSQL)
	if err != nil {
		return nil, eris.Wrap(ErrRepositoryUnavailable, err.Error())
	}
	defer rows.Close()

	var uses []UseType
	for rows.Next() {
		var u UseType
		if err := rows.Scan(&u.Code, &u.Label, &u.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan use type")
		}
		uses = append(uses, u)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(ErrRepositoryUnavailable, err.Error())
	}
	return uses, nil
}

const upsertZoneRuleSQL = `
INSERT INTO zone_rules (
	zone_sigla, use_type_code,
	to_max, tp_min, ia_min, ia_max, to_sub_max,
	recuo_frontal_m, recuo_lateral_m, recuo_fundos_m,
	gabarito_m, gabarito_pav,
	area_min_lote_m2, area_max_lote_m2,
	testada_min_meio_m, testada_min_esquina_m, testada_max_m,
	allow_attach_one_side, requires_subzone, subzone_code,
	notes, source_ref
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
ON CONFLICT (zone_sigla, use_type_code) DO UPDATE SET
	to_max = EXCLUDED.to_max,
	tp_min = EXCLUDED.tp_min,
	ia_min = EXCLUDED.ia_min,
	ia_max = EXCLUDED.ia_max,
	to_sub_max = EXCLUDED.to_sub_max,
	recuo_frontal_m = EXCLUDED.recuo_frontal_m,
	recuo_lateral_m = EXCLUDED.recuo_lateral_m,
	recuo_fundos_m = EXCLUDED.recuo_fundos_m,
	gabarito_m = EXCLUDED.gabarito_m,
	gabarito_pav = EXCLUDED.gabarito_pav,
	area_min_lote_m2 = EXCLUDED.area_min_lote_m2,
	area_max_lote_m2 = EXCLUDED.area_max_lote_m2,
	testada_min_meio_m = EXCLUDED.testada_min_meio_m,
	testada_min_esquina_m = EXCLUDED.testada_min_esquina_m,
	testada_max_m = EXCLUDED.testada_max_m,
	allow_attach_one_side = EXCLUDED.allow_attach_one_side,
	requires_subzone = EXCLUDED.requires_subzone,
	subzone_code = EXCLUDED.subzone_code,
	notes = EXCLUDED.notes,
	source_ref = EXCLUDED.source_ref`

// UpsertZoneRule inserts or replaces one zone rule. Used by the importer.
func (r *PostgresRepository) UpsertZoneRule(ctx context.Context, zr ZoneRule) error {
	_, err := r.pool.Exec(ctx, upsertZoneRuleSQL,
		zr.ZoneCode, zr.UseCode,
		zr.OccupancyMax, zr.PermeabilityMin, zr.FloorAreaMin, zr.FloorAreaMax, zr.BasementOccupancyMax,
		zr.SetbackFrontM, zr.SetbackSideM, zr.SetbackRearM,
		zr.HeightLimitM, zr.FloorLimit,
		zr.LotAreaMinM2, zr.LotAreaMaxM2,
		zr.FrontageMinMidBlockM, zr.FrontageMinCornerM, zr.FrontageMaxM,
		zr.AllowAttachOneSide, zr.RequiresSubzone, zr.SubzoneCode,
		zr.Notes, zr.SourceRef,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert zone rule %s/%s", zr.ZoneCode, zr.UseCode)
	}
	return nil
}

const upsertUseTypeSQL = `
INSERT INTO use_types (code, label, category, is_active) VALUES ($1, $2, $3, TRUE)
ON CONFLICT (code) DO UPDATE SET label = EXCLUDED.label, category = EXCLUDED.category`

// UpsertUseType inserts or replaces one use type. Used by the importer.
func (r *PostgresRepository) UpsertUseType(ctx context.Context, u UseType) error {
	if _, err := r.pool.Exec(ctx, upsertUseTypeSQL, u.Code, u.Label, u.Category); err != nil {
		return eris.Wrapf(err, "postgres: upsert use type %s", u.Code)
	}
	return nil
}

// mapPgError translates pgx row errors into the sentinel taxonomy.
func mapPgError(err error, format string, args ...any) error {
	if eris.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrRuleNotFound, format, args...)
	}
	return eris.Wrap(ErrRepositoryUnavailable, err.Error())
}
