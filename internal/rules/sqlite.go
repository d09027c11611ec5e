package rules

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Repository using modernc.org/sqlite. The
// schema mirrors the postgres one with JSON payloads stored as TEXT.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS use_types (
	code      TEXT PRIMARY KEY,
	label     TEXT NOT NULL,
	category  TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS zone_rules (
	zone_sigla            TEXT NOT NULL,
	use_type_code         TEXT NOT NULL,
	to_max                REAL,
	tp_min                REAL,
	ia_min                REAL,
	ia_max                REAL,
	to_sub_max            REAL,
	recuo_frontal_m       REAL,
	recuo_lateral_m       REAL,
	recuo_fundos_m        REAL,
	gabarito_m            REAL,
	gabarito_pav          INTEGER,
	area_min_lote_m2      REAL,
	area_max_lote_m2      REAL,
	testada_min_meio_m    REAL,
	testada_min_esquina_m REAL,
	testada_max_m         REAL,
	allow_attach_one_side INTEGER NOT NULL DEFAULT 0,
	requires_subzone      INTEGER NOT NULL DEFAULT 0,
	subzone_code          TEXT NOT NULL DEFAULT '',
	notes                 TEXT NOT NULL DEFAULT '',
	source_ref            TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (zone_sigla, use_type_code)
);

CREATE TABLE IF NOT EXISTS parking_rules_v2 (
	use_code   TEXT PRIMARY KEY,
	rule_json  TEXT NOT NULL,
	source_ref TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS parking_rules (
	use_type_code TEXT PRIMARY KEY,
	metric        TEXT NOT NULL,
	value         REAL NOT NULL DEFAULT 0,
	min_vagas     INTEGER,
	rule_json     TEXT,
	source_ref    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sanitary_profiles (
	sanitary_profile TEXT PRIMARY KEY,
	title            TEXT NOT NULL DEFAULT '',
	rule_json        TEXT NOT NULL,
	source_ref       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS use_sanitary_profile (
	use_type_code    TEXT PRIMARY KEY,
	sanitary_profile TEXT NOT NULL REFERENCES sanitary_profiles(sanitary_profile)
);

CREATE INDEX IF NOT EXISTS idx_zone_rules_zone ON zone_rules(zone_sigla);
CREATE INDEX IF NOT EXISTS idx_use_types_active ON use_types(is_active);
`

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetZoneRule(ctx context.Context, zoneCode, useCode string) (*ZoneRule, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT zone_sigla, use_type_code,
       to_max, tp_min, ia_min, ia_max, to_sub_max,
       recuo_frontal_m, recuo_lateral_m, recuo_fundos_m,
       gabarito_m, gabarito_pav,
       area_min_lote_m2, area_max_lote_m2,
       testada_min_meio_m, testada_min_esquina_m, testada_max_m,
       allow_attach_one_side, requires_subzone, subzone_code,
       notes, source_ref
FROM zone_rules
WHERE zone_sigla = ? AND use_type_code = ?`, zoneCode, useCode)

	var zr ZoneRule
	err := row.Scan(
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
		return nil, mapSQLError(err, "zone rule %s/%s", zoneCode, useCode)
	}
	return &zr, nil
}

func (r *SQLiteRepository) GetCurrentParkingRule(ctx context.Context, useCode string) (*ParkingRule, error) {
	var (
		code      string
		payload   []byte
		sourceRef string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT use_code, rule_json, source_ref FROM parking_rules_v2 WHERE use_code = ?`, useCode,
	).Scan(&code, &payload, &sourceRef)
	if err != nil {
		return nil, mapSQLError(err, "parking rule %s", useCode)
	}
	return ParseCurrentRule(code, payload, sourceRef)
}

func (r *SQLiteRepository) GetLegacyParkingRule(ctx context.Context, useCode string) (*ParkingRule, error) {
	var (
		code      string
		metric    string
		value     float64
		minSpaces *int
		payload   []byte
		sourceRef string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT use_type_code, metric, value, min_vagas, rule_json, source_ref FROM parking_rules WHERE use_type_code = ?`, useCode,
	).Scan(&code, &metric, &value, &minSpaces, &payload, &sourceRef)
	if err != nil {
		return nil, mapSQLError(err, "legacy parking rule %s", useCode)
	}
	return ParseLegacyRule(code, metric, value, minSpaces, payload, sourceRef)
}

func (r *SQLiteRepository) GetUseSanitaryProfileID(ctx context.Context, useCode string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT sanitary_profile FROM use_sanitary_profile WHERE use_type_code = ?`, useCode,
	).Scan(&id)
	if err != nil {
		return "", mapSQLError(err, "sanitary profile for %s", useCode)
	}
	return id, nil
}

func (r *SQLiteRepository) GetSanitaryProfile(ctx context.Context, profileID string) (*SanitaryProfile, error) {
	var (
		id        string
		title     string
		payload   []byte
		sourceRef string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT sanitary_profile, title, rule_json, source_ref FROM sanitary_profiles WHERE sanitary_profile = ?`, profileID,
	).Scan(&id, &title, &payload, &sourceRef)
	if err != nil {
		return nil, mapSQLError(err, "sanitary profile %s", profileID)
	}
	return ParseSanitaryProfile(id, title, payload, sourceRef)
}

func (r *SQLiteRepository) ListActiveUseTypes(ctx context.Context) ([]UseType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, label, category FROM use_types WHERE is_active = 1 ORDER BY category, label`)
	if err != nil {
		return nil, eris.Wrap(ErrRepositoryUnavailable, err.Error())
	}
	defer rows.Close()

	var uses []UseType
	for rows.Next() {
		var u UseType
		if err := rows.Scan(&u.Code, &u.Label, &u.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan use type")
		}
		uses = append(uses, u)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(ErrRepositoryUnavailable, err.Error())
	}
	return uses, nil
}

// UpsertZoneRule inserts or replaces one zone rule. Used by the importer.
func (r *SQLiteRepository) UpsertZoneRule(ctx context.Context, zr ZoneRule) error {
	_, err := r.db.ExecContext(ctx, `
INSERT OR REPLACE INTO zone_rules (
	zone_sigla, use_type_code,
	to_max, tp_min, ia_min, ia_max, to_sub_max,
	recuo_frontal_m, recuo_lateral_m, recuo_fundos_m,
	gabarito_m, gabarito_pav,
	area_min_lote_m2, area_max_lote_m2,
	testada_min_meio_m, testada_min_esquina_m, testada_max_m,
	allow_attach_one_side, requires_subzone, subzone_code,
	notes, source_ref
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
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
		return eris.Wrapf(err, "sqlite: upsert zone rule %s/%s", zr.ZoneCode, zr.UseCode)
	}
	return nil
}

// UpsertUseType inserts or replaces one use type. Used by the importer.
func (r *SQLiteRepository) UpsertUseType(ctx context.Context, u UseType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO use_types (code, label, category, is_active) VALUES (?, ?, ?, 1)`,
		u.Code, u.Label, u.Category,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert use type %s", u.Code)
	}
	return nil
}

func mapSQLError(err error, format string, args ...any) error {
	if eris.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrRuleNotFound, format, args...)
	}
	return eris.Wrap(ErrRepositoryUnavailable, err.Error())
}
