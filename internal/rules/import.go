package rules

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ZoneRuleWriter is the write side used by the importer. The postgres and
// sqlite repositories implement it; the file repository is read-only.
type ZoneRuleWriter interface {
	UpsertZoneRule(ctx context.Context, zr ZoneRule) error
	UpsertUseType(ctx context.Context, u UseType) error
}

// ImportResult summarizes one spreadsheet import.
type ImportResult struct {
	Rows     int
	Imported int
	Skipped  int
}

// zone rule spreadsheet header -> column resolver. Headers come from the
// municipal annex export and are matched case-insensitively after trimming.
var importColumns = map[string]string{
	"zona":                  "zone_sigla",
	"zone_sigla":            "zone_sigla",
	"uso":                   "use_type_code",
	"use_type_code":         "use_type_code",
	"to_max":                "to_max",
	"tp_min":                "tp_min",
	"ia_min":                "ia_min",
	"ia_max":                "ia_max",
	"to_sub_max":            "to_sub_max",
	"recuo_frontal_m":       "recuo_frontal_m",
	"recuo_lateral_m":       "recuo_lateral_m",
	"recuo_fundos_m":        "recuo_fundos_m",
	"gabarito_m":            "gabarito_m",
	"gabarito_pav":          "gabarito_pav",
	"area_min_lote_m2":      "area_min_lote_m2",
	"area_max_lote_m2":      "area_max_lote_m2",
	"testada_min_meio_m":    "testada_min_meio_m",
	"testada_min_esquina_m": "testada_min_esquina_m",
	"testada_max_m":         "testada_max_m",
	"allow_attach_one_side": "allow_attach_one_side",
	"requires_subzone":      "requires_subzone",
	"subzone_code":          "subzone_code",
	"notes":                 "notes",
	"observacoes":           "notes",
	"source_ref":            "source_ref",
}

// ImportZoneRulesXLSX loads zone rules from a spreadsheet into the writer.
// The first row is the header; rows missing a zone or use code are skipped
// and counted, rows with unparseable numbers fail the import.
func ImportZoneRulesXLSX(ctx context.Context, w ZoneRuleWriter, path, sourceRef string) (*ImportResult, error) {
	log := zap.L().With(zap.String("component", "rules_import"))

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "rules: open spreadsheet")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("rules: spreadsheet %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, eris.Errorf("rules: spreadsheet %s has no data rows", path)
	}

	cols := map[string]int{}
	for j, cell := range sheet.Rows[0].Cells {
		key := strings.ToLower(strings.TrimSpace(cell.String()))
		if name, ok := importColumns[key]; ok {
			cols[name] = j
		}
	}
	if _, ok := cols["zone_sigla"]; !ok {
		return nil, eris.Errorf("rules: spreadsheet %s missing zone column", path)
	}
	if _, ok := cols["use_type_code"]; !ok {
		return nil, eris.Errorf("rules: spreadsheet %s missing use column", path)
	}

	res := &ImportResult{}
	for i, row := range sheet.Rows[1:] {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "rules: import cancelled")
		}
		res.Rows++

		get := func(name string) string {
			j, ok := cols[name]
			if !ok || j >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[j].String())
		}

		zone := get("zone_sigla")
		use := get("use_type_code")
		if zone == "" || use == "" {
			res.Skipped++
			continue
		}

		zr := ZoneRule{
			ZoneCode:           zone,
			UseCode:            use,
			AllowAttachOneSide: parseBoolCell(get("allow_attach_one_side")),
			RequiresSubzone:    parseBoolCell(get("requires_subzone")),
			SubzoneCode:        get("subzone_code"),
			Notes:              get("notes"),
			SourceRef:          sourceRef,
		}
		if ref := get("source_ref"); ref != "" {
			zr.SourceRef = ref
		}

		for name, dst := range map[string]**float64{
			"to_max":                &zr.OccupancyMax,
			"tp_min":                &zr.PermeabilityMin,
			"ia_min":                &zr.FloorAreaMin,
			"ia_max":                &zr.FloorAreaMax,
			"to_sub_max":            &zr.BasementOccupancyMax,
			"recuo_frontal_m":       &zr.SetbackFrontM,
			"recuo_lateral_m":       &zr.SetbackSideM,
			"recuo_fundos_m":        &zr.SetbackRearM,
			"gabarito_m":            &zr.HeightLimitM,
			"area_min_lote_m2":      &zr.LotAreaMinM2,
			"area_max_lote_m2":      &zr.LotAreaMaxM2,
			"testada_min_meio_m":    &zr.FrontageMinMidBlockM,
			"testada_min_esquina_m": &zr.FrontageMinCornerM,
			"testada_max_m":         &zr.FrontageMaxM,
		} {
			v, err := parseFloatCell(get(name))
			if err != nil {
				return nil, eris.Wrapf(err, "rules: row %d column %s", i+2, name)
			}
			*dst = v
		}

		if s := get("gabarito_pav"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, eris.Wrapf(err, "rules: row %d column gabarito_pav", i+2)
			}
			zr.FloorLimit = &n
		}

		if err := w.UpsertZoneRule(ctx, zr); err != nil {
			return nil, eris.Wrapf(err, "rules: row %d", i+2)
		}
		res.Imported++
	}

	log.Info("zone rules imported",
		zap.String("path", path),
		zap.Int("rows", res.Rows),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// parseFloatCell accepts both "0.5" and the Brazilian "0,5". Empty cells
// mean "not on record" and return nil.
func parseFloatCell(s string) (*float64, error) {
	if s == "" || s == "-" {
		return nil, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse %q", s)
	}
	return &v, nil
}

func parseBoolCell(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "sim", "yes", "x":
		return true
	default:
		return false
	}
}
