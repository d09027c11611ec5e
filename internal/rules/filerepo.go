package rules

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileRepository serves rules from a single YAML document. Intended for
// offline runs and fixtures; the whole file parses at load time, so a
// malformed entry fails construction instead of the first lookup that
// happens to touch it.
type FileRepository struct {
	zoneRules      map[string]*ZoneRule
	currentParking map[string]*ParkingRule
	legacyParking  map[string]*ParkingRule
	sanitary       map[string]*SanitaryProfile
	useSanitary    map[string]string
	useTypes       []UseType
}

type fileDocument struct {
	UseTypes  []UseType  `yaml:"use_types"`
	ZoneRules []ZoneRule `yaml:"zone_rules"`
	Parking   []struct {
		UseCode      string               `yaml:"use_code"`
		BaseMetric   string               `yaml:"base_metric"`
		Terms        []currentTermPayload `yaml:"terms"`
		CargoText    string               `yaml:"cargo_loading"`
		GeneralNotes []string             `yaml:"general_notes"`
		SourceRef    string               `yaml:"source_ref"`
	} `yaml:"parking_rules"`
	LegacyParking []struct {
		UseCode   string  `yaml:"use_code"`
		Metric    string  `yaml:"metric"`
		Value     float64 `yaml:"value"`
		MinSpaces *int    `yaml:"min_vagas"`
		SourceRef string  `yaml:"source_ref"`
	} `yaml:"legacy_parking_rules"`
	SanitaryProfiles    []SanitaryProfile `yaml:"sanitary_profiles"`
	UseSanitaryProfiles map[string]string `yaml:"use_sanitary_profiles"`
}

// NewFileRepository loads and fully parses the YAML rule file.
func NewFileRepository(path string) (*FileRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(ErrMalformedRuleData, "rules: parse %s: %v", path, err)
	}

	repo := &FileRepository{
		zoneRules:      make(map[string]*ZoneRule),
		currentParking: make(map[string]*ParkingRule),
		legacyParking:  make(map[string]*ParkingRule),
		sanitary:       make(map[string]*SanitaryProfile),
		useSanitary:    doc.UseSanitaryProfiles,
		useTypes:       doc.UseTypes,
	}
	if repo.useSanitary == nil {
		repo.useSanitary = map[string]string{}
	}

	for i := range doc.ZoneRules {
		zr := doc.ZoneRules[i]
		repo.zoneRules[zoneRuleKey(zr.ZoneCode, zr.UseCode)] = &zr
	}

	for _, p := range doc.Parking {
		metric := ParkingMetric(p.BaseMetric)
		rule := &ParkingRule{
			UseCode:    p.UseCode,
			Metric:     metric,
			CargoText:  p.CargoText,
			Notes:      p.GeneralNotes,
			SourceRef:  p.SourceRef,
			Generation: GenerationCurrent,
		}
		for i, t := range p.Terms {
			term, err := buildTerm(t, metric)
			if err != nil {
				return nil, eris.Wrapf(err, "rules: parking rule %s term %d", p.UseCode, i)
			}
			rule.Terms = append(rule.Terms, term)
		}
		if len(rule.Terms) == 0 {
			return nil, eris.Wrapf(ErrMalformedRuleData, "rules: parking rule %s has no terms", p.UseCode)
		}
		repo.currentParking[normCode(p.UseCode)] = rule
	}

	for _, p := range doc.LegacyParking {
		rule, err := ParseLegacyRule(p.UseCode, p.Metric, p.Value, p.MinSpaces, nil, p.SourceRef)
		if err != nil {
			return nil, eris.Wrapf(err, "rules: legacy parking rule %s", p.UseCode)
		}
		repo.legacyParking[normCode(p.UseCode)] = rule
	}

	for i := range doc.SanitaryProfiles {
		sp := doc.SanitaryProfiles[i]
		repo.sanitary[sp.ID] = &sp
	}

	return repo, nil
}

func zoneRuleKey(zoneCode, useCode string) string {
	return normCode(zoneCode) + "|" + normCode(useCode)
}

func normCode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *FileRepository) GetZoneRule(_ context.Context, zoneCode, useCode string) (*ZoneRule, error) {
	zr, ok := r.zoneRules[zoneRuleKey(zoneCode, useCode)]
	if !ok {
		return nil, eris.Wrapf(ErrRuleNotFound, "zone rule %s/%s", zoneCode, useCode)
	}
	return zr, nil
}

func (r *FileRepository) GetCurrentParkingRule(_ context.Context, useCode string) (*ParkingRule, error) {
	rule, ok := r.currentParking[normCode(useCode)]
	if !ok {
		return nil, eris.Wrapf(ErrRuleNotFound, "parking rule %s", useCode)
	}
	return rule, nil
}

func (r *FileRepository) GetLegacyParkingRule(_ context.Context, useCode string) (*ParkingRule, error) {
	rule, ok := r.legacyParking[normCode(useCode)]
	if !ok {
		return nil, eris.Wrapf(ErrRuleNotFound, "legacy parking rule %s", useCode)
	}
	return rule, nil
}

func (r *FileRepository) GetUseSanitaryProfileID(_ context.Context, useCode string) (string, error) {
	for code, id := range r.useSanitary {
		if normCode(code) == normCode(useCode) {
			return id, nil
		}
	}
	return "", eris.Wrapf(ErrRuleNotFound, "sanitary profile for %s", useCode)
}

func (r *FileRepository) GetSanitaryProfile(_ context.Context, profileID string) (*SanitaryProfile, error) {
	sp, ok := r.sanitary[profileID]
	if !ok {
		return nil, eris.Wrapf(ErrRuleNotFound, "sanitary profile %s", profileID)
	}
	return sp, nil
}

func (r *FileRepository) ListActiveUseTypes(context.Context) ([]UseType, error) {
	return r.useTypes, nil
}

func (r *FileRepository) Migrate(context.Context) error { return nil }

func (r *FileRepository) Close() error { return nil }
