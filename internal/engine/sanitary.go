package engine

import (
	"context"
	"math"

	"github.com/lotefacil/feasibility-cli/internal/rules"
)

// FixtureCounts holds the evaluated counts for one group. A nil field means
// the band does not regulate that fixture, which is different from zero.
type FixtureCounts struct {
	Lavatories *int `json:"lavatories"`
	Toilets    *int `json:"toilets"`
	Urinals    *int `json:"urinals"`
	Showers    *int `json:"showers"`
}

// SanitaryGroupResult is one occupant group's evaluated band.
type SanitaryGroupResult struct {
	Group    string        `json:"group"`
	Fixtures FixtureCounts `json:"fixtures"`
	Note     string        `json:"note,omitempty"`
}

// SanitaryTotals sums the defined counts across groups.
type SanitaryTotals struct {
	Lavatories int `json:"lavatories"`
	Toilets    int `json:"toilets"`
	Urinals    int `json:"urinals"`
	Showers    int `json:"showers"`
}

// SanitaryResult is the fixture requirement for one use and usable area.
type SanitaryResult struct {
	ProfileID    string                `json:"profile_id"`
	Title        string                `json:"title,omitempty"`
	UsableAreaM2 float64               `json:"usable_area_m2"`
	Groups       []SanitaryGroupResult `json:"groups"`
	Totals       SanitaryTotals        `json:"totals"`
	SourceRef    string                `json:"source_ref,omitempty"`
}

// ComputeSanitary resolves the use's profile and evaluates its fixture table
// for the given usable area.
func ComputeSanitary(ctx context.Context, repo rules.Repository, useCode string, usableAreaM2 float64) (*SanitaryResult, error) {
	profileID, err := repo.GetUseSanitaryProfileID(ctx, useCode)
	if err != nil {
		return nil, err
	}
	profile, err := repo.GetSanitaryProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return EvaluateSanitaryProfile(profile, usableAreaM2), nil
}

// EvaluateSanitaryProfile selects each group's band for the area and
// evaluates its fixture counts. An area past a group's last band reuses that
// band's formulas, so selection is total over non-negative areas.
func EvaluateSanitaryProfile(profile *rules.SanitaryProfile, usableAreaM2 float64) *SanitaryResult {
	area := math.Max(usableAreaM2, 0)
	res := &SanitaryResult{
		ProfileID:    profile.ID,
		Title:        profile.Title,
		UsableAreaM2: area,
		SourceRef:    profile.SourceRef,
	}

	for _, group := range profile.Groups {
		band, ok := selectBand(group.Bands, area)
		if !ok {
			continue
		}

		gr := SanitaryGroupResult{
			Group: group.Name,
			Note:  band.Note,
			Fixtures: FixtureCounts{
				Lavatories: evalFixture(band.Lavatories, area),
				Toilets:    evalFixture(band.Toilets, area),
				Urinals:    evalFixture(band.Urinals, area),
				Showers:    evalFixture(band.Showers, area),
			},
		}
		res.Groups = append(res.Groups, gr)

		addTotal(&res.Totals.Lavatories, gr.Fixtures.Lavatories)
		addTotal(&res.Totals.Toilets, gr.Fixtures.Toilets)
		addTotal(&res.Totals.Urinals, gr.Fixtures.Urinals)
		addTotal(&res.Totals.Showers, gr.Fixtures.Showers)
	}

	return res
}

// selectBand picks the [min, max) band containing the area, falling back to
// the last band when the area exceeds every upper bound.
func selectBand(bands []rules.SanitaryBand, area float64) (rules.SanitaryBand, bool) {
	if len(bands) == 0 {
		return rules.SanitaryBand{}, false
	}
	for _, b := range bands {
		if area < b.MinM2 {
			continue
		}
		if b.MaxM2 == nil || area < *b.MaxM2 {
			return b, true
		}
	}
	return bands[len(bands)-1], true
}

func evalFixture(f rules.FixtureCount, area float64) *int {
	switch {
	case f.Literal != nil:
		n := *f.Literal
		return &n
	case f.PerAreaM2 != nil && *f.PerAreaM2 > 0:
		n := int(math.Ceil(area / *f.PerAreaM2))
		return &n
	default:
		return nil
	}
}

func addTotal(total *int, v *int) {
	if v != nil {
		*total += *v
	}
}
