package spatial

import (
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/lotefacil/feasibility-cli/internal/geo"
)

// LocationResult combines the zone and street lookups for one coordinate.
// Either half may be absent; downstream calculation requires the zone, the
// street only refines parking exemptions.
type LocationResult struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	Zone            *geo.Zone  `json:"-"`
	Street          *StreetHit `json:"-"`
	ZoneCode        string     `json:"zone_code,omitempty"`
	ZoneName        string     `json:"zone_name,omitempty"`
	StreetName      string     `json:"street_name,omitempty"`
	StreetHierarchy string     `json:"street_hierarchy,omitempty"`
	StreetDistanceM float64    `json:"street_distance_m,omitempty"`
}

// Resolver composes the two spatial indices into a single lookup.
type Resolver struct {
	zones        *ZoneIndex
	streets      *StreetIndex
	maxDistanceM float64
}

// NewResolver wires the indices. maxDistanceM <= 0 selects the default
// street cutoff.
func NewResolver(zones *ZoneIndex, streets *StreetIndex, maxDistanceM float64) *Resolver {
	if maxDistanceM <= 0 {
		maxDistanceM = DefaultStreetMaxDistanceM
	}
	return &Resolver{zones: zones, streets: streets, maxDistanceM: maxDistanceM}
}

// Resolve looks up both halves for the coordinate. A missing zone or street
// is reported through the nil fields, not as an error: a found zone with no
// nearby street is a valid result, and vice versa.
func (r *Resolver) Resolve(lat, lon float64) LocationResult {
	res := LocationResult{Lat: lat, Lon: lon}

	if zone, err := r.zones.FindZone(lat, lon); err == nil {
		res.Zone = zone
		res.ZoneCode = zone.Code
		res.ZoneName = zone.Name
	}

	if r.streets != nil {
		if hit, err := r.streets.FindNearest(lat, lon, r.maxDistanceM); err == nil {
			res.Street = hit
			res.StreetName = hit.Street.Name
			res.StreetHierarchy = hit.Street.Hierarchy
			res.StreetDistanceM = hit.DistanceM
		}
	}

	return res
}

// BuildResolver loads both geometry layers and constructs the resolver. The
// layers are independent, so they load and index in parallel.
func BuildResolver(zonesPath, streetsPath string, maxDistanceM float64) (*Resolver, error) {
	var (
		zoneIdx   *ZoneIndex
		streetIdx *StreetIndex
	)

	var g errgroup.Group
	g.Go(func() error {
		zones, err := geo.LoadZones(zonesPath)
		if err != nil {
			return err
		}
		zoneIdx, err = NewZoneIndex(zones)
		return err
	})
	g.Go(func() error {
		streets, err := geo.LoadStreets(streetsPath)
		if err != nil {
			return err
		}
		streetIdx, err = NewStreetIndex(streets)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "spatial: build resolver")
	}

	return NewResolver(zoneIdx, streetIdx, maxDistanceM), nil
}
