// Package spatial resolves map coordinates against the zoning and street
// layers. Indices are built once at startup from the static geometry sources
// and are read-only afterwards, so concurrent queries need no locking.
package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/lotefacil/feasibility-cli/internal/geo"
)

// ErrZoneNotFound means the coordinate is outside every known zone polygon.
// A normal outcome for points beyond the municipal boundary.
var ErrZoneNotFound = eris.New("spatial: no zone contains the point")

// ZoneIndex answers point-in-polygon queries over the zoning layer,
// prefiltered by bounding box.
type ZoneIndex struct {
	entries []zoneEntry
}

type zoneEntry struct {
	zone   geo.Zone
	bounds *geom.Bounds
}

// NewZoneIndex builds the index. Zone order is preserved: when polygons
// overlap (they should not), the first match in input order wins, which
// keeps results deterministic for identical input.
func NewZoneIndex(zones []geo.Zone) (*ZoneIndex, error) {
	if len(zones) == 0 {
		return nil, eris.New("spatial: zone index needs at least one zone")
	}

	entries := make([]zoneEntry, 0, len(zones))
	for _, z := range zones {
		entries = append(entries, zoneEntry{
			zone:   z,
			bounds: z.Geometry.Bounds(),
		})
	}

	zap.L().Info("zone index built",
		zap.String("component", "spatial.zones"),
		zap.Int("zones", len(entries)),
	)
	return &ZoneIndex{entries: entries}, nil
}

// FindZone returns the zone whose polygon contains the WGS84 coordinate.
// Returns ErrZoneNotFound when no polygon contains it.
func (idx *ZoneIndex) FindZone(lat, lon float64) (*geo.Zone, error) {
	for i := range idx.entries {
		e := &idx.entries[i]
		if !boundsContain(e.bounds, lon, lat) {
			continue
		}
		if pointInMultiPolygon(e.zone.Geometry, lon, lat) {
			return &e.zone, nil
		}
	}
	return nil, ErrZoneNotFound
}

func boundsContain(b *geom.Bounds, x, y float64) bool {
	return x >= b.Min(0) && x <= b.Max(0) && y >= b.Min(1) && y <= b.Max(1)
}
