package spatial

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/lotefacil/feasibility-cli/internal/geo"
)

// DefaultStreetMaxDistanceM is the nearest-street cutoff when the caller
// passes no override.
const DefaultStreetMaxDistanceM = 120.0

// ErrStreetNotFound means no street axis lies within the distance cutoff.
var ErrStreetNotFound = eris.New("spatial: no street within cutoff distance")

// StreetIndex answers nearest-line queries over the street layer. Geometry
// is projected to web-mercator at build time so distances come out in
// meters (after local scale correction).
type StreetIndex struct {
	entries []streetEntry
}

type streetEntry struct {
	street    geo.Street
	projected *geom.MultiLineString
	bounds    *geom.Bounds
}

// StreetHit is a nearest-street result with its ground distance.
type StreetHit struct {
	Street    geo.Street
	DistanceM float64
}

// NewStreetIndex builds the index, projecting every street axis to planar
// coordinates once. Input order is preserved; distance ties resolve to the
// earlier entry.
func NewStreetIndex(streets []geo.Street) (*StreetIndex, error) {
	if len(streets) == 0 {
		return nil, eris.New("spatial: street index needs at least one street")
	}

	entries := make([]streetEntry, 0, len(streets))
	for _, s := range streets {
		proj := projectMultiLineString(s.Geometry)
		entries = append(entries, streetEntry{
			street:    s,
			projected: proj,
			bounds:    proj.Bounds(),
		})
	}

	zap.L().Info("street index built",
		zap.String("component", "spatial.streets"),
		zap.Int("streets", len(entries)),
	)
	return &StreetIndex{entries: entries}, nil
}

// FindNearest returns the street closest to the WGS84 coordinate, or
// ErrStreetNotFound when the nearest one is farther than maxDistanceM
// ground meters. maxDistanceM <= 0 selects the default cutoff.
func (idx *StreetIndex) FindNearest(lat, lon, maxDistanceM float64) (*StreetHit, error) {
	if maxDistanceM <= 0 {
		maxDistanceM = DefaultStreetMaxDistanceM
	}

	px, py := geo.MercatorXY(lon, lat)
	scale := geo.MercatorScale(lat)
	// The cutoff and the best-so-far are tracked in planar units.
	cutoff := maxDistanceM * scale

	best := math.Inf(1)
	bestIdx := -1
	for i := range idx.entries {
		e := &idx.entries[i]
		if bboxDistance(e.bounds, px, py) >= best {
			continue
		}
		d := distPointMultiLineString(e.projected, px, py)
		if d < best {
			best = d
			bestIdx = i
		}
	}

	if bestIdx < 0 || best > cutoff {
		return nil, ErrStreetNotFound
	}
	return &StreetHit{
		Street:    idx.entries[bestIdx].street,
		DistanceM: best / scale,
	}, nil
}

func projectMultiLineString(mls *geom.MultiLineString) *geom.MultiLineString {
	out := geom.NewMultiLineString(geom.XY)
	for i := 0; i < mls.NumLineStrings(); i++ {
		ls := mls.LineString(i)
		coords := ls.FlatCoords()
		stride := ls.Stride()
		flat := make([]float64, 0, len(coords)/stride*2)
		for j := 0; j+stride <= len(coords); j += stride {
			x, y := geo.MercatorXY(coords[j], coords[j+1])
			flat = append(flat, x, y)
		}
		_ = out.Push(geom.NewLineStringFlat(geom.XY, flat))
	}
	return out
}
