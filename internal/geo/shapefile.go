package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// zonesFromShapefile loads zoning polygons from an ESRI shapefile export.
func zonesFromShapefile(path string) ([]Zone, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "geo.zones"))

	var zones []Zone
	for reader.Next() {
		n, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			log.Debug("skipping malformed zone shape", zap.Int("record", n))
			continue
		}
		props := recordProps(reader, n)
		code := prop(props, zoneCodeKeys...)
		if code == "" {
			log.Debug("skipping zone shape without code", zap.Int("record", n))
			continue
		}
		zones = append(zones, Zone{
			Code:     code,
			Name:     prop(props, zoneNameKeys...),
			Geometry: mp,
		})
	}

	if len(zones) == 0 {
		return nil, eris.Errorf("geo: no usable zone shapes in %s", path)
	}
	return zones, nil
}

// streetsFromShapefile loads street axes from an ESRI shapefile export.
func streetsFromShapefile(path string) ([]Street, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "geo.streets"))

	var streets []Street
	for reader.Next() {
		n, shape := reader.Shape()
		line, ok := shape.(*shp.PolyLine)
		if !ok {
			continue
		}
		mls := polyLineToMultiLineString(line)
		if mls == nil {
			log.Debug("skipping malformed street shape", zap.Int("record", n))
			continue
		}
		props := recordProps(reader, n)
		streets = append(streets, Street{
			Name:      prop(props, streetNameKeys...),
			Hierarchy: prop(props, streetHierKeys...),
			Geometry:  mls,
		})
	}

	if len(streets) == 0 {
		return nil, eris.Errorf("geo: no usable street shapes in %s", path)
	}
	return streets, nil
}

// recordProps collects the attribute row for record n keyed by field name.
func recordProps(reader *shp.Reader, n int) map[string]any {
	props := make(map[string]any)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		props[name] = strings.TrimSpace(reader.ReadAttribute(n, i))
	}
	return props
}

// polyLineToMultiLineString converts a shapefile PolyLine to a geom.MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine) *geom.MultiLineString {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)

	for i := int32(0); i < pl.NumParts; i++ {
		start := pl.Parts[i]
		var end int32
		if i+1 < pl.NumParts {
			end = pl.Parts[i+1]
		} else {
			end = int32(len(pl.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}

		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("geo: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each part becomes a single-ring polygon; hole reassembly is left to the
// containment test, which treats inner rings by even-odd parity anyway.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
