package geo

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// zonesFromGeoJSON loads zoning polygons from a GeoJSON feature collection.
// Features without polygonal geometry or without a zone code are skipped
// with a debug log rather than failing the whole load.
func zonesFromGeoJSON(path string) ([]Zone, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "geo.zones"))

	zones := make([]Zone, 0, len(fc.Features))
	for i, feat := range fc.Features {
		if feat == nil || feat.Geometry == nil {
			continue
		}
		mp := asMultiPolygon(feat.Geometry)
		if mp == nil {
			log.Debug("skipping non-polygonal zone feature", zap.Int("feature", i))
			continue
		}
		code := prop(feat.Properties, zoneCodeKeys...)
		if code == "" {
			log.Debug("skipping zone feature without code", zap.Int("feature", i))
			continue
		}
		zones = append(zones, Zone{
			Code:     code,
			Name:     prop(feat.Properties, zoneNameKeys...),
			Geometry: mp,
		})
	}

	if len(zones) == 0 {
		return nil, eris.Errorf("geo: no usable zone features in %s", path)
	}
	return zones, nil
}

// streetsFromGeoJSON loads street axes from a GeoJSON feature collection.
func streetsFromGeoJSON(path string) ([]Street, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "geo.streets"))

	streets := make([]Street, 0, len(fc.Features))
	for i, feat := range fc.Features {
		if feat == nil || feat.Geometry == nil {
			continue
		}
		mls := asMultiLineString(feat.Geometry)
		if mls == nil {
			log.Debug("skipping non-linear street feature", zap.Int("feature", i))
			continue
		}
		streets = append(streets, Street{
			Name:      prop(feat.Properties, streetNameKeys...),
			Hierarchy: prop(feat.Properties, streetHierKeys...),
			Geometry:  mls,
		})
	}

	if len(streets) == 0 {
		return nil, eris.Errorf("geo: no usable street features in %s", path)
	}
	return streets, nil
}

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "geo: decode %s", path)
	}
	return &fc, nil
}
