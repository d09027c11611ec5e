// Package geo loads the static municipal geometry layers (zoning polygons
// and street axes) into go-geom types.
package geo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Zone is a single zoning polygon feature. Immutable once loaded; owned by
// the zone index after construction.
type Zone struct {
	Code     string // short code, e.g. "ZAM"
	Name     string // display name
	Geometry *geom.MultiPolygon
}

// Street is a single street-axis line feature.
type Street struct {
	Name      string
	Hierarchy string // local / collector / arterial / ...
	Geometry  *geom.MultiLineString
}

// Attribute aliases observed across municipal exports. Matched in order;
// first non-empty value wins.
var (
	zoneCodeKeys   = []string{"sigla", "SIGLA", "zona_sigla", "ZONA_SIGLA"}
	zoneNameKeys   = []string{"zona", "ZONA", "nome", "NOME", "name"}
	streetNameKeys = []string{"log_ofic", "LOG_OFIC", "nome", "NOME", "name"}
	streetHierKeys = []string{"hierarquia", "HIERARQUIA"}
)

// LoadZones reads the zoning layer from a GeoJSON file or shapefile,
// detected by extension.
func LoadZones(path string) ([]Zone, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		return zonesFromGeoJSON(path)
	case ".shp":
		return zonesFromShapefile(path)
	default:
		return nil, eris.Errorf("geo: unsupported zone source %q", path)
	}
}

// LoadStreets reads the street-axis layer from a GeoJSON file or shapefile.
func LoadStreets(path string) ([]Street, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		return streetsFromGeoJSON(path)
	case ".shp":
		return streetsFromShapefile(path)
	default:
		return nil, eris.Errorf("geo: unsupported street source %q", path)
	}
}

// prop returns the first non-empty property under any of the given keys.
func prop(props map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			return s
		}
	}
	return ""
}

// asMultiPolygon normalizes a polygonal geometry to a MultiPolygon.
// Returns nil for non-polygonal input.
func asMultiPolygon(g geom.T) *geom.MultiPolygon {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(t.SRID())
		if err := mp.Push(t); err != nil {
			return nil
		}
		return mp
	default:
		return nil
	}
}

// asMultiLineString normalizes a linear geometry to a MultiLineString.
// Returns nil for non-linear input.
func asMultiLineString(g geom.T) *geom.MultiLineString {
	switch t := g.(type) {
	case *geom.MultiLineString:
		return t
	case *geom.LineString:
		mls := geom.NewMultiLineString(geom.XY).SetSRID(t.SRID())
		if err := mls.Push(t); err != nil {
			return nil
		}
		return mls
	default:
		return nil
	}
}
