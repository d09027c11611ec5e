package geo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zonesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"sigla": "ZAM", "zona": "Zona Ambiental"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"ZONA_SIGLA": "ZC", "NOME": "Zona Central"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[2,2],[3,2],[3,3],[2,3],[2,2]]]]}
    },
    {
      "type": "Feature",
      "properties": {"sigla": "SKIP_ME"},
      "geometry": {"type": "Point", "coordinates": [0, 0]}
    },
    {
      "type": "Feature",
      "properties": {"zona": "no code here"},
      "geometry": {"type": "Polygon", "coordinates": [[[5,5],[6,5],[6,6],[5,6],[5,5]]]}
    }
  ]
}`

const streetsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"log_ofic": "Rua XV", "hierarquia": "local"},
      "geometry": {"type": "LineString", "coordinates": [[0,0],[0,1]]}
    },
    {
      "type": "Feature",
      "properties": {"nome": "Av Beira-Mar", "HIERARQUIA": "arterial"},
      "geometry": {"type": "MultiLineString", "coordinates": [[[1,0],[1,1]],[[1,1],[2,1]]]}
    }
  ]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadZones_GeoJSON(t *testing.T) {
	t.Parallel()
	zones, err := LoadZones(writeTemp(t, "zones.geojson", zonesGeoJSON))
	require.NoError(t, err)

	// Point feature and the code-less polygon are skipped.
	require.Len(t, zones, 2)
	assert.Equal(t, "ZAM", zones[0].Code)
	assert.Equal(t, "Zona Ambiental", zones[0].Name)
	assert.Equal(t, "ZC", zones[1].Code)
	assert.Equal(t, "Zona Central", zones[1].Name)
	assert.Equal(t, 1, zones[0].Geometry.NumPolygons())
}

func TestLoadStreets_GeoJSON(t *testing.T) {
	t.Parallel()
	streets, err := LoadStreets(writeTemp(t, "streets.json", streetsGeoJSON))
	require.NoError(t, err)

	require.Len(t, streets, 2)
	assert.Equal(t, "Rua XV", streets[0].Name)
	assert.Equal(t, "local", streets[0].Hierarchy)
	assert.Equal(t, "Av Beira-Mar", streets[1].Name)
	assert.Equal(t, "arterial", streets[1].Hierarchy)
	assert.Equal(t, 2, streets[1].Geometry.NumLineStrings())
}

func TestLoadZones_NoUsableFeatures(t *testing.T) {
	t.Parallel()
	_, err := LoadZones(writeTemp(t, "empty.geojson", `{"type":"FeatureCollection","features":[]}`))
	assert.Error(t, err)
}

func TestLoadZones_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	_, err := LoadZones("zones.csv")
	assert.Error(t, err)
}

func TestMercatorXY(t *testing.T) {
	t.Parallel()
	x, y := MercatorXY(0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	// One degree of longitude at the equator.
	x, _ = MercatorXY(1, 0)
	assert.InDelta(t, 111319.49, x, 0.01)

	// Scale doubles at 60 degrees latitude.
	assert.InDelta(t, 2.0, MercatorScale(60), 1e-9)
	assert.InDelta(t, 1.0, MercatorScale(0), 1e-9)
}

func TestMercatorY_Symmetric(t *testing.T) {
	t.Parallel()
	_, yn := MercatorXY(0, 45)
	_, ys := MercatorXY(0, -45)
	assert.InDelta(t, yn, -ys, 1e-6)
	assert.False(t, math.Signbit(yn))
}
