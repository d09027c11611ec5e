package geo

import "math"

// Spherical web-mercator (EPSG:3857), the planar system the street index
// measures distances in. Good to well under a percent at municipal scale
// after the latitude cosine correction applied by the index.
const earthRadiusM = 6378137.0

// MercatorXY projects a WGS84 lon/lat pair to web-mercator meters.
func MercatorXY(lon, lat float64) (x, y float64) {
	x = earthRadiusM * lon * math.Pi / 180
	y = earthRadiusM * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// MercatorScale returns the local scale distortion factor of the web-mercator
// projection at the given latitude. Planar distances divided by this factor
// approximate ground meters.
func MercatorScale(lat float64) float64 {
	return 1 / math.Cos(lat*math.Pi/180)
}
