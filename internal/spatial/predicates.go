package spatial

import (
	"math"

	"github.com/twpayne/go-geom"
)

// pointInMultiPolygon reports whether (x, y) lies inside the multipolygon
// using even-odd ray crossing over every ring. Counting all rings at once
// handles holes by parity: a point inside a hole crosses both the exterior
// and the hole ring boundaries an even number of times.
func pointInMultiPolygon(mp *geom.MultiPolygon, x, y float64) bool {
	inside := false
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for r := 0; r < poly.NumLinearRings(); r++ {
			if pointInRing(poly.LinearRing(r), x, y) {
				inside = !inside
			}
		}
	}
	return inside
}

// pointInRing runs the even-odd crossing test for a single ring.
func pointInRing(ring *geom.LinearRing, x, y float64) bool {
	coords := ring.FlatCoords()
	stride := ring.Stride()
	n := len(coords) / stride
	if n < 3 {
		return false
	}

	crossed := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := coords[i*stride], coords[i*stride+1]
		xj, yj := coords[j*stride], coords[j*stride+1]
		if (yi > y) != (yj > y) {
			if x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				crossed = !crossed
			}
		}
		j = i
	}
	return crossed
}

// distPointSegment returns the distance from point p to segment a-b.
func distPointSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	segLen2 := dx*dx + dy*dy
	if segLen2 == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / segLen2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// distPointMultiLineString returns the minimum distance from (x, y) to any
// segment of the multiline, in the line's coordinate units.
func distPointMultiLineString(mls *geom.MultiLineString, x, y float64) float64 {
	best := math.Inf(1)
	for i := 0; i < mls.NumLineStrings(); i++ {
		ls := mls.LineString(i)
		coords := ls.FlatCoords()
		stride := ls.Stride()
		n := len(coords) / stride
		if n == 1 {
			d := math.Hypot(x-coords[0], y-coords[1])
			if d < best {
				best = d
			}
			continue
		}
		for j := 0; j+1 < n; j++ {
			d := distPointSegment(x, y,
				coords[j*stride], coords[j*stride+1],
				coords[(j+1)*stride], coords[(j+1)*stride+1])
			if d < best {
				best = d
			}
		}
	}
	return best
}

// bboxDistance returns the distance from (x, y) to the axis-aligned box, or
// zero when the point is inside. Used as a cheap lower bound before exact
// segment distance.
func bboxDistance(b *geom.Bounds, x, y float64) float64 {
	dx := math.Max(math.Max(b.Min(0)-x, 0), x-b.Max(0))
	dy := math.Max(math.Max(b.Min(1)-y, 0), y-b.Max(1))
	return math.Hypot(dx, dy)
}
