package geometry

import "github.com/golang/geo/r2"

// PointInPolygon reports whether p lies inside the ring (even-odd rule).
// The ring is implicitly closed.
func PointInPolygon(p r2.Point, ring []r2.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// NearestVertex returns the index of the ring vertex closest to p, or -1.
func NearestVertex(p r2.Point, ring []r2.Point) (int, float64) {
	best, bestDist := -1, 0.0
	for i, v := range ring {
		if d := Distance(p, v); best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Normalize maps p into the unit square of r. Degenerate axes map to 0.5.
func Normalize(p r2.Point, r r2.Rect) r2.Point {
	size := r.Size()
	out := r2.Point{X: 0.5, Y: 0.5}
	if size.X > 0 {
		out.X = (p.X - r.X.Lo) / size.X
	}
	if size.Y > 0 {
		out.Y = (p.Y - r.Y.Lo) / size.Y
	}
	return out
}

// Denormalize is the inverse of Normalize.
func Denormalize(n r2.Point, r r2.Rect) r2.Point {
	size := r.Size()
	return r2.Point{X: r.X.Lo + n.X*size.X, Y: r.Y.Lo + n.Y*size.Y}
}

// BoxMagnets are the nine attachment points of a box in normalized local
// coordinates, with (0,0) at the center and ±0.5 on the sides.
var BoxMagnets = [9]r2.Point{
	{X: -0.5, Y: -0.5}, {X: 0, Y: -0.5}, {X: 0.5, Y: -0.5},
	{X: -0.5, Y: 0}, {X: 0, Y: 0}, {X: 0.5, Y: 0},
	{X: -0.5, Y: 0.5}, {X: 0, Y: 0.5}, {X: 0.5, Y: 0.5},
}

// ClosestPointOnRectOutline returns the nearest point on the border of a
// centered w×h rectangle (local frame, center at origin).
func ClosestPointOnRectOutline(p r2.Point, w, h float64) r2.Point {
	hw, hh := w/2, h/2
	corners := []r2.Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
	hit, _ := ClosestPointOnPolyline(p, corners, true)
	return hit.Point
}
