// Package geometry holds the pure 2D helpers shared by the index, the
// snapping resolver and the handle controllers. Everything works on
// r2.Point and r2.Rect from github.com/golang/geo.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Lerp interpolates between a and b.
func Lerp(a, b r2.Point, t float64) r2.Point {
	return a.Add(b.Sub(a).Mul(t))
}

// Distance returns |a-b|.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// RotateAround rotates p around center by angle radians.
func RotateAround(p, center r2.Point, angle float64) r2.Point {
	if angle == 0 {
		return p
	}
	sin, cos := math.Sincos(angle)
	d := p.Sub(center)
	return r2.Point{
		X: center.X + d.X*cos - d.Y*sin,
		Y: center.Y + d.X*sin + d.Y*cos,
	}
}

// BoundingBox returns the smallest rect containing all points. An empty
// input yields r2.EmptyRect().
func BoundingBox(points []r2.Point) r2.Rect {
	if len(points) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(points...)
}

// CenteredRect returns the axis-aligned rect of size w×h around center.
func CenteredRect(center r2.Point, w, h float64) r2.Rect {
	return r2.RectFromCenterSize(center, r2.Point{X: math.Max(w, 0), Y: math.Max(h, 0)})
}

// RotatedCorners returns the corners of a w×h rectangle centered on
// center and rotated by angle, in NW, NE, SE, SW order of the local frame.
func RotatedCorners(center r2.Point, w, h, angle float64) [4]r2.Point {
	hw, hh := w/2, h/2
	local := [4]r2.Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
	var out [4]r2.Point
	for i, p := range local {
		out[i] = RotateAround(center.Add(p), center, angle)
	}
	return out
}

// RotatedBounds is the axis-aligned bounding box of a rotated rectangle.
func RotatedBounds(center r2.Point, w, h, angle float64) r2.Rect {
	if angle == 0 {
		return CenteredRect(center, w, h)
	}
	c := RotatedCorners(center, w, h, angle)
	return r2.RectFromPoints(c[:]...)
}

// Window returns a square query rect of the given half size around p.
func Window(p r2.Point, half float64) r2.Rect {
	return r2.RectFromCenterSize(p, r2.Point{X: 2 * half, Y: 2 * half})
}

// ClosestPointOnSegment projects p onto segment ab. It returns the
// projected point and the segment parameter t in [0, 1].
func ClosestPointOnSegment(p, a, b r2.Point) (r2.Point, float64) {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a, 0
	}
	t := Clamp(p.Sub(a).Dot(ab)/lenSq, 0, 1)
	return a.Add(ab.Mul(t)), t
}

// PolylineHit is the result of a nearest point search along a polyline.
type PolylineHit struct {
	Point    r2.Point
	Distance float64
	Segment  int
	// T is the arc-length fraction of Point along the whole polyline.
	T float64
}

// ClosestPointOnPolyline finds the point of the polyline nearest to p.
// When closed is true the last point connects back to the first.
func ClosestPointOnPolyline(p r2.Point, pts []r2.Point, closed bool) (PolylineHit, bool) {
	n := len(pts)
	if n == 0 {
		return PolylineHit{}, false
	}
	if n == 1 {
		return PolylineHit{Point: pts[0], Distance: Distance(p, pts[0])}, true
	}

	segments := n - 1
	if closed {
		segments = n
	}

	total := 0.0
	lengths := make([]float64, segments)
	for i := 0; i < segments; i++ {
		lengths[i] = Distance(pts[i], pts[(i+1)%n])
		total += lengths[i]
	}

	best := PolylineHit{Distance: math.Inf(1)}
	walked := 0.0
	for i := 0; i < segments; i++ {
		q, t := ClosestPointOnSegment(p, pts[i], pts[(i+1)%n])
		if d := Distance(p, q); d < best.Distance {
			best = PolylineHit{Point: q, Distance: d, Segment: i}
			if total > 0 {
				best.T = (walked + t*lengths[i]) / total
			}
		}
		walked += lengths[i]
	}
	return best, true
}

// PointAlongPolyline returns the point at arc-length fraction t.
func PointAlongPolyline(pts []r2.Point, t float64) r2.Point {
	switch len(pts) {
	case 0:
		return r2.Point{}
	case 1:
		return pts[0]
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += Distance(pts[i-1], pts[i])
	}
	target := Clamp(t, 0, 1) * total
	for i := 1; i < len(pts); i++ {
		l := Distance(pts[i-1], pts[i])
		if target <= l && l > 0 {
			return Lerp(pts[i-1], pts[i], target/l)
		}
		target -= l
	}
	return pts[len(pts)-1]
}
