package geometry

import "github.com/golang/geo/r2"

// QuadraticAt evaluates the quadratic Bézier p0-c-p1 at t.
func QuadraticAt(p0, c, p1 r2.Point, t float64) r2.Point {
	mt := 1 - t
	return p0.Mul(mt * mt).Add(c.Mul(2 * mt * t)).Add(p1.Mul(t * t))
}

// SampleQuadratic returns n+1 evenly parameterised points along the curve,
// endpoints included.
func SampleQuadratic(p0, c, p1 r2.Point, n int) []r2.Point {
	if n < 1 {
		n = 1
	}
	out := make([]r2.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, QuadraticAt(p0, c, p1, float64(i)/float64(n)))
	}
	return out
}

// SampleSegment returns n+1 evenly spaced points from a to b.
func SampleSegment(a, b r2.Point, n int) []r2.Point {
	if n < 1 {
		n = 1
	}
	out := make([]r2.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, Lerp(a, b, float64(i)/float64(n)))
	}
	return out
}

// EdgeControlPoint returns the control point of a curved edge between
// source and target. Curvature is a fraction of the edge length applied
// perpendicular to the chord; zero means a straight edge.
func EdgeControlPoint(source, target r2.Point, curvature float64) r2.Point {
	mid := Lerp(source, target, 0.5)
	return mid.Add(target.Sub(source).Ortho().Mul(curvature))
}

// DefaultCurveSteps is the number of samples per span of a smoothed ring.
const DefaultCurveSteps = 8

// SmoothRing is the closed outline a polygon is drawn, hit and snapped
// against.
func SmoothRing(ring []r2.Point, steps int) []r2.Point {
	if steps < 1 {
		steps = DefaultCurveSteps
	}
	return CatmullRom(ring, true, steps)
}

// CatmullRom smooths pts with a uniform Catmull-Rom spline, emitting
// steps points per span. Closed rings wrap around.
func CatmullRom(pts []r2.Point, closed bool, steps int) []r2.Point {
	n := len(pts)
	if n < 3 || steps < 1 {
		return append([]r2.Point(nil), pts...)
	}

	at := func(i int) r2.Point {
		if closed {
			return pts[((i%n)+n)%n]
		}
		return pts[int(Clamp(float64(i), 0, float64(n-1)))]
	}

	spans := n - 1
	if closed {
		spans = n
	}

	out := make([]r2.Point, 0, spans*steps+1)
	for i := 0; i < spans; i++ {
		p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)
		for s := 0; s < steps; s++ {
			out = append(out, catmullRomAt(p0, p1, p2, p3, float64(s)/float64(steps)))
		}
	}
	if !closed {
		out = append(out, pts[n-1])
	}
	return out
}

func catmullRomAt(p0, p1, p2, p3 r2.Point, t float64) r2.Point {
	t2 := t * t
	t3 := t2 * t
	return p1.Mul(2).
		Add(p2.Sub(p0).Mul(t)).
		Add(p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(t2)).
		Add(p1.Mul(3).Sub(p0).Sub(p2.Mul(3)).Add(p3).Mul(t3)).
		Mul(0.5)
}
