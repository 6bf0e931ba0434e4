package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateAroundQuarterTurn(t *testing.T) {
	p := RotateAround(r2.Point{X: 2, Y: 1}, r2.Point{X: 1, Y: 1}, math.Pi/2)
	assert.InDelta(t, 1, p.X, 1e-9)
	assert.InDelta(t, 2, p.Y, 1e-9)
}

func TestRotatedBoundsCoversCorners(t *testing.T) {
	center := r2.Point{X: 10, Y: 20}
	angle := math.Pi / 6
	b := RotatedBounds(center, 40, 10, angle)
	for _, c := range RotatedCorners(center, 40, 10, angle) {
		assert.True(t, b.ExpandedByMargin(1e-9).ContainsPoint(c), "corner %v", c)
	}
	assert.Greater(t, b.Size().Y, 10.0)
}

func TestMatrixInvertRoundTrip(t *testing.T) {
	m := Around(r2.Point{X: 5, Y: 5}, Rotate(0.7)).Multiply(Scale(2, 3))
	p := r2.Point{X: 3, Y: -4}
	back := m.Invert().Apply(m.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
	assert.True(t, m.Multiply(m.Invert()).IsIdentity())
}

func TestClosestPointOnSegment(t *testing.T) {
	q, tt := ClosestPointOnSegment(r2.Point{X: 5, Y: 3}, r2.Point{}, r2.Point{X: 10})
	assert.Equal(t, r2.Point{X: 5}, q)
	assert.InDelta(t, 0.5, tt, 1e-9)

	q, tt = ClosestPointOnSegment(r2.Point{X: -4, Y: 1}, r2.Point{}, r2.Point{X: 10})
	assert.Equal(t, r2.Point{}, q)
	assert.Zero(t, tt)
}

func TestClosestPointOnPolylineClosed(t *testing.T) {
	square := []r2.Point{{}, {X: 10}, {X: 10, Y: 10}, {Y: 10}}
	hit, ok := ClosestPointOnPolyline(r2.Point{X: -1, Y: 5}, square, true)
	require.True(t, ok)
	assert.Equal(t, 3, hit.Segment)
	assert.InDelta(t, 1, hit.Distance, 1e-9)

	_, ok = ClosestPointOnPolyline(r2.Point{}, nil, false)
	assert.False(t, ok)
}

func TestSampleQuadraticEndpoints(t *testing.T) {
	a, b := r2.Point{}, r2.Point{X: 100}
	c := EdgeControlPoint(a, b, 0.25)
	assert.InDelta(t, 25, c.Y, 1e-9)

	pts := SampleQuadratic(a, c, b, 20)
	require.Len(t, pts, 21)
	assert.Equal(t, a, pts[0])
	assert.Equal(t, b, pts[20])
	assert.InDelta(t, 12.5, pts[10].Y, 1e-9)
}

func TestCatmullRomPassesThroughVertices(t *testing.T) {
	ring := []r2.Point{{}, {X: 10}, {X: 10, Y: 10}, {Y: 10}}
	smooth := CatmullRom(ring, true, 4)
	require.Len(t, smooth, 16)
	for i, v := range ring {
		assert.InDelta(t, v.X, smooth[i*4].X, 1e-9)
		assert.InDelta(t, v.Y, smooth[i*4].Y, 1e-9)
	}
}

func TestPointInPolygon(t *testing.T) {
	tri := []r2.Point{{}, {X: 10}, {Y: 10}}
	assert.True(t, PointInPolygon(r2.Point{X: 2, Y: 2}, tri))
	assert.False(t, PointInPolygon(r2.Point{X: 8, Y: 8}, tri))
}

func TestNormalizeRoundTrip(t *testing.T) {
	r := r2.RectFromPoints(r2.Point{X: 10, Y: 10}, r2.Point{X: 30, Y: 50})
	n := Normalize(r2.Point{X: 20, Y: 20}, r)
	assert.InDelta(t, 0.5, n.X, 1e-9)
	assert.InDelta(t, 0.25, n.Y, 1e-9)
	assert.Equal(t, r2.Point{X: 20, Y: 20}, Denormalize(n, r))
}
