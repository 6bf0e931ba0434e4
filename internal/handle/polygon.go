package handle

import (
	"slices"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
)

type polygonController struct{}

func (polygonController) Detect(f *annotation.Feature, p r2.Point, ctx Context) Handle {
	tol := ctx.tolerance()
	ring := f.Geometry.Coordinates

	if i, d := geometry.NearestVertex(p, ring); i >= 0 && d <= tol {
		return Handle{Kind: Vertex, Index: i}
	}
	outline := geometry.SmoothRing(ring, ctx.CurveSteps)
	if geometry.PointInPolygon(p, outline) {
		return Handle{Kind: Body}
	}
	if hit, ok := geometry.ClosestPointOnPolyline(p, outline, true); ok && hit.Distance <= tol {
		return Handle{Kind: Body}
	}
	return Handle{}
}

func (polygonController) Drag(d Drag, p r2.Point, _ Context) *annotation.Feature {
	delta := p.Sub(d.Origin)
	switch d.Handle.Kind {
	case Body:
		return d.Start.Translate(delta)
	case Vertex:
		ring := slices.Clone(d.Start.Geometry.Coordinates)
		if d.Handle.Index < 0 || d.Handle.Index >= len(ring) {
			return d.Start
		}
		ring[d.Handle.Index] = ring[d.Handle.Index].Add(delta)
		return d.Start.WithCoordinates(ring)
	}
	return d.Start
}
