package handle

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
)

type arrowController struct{}

func (arrowController) Detect(f *annotation.Feature, p r2.Point, ctx Context) Handle {
	tol := ctx.tolerance()
	start, end := f.Endpoint(annotation.SideStart), f.Endpoint(annotation.SideEnd)

	ds, de := geometry.Distance(p, start), geometry.Distance(p, end)
	switch {
	case de <= tol && de <= ds:
		return Handle{Kind: Endpoint, Side: annotation.SideEnd}
	case ds <= tol:
		return Handle{Kind: Endpoint, Side: annotation.SideStart}
	}

	width := 0.0
	if s := f.Properties.Style; s != nil {
		width = s.StrokeWidth / 2 / ctx.Camera.Scale()
	}
	q, _ := geometry.ClosestPointOnSegment(p, start, end)
	if geometry.Distance(p, q) <= math.Max(tol, width) {
		return Handle{Kind: Body}
	}
	return Handle{}
}

// Drag moves one endpoint, snapping it through the resolver, or the whole
// arrow. A body-dragged arrow leaves its targets and drops its links.
func (arrowController) Drag(d Drag, p r2.Point, ctx Context) *annotation.Feature {
	switch d.Handle.Kind {
	case Body:
		moved := d.Start.Translate(p.Sub(d.Origin))
		for _, l := range d.Start.Properties.Links {
			moved = moved.WithoutLink(l.Side)
		}
		return moved
	case Endpoint:
		side := d.Handle.Side
		target := d.Start.Endpoint(side).Add(p.Sub(d.Origin))
		if ctx.Resolver != nil {
			if res, ok := ctx.Resolver.Resolve(target, d.Start.ID); ok {
				return d.Start.WithEndpoint(side, res.Point).WithLink(res.Link(side))
			}
		}
		return d.Start.WithEndpoint(side, target).WithoutLink(side)
	}
	return d.Start
}
