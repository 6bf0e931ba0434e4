package handle

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/spatial"
)

// boxController drives Text, Box and Comment.
type boxController struct{}

func (boxController) Detect(f *annotation.Feature, p r2.Point, ctx Context) Handle {
	fr := spatial.FrameOf(f, ctx.Camera)
	local := fr.ToLocal(p)
	tol := ctx.tolerance()
	hw, hh := fr.Width/2, fr.Height/2

	nearX := math.Abs(math.Abs(local.X)-hw) <= tol
	nearY := math.Abs(math.Abs(local.Y)-hh) <= tol
	withinX := math.Abs(local.X) <= hw+tol
	withinY := math.Abs(local.Y) <= hh+tol

	switch {
	case nearX && nearY:
		return Handle{Kind: Corner, X: sign(local.X), Y: sign(local.Y)}
	case nearX && withinY:
		return Handle{Kind: Edge, X: sign(local.X)}
	case nearY && withinX:
		return Handle{Kind: Edge, Y: sign(local.Y)}
	case math.Abs(local.X) <= hw && math.Abs(local.Y) <= hh:
		return Handle{Kind: Body}
	}
	return Handle{}
}

func (boxController) Drag(d Drag, p r2.Point, ctx Context) *annotation.Feature {
	delta := p.Sub(d.Origin)
	if d.Handle.Kind == Body {
		return d.Start.Translate(delta)
	}
	if d.Handle.Kind != Corner && d.Handle.Kind != Edge {
		return d.Start
	}

	fr := spatial.FrameOf(d.Start, ctx.Camera)
	local := geometry.RotateAround(delta, r2.Point{}, -fr.Angle)

	// growth along each axis, clamped so the box never inverts
	grow := r2.Point{
		X: math.Max(fr.Width+float64(d.Handle.X)*local.X, 0) - fr.Width,
		Y: math.Max(fr.Height+float64(d.Handle.Y)*local.Y, 0) - fr.Height,
	}
	if d.Handle.X == 0 {
		grow.X = 0
	}
	if d.Handle.Y == 0 {
		grow.Y = 0
	}

	shift := r2.Point{X: float64(d.Handle.X) * grow.X / 2, Y: float64(d.Handle.Y) * grow.Y / 2}
	center := fr.Center.Add(geometry.RotateAround(shift, r2.Point{}, fr.Angle))

	scale := 1.0
	if d.Start.Properties.FixedSize {
		scale = ctx.Camera.Scale()
	}
	return d.Start.WithGeometry(&annotation.Geometry{
		Coordinates: []r2.Point{center},
		Width:       (fr.Width + grow.X) * scale,
		Height:      (fr.Height + grow.Y) * scale,
	})
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
