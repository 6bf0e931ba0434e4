package spatial

import (
	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/host"
)

// BoundsFunc derives the canvas-space bounding box of a feature under the
// given camera.
type BoundsFunc func(f *annotation.Feature, cam host.Camera) r2.Rect

// Frame is the local frame of a box-like feature in canvas space: its
// center, its canvas-space extent and its rotation.
type Frame struct {
	Center r2.Point
	Width  float64
	Height float64
	Angle  float64
}

// FrameOf resolves fixed-size extents and screen alignment for box-like
// features under cam.
func FrameOf(f *annotation.Feature, cam host.Camera) Frame {
	fr := Frame{
		Center: f.Geometry.Coordinates[0],
		Width:  f.Geometry.Width,
		Height: f.Geometry.Height,
	}
	if f.Properties.FixedSize {
		fr.Width /= cam.Scale()
		fr.Height /= cam.Scale()
	}
	if f.Kind.ScreenAligned() {
		fr.Angle = -cam.Rotation
	}
	return fr
}

// ToLocal maps a canvas point into the frame (center at the origin,
// axes aligned with the box).
func (fr Frame) ToLocal(p r2.Point) r2.Point {
	return geometry.RotateAround(p, fr.Center, -fr.Angle).Sub(fr.Center)
}

// ToCanvas is the inverse of ToLocal.
func (fr Frame) ToCanvas(local r2.Point) r2.Point {
	return geometry.RotateAround(fr.Center.Add(local), fr.Center, fr.Angle)
}

// Corners returns the four canvas-space corners in NW, NE, SE, SW order.
func (fr Frame) Corners() [4]r2.Point {
	return geometry.RotatedCorners(fr.Center, fr.Width, fr.Height, fr.Angle)
}

// DefaultBounds is the standard per-kind bounding box. Polygons are
// bounded by their smoothed outline, which bulges past the raw ring.
func DefaultBounds(f *annotation.Feature, cam host.Camera) r2.Rect {
	return featureBounds(f, cam, geometry.DefaultCurveSteps)
}

// CurveBounds is DefaultBounds with polygon outlines sampled at steps per
// span.
func CurveBounds(steps int) BoundsFunc {
	return func(f *annotation.Feature, cam host.Camera) r2.Rect {
		return featureBounds(f, cam, steps)
	}
}

func featureBounds(f *annotation.Feature, cam host.Camera, steps int) r2.Rect {
	switch {
	case f.Kind.BoxLike():
		fr := FrameOf(f, cam)
		return geometry.RotatedBounds(fr.Center, fr.Width, fr.Height, fr.Angle)
	case f.Kind == annotation.KindPolygon:
		return geometry.BoundingBox(geometry.SmoothRing(f.Geometry.Coordinates, steps))
	}
	return geometry.BoundingBox(f.Geometry.Coordinates)
}

// CameraDependent reports whether the bounds of f change with zoom or
// rotation.
func CameraDependent(f *annotation.Feature) bool {
	return f.Kind.BoxLike() && (f.Kind.ScreenAligned() || f.Properties.FixedSize)
}
