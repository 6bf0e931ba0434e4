// Package host describes what the engine needs from the visualization it
// annotates: coordinate transforms, the camera, and read access to the
// host's nodes and edges.
package host

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/geometry"
)

// Camera is the host's view state. Zoom is screen pixels per canvas unit;
// Rotation is the angle (radians) the canvas is rotated by on screen.
type Camera struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Zoom     float64 `json:"zoom"`
	Rotation float64 `json:"rotation"`
}

// DefaultCamera looks at the origin with no zoom or rotation.
func DefaultCamera() Camera {
	return Camera{Zoom: 1}
}

// Scale is the zoom factor, guarded against zero.
func (c Camera) Scale() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// Cos and Sin of the camera rotation.
func (c Camera) Cos() float64 { return math.Cos(c.Rotation) }
func (c Camera) Sin() float64 { return math.Sin(c.Rotation) }

// Matrix maps canvas coordinates to screen coordinates for a viewport of
// the given size.
func (c Camera) Matrix(viewport r2.Point) geometry.Matrix2D {
	return geometry.Translate(viewport.Mul(0.5)).
		Multiply(geometry.Rotate(c.Rotation)).
		Multiply(geometry.Scale(c.Scale(), c.Scale())).
		Multiply(geometry.Translate(r2.Point{X: -c.X, Y: -c.Y}))
}

// ChangeReason tells the engine why the host camera moved.
type ChangeReason string

const (
	ChangeRotate    ChangeReason = "rotate"
	ChangeZoom      ChangeReason = "zoom"
	ChangePan       ChangeReason = "pan"
	ChangeLayoutEnd ChangeReason = "layout-end"
)

type Node struct {
	ID       string   `json:"id"`
	Position r2.Point `json:"position"`
	Radius   float64  `json:"radius"`
}

type Edge struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Curvature float64 `json:"curvature,omitempty"`
}

// Canvas is implemented by the host visualization.
type Canvas interface {
	Camera() Camera
	Viewport() r2.Point
	ScreenToCanvas(p r2.Point) r2.Point
	CanvasToScreen(p r2.Point) r2.Point
	// ElementsInRect lists host nodes and edges whose extent intersects r
	// (canvas coordinates).
	ElementsInRect(r r2.Rect) (nodes, edges []string)
	Node(id string) (Node, bool)
	// SampleEdge returns n+1 points along the rendered edge path.
	SampleEdge(id string, n int) ([]r2.Point, bool)
}
