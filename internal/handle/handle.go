// Package handle turns pointer gestures on a single annotation into
// geometry edits. Each annotation kind has a Controller that knows where
// its handles are and how dragging them reshapes the record.
package handle

import (
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/host"
	"github.com/inamate/annotate/internal/snap"
)

type Kind int

const (
	None Kind = iota
	Body
	Corner
	Edge
	Endpoint
	Vertex
)

func (k Kind) String() string {
	switch k {
	case Body:
		return "body"
	case Corner:
		return "corner"
	case Edge:
		return "edge"
	case Endpoint:
		return "endpoint"
	case Vertex:
		return "vertex"
	}
	return "none"
}

// Handle identifies a grab point. For corners and edges X and Y are the
// signs (-1, 0, +1) of the local axes the handle sits on; an edge handle
// has one zero axis.
type Handle struct {
	Kind  Kind
	X, Y  int
	Side  annotation.Side
	Index int
}

func (h Handle) String() string {
	switch h.Kind {
	case Corner, Edge:
		return fmt.Sprintf("%s(%d,%d)", h.Kind, h.X, h.Y)
	case Endpoint:
		return fmt.Sprintf("%s(%s)", h.Kind, h.Side)
	case Vertex:
		return fmt.Sprintf("%s(%d)", h.Kind, h.Index)
	}
	return h.Kind.String()
}

// Context carries what controllers need beyond the record itself.
type Context struct {
	Camera host.Camera
	// Resolver snaps arrow endpoints. Nil disables snapping.
	Resolver *snap.Resolver
	// HandleSize is the grab tolerance in screen pixels.
	HandleSize float64
	// CurveSteps samples each span of a polygon outline.
	CurveSteps int
}

// tolerance is HandleSize in canvas units.
func (c Context) tolerance() float64 {
	return c.HandleSize / c.Camera.Scale()
}

// Drag is an in-progress gesture on one record.
type Drag struct {
	Handle Handle
	// Origin is the canvas point where the gesture started.
	Origin r2.Point
	// Start is the record as it was when the gesture started.
	Start *annotation.Feature
}

type Controller interface {
	// Detect returns the handle of f under the canvas point p, or a None
	// handle.
	Detect(f *annotation.Feature, p r2.Point, ctx Context) Handle
	// Drag returns the record for the pointer at canvas point p.
	Drag(d Drag, p r2.Point, ctx Context) *annotation.Feature
}

// For returns the controller for an annotation kind.
func For(k annotation.Kind) Controller {
	switch k {
	case annotation.KindArrow:
		return arrowController{}
	case annotation.KindPolygon:
		return polygonController{}
	default:
		return boxController{}
	}
}

// Contains reports whether p hits any part of f.
func Contains(f *annotation.Feature, p r2.Point, ctx Context) bool {
	return For(f.Kind).Detect(f, p, ctx).Kind != None
}
