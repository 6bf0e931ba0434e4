//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/host"
)

// jsCanvas implements host.Canvas on top of the object the page passes to
// init. Camera and viewport are read on every call; coordinate mapping is
// done here from the camera.
//
// Expected host methods:
//
//	camera()                      {x, y, zoom, rotation}
//	viewport()                    {width, height}
//	elementsInRect(x0, y0, x1, y1) {nodes: [id], edges: [id]}
//	node(id)                      {x, y, radius} or null
//	sampleEdge(id, n)             [[x, y], ...] or null
type jsCanvas struct {
	host js.Value
}

func (c jsCanvas) call(name string, args ...any) js.Value {
	fn := c.host.Get(name)
	if fn.Type() != js.TypeFunction {
		return js.Undefined()
	}
	return c.host.Call(name, args...)
}

func (c jsCanvas) Camera() host.Camera {
	v := c.call("camera")
	if !v.Truthy() {
		return host.DefaultCamera()
	}
	return host.Camera{
		X:        floatField(v, "x"),
		Y:        floatField(v, "y"),
		Zoom:     floatField(v, "zoom"),
		Rotation: floatField(v, "rotation"),
	}
}

func (c jsCanvas) Viewport() r2.Point {
	v := c.call("viewport")
	if !v.Truthy() {
		return r2.Point{}
	}
	return r2.Point{X: floatField(v, "width"), Y: floatField(v, "height")}
}

func (c jsCanvas) CanvasToScreen(p r2.Point) r2.Point {
	return c.Camera().Matrix(c.Viewport()).Apply(p)
}

func (c jsCanvas) ScreenToCanvas(p r2.Point) r2.Point {
	return c.Camera().Matrix(c.Viewport()).Invert().Apply(p)
}

func (c jsCanvas) ElementsInRect(r r2.Rect) (nodes, edges []string) {
	v := c.call("elementsInRect", r.X.Lo, r.Y.Lo, r.X.Hi, r.Y.Hi)
	if !v.Truthy() {
		return nil, nil
	}
	return stringArray(v.Get("nodes")), stringArray(v.Get("edges"))
}

func (c jsCanvas) Node(id string) (host.Node, bool) {
	v := c.call("node", id)
	if !v.Truthy() {
		return host.Node{}, false
	}
	return host.Node{
		ID:       id,
		Position: r2.Point{X: floatField(v, "x"), Y: floatField(v, "y")},
		Radius:   floatField(v, "radius"),
	}, true
}

func (c jsCanvas) SampleEdge(id string, n int) ([]r2.Point, bool) {
	v := c.call("sampleEdge", id, n)
	if !v.Truthy() || v.Length() < 2 {
		return nil, false
	}
	out := make([]r2.Point, v.Length())
	for i := range out {
		pt := v.Index(i)
		out[i] = r2.Point{X: pt.Index(0).Float(), Y: pt.Index(1).Float()}
	}
	return out, true
}

func floatField(v js.Value, name string) float64 {
	f := v.Get(name)
	if f.Type() != js.TypeNumber {
		return 0
	}
	return f.Float()
}

func stringArray(v js.Value) []string {
	if !v.Truthy() {
		return nil
	}
	out := make([]string, v.Length())
	for i := range out {
		out[i] = v.Index(i).String()
	}
	return out
}
