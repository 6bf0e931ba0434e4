// Package snap decides what an arrow endpoint attaches to. Candidates are
// tried in strict priority order: host nodes, host edges, the magnets of
// box-like annotations, then polygon outlines. The first category with a
// match wins.
package snap

import (
	"math"
	"slices"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/host"
	"github.com/inamate/annotate/internal/spatial"
)

// Options are in screen pixels unless noted.
type Options struct {
	// Radius applies to box magnets and polygons.
	Radius float64
	// DetectMargin is added to a node's own radius.
	DetectMargin float64
	// MagnetRadius applies to host edges.
	MagnetRadius float64
	// EdgeSamples is the number of segments an edge path is sampled into.
	EdgeSamples int
	// CurveSteps is the number of samples per polygon span when smoothing.
	CurveSteps int
}

func DefaultOptions() Options {
	return Options{
		Radius:       12,
		DetectMargin: 5,
		MagnetRadius: 10,
		EdgeSamples:  20,
		CurveSteps:   8,
	}
}

// Result is a resolved attachment. Magnet is the target-relative position
// stored on the link so the endpoint can follow the target later.
type Result struct {
	Point      r2.Point
	TargetID   string
	TargetType annotation.TargetType
	Magnet     r2.Point
}

// Link turns the result into a link for the given arrow side.
func (r Result) Link(side annotation.Side) annotation.Link {
	m := r.Magnet
	return annotation.Link{TargetID: r.TargetID, TargetType: r.TargetType, Side: side, Magnet: &m}
}

// Lookup resolves annotation ids to their current record.
type Lookup func(id string) (*annotation.Feature, bool)

type Resolver struct {
	canvas host.Canvas
	index  *spatial.Index
	lookup Lookup
	opts   Options
}

func NewResolver(canvas host.Canvas, index *spatial.Index, lookup Lookup, opts Options) *Resolver {
	return &Resolver{canvas: canvas, index: index, lookup: lookup, opts: opts}
}

type candidate struct {
	result Result
	dist   float64
}

func (c *candidate) offer(r Result, d float64) {
	if c.result.TargetID == "" || d < c.dist {
		c.result, c.dist = r, d
	}
}

func (c *candidate) found() bool { return c.result.TargetID != "" }

// Resolve snaps p (canvas coordinates). Ids in exclude are never targets.
func (r *Resolver) Resolve(p r2.Point, exclude ...string) (Result, bool) {
	cam := r.canvas.Camera()
	px := 1 / cam.Scale()

	if res, ok := r.resolveNode(p, r.opts.DetectMargin*px, exclude); ok {
		return res, true
	}
	if res, ok := r.resolveEdge(p, r.opts.MagnetRadius*px, exclude); ok {
		return res, true
	}

	radius := r.opts.Radius * px
	var boxes, polygons []*annotation.Feature
	for _, f := range r.index.Query(geometry.Window(p, radius)) {
		if slices.Contains(exclude, f.ID) {
			continue
		}
		switch {
		case f.Kind.BoxLike():
			boxes = append(boxes, f)
		case f.Kind == annotation.KindPolygon:
			polygons = append(polygons, f)
		}
	}

	if res, ok := r.resolveBoxes(p, radius, cam, boxes); ok {
		return res, true
	}
	return r.resolvePolygons(p, radius, polygons)
}

func (r *Resolver) resolveNode(p r2.Point, margin float64, exclude []string) (Result, bool) {
	nodes, _ := r.canvas.ElementsInRect(geometry.Window(p, margin))
	var best candidate
	for _, id := range nodes {
		n, ok := r.canvas.Node(id)
		if !ok || slices.Contains(exclude, id) {
			continue
		}
		d := geometry.Distance(p, n.Position)
		if d > n.Radius+margin {
			continue
		}
		res := Result{Point: n.Position, TargetID: id, TargetType: annotation.TargetNode}
		if d > n.Radius/2 && d > 0 {
			dir := p.Sub(n.Position).Normalize()
			res.Point = n.Position.Add(dir.Mul(n.Radius))
			res.Magnet = dir
		}
		best.offer(res, d)
	}
	return best.result, best.found()
}

func (r *Resolver) resolveEdge(p r2.Point, radius float64, exclude []string) (Result, bool) {
	_, edges := r.canvas.ElementsInRect(geometry.Window(p, radius))
	var best candidate
	for _, id := range edges {
		if slices.Contains(exclude, id) {
			continue
		}
		pts, ok := r.canvas.SampleEdge(id, r.opts.EdgeSamples)
		if !ok {
			continue
		}
		hit, ok := geometry.ClosestPointOnPolyline(p, pts, false)
		if !ok || hit.Distance > radius {
			continue
		}
		best.offer(Result{
			Point:      hit.Point,
			TargetID:   id,
			TargetType: annotation.TargetEdge,
			Magnet:     r2.Point{X: hit.T},
		}, hit.Distance)
	}
	return best.result, best.found()
}

func (r *Resolver) resolveBoxes(p r2.Point, radius float64, cam host.Camera, boxes []*annotation.Feature) (Result, bool) {
	var best candidate
	for _, f := range boxes {
		target, _ := annotation.TargetFor(f.Kind)
		fr := spatial.FrameOf(f, cam)
		local := fr.ToLocal(p)
		size := r2.Point{X: fr.Width, Y: fr.Height}

		var magnetHit candidate
		for _, m := range geometry.BoxMagnets {
			mp := r2.Point{X: m.X * size.X, Y: m.Y * size.Y}
			if d := geometry.Distance(local, mp); d <= radius {
				magnetHit.offer(Result{Point: fr.ToCanvas(mp), TargetID: f.ID, TargetType: target, Magnet: m}, d)
			}
		}
		if magnetHit.found() {
			best.offer(magnetHit.result, magnetHit.dist)
			continue
		}

		q := geometry.ClosestPointOnRectOutline(local, size.X, size.Y)
		d := geometry.Distance(local, q)
		inside := math.Abs(local.X) <= size.X/2 && math.Abs(local.Y) <= size.Y/2
		if d > radius && !inside {
			continue
		}
		best.offer(Result{
			Point:      fr.ToCanvas(q),
			TargetID:   f.ID,
			TargetType: target,
			Magnet:     r2.Point{X: ratio(q.X, size.X), Y: ratio(q.Y, size.Y)},
		}, d)
	}
	return best.result, best.found()
}

func (r *Resolver) resolvePolygons(p r2.Point, radius float64, polygons []*annotation.Feature) (Result, bool) {
	var best candidate
	for _, f := range polygons {
		ring := f.Geometry.Coordinates
		bounds := geometry.BoundingBox(ring)

		if i, d := geometry.NearestVertex(p, ring); i >= 0 && d <= radius {
			best.offer(Result{
				Point:      ring[i],
				TargetID:   f.ID,
				TargetType: annotation.TargetPolygon,
				Magnet:     geometry.Normalize(ring[i], bounds),
			}, d)
			continue
		}

		outline := geometry.SmoothRing(ring, r.opts.CurveSteps)
		hit, ok := geometry.ClosestPointOnPolyline(p, outline, true)
		if !ok || (hit.Distance > radius && !geometry.PointInPolygon(p, outline)) {
			continue
		}
		best.offer(Result{
			Point:      hit.Point,
			TargetID:   f.ID,
			TargetType: annotation.TargetPolygon,
			Magnet:     geometry.Normalize(hit.Point, bounds),
		}, hit.Distance)
	}
	return best.result, best.found()
}

// Anchor maps a stored link back to a canvas point for the target's
// current geometry.
func (r *Resolver) Anchor(l annotation.Link) (r2.Point, bool) {
	var m r2.Point
	if l.Magnet != nil {
		m = *l.Magnet
	}

	switch l.TargetType {
	case annotation.TargetNode:
		n, ok := r.canvas.Node(l.TargetID)
		if !ok {
			return r2.Point{}, false
		}
		return n.Position.Add(m.Mul(n.Radius)), true
	case annotation.TargetEdge:
		pts, ok := r.canvas.SampleEdge(l.TargetID, r.opts.EdgeSamples)
		if !ok {
			return r2.Point{}, false
		}
		return geometry.PointAlongPolyline(pts, m.X), true
	}

	f, ok := r.lookup(l.TargetID)
	if !ok {
		return r2.Point{}, false
	}
	return AnchorOn(f, m, r.canvas.Camera()), true
}

// AnchorOn maps a magnet onto an annotation target.
func AnchorOn(f *annotation.Feature, magnet r2.Point, cam host.Camera) r2.Point {
	if f.Kind == annotation.KindPolygon {
		return geometry.Denormalize(magnet, geometry.BoundingBox(f.Geometry.Coordinates))
	}
	fr := spatial.FrameOf(f, cam)
	return fr.ToCanvas(r2.Point{X: magnet.X * fr.Width, Y: magnet.Y * fr.Height})
}

func ratio(v, size float64) float64 {
	if size == 0 {
		return 0
	}
	return v / size
}
