// Package interaction routes raw pointer events: it hit-tests the
// annotation under the cursor, drives selection, hands gestures to the
// handle machine and runs drawing sessions.
package interaction

import (
	"log/slog"
	"time"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/host"
	"github.com/inamate/annotate/internal/snap"
	"github.com/inamate/annotate/internal/spatial"
	"github.com/inamate/annotate/internal/store"
)

// Options are in screen pixels unless noted.
type Options struct {
	HitTolerance float64
	// ClickSuppression swallows the host click that follows a drag.
	ClickSuppression time.Duration
	// LassoSpacing is the minimum distance between polygon lasso vertices.
	LassoSpacing   float64
	ClickThreshold float64
	TextSize       r2.Point
	CommentSize    r2.Point
	// CommentOffset places the bubble of a comment drawn without dragging,
	// in screen pixels from the pointed spot.
	CommentOffset r2.Point
}

func DefaultOptions() Options {
	return Options{
		HitTolerance:     4,
		ClickSuppression: 50 * time.Millisecond,
		LassoSpacing:     8,
		ClickThreshold:   3,
		TextSize:         r2.Point{X: 120, Y: 24},
		CommentSize:      r2.Point{X: 180, Y: 60},
		CommentOffset:    r2.Point{X: 120, Y: -60},
	}
}

type drawing struct {
	kind   annotation.Kind
	id     string
	screen r2.Point
	// lasso vertices, polygon sessions only
	lasso []r2.Point
}

type Dispatcher struct {
	store    *store.Store
	index    *spatial.Index
	canvas   host.Canvas
	machine  *handle.Machine
	resolver *snap.Resolver
	emitter  event.Emitter
	logger   *slog.Logger
	opts     Options
	now      func() time.Time

	armed         annotation.Kind
	draw          *drawing
	dragAnnounced bool
	suppressUntil time.Time
}

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(s *store.Store, index *spatial.Index, canvas host.Canvas, machine *handle.Machine,
	resolver *snap.Resolver, emitter event.Emitter, opts Options, options ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    s,
		index:    index,
		canvas:   canvas,
		machine:  machine,
		resolver: resolver,
		emitter:  emitter,
		logger:   slog.Default(),
		opts:     opts,
		now:      time.Now,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// EnableDrawing arms a drawing session: the next pointer-down creates a
// feature of kind k.
func (d *Dispatcher) EnableDrawing(k annotation.Kind) {
	if k.Valid() {
		d.armed = k
	}
}

// Armed returns the kind waiting for a pointer-down, if any.
func (d *Dispatcher) Armed() annotation.Kind { return d.armed }

// Drawing reports whether a drawing session is in progress.
func (d *Dispatcher) Drawing() bool { return d.draw != nil }

// Dispatch handles one pointer event.
func (d *Dispatcher) Dispatch(ev handle.Event) handle.Outcome {
	switch ev.Type {
	case handle.PointerDown:
		return d.pointerDown(ev)
	case handle.PointerMove:
		return d.pointerMove(ev)
	case handle.PointerUp:
		return d.pointerUp(ev)
	case handle.Click:
		d.click(ev)
	case handle.Escape:
		return d.escape()
	}
	return handle.Outcome{}
}

// HitTest returns the topmost annotation under the screen point.
func (d *Dispatcher) HitTest(screen r2.Point) (*annotation.Feature, bool) {
	p := d.canvas.ScreenToCanvas(screen)
	ctx := d.machine.Context()
	window := geometry.Window(p, d.opts.HitTolerance/ctx.Camera.Scale())

	candidates := d.index.Query(window)
	for i := len(candidates) - 1; i >= 0; i-- {
		if f, ok := d.store.Get(candidates[i].ID); ok && handle.Contains(f, p, ctx) {
			return f, true
		}
	}
	return nil, false
}

func (d *Dispatcher) pointerDown(ev handle.Event) handle.Outcome {
	if d.draw != nil {
		return handle.Outcome{}
	}
	if d.armed != "" {
		k := d.armed
		d.armed = ""
		return d.StartDrawing(k, ev.Screen)
	}

	if active := d.machine.Active(); active != "" && d.machine.Detect(active, ev.Screen).Kind != handle.None {
		return d.machine.Handle(ev)
	}
	f, ok := d.HitTest(ev.Screen)
	if !ok {
		d.machine.Deactivate()
		return handle.Outcome{}
	}
	d.machine.Activate(f.ID)
	return d.machine.Handle(ev)
}

func (d *Dispatcher) pointerMove(ev handle.Event) handle.Outcome {
	if d.draw != nil && d.draw.kind == annotation.KindPolygon {
		d.extendLasso(ev.Screen)
		return handle.Outcome{Kind: handle.Dragged, ID: d.draw.id}
	}

	if d.machine.Dragging() {
		out := d.machine.Handle(ev)
		if out.Kind == handle.Dragged && !d.dragAnnounced && d.draw == nil {
			d.dragAnnounced = true
			d.emit(event.Event{Type: event.DragStart, IDs: []string{out.ID}, Data: map[string]any{"handle": out.Handle.String()}})
		}
		return out
	}

	if active := d.machine.Active(); active != "" {
		if out := d.machine.Handle(ev); out.Handle.Kind != handle.None || out.Kind == handle.DragStarted {
			return out
		}
	}
	if ev.Pressed {
		return handle.Outcome{}
	}
	f, ok := d.HitTest(ev.Screen)
	if !ok {
		d.machine.Deactivate()
		return handle.Outcome{}
	}
	d.machine.Activate(f.ID)
	return d.machine.Handle(ev)
}

func (d *Dispatcher) pointerUp(ev handle.Event) handle.Outcome {
	if d.draw != nil && d.draw.kind == annotation.KindPolygon {
		return d.finishLasso()
	}
	if !d.machine.Dragging() {
		return handle.Outcome{}
	}

	if d.draw != nil && geometry.Distance(ev.Screen, d.draw.screen) < d.opts.ClickThreshold {
		switch d.draw.kind {
		case annotation.KindBox, annotation.KindArrow:
			// Nothing was drawn.
			id := d.draw.id
			d.CancelDrawing()
			return handle.Outcome{Kind: handle.Cancelled, ID: id, Drawing: true}
		}
	}
	if d.draw != nil && d.draw.kind == annotation.KindText &&
		geometry.Distance(ev.Screen, d.draw.screen) < d.opts.ClickThreshold {
		if f, ok := d.store.Get(d.draw.id); ok {
			d.store.ApplyLiveUpdate(f.WithGeometry(&annotation.Geometry{
				Coordinates: f.Geometry.Coordinates,
				Width:       d.opts.TextSize.X / d.canvas.Camera().Scale(),
				Height:      d.opts.TextSize.Y / d.canvas.Camera().Scale(),
			}))
		}
	}

	if d.draw != nil && d.draw.kind == annotation.KindComment &&
		geometry.Distance(ev.Screen, d.draw.screen) < d.opts.ClickThreshold {
		ev.Screen = d.draw.screen.Add(d.opts.CommentOffset)
		d.machine.Handle(handle.Event{Type: handle.PointerMove, Screen: ev.Screen, Pressed: true})
	}

	out := d.machine.Handle(ev)
	announced := d.dragAnnounced
	d.dragAnnounced = false

	switch out.Kind {
	case handle.Committed:
		d.suppressUntil = d.now().Add(d.opts.ClickSuppression)
		if out.Drawing {
			d.completeDrawing(out.Changed)
		} else if announced {
			d.emit(event.Event{Type: event.DragEnd, IDs: out.Changed})
		}
		for _, l := range out.Links {
			d.emitLink(out.ID, l)
		}
	case handle.Cancelled:
		// The store refused the gesture; the record is back where it was.
		d.suppressUntil = d.now().Add(d.opts.ClickSuppression)
		if announced {
			d.emit(event.Event{Type: event.DragEnd, IDs: []string{out.ID}, Data: map[string]any{"cancelled": true}})
		}
	case handle.Clicked:
		d.toggle(out.ID)
	}
	return out
}

// click handles the host's synthesized click. A click on empty canvas
// clears the selection unless it trails a drag.
func (d *Dispatcher) click(ev handle.Event) {
	if d.now().Before(d.suppressUntil) {
		d.logger.Debug("click suppressed after drag")
		return
	}
	if _, ok := d.HitTest(ev.Screen); ok {
		return
	}
	d.ClearSelection()
}

func (d *Dispatcher) escape() handle.Outcome {
	if d.draw != nil && d.draw.kind == annotation.KindPolygon {
		d.CancelDrawing()
		return handle.Outcome{Kind: handle.Cancelled, Drawing: true}
	}
	if d.armed != "" {
		d.armed = ""
		return handle.Outcome{Kind: handle.Cancelled}
	}

	dragging := d.machine.Dragging()
	out := d.machine.Handle(handle.Event{Type: handle.Escape})
	d.dragAnnounced = false
	switch {
	case out.Drawing:
		ids := []string{out.ID}
		if d.draw != nil {
			ids = []string{d.draw.id}
		}
		d.draw = nil
		d.emit(event.Event{Type: event.DrawingCancelled, IDs: ids})
	case !dragging:
		d.ClearSelection()
	}
	return out
}

// --- Selection ---

func (d *Dispatcher) toggle(id string) {
	f, ok := d.store.Get(id)
	if !ok {
		return
	}
	if !d.store.IsSelected(id) {
		d.Select(id)
		return
	}
	if f.Kind.ScreenAligned() {
		d.emit(event.Event{Type: event.EditText, IDs: []string{id}})
		return
	}
	d.Unselect(id)
}

// Select replaces the selection with ids.
func (d *Dispatcher) Select(ids ...string) {
	prev := d.store.Selection()
	d.store.SetSelection(ids...)
	next := d.store.Selection()

	var dropped []string
	for _, id := range prev {
		if !d.store.IsSelected(id) {
			dropped = append(dropped, id)
		}
	}
	if len(dropped) > 0 {
		d.emit(event.Event{Type: event.Unselect, IDs: dropped})
	}
	if len(next) > 0 {
		d.emit(event.Event{Type: event.Select, IDs: next})
	}
}

func (d *Dispatcher) Unselect(ids ...string) {
	var dropped []string
	for _, id := range ids {
		if d.store.IsSelected(id) {
			dropped = append(dropped, id)
		}
	}
	if len(dropped) == 0 {
		return
	}
	d.store.Unselect(dropped...)
	if d.machine.Active() != "" && !d.machine.Dragging() {
		d.machine.Deactivate()
	}
	d.emit(event.Event{Type: event.Unselect, IDs: dropped})
}

func (d *Dispatcher) ClearSelection() {
	d.Unselect(d.store.Selection()...)
}

func (d *Dispatcher) emit(ev event.Event) {
	if d.emitter != nil {
		d.emitter.Emit(ev)
	}
}

func (d *Dispatcher) emitLink(arrowID string, l annotation.Link) {
	link := l
	d.emit(event.Event{
		Type: event.Link,
		IDs:  []string{arrowID, l.TargetID},
		Link: &link,
		Data: map[string]any{"side": string(l.Side), "targetType": string(l.TargetType)},
	})
}
