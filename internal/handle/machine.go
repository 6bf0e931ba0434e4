package handle

import (
	"log/slog"
	"slices"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/host"
	"github.com/inamate/annotate/internal/snap"
	"github.com/inamate/annotate/internal/store"
)

type State int

const (
	Idle State = iota
	Hovering
	Dragging
)

func (s State) String() string {
	switch s {
	case Hovering:
		return "hovering"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	Escape
	// Click is the host's synthesized click that follows a pointer-up.
	Click
)

// Event is a pointer event in screen coordinates.
type Event struct {
	Type    EventType
	Screen  r2.Point
	Pressed bool
}

type OutcomeKind int

const (
	NoOutcome OutcomeKind = iota
	Hovered
	DragStarted
	Dragged
	Committed
	Clicked
	Cancelled
)

// Outcome reports what an event did.
type Outcome struct {
	Kind   OutcomeKind
	ID     string
	Handle Handle
	// Changed lists the ids written by a commit.
	Changed []string
	// Links lists endpoint links created by the gesture.
	Links []annotation.Link
	// Drawing is set when the gesture was a drawing session.
	Drawing bool
}

type linkedArrow struct {
	start *annotation.Feature
	sides []annotation.Side
}

type session struct {
	id         string
	handle     Handle
	controller Controller
	origin     r2.Point
	screen     r2.Point
	start      *annotation.Feature
	linked     []linkedArrow
	moved      bool
	drawing    bool
}

// Machine is the Idle → Hovering → Dragging state machine for the active
// annotation.
type Machine struct {
	store    *store.Store
	canvas   host.Canvas
	resolver *snap.Resolver
	logger   *slog.Logger

	handleSize     float64
	clickThreshold float64
	curveSteps     int

	state  State
	active string
	hover  Handle
	drag   *session
}

type MachineOption func(*Machine)

func WithLogger(l *slog.Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

// WithHandleSize sets the grab tolerance in screen pixels.
func WithHandleSize(px float64) MachineOption {
	return func(m *Machine) { m.handleSize = px }
}

// WithClickThreshold sets the screen distance below which a gesture is a
// click rather than a drag.
func WithClickThreshold(px float64) MachineOption {
	return func(m *Machine) { m.clickThreshold = px }
}

// WithCurveSteps sets the polygon outline sampling used for detection.
func WithCurveSteps(n int) MachineOption {
	return func(m *Machine) { m.curveSteps = n }
}

func NewMachine(s *store.Store, canvas host.Canvas, resolver *snap.Resolver, opts ...MachineOption) *Machine {
	m := &Machine{
		store:          s,
		canvas:         canvas,
		resolver:       resolver,
		logger:         slog.Default(),
		handleSize:     6,
		clickThreshold: 3,
		curveSteps:     geometry.DefaultCurveSteps,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State    { return m.state }
func (m *Machine) Active() string  { return m.active }
func (m *Machine) Hovered() Handle { return m.hover }

// Context is the controller context for the current camera.
func (m *Machine) Context() Context {
	return Context{Camera: m.canvas.Camera(), Resolver: m.resolver, HandleSize: m.handleSize, CurveSteps: m.curveSteps}
}

// Detect returns the handle of id under the screen point.
func (m *Machine) Detect(id string, screen r2.Point) Handle {
	f, ok := m.store.Get(id)
	if !ok {
		return Handle{}
	}
	return For(f.Kind).Detect(f, m.canvas.ScreenToCanvas(screen), m.Context())
}

// Activate puts id under control of the machine.
func (m *Machine) Activate(id string) {
	if m.active == id && m.state != Idle {
		return
	}
	if m.state == Dragging {
		m.Cancel()
	}
	m.active = id
	m.hover = Handle{}
	m.state = Hovering
}

// Deactivate releases the active annotation, cancelling any drag.
func (m *Machine) Deactivate() {
	if m.state == Dragging {
		m.Cancel()
	}
	m.active = ""
	m.hover = Handle{}
	m.state = Idle
}

// Begin starts dragging handle h of id from the screen point. Drawing
// sessions are never treated as clicks.
func (m *Machine) Begin(id string, h Handle, screen r2.Point, drawing bool) bool {
	f, ok := m.store.Get(id)
	if !ok || h.Kind == None {
		return false
	}
	m.active = id
	m.hover = h
	m.state = Dragging
	m.drag = &session{
		id:         id,
		handle:     h,
		controller: For(f.Kind),
		origin:     m.canvas.ScreenToCanvas(screen),
		screen:     screen,
		start:      f,
		drawing:    drawing,
	}

	ids := []string{id}
	if target, ok := annotation.TargetFor(f.Kind); ok && target.IsAnnotation() {
		for _, a := range m.store.AttachedArrows(id) {
			la := linkedArrow{start: a}
			for _, l := range a.Properties.Links {
				if l.TargetID == id && l.TargetType.IsAnnotation() {
					la.sides = append(la.sides, l.Side)
				}
			}
			if len(la.sides) > 0 {
				m.drag.linked = append(m.drag.linked, la)
				ids = append(ids, a.ID)
			}
		}
	}
	m.store.StartLiveUpdate(ids...)
	m.logger.Debug("drag started", "id", id, "handle", h.String())
	return true
}

// Handle feeds one event through the machine.
func (m *Machine) Handle(ev Event) Outcome {
	switch m.state {
	case Hovering:
		return m.handleHovering(ev)
	case Dragging:
		return m.handleDragging(ev)
	}
	return Outcome{}
}

func (m *Machine) handleHovering(ev Event) Outcome {
	switch ev.Type {
	case PointerDown:
		h := m.Detect(m.active, ev.Screen)
		if m.Begin(m.active, h, ev.Screen, false) {
			return Outcome{Kind: DragStarted, ID: m.active, Handle: h}
		}
	case PointerMove:
		h := m.Detect(m.active, ev.Screen)
		// A pressed move over a handle means the pointer-down was missed.
		if ev.Pressed && h.Kind != None && m.Begin(m.active, h, ev.Screen, false) {
			return Outcome{Kind: DragStarted, ID: m.active, Handle: h}
		}
		m.hover = h
		return Outcome{Kind: Hovered, ID: m.active, Handle: h}
	case Escape:
		id := m.active
		m.Deactivate()
		return Outcome{Kind: Cancelled, ID: id}
	}
	return Outcome{}
}

func (m *Machine) handleDragging(ev Event) Outcome {
	d := m.drag
	switch ev.Type {
	case PointerMove, PointerDown:
		if !d.moved && !d.drawing && geometry.Distance(ev.Screen, d.screen) < m.clickThreshold {
			return Outcome{ID: d.id, Handle: d.handle}
		}
		d.moved = true
		m.apply(m.canvas.ScreenToCanvas(ev.Screen))
		return Outcome{Kind: Dragged, ID: d.id, Handle: d.handle}
	case PointerUp:
		return m.finish(ev)
	case Escape:
		return m.Cancel()
	}
	return Outcome{}
}

func (m *Machine) apply(p r2.Point) {
	d := m.drag
	ctx := m.Context()
	next := d.controller.Drag(Drag{Handle: d.handle, Origin: d.origin, Start: d.start}, p, ctx)
	updates := []*annotation.Feature{next}

	delta := p.Sub(d.origin)
	for _, la := range d.linked {
		a := la.start
		for _, side := range la.sides {
			if d.handle.Kind == Body {
				a = a.WithEndpoint(side, la.start.Endpoint(side).Add(delta))
				continue
			}
			if l, ok := la.start.LinkAt(side); ok && l.Magnet != nil {
				a = a.WithEndpoint(side, snap.AnchorOn(next, *l.Magnet, ctx.Camera))
			}
		}
		updates = append(updates, a)
	}
	m.store.ApplyLiveUpdate(updates...)
}

func (m *Machine) finish(ev Event) Outcome {
	d := m.drag
	if !d.moved && geometry.Distance(ev.Screen, d.screen) >= m.clickThreshold {
		d.moved = true
	}
	if d.moved {
		m.apply(m.canvas.ScreenToCanvas(ev.Screen))
	}
	m.drag = nil
	m.state = Hovering

	if !d.moved && !d.drawing {
		m.store.CancelLiveUpdates()
		return Outcome{Kind: Clicked, ID: d.id, Handle: d.handle}
	}

	out := Outcome{Kind: Committed, ID: d.id, Handle: d.handle, Drawing: d.drawing}
	final, _ := m.store.Get(d.id)
	if d.drawing {
		out.Changed = m.store.CompleteDrawing()
	} else {
		ids := []string{d.id}
		for _, la := range d.linked {
			ids = append(ids, la.start.ID)
		}
		changed, err := m.store.CommitLiveUpdates(ids...)
		if err != nil {
			m.logger.Warn("drag refused", "id", d.id, "error", err)
			return Outcome{Kind: Cancelled, ID: d.id, Handle: d.handle}
		}
		out.Changed = changed
	}
	if final != nil && final.Kind == annotation.KindArrow {
		out.Links = newLinks(d.start, final)
	}
	m.logger.Debug("drag committed", "id", d.id, "changed", len(out.Changed))
	return out
}

// Cancel aborts the drag in progress. A drawing session is removed
// entirely.
func (m *Machine) Cancel() Outcome {
	d := m.drag
	if d == nil {
		return Outcome{}
	}
	m.drag = nil
	if d.drawing {
		m.store.CancelDrawing()
		m.active = ""
		m.hover = Handle{}
		m.state = Idle
		return Outcome{Kind: Cancelled, ID: d.id, Drawing: true}
	}
	m.store.CancelLiveUpdates()
	m.state = Hovering
	return Outcome{Kind: Cancelled, ID: d.id, Handle: d.handle}
}

// Dragging reports whether a gesture is in progress.
func (m *Machine) Dragging() bool { return m.state == Dragging }

func newLinks(before, after *annotation.Feature) []annotation.Link {
	var out []annotation.Link
	for _, l := range after.Properties.Links {
		if !slices.ContainsFunc(before.Properties.Links, func(o annotation.Link) bool {
			return o.Side == l.Side && o.TargetID == l.TargetID
		}) {
			out = append(out, l)
		}
	}
	return out
}
