package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/host"
	"github.com/inamate/annotate/internal/interaction"
	"github.com/inamate/annotate/internal/snap"
	"github.com/inamate/annotate/internal/spatial"
	"github.com/inamate/annotate/internal/store"
)

// ErrUnknownKind is returned for drawing requests naming no annotation kind.
var ErrUnknownKind = errors.New("unknown annotation kind")

// Engine owns the annotation set of one canvas. It keeps the store and the
// spatial index consistent, routes pointer events and publishes
// notifications for the presentation layer.
type Engine struct {
	canvas     host.Canvas
	store      *store.Store
	index      *spatial.Index
	resolver   *snap.Resolver
	machine    *handle.Machine
	dispatcher *interaction.Dispatcher
	bus        *event.Bus
	logger     *slog.Logger
	cfg        config.Engine
}

type options struct {
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now for click suppression.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// NewEngine creates an engine on top of the host canvas.
func NewEngine(canvas host.Canvas, cfg config.Engine, opts ...Option) *Engine {
	o := options{logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		canvas: canvas,
		bus:    event.NewBus(),
		logger: o.logger,
		cfg:    cfg,
	}
	e.store = store.New(store.WithLogger(o.logger), store.WithHistoryLimit(cfg.HistoryLimit))
	e.store.SetCamera(canvas.Camera())
	e.index = spatial.New(canvas.Camera(), spatial.WithBounds(spatial.CurveBounds(cfg.CurveSteps)))
	e.resolver = snap.NewResolver(canvas, e.index, e.store.Get, snap.Options{
		Radius:       cfg.SnapRadius,
		DetectMargin: cfg.DetectMargin,
		MagnetRadius: cfg.MagnetRadius,
		EdgeSamples:  cfg.EdgeSamples,
		CurveSteps:   cfg.CurveSteps,
	})
	e.machine = handle.NewMachine(e.store, canvas, e.resolver,
		handle.WithLogger(o.logger),
		handle.WithHandleSize(cfg.HandleSize),
		handle.WithClickThreshold(cfg.ClickThreshold),
		handle.WithCurveSteps(cfg.CurveSteps),
	)

	dispatch := interaction.DefaultOptions()
	dispatch.HitTolerance = cfg.HitTolerance
	dispatch.ClickSuppression = cfg.ClickSuppression
	dispatch.LassoSpacing = cfg.LassoSpacing
	dispatch.ClickThreshold = cfg.ClickThreshold
	e.dispatcher = interaction.New(e.store, e.index, canvas, e.machine, e.resolver, e.bus, dispatch,
		interaction.WithLogger(o.logger), interaction.WithClock(o.clock))

	e.store.OnChange(e.onChange)
	store.Subscribe(e.store, historyOf, store.Equal[historyState], func(h historyState) {
		e.bus.Emit(event.Event{Type: event.History, Data: map[string]any{
			"canUndo": h.Undo > 0,
			"canRedo": h.Redo > 0,
			"undo":    h.Undo,
			"redo":    h.Redo,
		}})
	})
	return e
}

type historyState struct{ Undo, Redo int }

func historyOf(s *store.Store) historyState {
	u, r := s.HistoryLen()
	return historyState{Undo: u, Redo: r}
}

// onChange keeps the index in step with every record change and turns
// committed changes into notifications. Live changes only re-index.
func (e *Engine) onChange(ch store.Change) {
	e.index.Sync(ch.IDs(), e.store.Get)
	if ch.Live {
		return
	}
	if len(ch.Added) > 0 {
		e.bus.Emit(event.Event{Type: event.Add, IDs: ch.Added})
	}
	if len(ch.Updated) > 0 {
		e.bus.Emit(event.Event{Type: event.Update, IDs: ch.Updated})
	}
	if len(ch.Removed) > 0 {
		e.bus.Emit(event.Event{Type: event.Remove, IDs: ch.Removed})
	}
}

// --- Notifications ---

// On registers a listener for one notification type.
func (e *Engine) On(t event.Type, l event.Listener) { e.bus.On(t, l) }

// OnAny registers a listener for every notification.
func (e *Engine) OnAny(l event.Listener) { e.bus.OnAny(l) }

// --- Records ---

func (e *Engine) Add(features ...*annotation.Feature) error {
	return e.store.AddFeatures(features...)
}

// AddRecords decodes a feature collection and adds it as one step.
func (e *Engine) AddRecords(data []byte) ([]string, error) {
	features, err := annotation.UnmarshalCollection(data)
	if err != nil {
		return nil, err
	}
	if err := e.store.AddFeatures(features...); err != nil {
		return nil, err
	}
	ids := make([]string, len(features))
	for i, f := range features {
		ids[i] = f.ID
	}
	return ids, nil
}

// Remove deletes ids and everything the deletion cascades to.
func (e *Engine) Remove(ids ...string) error {
	return e.store.RemoveFeatures(ids...)
}

func (e *Engine) Get(id string) (*annotation.Feature, bool) { return e.store.Get(id) }

func (e *Engine) Features() []*annotation.Feature { return e.store.Features() }

func (e *Engine) Len() int { return e.store.Len() }

// Records encodes the committed records as a feature collection.
func (e *Engine) Records() ([]byte, error) {
	return annotation.MarshalCollection(e.store.State().Features())
}

// Load replaces every record and drops history.
func (e *Engine) Load(data []byte) error {
	features, err := annotation.UnmarshalCollection(data)
	if err != nil {
		return err
	}
	e.Abort()
	return e.store.Reset(features)
}

// LoadSample replaces every record with the built-in sample set.
func (e *Engine) LoadSample() {
	e.Abort()
	if err := e.store.Reset(annotation.SampleSet()); err != nil {
		e.logger.Error("load sample", "error", err)
	}
}

// --- Updates ---

// Update replaces id with fn's result. Arrows linked to id follow the new
// geometry. It reports whether anything changed.
func (e *Engine) Update(id string, fn func(*annotation.Feature) *annotation.Feature) bool {
	f, ok := e.store.Canonical(id)
	if !ok {
		return false
	}
	next := fn(f)
	if next == nil {
		return false
	}

	changed := false
	e.store.Batch(func() {
		changed = e.store.UpdateFeature(id, func(*annotation.Feature) *annotation.Feature { return next })
		if changed && f.Geometry != next.Geometry {
			e.reanchor(next)
		}
	})
	return changed
}

func (e *Engine) UpdateStyle(id string, s annotation.Style) bool {
	return e.Update(id, func(f *annotation.Feature) *annotation.Feature {
		style := s
		return f.WithStyle(&style)
	})
}

func (e *Engine) UpdateContent(id, content string) bool {
	return e.Update(id, func(f *annotation.Feature) *annotation.Feature {
		if f.Properties.Content == content {
			return nil
		}
		return f.WithContent(content)
	})
}

func (e *Engine) UpdateGeometry(id string, g annotation.Geometry) bool {
	return e.Update(id, func(f *annotation.Feature) *annotation.Feature {
		geom := g
		return f.WithGeometry(&geom)
	})
}

// SetScale scales id by factor around the canvas point (ox, oy) as one
// undo step.
func (e *Engine) SetScale(id string, factor, ox, oy float64) bool {
	if factor < 0 {
		e.logger.Warn("negative scale refused", "id", id, "factor", factor)
		return false
	}
	return e.Update(id, func(f *annotation.Feature) *annotation.Feature {
		return f.Scale(factor, r2.Point{X: ox, Y: oy})
	})
}

// reanchor moves the linked endpoints of arrows attached to target onto
// their magnets.
func (e *Engine) reanchor(target *annotation.Feature) {
	tt, ok := annotation.TargetFor(target.Kind)
	if !ok || !tt.IsAnnotation() {
		return
	}
	cam := e.canvas.Camera()
	for _, a := range e.store.AttachedArrows(target.ID) {
		e.store.UpdateFeature(a.ID, func(a *annotation.Feature) *annotation.Feature {
			next := a
			for _, l := range a.Properties.Links {
				if l.TargetID == target.ID && l.Magnet != nil {
					next = next.WithEndpoint(l.Side, snap.AnchorOn(target, *l.Magnet, cam))
				}
			}
			return next
		})
	}
}

// --- History ---

func (e *Engine) Undo() bool {
	if e.dispatcher.Drawing() {
		return false
	}
	e.machine.Deactivate()
	return e.store.Undo()
}

func (e *Engine) Redo() bool {
	if e.dispatcher.Drawing() {
		return false
	}
	e.machine.Deactivate()
	return e.store.Redo()
}

func (e *Engine) ClearHistory() { e.store.ClearHistory() }
func (e *Engine) CanUndo() bool { return e.store.CanUndo() }
func (e *Engine) CanRedo() bool { return e.store.CanRedo() }

// --- Selection ---

func (e *Engine) Select(ids ...string)   { e.dispatcher.Select(ids...) }
func (e *Engine) Unselect(ids ...string) { e.dispatcher.Unselect(ids...) }
func (e *Engine) ClearSelection()        { e.dispatcher.ClearSelection() }
func (e *Engine) Selection() []string    { return e.store.Selection() }

// --- Drawing ---

// EnableDrawing arms a drawing session for the next pointer-down.
func (e *Engine) EnableDrawing(k annotation.Kind) error {
	if !k.Valid() {
		return fmt.Errorf("enable drawing %q: %w", k, ErrUnknownKind)
	}
	e.dispatcher.EnableDrawing(k)
	return nil
}

// StartDrawing begins drawing kind k at the screen point immediately.
func (e *Engine) StartDrawing(k annotation.Kind, screen r2.Point) handle.Outcome {
	return e.dispatcher.StartDrawing(k, screen)
}

func (e *Engine) CancelDrawing() { e.dispatcher.CancelDrawing() }

// Abort drops any drawing session or drag in progress without touching
// the selection.
func (e *Engine) Abort() {
	e.dispatcher.CancelDrawing()
	e.machine.Deactivate()
}

func (e *Engine) Drawing() bool { return e.dispatcher.Drawing() }

// --- Host input ---

// HandleEvent routes one pointer event.
func (e *Engine) HandleEvent(ev handle.Event) handle.Outcome {
	return e.dispatcher.Dispatch(ev)
}

// CameraChanged re-reads the host camera. Zoom and rotation re-index the
// features whose extent depends on the camera; no history is recorded.
func (e *Engine) CameraChanged(reason host.ChangeReason) {
	cam := e.canvas.Camera()
	e.store.SetCamera(cam)
	n := e.index.SetCamera(cam)
	if n > 0 {
		e.logger.Debug("camera reindex", "reason", reason, "features", n)
	}
}

// HitTest returns the id of the topmost annotation under the screen point,
// or an empty string.
func (e *Engine) HitTest(screen r2.Point) string {
	if f, ok := e.dispatcher.HitTest(screen); ok {
		return f.ID
	}
	return ""
}

// --- Queries ---

// Document returns the committed records as a JSON feature collection.
func (e *Engine) Document() string {
	data, err := e.Records()
	if err != nil {
		e.logger.Error("encode document", "error", err)
		return `{"type":"FeatureCollection","features":[]}`
	}
	return string(data)
}

// SelectionJSON returns the current selection as JSON.
func (e *Engine) SelectionJSON() string {
	sel := e.store.Selection()
	if sel == nil {
		sel = []string{}
	}
	data, _ := json.Marshal(sel)
	return string(data)
}

// StateJSON returns the interaction state as JSON.
func (e *Engine) StateJSON() string {
	undo, redo := e.store.HistoryLen()
	data, _ := json.Marshal(map[string]any{
		"state":    e.machine.State().String(),
		"active":   e.machine.Active(),
		"handle":   e.machine.Hovered().String(),
		"drawing":  e.dispatcher.Drawing(),
		"armed":    string(e.dispatcher.Armed()),
		"undo":     undo,
		"redo":     redo,
		"features": e.store.Len(),
	})
	return string(data)
}
