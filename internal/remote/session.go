package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/engine"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/host"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrNotFound       = errors.New("feature not found")
	ErrCanvasBusy     = errors.New("canvas already has a writer")
)

// DefaultViewport is used until the host reports its size.
var DefaultViewport = r2.Point{X: 1280, Y: 800}

// Session holds the engine of one canvas. It outlives connections so a
// reconnecting host finds its annotations and history intact.
type Session struct {
	mu       sync.Mutex
	canvasID string
	graph    *host.Graph
	engine   *engine.Engine
	logger   *slog.Logger

	// out is only touched with mu held.
	out func(*Message)
}

func NewSession(canvasID string, cfg config.Engine, logger *slog.Logger) *Session {
	s := &Session{
		canvasID: canvasID,
		graph:    host.NewGraph(DefaultViewport),
		logger:   logger.With("canvas", canvasID),
	}
	s.engine = engine.NewEngine(s.graph, cfg, engine.WithLogger(s.logger))
	s.engine.OnAny(func(ev event.Event) {
		s.send(TypeEvent, EventPayload{Event: ev})
	})
	return s
}

func (s *Session) CanvasID() string { return s.canvasID }

// Attach routes outgoing messages to out and sends the current document.
func (s *Session) Attach(out func(*Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = out
	s.sendRaw(TypeDocSync, json.RawMessage(s.engine.Document()))
	s.sendRaw(TypeRender, json.RawMessage(s.engine.Render()))
}

// Detach drops the outgoing sink and abandons any gesture in progress.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Abort()
	s.out = nil
}

// Len returns the number of annotations.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Len()
}

// Document returns the committed annotations as a feature collection.
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Document()
}

// Render returns the draw commands for the current camera.
func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Render()
}

// Load replaces the document and pushes it to the attached host.
func (s *Session) Load(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Load(data); err != nil {
		return err
	}
	s.sendRaw(TypeDocSync, json.RawMessage(s.engine.Document()))
	s.sendRaw(TypeRender, json.RawMessage(s.engine.Render()))
	return nil
}

// Handle applies one host message. Messages that change what is drawn
// are followed by a render message.
func (s *Session) Handle(msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(msg); err != nil {
		return err
	}
	s.sendRaw(TypeRender, json.RawMessage(s.engine.Render()))
	return nil
}

func (s *Session) apply(msg *Message) error {
	e := s.engine
	switch msg.Type {
	case TypeFeatureAdd:
		ids, err := e.AddRecords(msg.Payload)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		s.ack(msg.Seq, ids, true)
	case TypeFeatureRemove:
		var p IDsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid remove payload: %w", err)
		}
		if err := e.Remove(p.IDs...); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		s.ack(msg.Seq, p.IDs, true)
	case TypeFeatureUpdate:
		return s.applyUpdate(msg)
	case TypeFeatureScale:
		var p ScalePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid scale payload: %w", err)
		}
		s.ack(msg.Seq, []string{p.ID}, e.SetScale(p.ID, p.Factor, p.X, p.Y))
	case TypePointer:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid pointer payload: %w", err)
		}
		ev, err := pointerEvent(p)
		if err != nil {
			return err
		}
		e.HandleEvent(ev)
	case TypeCamera:
		var p CameraPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid camera payload: %w", err)
		}
		s.graph.SetCamera(p.Camera)
		e.CameraChanged(p.Reason)
	case TypeGraphSync:
		var state host.GraphState
		if err := json.Unmarshal(msg.Payload, &state); err != nil {
			return fmt.Errorf("invalid graph payload: %w", err)
		}
		s.graph.Load(state)
		e.CameraChanged(host.ChangeLayoutEnd)
	case TypeUndo:
		s.ack(msg.Seq, nil, e.Undo())
	case TypeRedo:
		s.ack(msg.Seq, nil, e.Redo())
	case TypeHistoryClear:
		e.ClearHistory()
	case TypeSelectionSet:
		var p IDsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid selection payload: %w", err)
		}
		if len(p.IDs) == 0 {
			e.ClearSelection()
		} else {
			e.Select(p.IDs...)
		}
	case TypeDrawingEnable:
		var p DrawingPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid drawing payload: %w", err)
		}
		return e.EnableDrawing(p.Kind)
	case TypeDrawingCancel:
		e.CancelDrawing()
	case TypeDocLoad:
		if err := e.Load(msg.Payload); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		s.sendRaw(TypeDocSync, json.RawMessage(e.Document()))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type)
	}
	return nil
}

func (s *Session) applyUpdate(msg *Message) error {
	var p UpdatePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("invalid update payload: %w", err)
	}
	if _, ok := s.engine.Get(p.ID); !ok {
		return fmt.Errorf("update %s: %w", p.ID, ErrNotFound)
	}

	changed := s.engine.Update(p.ID, func(f *annotation.Feature) *annotation.Feature {
		next := f
		if p.Style != nil {
			style := annotation.Style(*p.Style)
			next = next.WithStyle(&style)
		}
		if p.Content != nil {
			next = next.WithContent(*p.Content)
		}
		if p.Geometry != nil {
			g := &annotation.Geometry{Width: p.Geometry.Width, Height: p.Geometry.Height}
			for _, c := range p.Geometry.Coordinates {
				g.Coordinates = append(g.Coordinates, r2.Point{X: c[0], Y: c[1]})
			}
			next = next.WithGeometry(g)
		}
		return next
	})
	s.ack(msg.Seq, []string{p.ID}, changed)
	return nil
}

func pointerEvent(p PointerPayload) (handle.Event, error) {
	ev := handle.Event{Screen: r2.Point{X: p.X, Y: p.Y}, Pressed: p.Pressed}
	switch p.Kind {
	case "down":
		ev.Type = handle.PointerDown
		ev.Pressed = true
	case "move":
		ev.Type = handle.PointerMove
	case "up":
		ev.Type = handle.PointerUp
		ev.Pressed = false
	case "click":
		ev.Type = handle.Click
	case "escape":
		ev.Type = handle.Escape
	default:
		return ev, fmt.Errorf("unknown pointer kind %q", p.Kind)
	}
	return ev, nil
}

func (s *Session) ack(seq int64, ids []string, ok bool) {
	if seq == 0 {
		return
	}
	s.send(TypeAck, AckPayload{Seq: seq, IDs: ids, OK: ok})
}

// send and sendRaw must be called with mu held.
func (s *Session) send(typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal payload", "type", typ, "error", err)
		return
	}
	s.sendRaw(typ, data)
}

func (s *Session) sendRaw(typ string, payload json.RawMessage) {
	if s.out == nil {
		return
	}
	s.out(&Message{Type: typ, CanvasID: s.canvasID, Payload: payload})
}
