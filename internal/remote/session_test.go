package remote

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/engine"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type sink struct {
	messages []*Message
}

func (s *sink) send(msg *Message) { s.messages = append(s.messages, msg) }

func (s *sink) types() []string {
	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Type
	}
	return out
}

func (s *sink) last(typ string) (*Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Type == typ {
			return s.messages[i], true
		}
	}
	return nil, false
}

func newTestSession(t *testing.T) (*Session, *sink) {
	t.Helper()
	s := NewSession("canvas-1", config.DefaultEngine(), discard)
	out := &sink{}
	s.Attach(out.send)
	return s, out
}

func msg(t *testing.T, typ string, seq int64, payload any) *Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &Message{Type: typ, Seq: seq, Payload: data}
}

const boxRecord = `[{"type":"Feature","id":"box_01","kind":"box","geometry":{"type":"Point","coordinates":[[50,25]],"width":100,"height":50},"properties":{}}]`

func TestAttachSendsDocument(t *testing.T) {
	_, out := newTestSession(t)
	assert.Equal(t, []string{TypeDocSync, TypeRender}, out.types())
	assert.Equal(t, "canvas-1", out.messages[0].CanvasID)
}

func TestAddAndAck(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.Handle(&Message{Type: TypeFeatureAdd, Seq: 7, Payload: json.RawMessage(boxRecord)}))
	assert.Equal(t, 1, s.Len())

	ack, ok := out.last(TypeAck)
	require.True(t, ok)
	var p AckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &p))
	assert.Equal(t, AckPayload{Seq: 7, IDs: []string{"box_01"}, OK: true}, p)

	ev, ok := out.last(TypeEvent)
	require.True(t, ok)
	assert.Contains(t, string(ev.Payload), `"history"`)
	assert.Equal(t, TypeRender, out.messages[len(out.messages)-1].Type)
}

func TestUpdateScaleAndUndo(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.Handle(&Message{Type: TypeFeatureAdd, Payload: json.RawMessage(boxRecord)}))

	content := "hello"
	require.NoError(t, s.Handle(msg(t, TypeFeatureUpdate, 2, UpdatePayload{ID: "box_01", Content: &content})))
	require.NoError(t, s.Handle(msg(t, TypeFeatureScale, 3, ScalePayload{ID: "box_01", Factor: 2})))

	f, ok := s.engine.Get("box_01")
	require.True(t, ok)
	assert.Equal(t, "hello", f.Properties.Content)
	assert.Equal(t, 200.0, f.Geometry.Width)

	require.NoError(t, s.Handle(&Message{Type: TypeUndo, Seq: 4}))
	f, _ = s.engine.Get("box_01")
	assert.Equal(t, 100.0, f.Geometry.Width)

	ack, _ := out.last(TypeAck)
	var p AckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &p))
	assert.Equal(t, int64(4), p.Seq)
	assert.True(t, p.OK)
}

func TestUpdateUnknownFeature(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.Handle(msg(t, TypeFeatureUpdate, 1, UpdatePayload{ID: "box_missing"}))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPointerDrawsBox(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.Handle(msg(t, TypeDrawingEnable, 0, DrawingPayload{Kind: "box"})))

	// The default viewport centers canvas origin on screen.
	require.NoError(t, s.Handle(msg(t, TypePointer, 0, PointerPayload{Kind: "down", X: 640, Y: 400})))
	require.NoError(t, s.Handle(msg(t, TypePointer, 0, PointerPayload{Kind: "move", X: 700, Y: 440, Pressed: true})))
	require.NoError(t, s.Handle(msg(t, TypePointer, 0, PointerPayload{Kind: "up", X: 700, Y: 440})))

	assert.Equal(t, 1, s.Len())
	var sawCompleted bool
	for _, m := range out.messages {
		if m.Type == TypeEvent && json.Valid(m.Payload) {
			var p EventPayload
			require.NoError(t, json.Unmarshal(m.Payload, &p))
			if p.Event.Type == "drawing-completed" {
				sawCompleted = true
			}
		}
	}
	assert.True(t, sawCompleted)
}

func TestRejectedMessages(t *testing.T) {
	s, _ := newTestSession(t)

	assert.ErrorIs(t, s.Handle(&Message{Type: "nope"}), ErrUnknownMessage)
	assert.Error(t, s.Handle(msg(t, TypePointer, 0, PointerPayload{Kind: "wiggle"})))
	assert.ErrorIs(t, s.Handle(msg(t, TypeDrawingEnable, 0, DrawingPayload{Kind: "circle"})), engine.ErrUnknownKind)
	assert.Error(t, s.Handle(&Message{Type: TypeFeatureRemove, Payload: json.RawMessage(`{`)}))
}

func TestDetachStopsOutput(t *testing.T) {
	s, out := newTestSession(t)
	s.Detach()
	n := len(out.messages)
	require.NoError(t, s.Handle(&Message{Type: TypeFeatureAdd, Payload: json.RawMessage(boxRecord)}))
	assert.Len(t, out.messages, n)
	assert.Equal(t, 1, s.Len())
}

func TestLoadPushesDocument(t *testing.T) {
	s, out := newTestSession(t)
	out.messages = nil

	require.NoError(t, s.Load([]byte(boxRecord)))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{TypeDocSync, TypeRender}, out.types())
	assert.Contains(t, s.Document(), `"box_01"`)

	assert.Error(t, s.Load([]byte("nope")))
	assert.Equal(t, 1, s.Len())
}
