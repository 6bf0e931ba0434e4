package engine

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/config"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/host"
)

// newTestEngine uses a zero viewport so screen and canvas coordinates
// coincide at zoom 1.
func newTestEngine(t *testing.T) (*Engine, *host.Graph, *event.Recorder) {
	t.Helper()
	graph := host.NewGraph(r2.Point{})
	e := NewEngine(graph, config.DefaultEngine())
	rec := &event.Recorder{}
	e.OnAny(rec.Emit)
	return e, graph, rec
}

func TestSetScaleArrowAndUndo(t *testing.T) {
	e, _, _ := newTestEngine(t)
	arrow := annotation.NewArrow(r2.Point{}, r2.Point{X: 100, Y: 100})
	require.NoError(t, e.Add(arrow))

	require.True(t, e.SetScale(arrow.ID, 2, 0, 0))
	got, _ := e.Get(arrow.ID)
	assert.Equal(t, []r2.Point{{X: 0, Y: 0}, {X: 200, Y: 200}}, got.Geometry.Coordinates)

	require.True(t, e.Undo())
	got, _ = e.Get(arrow.ID)
	assert.Same(t, arrow, got)
	assert.True(t, e.CanRedo())
}

func TestSetScaleTextAroundOrigin(t *testing.T) {
	e, _, _ := newTestEngine(t)
	text := annotation.NewText(r2.Point{X: 50, Y: 25}, 100, 50, "note")
	require.NoError(t, e.Add(text))

	require.True(t, e.SetScale(text.ID, 0.5, 0, 0))
	got, _ := e.Get(text.ID)
	assert.Equal(t, 50.0, got.Geometry.Width)
	assert.Equal(t, 25.0, got.Geometry.Height)
	assert.Equal(t, r2.Point{X: 25, Y: 12.5}, got.Center())
}

func TestSetScaleRejectsNegativeFactor(t *testing.T) {
	e, _, _ := newTestEngine(t)
	box := annotation.NewBox(r2.Point{}, 10, 10)
	require.NoError(t, e.Add(box))
	assert.False(t, e.SetScale(box.ID, -1, 0, 0))
	assert.False(t, e.SetScale("box_missing", 2, 0, 0))
}

func TestEventStream(t *testing.T) {
	e, _, rec := newTestEngine(t)
	text := annotation.NewText(r2.Point{X: 50, Y: 25}, 100, 50, "label")
	arrow := annotation.NewArrow(r2.Point{X: 100, Y: 25}, r2.Point{X: 200, Y: 200}).
		WithLink(annotation.Link{TargetID: text.ID, TargetType: annotation.TargetText, Side: annotation.SideStart})

	require.NoError(t, e.Add(text, arrow))
	assert.Equal(t, []event.Type{event.Add, event.History}, rec.Types())
	added, _ := rec.Last(event.Add)
	assert.Equal(t, []string{text.ID, arrow.ID}, added.IDs)
	history, _ := rec.Last(event.History)
	assert.Equal(t, true, history.Data["canUndo"])

	rec.Events = nil
	require.NoError(t, e.Remove(text.ID))
	removed, ok := rec.Last(event.Remove)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{text.ID, arrow.ID}, removed.IDs)
	assert.Equal(t, 0, e.Len())

	rec.Events = nil
	e.ClearHistory()
	history, ok = rec.Last(event.History)
	require.True(t, ok)
	assert.Equal(t, false, history.Data["canUndo"])
}

func TestCascadeRemovalIsOneStep(t *testing.T) {
	e, _, _ := newTestEngine(t)
	comment := annotation.NewComment(r2.Point{X: 400, Y: 80}, 180, 60, "why?")
	box := annotation.NewBox(r2.Point{X: 100, Y: 100}, 50, 50)
	a1 := annotation.NewArrow(r2.Point{X: 400, Y: 80}, r2.Point{X: 100, Y: 100}).
		WithLink(annotation.Link{TargetID: comment.ID, TargetType: annotation.TargetComment, Side: annotation.SideStart})
	a2 := annotation.NewArrow(r2.Point{X: 400, Y: 80}, r2.Point{X: 0, Y: 0}).
		WithLink(annotation.Link{TargetID: comment.ID, TargetType: annotation.TargetComment, Side: annotation.SideStart})
	require.NoError(t, e.Add(comment, box, a1, a2))
	e.ClearHistory()

	require.NoError(t, e.Remove(comment.ID))
	assert.Equal(t, 1, e.Len())

	require.True(t, e.Undo())
	assert.Equal(t, 4, e.Len())
	assert.False(t, e.CanUndo())
}

func TestUpdateGeometryReanchorsLinkedArrows(t *testing.T) {
	e, _, _ := newTestEngine(t)
	box := annotation.NewBox(r2.Point{X: 50, Y: 25}, 100, 50)
	corner := r2.Point{X: 0.5, Y: 0.5}
	arrow := annotation.NewArrow(r2.Point{X: 200, Y: 200}, r2.Point{X: 100, Y: 50}).
		WithLink(annotation.Link{TargetID: box.ID, TargetType: annotation.TargetBox, Side: annotation.SideEnd, Magnet: &corner})
	require.NoError(t, e.Add(box, arrow))

	require.True(t, e.UpdateGeometry(box.ID, annotation.Geometry{
		Coordinates: []r2.Point{{X: 50, Y: 25}},
		Width:       200,
		Height:      100,
	}))
	got, _ := e.Get(arrow.ID)
	assert.Equal(t, r2.Point{X: 150, Y: 75}, got.Endpoint(annotation.SideEnd))
	assert.Equal(t, r2.Point{X: 200, Y: 200}, got.Endpoint(annotation.SideStart))

	require.True(t, e.Undo())
	got, _ = e.Get(arrow.ID)
	assert.Same(t, arrow, got)
}

func TestUpdateStyleAndContent(t *testing.T) {
	e, _, rec := newTestEngine(t)
	text := annotation.NewText(r2.Point{}, 100, 20, "a")
	require.NoError(t, e.Add(text))

	assert.True(t, e.UpdateContent(text.ID, "b"))
	assert.False(t, e.UpdateContent(text.ID, "b"))
	assert.True(t, e.UpdateStyle(text.ID, annotation.Style{Stroke: "#ff0000", StrokeWidth: 2, Opacity: 1}))

	got, _ := e.Get(text.ID)
	assert.Equal(t, "b", got.Properties.Content)
	assert.Equal(t, "#ff0000", got.Properties.Style.Stroke)
	updated, ok := rec.Last(event.Update)
	require.True(t, ok)
	assert.Equal(t, []string{text.ID}, updated.IDs)
}

func TestCameraZoomReindexesFixedSizeFeatures(t *testing.T) {
	e, graph, _ := newTestEngine(t)
	comment := annotation.NewComment(r2.Point{}, 180, 60, "pinned")
	require.NoError(t, e.Add(comment))

	screen := r2.Point{X: 80, Y: 0}
	require.Equal(t, comment.ID, e.HitTest(screen))

	// At half zoom screen x=80 is canvas x=160, outside the bounds
	// indexed at zoom 1.
	cam := graph.Camera()
	cam.Zoom = 0.5
	graph.SetCamera(cam)
	assert.Empty(t, e.HitTest(screen))

	e.CameraChanged(host.ChangeZoom)
	assert.Equal(t, comment.ID, e.HitTest(screen))

	undo, _ := e.store.HistoryLen()
	assert.Equal(t, 1, undo)
}

func TestDrawingThroughEvents(t *testing.T) {
	e, _, rec := newTestEngine(t)
	require.NoError(t, e.EnableDrawing(annotation.KindBox))

	e.HandleEvent(handle.Event{Type: handle.PointerDown, Screen: r2.Point{X: 10, Y: 10}, Pressed: true})
	assert.True(t, e.Drawing())
	e.HandleEvent(handle.Event{Type: handle.PointerMove, Screen: r2.Point{X: 60, Y: 40}, Pressed: true})
	out := e.HandleEvent(handle.Event{Type: handle.PointerUp, Screen: r2.Point{X: 60, Y: 40}})
	require.Equal(t, handle.Committed, out.Kind)

	assert.Equal(t, 1, e.Len())
	assert.Equal(t, []string{out.ID}, e.Selection())
	types := rec.Types()
	assert.Contains(t, types, event.Add)
	assert.Contains(t, types, event.DrawingCompleted)
	assert.Contains(t, types, event.Select)
	assert.Contains(t, types, event.History)
	assert.True(t, e.CanUndo())
}

func TestEnableDrawingRejectsUnknownKind(t *testing.T) {
	e, _, _ := newTestEngine(t)
	assert.ErrorIs(t, e.EnableDrawing("circle"), ErrUnknownKind)
}

func TestUndoRefusedWhileDrawing(t *testing.T) {
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Add(annotation.NewBox(r2.Point{X: 500, Y: 500}, 10, 10)))
	e.StartDrawing(annotation.KindBox, r2.Point{X: 10, Y: 10})

	assert.False(t, e.Undo())
	e.CancelDrawing()
	assert.False(t, e.Drawing())
	assert.True(t, e.Undo())
	assert.Equal(t, 0, e.Len())
}

func TestDocumentRoundTrip(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.LoadSample()
	require.Equal(t, 5, e.Len())
	assert.False(t, e.CanUndo())

	other, _, _ := newTestEngine(t)
	require.NoError(t, other.Load([]byte(e.Document())))
	assert.Equal(t, e.Len(), other.Len())
	for _, f := range e.Features() {
		got, ok := other.Get(f.ID)
		require.True(t, ok)
		assert.Equal(t, f.Kind, got.Kind)
		assert.Equal(t, f.Geometry.Coordinates, got.Geometry.Coordinates)
	}
}

func TestAddRecords(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ids, err := e.AddRecords([]byte(`[{"type":"Feature","kind":"box","geometry":{"type":"Point","coordinates":[[10,10]],"width":20,"height":20},"properties":{}}]`))
	require.NoError(t, err)
	require.Len(t, ids, 1)
	f, ok := e.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, annotation.KindBox, f.Kind)

	_, err = e.AddRecords([]byte(`not json`))
	assert.Error(t, err)
}

func TestCompileDrawCommands(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.LoadSample()
	features := e.Features()
	e.Select(features[0].ID)

	commands := e.CompileDrawCommands()
	require.Len(t, commands, len(features))
	for i, f := range features {
		assert.Equal(t, f.ID, commands[i].ObjectID)
		assert.NotEmpty(t, commands[i].Path)
	}
	assert.True(t, commands[0].Selected)
	assert.Equal(t, "arrow", commands[3].Op)
	assert.Len(t, commands[0].Path, 5)
	assert.JSONEq(t, `["`+features[0].ID+`"]`, e.SelectionJSON())
	assert.NotEqual(t, `{"x":0,"y":0,"width":0,"height":0}`, e.SelectionBounds())
}

func TestHitTestFollowsDrawnPolygon(t *testing.T) {
	e, _, _ := newTestEngine(t)
	poly := annotation.NewPolygon([]r2.Point{{}, {X: 100}, {X: 100, Y: 100}, {Y: 100}})
	require.NoError(t, e.Add(poly))

	assert.Equal(t, poly.ID, e.HitTest(r2.Point{X: 50, Y: -9}))
	assert.Equal(t, poly.ID, e.HitTest(r2.Point{X: 112, Y: 50}))
	assert.Empty(t, e.HitTest(r2.Point{X: 50, Y: -30}))
}
