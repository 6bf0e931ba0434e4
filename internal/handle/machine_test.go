package handle

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/host"
	"github.com/inamate/annotate/internal/snap"
	"github.com/inamate/annotate/internal/spatial"
	"github.com/inamate/annotate/internal/store"
)

type rig struct {
	graph   *host.Graph
	store   *store.Store
	index   *spatial.Index
	machine *Machine
}

// newRig uses a zero viewport so screen and canvas coordinates coincide.
func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{graph: host.NewGraph(r2.Point{}), store: store.New()}
	r.index = spatial.New(r.graph.Camera())
	r.store.OnChange(func(ch store.Change) { r.index.Sync(ch.IDs(), r.store.Get) })
	resolver := snap.NewResolver(r.graph, r.index, r.store.Get, snap.DefaultOptions())
	r.machine = NewMachine(r.store, r.graph, resolver)
	return r
}

func (r *rig) add(t *testing.T, fs ...*annotation.Feature) {
	t.Helper()
	require.NoError(t, r.store.AddFeatures(fs...))
}

func (r *rig) get(t *testing.T, id string) *annotation.Feature {
	t.Helper()
	f, ok := r.store.Get(id)
	require.True(t, ok)
	return f
}

func ev(typ EventType, x, y float64) Event {
	return Event{Type: typ, Screen: r2.Point{X: x, Y: y}, Pressed: typ != PointerUp}
}

func TestCornerDragResizesFromOppositeCorner(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{X: 50, Y: 25}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	out := r.machine.Handle(ev(PointerDown, 100, 50))
	require.Equal(t, DragStarted, out.Kind)
	assert.Equal(t, Handle{Kind: Corner, X: 1, Y: 1}, out.Handle)

	r.machine.Handle(ev(PointerMove, 110, 55))
	r.machine.Handle(ev(PointerMove, 120, 60))
	out = r.machine.Handle(ev(PointerUp, 120, 60))
	require.Equal(t, Committed, out.Kind)
	assert.Equal(t, []string{box.ID}, out.Changed)

	got := r.get(t, box.ID)
	assert.Equal(t, 120.0, got.Geometry.Width)
	assert.Equal(t, 60.0, got.Geometry.Height)
	assert.Equal(t, r2.Point{X: 60, Y: 30}, got.Center())
	assert.Equal(t, Hovering, r.machine.State())

	undo, _ := r.store.HistoryLen()
	assert.Equal(t, 2, undo)
}

func TestCornerDragClampsAtZero(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{X: 50, Y: 25}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	r.machine.Handle(ev(PointerDown, 100, 50))
	r.machine.Handle(ev(PointerUp, -300, -300))

	got := r.get(t, box.ID)
	assert.Zero(t, got.Geometry.Width)
	assert.Zero(t, got.Geometry.Height)
	assert.Equal(t, r2.Point{X: 0, Y: 0}, got.Center())
}

func TestEdgeDragChangesOneAxis(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	out := r.machine.Handle(ev(PointerDown, -50, 0))
	require.Equal(t, Handle{Kind: Edge, X: -1}, out.Handle)
	r.machine.Handle(ev(PointerUp, -70, 30))

	got := r.get(t, box.ID)
	assert.Equal(t, 120.0, got.Geometry.Width)
	assert.Equal(t, 50.0, got.Geometry.Height)
	assert.Equal(t, r2.Point{X: -10}, got.Center())
}

func TestSmallMovementIsAClick(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	r.machine.Handle(ev(PointerDown, 0, 0))
	r.machine.Handle(ev(PointerMove, 2, 0))
	out := r.machine.Handle(ev(PointerUp, 2, 0))

	assert.Equal(t, Clicked, out.Kind)
	assert.Same(t, box, r.get(t, box.ID))
	undo, _ := r.store.HistoryLen()
	assert.Equal(t, 1, undo)
}

func TestBodyDragFansOutToAnnotationLinksOnly(t *testing.T) {
	r := newRig(t)
	r.graph.AddNode(host.Node{ID: "n1", Position: r2.Point{X: -300}, Radius: 10})
	box := annotation.NewBox(r2.Point{}, 100, 50)
	arrow := annotation.NewArrow(r2.Point{X: -300}, r2.Point{X: -50}).
		WithLink(annotation.Link{TargetID: "n1", TargetType: annotation.TargetNode, Side: annotation.SideStart}).
		WithLink(annotation.Link{TargetID: box.ID, TargetType: annotation.TargetBox, Side: annotation.SideEnd})
	r.add(t, box, arrow)
	r.machine.Activate(box.ID)

	r.machine.Handle(ev(PointerDown, 10, 10))
	r.machine.Handle(ev(PointerMove, 40, 30))

	live := r.get(t, arrow.ID)
	assert.Equal(t, r2.Point{X: -300}, live.Endpoint(annotation.SideStart))
	assert.Equal(t, r2.Point{X: -20, Y: 20}, live.Endpoint(annotation.SideEnd))

	out := r.machine.Handle(ev(PointerUp, 40, 30))
	assert.ElementsMatch(t, []string{box.ID, arrow.ID}, out.Changed)
	undo, _ := r.store.HistoryLen()
	assert.Equal(t, 2, undo, "target and arrow move in one step")
}

func TestResizeReanchorsLinkedArrow(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{}, 100, 50)
	magnet := r2.Point{X: 0.5, Y: 0}
	arrow := annotation.NewArrow(r2.Point{X: 200}, r2.Point{X: 50}).
		WithLink(annotation.Link{TargetID: box.ID, TargetType: annotation.TargetBox, Side: annotation.SideEnd, Magnet: &magnet})
	r.add(t, box, arrow)
	r.machine.Activate(box.ID)

	r.machine.Handle(ev(PointerDown, 50, 0))
	r.machine.Handle(ev(PointerUp, 70, 0))

	assert.Equal(t, r2.Point{X: 70}, r.get(t, arrow.ID).Endpoint(annotation.SideEnd))
}

func TestMissedPointerDownStartsDrag(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	out := r.machine.Handle(ev(PointerMove, 0, 0))
	require.Equal(t, DragStarted, out.Kind)
	r.machine.Handle(ev(PointerMove, 30, 0))
	r.machine.Handle(ev(PointerUp, 30, 0))

	assert.Equal(t, r2.Point{X: 30}, r.get(t, box.ID).Center())
}

func TestHoverWithoutPress(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	out := r.machine.Handle(Event{Type: PointerMove, Screen: r2.Point{X: 50, Y: -25}})
	assert.Equal(t, Hovered, out.Kind)
	assert.Equal(t, Corner, out.Handle.Kind)
	assert.Equal(t, Hovering, r.machine.State())
}

func TestEscapeCancelsDrawing(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{X: 10, Y: 10}, 0, 0)
	require.NoError(t, r.store.BeginDrawing(box))
	require.True(t, r.machine.Begin(box.ID, Handle{Kind: Corner, X: 1, Y: 1}, r2.Point{X: 10, Y: 10}, true))
	r.machine.Handle(ev(PointerMove, 60, 40))

	out := r.machine.Handle(Event{Type: Escape})
	assert.Equal(t, Cancelled, out.Kind)
	assert.True(t, out.Drawing)
	assert.Zero(t, r.store.Len())
	assert.Zero(t, r.index.Len())
	assert.Equal(t, Idle, r.machine.State())
	assert.False(t, r.store.CanUndo())
}

func TestEscapeRestoresDraggedRecord(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{}, 100, 50)
	r.add(t, box)
	r.machine.Activate(box.ID)

	r.machine.Handle(ev(PointerDown, 0, 0))
	r.machine.Handle(ev(PointerMove, 80, 0))
	out := r.machine.Handle(Event{Type: Escape})

	assert.Equal(t, Cancelled, out.Kind)
	assert.Same(t, box, r.get(t, box.ID))
	b, _ := r.index.Bounds(box.ID)
	assert.Equal(t, r2.Point{}, b.Center())
}

func TestArrowEndpointSnapsAndLinks(t *testing.T) {
	r := newRig(t)
	box := annotation.NewBox(r2.Point{X: 200}, 40, 40)
	arrow := annotation.NewArrow(r2.Point{}, r2.Point{X: 100})
	r.add(t, box, arrow)
	r.machine.Activate(arrow.ID)

	out := r.machine.Handle(ev(PointerDown, 100, 0))
	require.Equal(t, Handle{Kind: Endpoint, Side: annotation.SideEnd}, out.Handle)
	r.machine.Handle(ev(PointerMove, 178, 2))
	out = r.machine.Handle(ev(PointerUp, 178, 2))

	got := r.get(t, arrow.ID)
	assert.Equal(t, r2.Point{X: 180}, got.Endpoint(annotation.SideEnd))
	l, ok := got.LinkAt(annotation.SideEnd)
	require.True(t, ok)
	assert.Equal(t, box.ID, l.TargetID)
	require.Len(t, out.Links, 1)
	assert.Equal(t, annotation.TargetBox, out.Links[0].TargetType)
}

// commentWithArrow links an arrow from (50,0) to (300,0) to a comment
// centered on the origin, at the given side of the arrow.
func commentWithArrow(t *testing.T, r *rig, side annotation.Side) (*annotation.Feature, *annotation.Feature) {
	t.Helper()
	comment := annotation.NewComment(r2.Point{}, 100, 40, "note")
	magnet := r2.Point{X: 0.5, Y: 0}
	start, end := r2.Point{X: 50}, r2.Point{X: 300}
	if side == annotation.SideEnd {
		start, end = end, start
	}
	arrow := annotation.NewArrow(start, end).
		WithLink(annotation.Link{TargetID: comment.ID, TargetType: annotation.TargetComment, Side: side, Magnet: &magnet})
	r.add(t, comment, arrow)
	return comment, arrow
}

func TestDragCannotDetachCommentsLastArrow(t *testing.T) {
	tests := []struct {
		name       string
		side       annotation.Side
		down, move r2.Point
		handle     Handle
	}{
		{"body", annotation.SideStart, r2.Point{X: 175}, r2.Point{X: 175, Y: 100}, Handle{Kind: Body}},
		{"linked start", annotation.SideStart, r2.Point{X: 50}, r2.Point{X: 50, Y: 300}, Handle{Kind: Endpoint, Side: annotation.SideStart}},
		{"linked end", annotation.SideEnd, r2.Point{X: 50}, r2.Point{X: 50, Y: 300}, Handle{Kind: Endpoint, Side: annotation.SideEnd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			comment, arrow := commentWithArrow(t, r, tt.side)
			undo, _ := r.store.HistoryLen()
			r.machine.Activate(arrow.ID)

			out := r.machine.Handle(ev(PointerDown, tt.down.X, tt.down.Y))
			require.Equal(t, DragStarted, out.Kind)
			require.Equal(t, tt.handle, out.Handle)
			r.machine.Handle(ev(PointerMove, tt.move.X, tt.move.Y))
			out = r.machine.Handle(ev(PointerUp, tt.move.X, tt.move.Y))

			assert.Equal(t, Cancelled, out.Kind)
			assert.Same(t, arrow, r.get(t, arrow.ID))
			assert.False(t, r.store.IsLive(arrow.ID))
			assert.Len(t, r.store.AttachedArrows(comment.ID), 1)
			after, _ := r.store.HistoryLen()
			assert.Equal(t, undo, after)
			assert.Equal(t, Hovering, r.machine.State())
		})
	}
}

func TestDragDetachesCommentArrowWhenAnotherRemains(t *testing.T) {
	r := newRig(t)
	comment, arrow := commentWithArrow(t, r, annotation.SideStart)
	other := annotation.NewArrow(r2.Point{X: -50}, r2.Point{X: -300}).
		WithLink(annotation.Link{TargetID: comment.ID, TargetType: annotation.TargetComment, Side: annotation.SideStart})
	r.add(t, other)
	r.machine.Activate(arrow.ID)

	r.machine.Handle(ev(PointerDown, 175, 0))
	r.machine.Handle(ev(PointerMove, 175, 100))
	out := r.machine.Handle(ev(PointerUp, 175, 100))

	assert.Equal(t, Committed, out.Kind)
	assert.Empty(t, r.get(t, arrow.ID).Properties.Links)
	assert.Len(t, r.store.AttachedArrows(comment.ID), 1)
}

func TestRotatedTextCornerDetection(t *testing.T) {
	r := newRig(t)
	r.graph.SetCamera(host.Camera{Zoom: 1, Rotation: math.Pi / 4})
	text := annotation.NewText(r2.Point{}, 80, 20, "t")
	r.add(t, text)

	fr := spatial.FrameOf(text, r.graph.Camera())
	corner := fr.Corners()[1]
	h := For(text.Kind).Detect(text, corner, r.machine.Context())
	assert.Equal(t, Handle{Kind: Corner, X: 1, Y: -1}, h)

	axisCorner := r2.Point{X: 40, Y: -10}
	assert.NotEqual(t, Corner, For(text.Kind).Detect(text, axisCorner, r.machine.Context()).Kind)
}

func TestPolygonVertexDrag(t *testing.T) {
	r := newRig(t)
	poly := annotation.NewPolygon([]r2.Point{{}, {X: 100}, {X: 100, Y: 100}, {Y: 100}})
	r.add(t, poly)
	r.machine.Activate(poly.ID)

	out := r.machine.Handle(ev(PointerDown, 100, 100))
	require.Equal(t, Handle{Kind: Vertex, Index: 2}, out.Handle)
	r.machine.Handle(ev(PointerUp, 120, 130))

	assert.Equal(t, r2.Point{X: 120, Y: 130}, r.get(t, poly.ID).Geometry.Coordinates[2])
}

func TestPolygonDetectsSmoothedOutline(t *testing.T) {
	r := newRig(t)
	poly := annotation.NewPolygon([]r2.Point{{}, {X: 100}, {X: 100, Y: 100}, {Y: 100}})
	r.add(t, poly)

	// the drawn curve bulges 12.5 units past each straight side
	assert.Equal(t, Handle{Kind: Body}, r.machine.Detect(poly.ID, r2.Point{X: 50, Y: -9}))
	assert.Equal(t, Handle{Kind: Body}, r.machine.Detect(poly.ID, r2.Point{X: 50, Y: -16}))
	assert.Equal(t, Handle{}, r.machine.Detect(poly.ID, r2.Point{X: 50, Y: -25}))
}
