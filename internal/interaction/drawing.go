package interaction

import (
	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/event"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/handle"
)

// StartDrawing creates the placeholder for kind k at the screen point and
// starts dragging it. Box and Text grow from their south-east corner, an
// Arrow drags its end, a Comment drags its bubble away from the pointed
// spot, and a Polygon records a lasso.
func (d *Dispatcher) StartDrawing(k annotation.Kind, screen r2.Point) handle.Outcome {
	if d.draw != nil || d.machine.Dragging() {
		return handle.Outcome{}
	}
	p := d.canvas.ScreenToCanvas(screen)
	zoom := d.canvas.Camera().Scale()
	d.machine.Deactivate()

	var (
		placeholders []*annotation.Feature
		grab         handle.Handle
		startLink    *annotation.Link
	)
	switch k {
	case annotation.KindBox:
		placeholders = []*annotation.Feature{annotation.NewBox(p, 0, 0)}
		grab = handle.Handle{Kind: handle.Corner, X: 1, Y: 1}
	case annotation.KindText:
		placeholders = []*annotation.Feature{annotation.NewText(p, 0, 0, "")}
		grab = handle.Handle{Kind: handle.Corner, X: 1, Y: 1}
	case annotation.KindArrow:
		arrow := annotation.NewArrow(p, p)
		if res, ok := d.resolver.Resolve(p); ok {
			l := res.Link(annotation.SideStart)
			arrow = annotation.NewArrow(res.Point, res.Point).WithLink(l)
			startLink = &l
		}
		placeholders = []*annotation.Feature{arrow}
		grab = handle.Handle{Kind: handle.Endpoint, Side: annotation.SideEnd}
	case annotation.KindComment:
		comment := annotation.NewComment(p, d.opts.CommentSize.X, d.opts.CommentSize.Y, "")
		center := r2.Point{}
		arrow := annotation.NewArrow(p, p).WithLink(annotation.Link{
			TargetID: comment.ID, TargetType: annotation.TargetComment, Side: annotation.SideStart, Magnet: &center,
		})
		if res, ok := d.resolver.Resolve(p); ok {
			l := res.Link(annotation.SideEnd)
			arrow = arrow.WithEndpoint(annotation.SideEnd, res.Point).WithLink(l)
			startLink = &l
		}
		placeholders = []*annotation.Feature{comment, arrow}
		grab = handle.Handle{Kind: handle.Body}
	case annotation.KindPolygon:
		placeholders = []*annotation.Feature{annotation.NewPolygon([]r2.Point{p, p, p})}
	default:
		return handle.Outcome{}
	}

	if err := d.store.BeginDrawing(placeholders...); err != nil {
		d.logger.Warn("begin drawing", "kind", k, "error", err)
		return handle.Outcome{}
	}
	main := placeholders[0]
	d.draw = &drawing{kind: k, id: main.ID, screen: screen}
	d.logger.Debug("drawing started", "kind", k, "id", main.ID, "zoom", zoom)

	if k == annotation.KindPolygon {
		d.draw.lasso = []r2.Point{p}
		return handle.Outcome{Kind: handle.DragStarted, ID: main.ID, Drawing: true}
	}
	if startLink != nil {
		arrowID := placeholders[len(placeholders)-1].ID
		defer d.emitLink(arrowID, *startLink)
	}
	d.machine.Begin(main.ID, grab, screen, true)
	return handle.Outcome{Kind: handle.DragStarted, ID: main.ID, Handle: grab, Drawing: true}
}

// CancelDrawing aborts the drawing session in progress, or disarms a
// pending one.
func (d *Dispatcher) CancelDrawing() {
	d.armed = ""
	if d.draw == nil {
		return
	}
	if d.machine.Dragging() {
		d.escape()
		return
	}
	ids := d.store.CancelDrawing()
	d.draw = nil
	d.emit(event.Event{Type: event.DrawingCancelled, IDs: ids})
}

func (d *Dispatcher) extendLasso(screen r2.Point) {
	p := d.canvas.ScreenToCanvas(screen)
	spacing := d.opts.LassoSpacing / d.canvas.Camera().Scale()
	last := d.draw.lasso[len(d.draw.lasso)-1]
	if geometry.Distance(p, last) < spacing {
		return
	}
	d.draw.lasso = append(d.draw.lasso, p)

	f, ok := d.store.Get(d.draw.id)
	if !ok {
		return
	}
	ring := append([]r2.Point(nil), d.draw.lasso...)
	for len(ring) < 3 {
		ring = append(ring, p)
	}
	d.store.ApplyLiveUpdate(f.WithCoordinates(ring))
}

func (d *Dispatcher) finishLasso() handle.Outcome {
	id := d.draw.id
	if len(d.draw.lasso) < 3 {
		d.CancelDrawing()
		return handle.Outcome{Kind: handle.Cancelled, ID: id, Drawing: true}
	}
	d.suppressUntil = d.now().Add(d.opts.ClickSuppression)
	d.completeDrawing(d.store.CompleteDrawing())
	return handle.Outcome{Kind: handle.Committed, ID: id, Changed: []string{id}, Drawing: true}
}

func (d *Dispatcher) completeDrawing(ids []string) {
	if d.draw != nil {
		ids = append([]string{d.draw.id}, without(ids, d.draw.id)...)
	}
	d.draw = nil
	d.emit(event.Event{Type: event.DrawingCompleted, IDs: ids})
	if len(ids) > 0 {
		d.Select(ids[0])
		d.machine.Activate(ids[0])
	}
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
