package annotation

import "github.com/golang/geo/r2"

// SampleSet returns a small demo canvas: a box, a text label, a comment
// pointing at the box, and a polygon lasso.
func SampleSet() []*Feature {
	box := NewBox(r2.Point{X: 200, Y: 150}, 160, 100)

	label := NewText(r2.Point{X: 200, Y: 60}, 140, 30, "Cluster A")
	label.Properties.Style.FontSize = 18

	comment := NewComment(r2.Point{X: 420, Y: 80}, 180, 60, "Check these links")

	magnet := r2.Point{X: -0.5, Y: 0}
	arrow := NewArrow(r2.Point{X: 330, Y: 80}, r2.Point{X: 280, Y: 150})
	arrow.Properties.Links = []Link{
		{TargetID: comment.ID, TargetType: TargetComment, Side: SideStart, Magnet: &magnet},
		{TargetID: box.ID, TargetType: TargetBox, Side: SideEnd, Magnet: &r2.Point{X: 0.5, Y: 0}},
	}

	lasso := NewPolygon([]r2.Point{
		{X: 500, Y: 250}, {X: 620, Y: 230}, {X: 680, Y: 320}, {X: 590, Y: 400}, {X: 480, Y: 350},
	})

	return []*Feature{box, label, comment, arrow, lasso}
}
