package annotation

import "github.com/golang/geo/r2"

// DefaultStyle returns the initial style of a freshly created feature.
func DefaultStyle(k Kind) *Style {
	switch k {
	case KindArrow:
		return &Style{Stroke: "#333333", StrokeWidth: 2, Opacity: 1}
	case KindText:
		return &Style{Stroke: "#333333", FontSize: 16, Opacity: 1}
	case KindComment:
		return &Style{Stroke: "#d4a017", Fill: "#fff8dc", StrokeWidth: 1, FontSize: 14, Opacity: 1}
	case KindPolygon:
		return &Style{Stroke: "#2f6fde", Fill: "#2f6fde33", StrokeWidth: 2, Opacity: 1}
	default:
		return &Style{Stroke: "#333333", StrokeWidth: 2, Opacity: 1}
	}
}

func newFeature(k Kind, g *Geometry) *Feature {
	return &Feature{
		ID:         NewID(k),
		Kind:       k,
		Geometry:   g,
		Properties: &Properties{Style: DefaultStyle(k)},
	}
}

func NewArrow(start, end r2.Point) *Feature {
	return newFeature(KindArrow, &Geometry{Coordinates: []r2.Point{start, end}})
}

func NewBox(center r2.Point, w, h float64) *Feature {
	return newFeature(KindBox, &Geometry{Coordinates: []r2.Point{center}, Width: w, Height: h})
}

func NewText(center r2.Point, w, h float64, content string) *Feature {
	f := newFeature(KindText, &Geometry{Coordinates: []r2.Point{center}, Width: w, Height: h})
	f.Properties.Content = content
	return f
}

// NewComment creates a fixed-size comment bubble. Width and height are
// screen pixels.
func NewComment(center r2.Point, w, h float64, content string) *Feature {
	f := newFeature(KindComment, &Geometry{Coordinates: []r2.Point{center}, Width: w, Height: h})
	f.Properties.Content = content
	f.Properties.FixedSize = true
	return f
}

func NewPolygon(ring []r2.Point) *Feature {
	return newFeature(KindPolygon, &Geometry{Coordinates: append([]r2.Point(nil), ring...)})
}
