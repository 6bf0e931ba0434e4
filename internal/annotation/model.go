// Package annotation defines the annotation records edited by the engine.
// Records are immutable: every edit produces a new *Feature that shares
// whatever parts did not change.
package annotation

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/typeid"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

type Kind string

const (
	KindArrow   Kind = "arrow"
	KindText    Kind = "text"
	KindBox     Kind = "box"
	KindPolygon Kind = "polygon"
	KindComment Kind = "comment"
)

// Valid reports whether k is a known annotation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindArrow, KindText, KindBox, KindPolygon, KindComment:
		return true
	}
	return false
}

// BoxLike kinds are a center plus width and height.
func (k Kind) BoxLike() bool {
	return k == KindText || k == KindBox || k == KindComment
}

// ScreenAligned kinds stay upright on screen, so in canvas space they
// counter-rotate with the camera.
func (k Kind) ScreenAligned() bool {
	return k == KindText || k == KindComment
}

// CascadesArrows kinds take their attached arrows with them on removal.
func (k Kind) CascadesArrows() bool {
	return k == KindText || k == KindComment
}

func (k Kind) idPrefix() string {
	switch k {
	case KindArrow:
		return typeid.PrefixArrow
	case KindText:
		return typeid.PrefixText
	case KindBox:
		return typeid.PrefixBox
	case KindPolygon:
		return typeid.PrefixPolygon
	default:
		return typeid.PrefixComment
	}
}

// NewID generates a fresh id for a feature of kind k.
func NewID(k Kind) string {
	return typeid.New(k.idPrefix())
}

type TargetType string

const (
	TargetNode    TargetType = "node"
	TargetEdge    TargetType = "edge"
	TargetText    TargetType = "text"
	TargetBox     TargetType = "box"
	TargetPolygon TargetType = "polygon"
	TargetComment TargetType = "comment"
)

// IsAnnotation is true for targets owned by the engine rather than the host.
func (t TargetType) IsAnnotation() bool {
	return t != TargetNode && t != TargetEdge && t != ""
}

// TargetFor maps an annotation kind to the link target type that refers to it.
func TargetFor(k Kind) (TargetType, bool) {
	switch k {
	case KindText:
		return TargetText, true
	case KindBox:
		return TargetBox, true
	case KindPolygon:
		return TargetPolygon, true
	case KindComment:
		return TargetComment, true
	}
	return "", false
}

type Side string

const (
	SideStart Side = "start"
	SideEnd   Side = "end"
)

// Index is the coordinate index of the arrow endpoint on this side.
func (s Side) Index() int {
	if s == SideEnd {
		return 1
	}
	return 0
}

// Link attaches one arrow endpoint to a target. Magnet is the attachment
// point relative to the target's geometry; its meaning depends on the
// target type.
type Link struct {
	TargetID   string
	TargetType TargetType
	Side       Side
	Magnet     *r2.Point
}

type Style struct {
	Stroke      string
	Fill        string
	StrokeWidth float64
	FontSize    float64
	Opacity     float64
}

// Geometry holds canvas coordinates. Arrows carry [start, end], polygons a
// ring without the repeated closing point, box-like kinds a single center
// with Width and Height.
type Geometry struct {
	Coordinates []r2.Point
	Width       float64
	Height      float64
}

type Properties struct {
	Style   *Style
	Content string
	// FixedSize keeps Width/Height in screen pixels regardless of zoom.
	FixedSize bool
	Links     []Link
}

type Feature struct {
	ID         string
	Kind       Kind
	Geometry   *Geometry
	Properties *Properties
}

// Validate checks the geometry shape required by the feature kind.
func (f *Feature) Validate() error {
	if f == nil || f.Geometry == nil || f.Properties == nil {
		return fmt.Errorf("feature incomplete: %w", ErrInvalidGeometry)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("unknown kind %q: %w", f.Kind, ErrInvalidGeometry)
	}
	n := len(f.Geometry.Coordinates)
	switch {
	case f.Kind == KindArrow && n != 2:
		return fmt.Errorf("arrow %s has %d coordinates: %w", f.ID, n, ErrInvalidGeometry)
	case f.Kind == KindPolygon && n < 3:
		return fmt.Errorf("polygon %s has %d vertices: %w", f.ID, n, ErrInvalidGeometry)
	case f.Kind.BoxLike() && n != 1:
		return fmt.Errorf("%s %s has %d coordinates: %w", f.Kind, f.ID, n, ErrInvalidGeometry)
	case f.Geometry.Width < 0 || f.Geometry.Height < 0:
		return fmt.Errorf("%s %s has negative size: %w", f.Kind, f.ID, ErrInvalidGeometry)
	}
	return nil
}

// Center is the box center, the arrow midpoint or the polygon bbox center.
func (f *Feature) Center() r2.Point {
	c := f.Geometry.Coordinates
	switch {
	case f.Kind.BoxLike():
		return c[0]
	case f.Kind == KindArrow:
		return geometry.Lerp(c[0], c[1], 0.5)
	default:
		return geometry.BoundingBox(c).Center()
	}
}

// Endpoint returns the arrow endpoint on side s.
func (f *Feature) Endpoint(s Side) r2.Point {
	return f.Geometry.Coordinates[s.Index()]
}

// LinkAt returns the link on side s, if any.
func (f *Feature) LinkAt(s Side) (Link, bool) {
	for _, l := range f.Properties.Links {
		if l.Side == s {
			return l, true
		}
	}
	return Link{}, false
}

// LinkedTo reports whether any endpoint of f is attached to id.
func (f *Feature) LinkedTo(id string) bool {
	for _, l := range f.Properties.Links {
		if l.TargetID == id {
			return true
		}
	}
	return false
}

// WithGeometry returns a copy of f carrying g.
func (f *Feature) WithGeometry(g *Geometry) *Feature {
	out := *f
	out.Geometry = g
	return &out
}

// WithProperties returns a copy of f carrying p.
func (f *Feature) WithProperties(p *Properties) *Feature {
	out := *f
	out.Properties = p
	return &out
}

// WithStyle returns a copy of f with a new style.
func (f *Feature) WithStyle(s *Style) *Feature {
	p := *f.Properties
	p.Style = s
	return f.WithProperties(&p)
}

// WithContent returns a copy of f with new text content.
func (f *Feature) WithContent(content string) *Feature {
	p := *f.Properties
	p.Content = content
	return f.WithProperties(&p)
}

// WithLink returns a copy of f with l replacing any link on the same side.
func (f *Feature) WithLink(l Link) *Feature {
	p := *f.Properties
	p.Links = make([]Link, 0, len(f.Properties.Links)+1)
	for _, existing := range f.Properties.Links {
		if existing.Side != l.Side {
			p.Links = append(p.Links, existing)
		}
	}
	p.Links = append(p.Links, l)
	return f.WithProperties(&p)
}

// WithoutLink drops the link on side s. f is returned unchanged when
// there is none.
func (f *Feature) WithoutLink(s Side) *Feature {
	if _, ok := f.LinkAt(s); !ok {
		return f
	}
	return f.filterLinks(func(l Link) bool { return l.Side != s })
}

// WithoutLinksTo drops every link pointing at id.
func (f *Feature) WithoutLinksTo(id string) *Feature {
	if !f.LinkedTo(id) {
		return f
	}
	return f.filterLinks(func(l Link) bool { return l.TargetID != id })
}

func (f *Feature) filterLinks(keep func(Link) bool) *Feature {
	p := *f.Properties
	p.Links = nil
	for _, l := range f.Properties.Links {
		if keep(l) {
			p.Links = append(p.Links, l)
		}
	}
	return f.WithProperties(&p)
}

// WithCoordinates returns a copy of f with new coordinates and the same size.
func (f *Feature) WithCoordinates(coords []r2.Point) *Feature {
	g := *f.Geometry
	g.Coordinates = coords
	return f.WithGeometry(&g)
}

// WithEndpoint moves one arrow endpoint.
func (f *Feature) WithEndpoint(s Side, p r2.Point) *Feature {
	coords := append([]r2.Point(nil), f.Geometry.Coordinates...)
	coords[s.Index()] = p
	return f.WithCoordinates(coords)
}

// Translate shifts every coordinate by d.
func (f *Feature) Translate(d r2.Point) *Feature {
	coords := make([]r2.Point, len(f.Geometry.Coordinates))
	for i, c := range f.Geometry.Coordinates {
		coords[i] = c.Add(d)
	}
	return f.WithCoordinates(coords)
}

// Scale scales f by factor around origin. Fixed-size features keep their
// pixel size and only move their center.
func (f *Feature) Scale(factor float64, origin r2.Point) *Feature {
	m := geometry.Around(origin, geometry.Scale(factor, factor))
	g := Geometry{
		Coordinates: make([]r2.Point, len(f.Geometry.Coordinates)),
		Width:       f.Geometry.Width,
		Height:      f.Geometry.Height,
	}
	for i, c := range f.Geometry.Coordinates {
		g.Coordinates[i] = m.Apply(c)
	}
	if f.Kind.BoxLike() && !f.Properties.FixedSize {
		g.Width = max(f.Geometry.Width*factor, 0)
		g.Height = max(f.Geometry.Height*factor, 0)
	}
	return f.WithGeometry(&g)
}
