package annotation

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r2"
)

// Record is the plain, serializable form of a Feature.
type Record struct {
	Type       string           `json:"type"`
	ID         string           `json:"id"`
	Kind       Kind             `json:"kind"`
	Geometry   RecordGeometry   `json:"geometry"`
	Properties RecordProperties `json:"properties"`
}

type RecordGeometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
	Width       float64      `json:"width,omitempty"`
	Height      float64      `json:"height,omitempty"`
}

type RecordStyle struct {
	Stroke      string  `json:"stroke,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	Opacity     float64 `json:"opacity"`
}

type RecordLink struct {
	TargetID   string      `json:"targetId"`
	TargetType TargetType  `json:"targetType"`
	Side       Side        `json:"side"`
	Magnet     *[2]float64 `json:"magnet,omitempty"`
}

type RecordProperties struct {
	Style     RecordStyle  `json:"style"`
	Content   string       `json:"content,omitempty"`
	FixedSize bool         `json:"fixedSize,omitempty"`
	Links     []RecordLink `json:"links,omitempty"`
}

type Collection struct {
	Type     string   `json:"type"`
	Features []Record `json:"features"`
}

func geometryType(k Kind) string {
	switch k {
	case KindArrow:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	default:
		return "Point"
	}
}

func toPair(p r2.Point) [2]float64 { return [2]float64{p.X, p.Y} }

func fromPair(p [2]float64) r2.Point { return r2.Point{X: p[0], Y: p[1]} }

// ToRecord converts a feature to its serializable form.
func ToRecord(f *Feature) Record {
	rec := Record{
		Type: "Feature",
		ID:   f.ID,
		Kind: f.Kind,
		Geometry: RecordGeometry{
			Type:        geometryType(f.Kind),
			Coordinates: make([][2]float64, len(f.Geometry.Coordinates)),
			Width:       f.Geometry.Width,
			Height:      f.Geometry.Height,
		},
		Properties: RecordProperties{
			Content:   f.Properties.Content,
			FixedSize: f.Properties.FixedSize,
		},
	}
	for i, c := range f.Geometry.Coordinates {
		rec.Geometry.Coordinates[i] = toPair(c)
	}
	if s := f.Properties.Style; s != nil {
		rec.Properties.Style = RecordStyle(*s)
	}
	for _, l := range f.Properties.Links {
		rl := RecordLink{TargetID: l.TargetID, TargetType: l.TargetType, Side: l.Side}
		if l.Magnet != nil {
			m := toPair(*l.Magnet)
			rl.Magnet = &m
		}
		rec.Properties.Links = append(rec.Properties.Links, rl)
	}
	return rec
}

// FromRecord builds a feature from its serializable form. A record with no
// id gets a freshly generated one.
func FromRecord(rec Record) (*Feature, error) {
	f := &Feature{
		ID:   rec.ID,
		Kind: rec.Kind,
		Geometry: &Geometry{
			Coordinates: make([]r2.Point, len(rec.Geometry.Coordinates)),
			Width:       rec.Geometry.Width,
			Height:      rec.Geometry.Height,
		},
		Properties: &Properties{
			Content:   rec.Properties.Content,
			FixedSize: rec.Properties.FixedSize,
		},
	}
	if f.ID == "" && f.Kind.Valid() {
		f.ID = NewID(f.Kind)
	}
	for i, c := range rec.Geometry.Coordinates {
		f.Geometry.Coordinates[i] = fromPair(c)
	}
	style := Style(rec.Properties.Style)
	if style == (Style{}) {
		style = *DefaultStyle(f.Kind)
	}
	f.Properties.Style = &style
	for _, rl := range rec.Properties.Links {
		l := Link{TargetID: rl.TargetID, TargetType: rl.TargetType, Side: rl.Side}
		if rl.Magnet != nil {
			m := fromPair(*rl.Magnet)
			l.Magnet = &m
		}
		f.Properties.Links = append(f.Properties.Links, l)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", rec.ID, err)
	}
	return f, nil
}

// MarshalCollection encodes features as a FeatureCollection.
func MarshalCollection(features []*Feature) ([]byte, error) {
	col := Collection{Type: "FeatureCollection", Features: make([]Record, 0, len(features))}
	for _, f := range features {
		col.Features = append(col.Features, ToRecord(f))
	}
	return json.Marshal(col)
}

// UnmarshalCollection decodes a FeatureCollection, or a bare array of records.
func UnmarshalCollection(data []byte) ([]*Feature, error) {
	var records []Record
	var col Collection
	if err := json.Unmarshal(data, &col); err == nil && col.Type == "FeatureCollection" {
		records = col.Features
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	out := make([]*Feature, 0, len(records))
	for _, rec := range records {
		f, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
