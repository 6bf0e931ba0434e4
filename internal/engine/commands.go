package engine

import (
	"encoding/json"

	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/geometry"
	"github.com/inamate/annotate/internal/handle"
	"github.com/inamate/annotate/internal/spatial"
)

// PathCommand is one path segment in canvas coordinates.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []any

// DrawCommand describes one annotation for the presentation layer. Paths
// are in canvas coordinates; Transform maps them to the screen.
type DrawCommand struct {
	Op          string        `json:"op"` // "path", "arrow", "handles"
	ObjectID    string        `json:"objectId,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	Transform   []float64     `json:"transform,omitempty"` // [a, b, c, d, e, f]
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Opacity     float64       `json:"opacity,omitempty"`
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	Selected    bool          `json:"selected,omitempty"`
	Live        bool          `json:"live,omitempty"`
}

// CompileDrawCommands lists the annotations in painter's order (back to
// front), followed by the handles of the active annotation.
func (e *Engine) CompileDrawCommands() []DrawCommand {
	cam := e.canvas.Camera()
	m := cam.Matrix(e.canvas.Viewport())
	transform := m[:]

	features := e.store.Features()
	commands := make([]DrawCommand, 0, len(features)+1)
	for _, f := range features {
		cmd := DrawCommand{
			Op:        "path",
			ObjectID:  f.ID,
			Kind:      string(f.Kind),
			Transform: transform,
			Text:      f.Properties.Content,
			Selected:  e.store.IsSelected(f.ID),
			Live:      e.store.IsLive(f.ID),
		}
		if s := f.Properties.Style; s != nil {
			cmd.Fill, cmd.Stroke = s.Fill, s.Stroke
			cmd.StrokeWidth, cmd.Opacity, cmd.FontSize = s.StrokeWidth, s.Opacity, s.FontSize
		}

		switch {
		case f.Kind == annotation.KindArrow:
			cmd.Op = "arrow"
			cmd.Path = polyline(f.Geometry.Coordinates, false)
		case f.Kind == annotation.KindPolygon:
			cmd.Path = polyline(geometry.SmoothRing(f.Geometry.Coordinates, e.cfg.CurveSteps), true)
		default:
			corners := spatial.FrameOf(f, cam).Corners()
			cmd.Path = polyline(corners[:], true)
		}
		commands = append(commands, cmd)
	}

	if cmd, ok := e.handleCommand(transform); ok {
		commands = append(commands, cmd)
	}
	return commands
}

// handleCommand draws the grab points of the active annotation.
func (e *Engine) handleCommand(transform []float64) (DrawCommand, bool) {
	id := e.machine.Active()
	f, ok := e.store.Get(id)
	if !ok {
		return DrawCommand{}, false
	}

	var points []r2.Point
	switch f.Kind {
	case annotation.KindArrow, annotation.KindPolygon:
		points = f.Geometry.Coordinates
	default:
		fr := spatial.FrameOf(f, e.canvas.Camera())
		c := fr.Corners()
		points = append(points, c[:]...)
	}

	cmd := DrawCommand{Op: "handles", ObjectID: id, Transform: transform}
	for _, p := range points {
		cmd.Path = append(cmd.Path, PathCommand{"M", p.X, p.Y})
	}
	if h := e.machine.Hovered(); h.Kind != handle.None {
		cmd.Text = h.String()
	}
	return cmd, true
}

func polyline(pts []r2.Point, closed bool) []PathCommand {
	if len(pts) == 0 {
		return nil
	}
	path := make([]PathCommand, 0, len(pts)+1)
	for i, p := range pts {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, p.X, p.Y})
	}
	if closed {
		path = append(path, PathCommand{"Z"})
	}
	return path
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// Render returns the draw commands as JSON.
func (e *Engine) Render() string {
	result, err := DrawCommandsToJSON(e.CompileDrawCommands())
	if err != nil {
		e.logger.Error("encode draw commands", "error", err)
	}
	return result
}

// SelectionBounds returns the screen-space bounding box of the selection
// as JSON.
func (e *Engine) SelectionBounds() string {
	bounds := r2.EmptyRect()
	for _, id := range e.store.Selection() {
		r, ok := e.index.Bounds(id)
		if !ok {
			continue
		}
		for _, v := range r.Vertices() {
			bounds = bounds.AddPoint(e.canvas.CanvasToScreen(v))
		}
	}
	if bounds.IsEmpty() {
		return `{"x":0,"y":0,"width":0,"height":0}`
	}
	data, _ := json.Marshal(map[string]float64{
		"x":      bounds.X.Lo,
		"y":      bounds.Y.Lo,
		"width":  bounds.X.Length(),
		"height": bounds.Y.Length(),
	})
	return string(data)
}
