package host

import (
	"github.com/golang/geo/r2"

	"github.com/inamate/annotate/internal/geometry"
)

// Graph is an in-memory Canvas. The server and CLI use it to mirror the
// browser host; tests use it as a fixture.
type Graph struct {
	camera   Camera
	viewport r2.Point

	nodes     map[string]Node
	nodeOrder []string
	edges     map[string]Edge
	edgeOrder []string
}

// GraphState is the serializable snapshot of a Graph.
type GraphState struct {
	Camera   Camera   `json:"camera"`
	Viewport r2.Point `json:"viewport"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
}

func NewGraph(viewport r2.Point) *Graph {
	return &Graph{
		camera:   DefaultCamera(),
		viewport: viewport,
		nodes:    make(map[string]Node),
		edges:    make(map[string]Edge),
	}
}

// Load replaces the whole graph with state.
func (g *Graph) Load(state GraphState) {
	g.camera = state.Camera
	if g.camera.Zoom == 0 {
		g.camera.Zoom = 1
	}
	if state.Viewport != (r2.Point{}) {
		g.viewport = state.Viewport
	}
	g.nodes = make(map[string]Node, len(state.Nodes))
	g.nodeOrder = g.nodeOrder[:0]
	g.edges = make(map[string]Edge, len(state.Edges))
	g.edgeOrder = g.edgeOrder[:0]
	for _, n := range state.Nodes {
		g.AddNode(n)
	}
	for _, e := range state.Edges {
		g.AddEdge(e)
	}
}

func (g *Graph) State() GraphState {
	s := GraphState{Camera: g.camera, Viewport: g.viewport}
	for _, id := range g.nodeOrder {
		s.Nodes = append(s.Nodes, g.nodes[id])
	}
	for _, id := range g.edgeOrder {
		s.Edges = append(s.Edges, g.edges[id])
	}
	return s
}

func (g *Graph) SetCamera(c Camera) { g.camera = c }

func (g *Graph) SetViewport(size r2.Point) { g.viewport = size }

func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodes[n.ID]; !ok {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	g.nodes[n.ID] = n
}

// MoveNode repositions a node, as a layout step would.
func (g *Graph) MoveNode(id string, p r2.Point) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	n.Position = p
	g.nodes[id] = n
	return true
}

func (g *Graph) AddEdge(e Edge) {
	if _, ok := g.edges[e.ID]; !ok {
		g.edgeOrder = append(g.edgeOrder, e.ID)
	}
	g.edges[e.ID] = e
}

func (g *Graph) Camera() Camera { return g.camera }

func (g *Graph) Viewport() r2.Point { return g.viewport }

func (g *Graph) CanvasToScreen(p r2.Point) r2.Point {
	return g.camera.Matrix(g.viewport).Apply(p)
}

func (g *Graph) ScreenToCanvas(p r2.Point) r2.Point {
	return g.camera.Matrix(g.viewport).Invert().Apply(p)
}

func (g *Graph) ElementsInRect(r r2.Rect) (nodes, edges []string) {
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		if geometry.CenteredRect(n.Position, 2*n.Radius, 2*n.Radius).Intersects(r) {
			nodes = append(nodes, id)
		}
	}
	for _, id := range g.edgeOrder {
		pts, ok := g.SampleEdge(id, 8)
		if ok && geometry.BoundingBox(pts).Intersects(r) {
			edges = append(edges, id)
		}
	}
	return nodes, edges
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) SampleEdge(id string, n int) ([]r2.Point, bool) {
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	src, ok1 := g.nodes[e.Source]
	tgt, ok2 := g.nodes[e.Target]
	if !ok1 || !ok2 {
		return nil, false
	}
	if e.Curvature == 0 {
		return geometry.SampleSegment(src.Position, tgt.Position, n), true
	}
	c := geometry.EdgeControlPoint(src.Position, tgt.Position, e.Curvature)
	return geometry.SampleQuadratic(src.Position, c, tgt.Position, n), true
}
