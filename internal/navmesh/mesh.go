// Package navmesh implements C6: a per-layer triangulated mesh over the
// layout graph's dots and bend arcs, whose dual graph (triangles as nodes,
// shared edges as weighted arcs) is the search space the path finder (C7)
// runs A* over. Grounded on original_source's mesh.rs/triangulation.rs,
// which rebuild a CDT lazily whenever a layer's primitives change and
// expose triangle adjacency to the router as a graph.
package navmesh

import (
	"topola/internal/layout"
	"topola/pkg/geometry"

	"gonum.org/v1/gonum/graph/simple"
)

// ConvexCost turns a navmesh "how tight is this" residual into an edge
// weight. New uses defaultConvexCost when given nil. The path finder (C7)
// applies it to (route width - channel width) so that the A* search
// prefers wide-open triangles over tightly squeezed ones.
type ConvexCost func(residual float64) float64

// defaultConvexCost is quadratic in the positive residual, zero otherwise:
// mild congestion barely matters, heavy congestion is heavily discouraged.
func defaultConvexCost(residual float64) float64 {
	if residual <= 0 {
		return 0
	}
	return residual * residual
}

// Mesh is the navmesh for a single layer. It is rebuilt lazily: Triangles,
// Dual, ChannelWidth and Locate all call ensure() first, which only
// re-triangulates if Invalidate was called since the last build (spec.md §9, "dirty-flag-per-layer lazy
// rebuild").
type Mesh struct {
	layer     layout.LayerID
	cost      ConvexCost
	dirty     bool
	vertices  []geometry.Point2D
	vertexNet []layout.NetID
	triangles []Triangle
	dual      *simple.WeightedUndirectedGraph
	// channel[a][b] is the width of the triangulation edge shared by dual
	// triangles a and b — the narrowest a band may be and still pass
	// through that gap. Pathfind (C7) combines this with a route's own
	// width via ConvexCost to penalize squeezing, separately from the
	// dual edge's plain geometric distance.
	channel map[[2]int64]float64
}

// New creates an empty, dirty mesh for one layer.
func New(layer layout.LayerID, cost ConvexCost) *Mesh {
	if cost == nil {
		cost = defaultConvexCost
	}
	return &Mesh{layer: layer, cost: cost, dirty: true}
}

// Invalidate marks the mesh for rebuild on next use, called whenever a
// layout mutation touches this layer (spec.md §9).
func (m *Mesh) Invalidate() { m.dirty = true }

// Layer returns the layer this mesh covers.
func (m *Mesh) Layer() layout.LayerID { return m.layer }

// Triangles returns the current triangle list, rebuilding first if dirty.
func (m *Mesh) Triangles(g *layout.Graph) []Triangle {
	m.ensure(g)
	return m.triangles
}

// Vertex returns the point a vertex index names.
func (m *Mesh) Vertex(i int) geometry.Point2D { return m.vertices[i] }

// Dual returns the triangle adjacency graph: one node per triangle id,
// edges between triangles sharing a triangulation edge, weighted by plain
// Euclidean centroid distance (SPEC_FULL.md C6/C7: "exposed as a
// graph.WeightedGraph dual graph"). The congestion term from spec.md §6
// (convex cost of max(0, ideal_width - local_clearance)) is route-specific
// and applied on top of this by the path finder via ChannelWidth.
func (m *Mesh) Dual(g *layout.Graph) *simple.WeightedUndirectedGraph {
	m.ensure(g)
	return m.dual
}

// ChannelWidth returns the narrowest the triangulation edge between
// triangles a and b is, and whether that edge exists in the dual.
func (m *Mesh) ChannelWidth(g *layout.Graph, a, b int64) (float64, bool) {
	m.ensure(g)
	if a > b {
		a, b = b, a
	}
	w, ok := m.channel[[2]int64{a, b}]
	return w, ok
}

// Cost exposes the mesh's convex congestion function so the path finder
// can apply it consistently with how the mesh itself would.
func (m *Mesh) Cost(residual float64) float64 { return m.cost(residual) }

// Locate returns the id of the triangle containing p, or -1 if p lies
// outside the triangulated region (e.g. off the board). Every routed
// endpoint is a fixed dot's own center, which is itself a triangulation
// vertex (rebuild seeds the point set from dot centers) — ray-casting
// point-in-polygon tests are notoriously inconsistent exactly on a
// boundary, so a vertex match is checked first rather than leaving the
// common case to floating-point luck.
func (m *Mesh) Locate(g *layout.Graph, p geometry.Point2D) int64 {
	m.ensure(g)
	for _, t := range m.triangles {
		a, b, c := m.vertices[t.A], m.vertices[t.B], m.vertices[t.C]
		if p.Distance(a) < geometry.Epsilon || p.Distance(b) < geometry.Epsilon || p.Distance(c) < geometry.Epsilon {
			return t.ID
		}
	}
	for _, t := range m.triangles {
		if pointInTriangle(p, m.vertices[t.A], m.vertices[t.B], m.vertices[t.C]) {
			return t.ID
		}
	}
	return -1
}

func (m *Mesh) ensure(g *layout.Graph) {
	if !m.dirty {
		return
	}
	m.rebuild(g)
	m.dirty = false
}

// rebuild gathers the layer's Steiner points (dot centers, plus three
// points per bend arc: its two tangent ends and its midpoint, so the
// triangulation follows the arc's curvature closely enough for the funnel
// step in C8 to work from), triangulates them, and marks triangles whose
// centroid lies within clearance of a dot as blocked (the stand-in for
// constraint edges documented in triangulate.go).
func (m *Mesh) rebuild(g *layout.Graph) {
	var points []geometry.Point2D
	var nets []layout.NetID

	for _, d := range g.DotsOnLayer(m.layer) {
		points = append(points, d.Center)
		nets = append(nets, d.Net)
	}
	for _, b := range g.BendsOnLayer(m.layer) {
		core, ok1 := g.Dot(b.Core)
		inner, ok2 := g.Dot(b.Inner)
		outer, ok3 := g.Dot(b.Outer)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		radius := core.Center.Distance(inner.Center)
		arc := geometry.NewArc(core.Center, radius, inner.Center, outer.Center, b.CW)
		mid := arc.Midpoint()
		points = append(points, mid)
		nets = append(nets, b.Net)
	}

	m.vertices = points
	m.vertexNet = nets
	m.triangles = bowyerWatson(points)

	clearance := g.Clearance(m.layer)
	for i := range m.triangles {
		t := &m.triangles[i]
		centroid := t.Centroid(m.vertices)
		t.NetID, t.Blocked = m.classify(g, centroid, clearance)
	}

	m.dual, m.channel = buildDual(m.triangles, m.vertices)
}

// classify reports which net (if any) owns the ground under centroid, by
// finding the dot on the layer whose edge is nearest the centroid and
// within clearance of it (segs and bends are not consulted); a triangle is
// Blocked for every net other than that dot's net, leaving it free for
// that net's own router to pass through (spec.md §4.6, wrap-around/under
// squeezing still goes through the Router/Shover, not the mesh).
func (m *Mesh) classify(g *layout.Graph, centroid geometry.Point2D, clearance float64) (layout.NetID, bool) {
	best := layout.NoNet
	bestDist := clearance
	found := false
	for _, d := range g.DotsOnLayer(m.layer) {
		dist := centroid.Distance(d.Center) - d.Radius
		if dist < bestDist {
			bestDist = dist
			best = d.Net
			found = true
		}
	}
	if !found {
		return layout.NoNet, false
	}
	return best, true
}

func buildDual(tris []Triangle, vertices []geometry.Point2D) (*simple.WeightedUndirectedGraph, map[[2]int64]float64) {
	dual := simple.NewWeightedUndirectedGraph(0, 0)
	for _, t := range tris {
		dual.AddNode(simple.Node(t.ID))
	}

	shared := map[edge][]int64{}
	for _, t := range tris {
		for _, e := range [3]edge{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}} {
			key := e.normalize()
			shared[key] = append(shared[key], t.ID)
		}
	}

	byID := make(map[int64]Triangle, len(tris))
	for _, t := range tris {
		byID[t.ID] = t
	}

	channel := make(map[[2]int64]float64, len(shared))
	for e, owners := range shared {
		if len(owners) != 2 {
			continue
		}
		a, b := owners[0], owners[1]
		ta, tb := byID[a], byID[b]
		if a > b {
			a, b = b, a
		}
		channel[[2]int64{a, b}] = vertices[e.a].Distance(vertices[e.b])
		if ta.Blocked || tb.Blocked {
			continue
		}
		ca := ta.Centroid(vertices)
		cb := tb.Centroid(vertices)
		dual.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: ca.Distance(cb)})
	}
	return dual, channel
}

func pointInTriangle(p, a, b, c geometry.Point2D) bool {
	return geometry.PointInPolygon(p, []geometry.Point2D{a, b, c})
}
