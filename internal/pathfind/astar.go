// Package pathfind implements C7: A* search over a navmesh's dual graph,
// from the triangle containing a band's current head to the triangle
// containing its target, returning the ordered triangle sequence the
// Router (C8) converts into funnel steps. Grounded on original_source's
// astar.rs (same algorithm, same tie-break rule) and wired onto
// gonum.org/v1/gonum/graph/path's AStar per SPEC_FULL.md's C6/C7 note.
package pathfind

import (
	"fmt"

	"topola/internal/layout"
	"topola/internal/navmesh"
	"topola/internal/routererr"
	"topola/pkg/geometry"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Options tunes the search (spec.md §6, RouterOptions subset relevant to
// pathfinding).
type Options struct {
	// Width is the band being routed; used both for the convex congestion
	// cost (SPEC_FULL.md §4's "ideal_width - local_clearance" term) and to
	// reject channels physically too narrow to pass.
	Width float64
	// Net lets a route traverse triangles blocked for every net but its
	// own (spec.md §4.6: a net may always cross its own ground).
	Net layout.NetID
}

// Find runs A* from the triangle containing from to the triangle
// containing to. It returns the ordered triangle id sequence (including
// both endpoints), or a wrapped routererr.ErrNoPath if no route clears
// every channel's width or if either endpoint falls outside the mesh.
func Find(g *layout.Graph, m *navmesh.Mesh, from, to geometry.Point2D, opts Options) ([]int64, error) {
	startTri := m.Locate(g, from)
	goalTri := m.Locate(g, to)
	if startTri < 0 || goalTri < 0 {
		return nil, fmt.Errorf("pathfind: endpoint outside navmesh: %w", routererr.ErrNoPath)
	}
	if startTri == goalTri {
		return []int64{startTri}, nil
	}

	triangles := m.Triangles(g)
	byID := make(map[int64]navmesh.Triangle, len(triangles))
	for _, t := range triangles {
		byID[t.ID] = t
	}
	centroidOf := func(id int64) (geometry.Point2D, bool) {
		t, ok := byID[id]
		if !ok {
			return geometry.Point2D{}, false
		}
		return geometry.Centroid([]geometry.Point2D{m.Vertex(t.A), m.Vertex(t.B), m.Vertex(t.C)}), true
	}

	view := filteredView(g, m, byID, opts)

	start := simple.Node(startTri)
	goal := simple.Node(goalTri)

	heuristic := func(x, y graph.Node) float64 {
		cx, okX := centroidOf(x.ID())
		cy, okY := centroidOf(y.ID())
		if !okX || !okY {
			return 0
		}
		return cx.Distance(cy)
	}

	shortest, _ := path.AStar(start, goal, view, heuristic)
	nodes, _ := shortest.To(goal.ID())
	if len(nodes) == 0 {
		return nil, fmt.Errorf("pathfind: no route clears width %.4g: %w", opts.Width, routererr.ErrNoPath)
	}

	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID())
	}
	return out, nil
}

// filteredView materializes a copy of the mesh's dual graph with every
// triangle blocked against opts.Net, and every channel narrower than
// opts.Width, removed, and every surviving edge's weight bumped by the
// navmesh's convex congestion cost for the residual (ideal_width -
// channel_width) (spec.md §6's triangle-weight formula, applied here
// per-route since width varies per band).
func filteredView(g *layout.Graph, m *navmesh.Mesh, byID map[int64]navmesh.Triangle, opts Options) *simple.WeightedUndirectedGraph {
	view := simple.NewWeightedUndirectedGraph(0, 0)
	for id, t := range byID {
		if t.Blocked && t.NetID != opts.Net {
			continue
		}
		view.AddNode(simple.Node(id))
	}

	dual := m.Dual(g)
	edges := dual.Edges()
	for edges.Next() {
		e := edges.Edge()
		a, b := e.From().ID(), e.To().ID()
		if view.Node(a) == nil || view.Node(b) == nil {
			continue
		}
		channel, ok := m.ChannelWidth(g, a, b)
		if !ok || channel < opts.Width {
			continue
		}
		weight, _ := dual.Weight(a, b)
		weight += m.Cost(opts.Width - channel)
		view.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: weight})
	}
	return view
}
