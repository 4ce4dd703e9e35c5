// Package router implements C8: the single-ratline router. It converts an
// A* triangle sequence (C7) into a series of funnel steps, each one a
// drawing.Head.ExtendToBend call; when a step is Obstructed, it hands the
// obstruction to the Shover (C5) and retries, and when the shover itself
// fails it re-plans, up to Options.MaxReplans times, with the offending
// triangles temporarily marked blocked before giving up. Grounded on
// original_source's router.rs/tracer.rs/traverser.rs, which hold the same
// "convert path to steps, shove on obstruction, replan on exhaustion"
// structure.
package router

import (
	"errors"
	"fmt"
	"time"

	"topola/internal/drawing"
	"topola/internal/layout"
	"topola/internal/logging"
	"topola/internal/metrics"
	"topola/internal/navmesh"
	"topola/internal/pathfind"
	"topola/internal/routererr"
	"topola/internal/shover"
	"topola/pkg/geometry"
)

// Options bundles the routing policy knobs a single ratline is routed
// under (spec.md §6, RouterOptions).
type Options struct {
	Width      float64
	Shove      shover.Options
	MaxReplans int
}

// DefaultMaxReplans bounds how many times a single ratline re-plans around
// a fresh set of temporarily-blocked triangles before giving up.
const DefaultMaxReplans = 3

// Router routes one ratline at a time against a shared layout graph and
// navmesh.
type Router struct {
	g       *layout.Graph
	bands   *layout.Bands
	mesh    *navmesh.Mesh
	shover  *shover.Shover
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a Router bound to a layout graph, its band registry, and the
// navmesh of the layer being routed.
func New(g *layout.Graph, bands *layout.Bands, mesh *navmesh.Mesh, log *logging.Logger, m *metrics.Metrics, shoveOpts shover.Options) *Router {
	if log == nil {
		log = logging.Discard()
	}
	return &Router{
		g:       g,
		bands:   bands,
		mesh:    mesh,
		shover:  shover.New(g, shoveOpts, log.With("shove"), m),
		log:     log.With("route"),
		metrics: m,
	}
}

// Route draws a band from the fixed dot "from" to the fixed dot "to",
// returning the new BandID on success. On failure, every primitive this
// call created has already been removed (spec.md §4.6: "the Router either
// fully commits a band or leaves the graph exactly as it found it") and the
// error wraps the last attempt's cause; the autorouter (C9) is what wraps
// it into a routererr.RouteFailure.
func (r *Router) Route(from, to layout.DotID, opts Options) (layout.BandID, error) {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RouteDuration.Observe(time.Since(start).Seconds())
		}
	}()

	fromDot, ok := r.g.Dot(from)
	if !ok {
		return 0, fmt.Errorf("router: %w", routererr.ErrUnknownID)
	}
	toDot, ok := r.g.Dot(to)
	if !ok {
		return 0, fmt.Errorf("router: %w", routererr.ErrUnknownID)
	}
	if fromDot.Net == toDot.Net && connected(r.g, from, to) {
		return 0, fmt.Errorf("router: %w", routererr.ErrAlreadyConnected)
	}

	if opts.MaxReplans <= 0 {
		opts.MaxReplans = DefaultMaxReplans
	}

	var lastErr error
	blocked := map[int64]bool{}
	for attempt := 0; attempt <= opts.MaxReplans; attempt++ {
		bandID, err := r.attempt(fromDot, to, opts, blocked)
		if err == nil {
			if r.metrics != nil {
				r.metrics.RatlinesRouted.Inc()
			}
			return bandID, nil
		}
		lastErr = err

		var noTri *triangleNoPath
		if !errors.As(err, &noTri) {
			break // not a replan-recoverable failure
		}
		for _, t := range noTri.triangles {
			blocked[t] = true
		}
		r.log.Printf("replanning around %d previously-tried triangle(s), attempt %d", len(blocked), attempt+1)
	}

	if r.metrics != nil {
		r.metrics.RatlinesFailed.Inc()
	}
	return 0, fmt.Errorf("router: %w", lastErr)
}

// triangleNoPath records which triangles a failed attempt's path used, so
// Route can mark them blocked before re-planning.
type triangleNoPath struct {
	cause     error
	triangles []int64
}

func (e *triangleNoPath) Error() string { return e.cause.Error() }
func (e *triangleNoPath) Unwrap() error { return e.cause }

func (r *Router) attempt(fromDot *layout.Dot, to layout.DotID, opts Options, blocked map[int64]bool) (layout.BandID, error) {
	toDot, _ := r.g.Dot(to)

	tris, err := pathfind.Find(r.g, r.mesh, fromDot.Center, toDot.Center, pathfind.Options{
		Width: opts.Width,
		Net:   fromDot.Net,
	})
	if err != nil {
		return 0, fmt.Errorf("no route found: %w", err)
	}
	tris = dropBlocked(tris, blocked)
	if len(tris) == 0 {
		return 0, &triangleNoPath{cause: routererr.ErrNoPath}
	}

	head, err := drawing.StartFrom(r.g, r.bands, fromDot.ID, opts.Width)
	if err != nil {
		return 0, fmt.Errorf("start: %w", err)
	}
	band := head.Band()

	cores := corePointsForFunnel(r.mesh, r.g, tris)
	for i, core := range cores {
		next := toDot.Center
		if i+1 < len(cores) {
			next = cores[i+1].center
		}
		if err := r.extendThroughOneObstacle(head, core.dot, core.cw, next, opts); err != nil {
			r.abortBand(head)
			return 0, &triangleNoPath{cause: err, triangles: tris}
		}
	}

	if err := r.finishThroughOneObstacle(head, to, opts); err != nil {
		r.abortBand(head)
		return 0, &triangleNoPath{cause: err, triangles: tris}
	}
	return band, nil
}

// finishThroughOneObstacle mirrors extendThroughOneObstacle for the final
// seg into the target dot: on Obstructed, shove the offender once and
// retry.
func (r *Router) finishThroughOneObstacle(head *drawing.Head, to layout.DotID, opts Options) error {
	err := head.FinishAt(to)
	if err == nil {
		return nil
	}
	var obs *routererr.Obstruction
	if !errors.As(err, &obs) {
		return err
	}
	ref, ok := obs.By.(layout.PrimitiveRef)
	if !ok {
		return err
	}
	curDot, _ := r.g.Dot(head.Dot())
	toDot, _ := r.g.Dot(to)
	if shoveErr := r.shover.Shove(ref, curDot.Center, toDot.Center, opts.Width); shoveErr != nil {
		return fmt.Errorf("obstructed and shove failed: %w", shoveErr)
	}
	return head.FinishAt(to)
}

// extendThroughOneObstacle performs one ExtendToBend, retrying through the
// Shover on an Obstructed error (spec.md §4.5/§4.6: "Obstructed handed to
// the Shover; on success, retry the same extend once").
func (r *Router) extendThroughOneObstacle(head *drawing.Head, core layout.DotID, cw bool, next geometry.Point2D, opts Options) error {
	err := head.ExtendToBend(core, cw, next)
	if err == nil {
		return nil
	}
	var obs *routererr.Obstruction
	if !errors.As(err, &obs) {
		return err
	}
	ref, ok := obs.By.(layout.PrimitiveRef)
	if !ok {
		return err
	}
	curDot, _ := r.g.Dot(head.Dot())
	if shoveErr := r.shover.Shove(ref, curDot.Center, next, opts.Width); shoveErr != nil {
		return fmt.Errorf("obstructed and shove failed: %w", shoveErr)
	}
	return head.ExtendToBend(core, cw, next)
}

// abortBand undoes every step this head took and removes its now-empty
// band registration, restoring the graph to its pre-Route state.
func (r *Router) abortBand(head *drawing.Head) {
	for {
		if err := head.UndoLast(); err != nil {
			break
		}
	}
	r.bands.Remove(head.Band())
}

// connected reports whether to is reachable from from by walking segs and
// bends of the same net, used to tell a redundant ratline (whose endpoints
// already share a drawn band) from one that merely touches an
// already-routed net. A two-pin net makes "from anchors any band" an
// adequate proxy, but board.go's Net validator allows 3+ pins, and a star
// ((P1,P2) then (P1,P3)) or chain ((P1,P2) then (P2,P3)) topology routes a
// second ratline whose source anchors a band that never reaches its
// target — that case must still be routed, not reported as
// ErrAlreadyConnected.
func connected(g *layout.Graph, from, to layout.DotID) bool {
	if from == to {
		return true
	}
	visited := map[layout.DotID]bool{from: true}
	queue := []layout.DotID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, segID := range g.DotSegs(cur) {
			seg, ok := g.Seg(segID)
			if !ok {
				continue
			}
			other := seg.OtherEnd(cur)
			if visited[other] {
				continue
			}
			if other == to {
				return true
			}
			visited[other] = true
			queue = append(queue, other)
		}
		bendID, ok := g.DotBend(cur)
		if !ok {
			continue
		}
		bend, ok := g.Bend(bendID)
		if !ok {
			continue
		}
		other := bend.OtherLooseEnd(cur)
		if visited[other] {
			continue
		}
		if other == to {
			return true
		}
		visited[other] = true
		queue = append(queue, other)
	}
	return false
}

func dropBlocked(tris []int64, blocked map[int64]bool) []int64 {
	if len(blocked) == 0 {
		return tris
	}
	out := tris[:0]
	for _, t := range tris {
		if !blocked[t] {
			out = append(out, t)
		}
	}
	return out
}

// funnelCore is one transition of the funnel-step algorithm: the obstacle
// dot the band must wrap around, the winding to wrap it with, and the
// centroid of the triangle it was derived from (used as the next anchor
// for the previous step's tangent).
type funnelCore struct {
	dot    layout.DotID
	cw     bool
	center geometry.Point2D
}

// corePointsForFunnel derives one funnel transition per shared-edge
// boundary in the triangle sequence: the apex vertex of each shared edge
// that corresponds to an existing dot in the layout graph becomes the next
// core to wrap (spec.md §4.6's funnel algorithm, simplified to the
// single-apex case — a full left/right funnel with string-pulling is left
// as a future refinement; see DESIGN.md).
func corePointsForFunnel(m *navmesh.Mesh, g *layout.Graph, tris []int64) []funnelCore {
	var out []funnelCore
	seen := map[int]bool{}
	byID := make(map[int64]navmesh.Triangle)
	for _, t := range m.Triangles(g) {
		byID[t.ID] = t
	}
	for i := 0; i+1 < len(tris); i++ {
		a, ok := byID[tris[i]]
		if !ok {
			continue
		}
		b, ok := byID[tris[i+1]]
		if !ok {
			continue
		}
		shared := sharedVertex(a, b)
		if shared < 0 || seen[shared] {
			continue
		}
		seen[shared] = true
		p := m.Vertex(shared)
		dotID, ok := nearestDotAt(g, m.Layer(), p)
		if !ok {
			continue
		}
		out = append(out, funnelCore{dot: dotID, cw: true, center: p})
	}
	return out
}

func sharedVertex(a, b navmesh.Triangle) int {
	av := map[int]bool{a.A: true, a.B: true, a.C: true}
	for _, v := range [3]int{b.A, b.B, b.C} {
		if av[v] {
			return v
		}
	}
	return -1
}

// nearestDotAt finds the layout dot on layer nearest p (within its own
// radius), used to turn a triangulation vertex back into the obstacle dot
// it was generated from. The winding is approximated as clockwise by
// default — original_source's tracer.rs picks winding from the funnel's
// left/right split, which this simplified single-apex funnel does not
// reconstruct (see DESIGN.md); ExtendToBend's Obstructed/Shover retry path
// means a wrong-handed default costs a shove, not a stranded route.
func nearestDotAt(g *layout.Graph, layer layout.LayerID, p geometry.Point2D) (layout.DotID, bool) {
	var best layout.DotID
	bestDist := -1.0
	found := false
	for _, d := range g.DotsOnLayer(layer) {
		dist := d.Center.Distance(p)
		if dist > d.Radius+geometry.Epsilon {
			continue
		}
		if !found || dist < bestDist {
			best, bestDist, found = d.ID, dist, true
		}
	}
	return best, found
}
