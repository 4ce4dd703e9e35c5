package layout

import (
	"topola/internal/spatialindex"
	"topola/pkg/geometry"
)

// ClearanceFunc returns the clearance c(layer) spec.md §3 requires between
// primitives of different nets on that layer.
type ClearanceFunc func(layer LayerID) float64

// Graph is the layout graph (C3): the persistent, mutable arena of dots,
// segs, and bends, plus the adjacency bookkeeping (which segs touch a dot,
// which bend a loose dot belongs to, the ordered bow of bends around a core
// dot) that the invariants in spec.md §3 describe.
type Graph struct {
	dots  map[DotID]*Dot
	segs  map[SegID]*Seg
	bends map[BendID]*Bend

	nextID uint64

	index *spatialindex.Index

	// dotSegs[d] is the set of segs with From==d or To==d.
	dotSegs map[DotID]map[SegID]struct{}
	// dotBend[d] is the bend that d is Inner or Outer of, if any.
	dotBend map[DotID]BendID
	// bow[core] is the ordered list of bends wrapped around core, innermost
	// first (spec.md §4.4, "bend offsets stack"; SPEC_FULL.md's "bow").
	bow map[DotID][]BendID

	clearance ClearanceFunc
}

// New creates an empty layout graph. clearance is consulted by every
// clearance check; a nil clearance defaults to a constant zero.
func New(clearance ClearanceFunc) *Graph {
	if clearance == nil {
		clearance = func(LayerID) float64 { return 0 }
	}
	return &Graph{
		dots:      make(map[DotID]*Dot),
		segs:      make(map[SegID]*Seg),
		bends:     make(map[BendID]*Bend),
		index:     spatialindex.New(),
		dotSegs:   make(map[DotID]map[SegID]struct{}),
		dotBend:   make(map[DotID]BendID),
		bow:       make(map[DotID][]BendID),
		clearance: clearance,
	}
}

// Clearance returns the configured clearance for a layer.
func (g *Graph) Clearance(layer LayerID) float64 {
	return g.clearance(layer)
}

func (g *Graph) allocID() uint64 {
	g.nextID++
	return g.nextID
}

// Dot looks up a dot by id.
func (g *Graph) Dot(id DotID) (*Dot, bool) {
	d, ok := g.dots[id]
	return d, ok
}

// Seg looks up a seg by id.
func (g *Graph) Seg(id SegID) (*Seg, bool) {
	s, ok := g.segs[id]
	return s, ok
}

// Bend looks up a bend by id.
func (g *Graph) Bend(id BendID) (*Bend, bool) {
	b, ok := g.bends[id]
	return b, ok
}

// DotSegs returns the ids of every seg with an endpoint at dot.
func (g *Graph) DotSegs(dot DotID) []SegID {
	set := g.dotSegs[dot]
	out := make([]SegID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// DotBend returns the bend dot is an Inner/Outer end of, if any.
func (g *Graph) DotBend(dot DotID) (BendID, bool) {
	id, ok := g.dotBend[dot]
	return id, ok
}

// Bow returns the ordered (innermost to outermost) bends wrapped around
// core on its layer.
func (g *Graph) Bow(core DotID) []BendID {
	bow := g.bow[core]
	out := make([]BendID, len(bow))
	copy(out, bow)
	return out
}

// DotsOnLayer returns every dot on layer, for callers (navmesh) that must
// enumerate the whole graph rather than query a neighborhood.
func (g *Graph) DotsOnLayer(layer LayerID) []*Dot {
	out := make([]*Dot, 0, len(g.dots))
	for _, d := range g.dots {
		if d.Layer == layer {
			out = append(out, d)
		}
	}
	return out
}

// SegsOnLayer returns every seg on layer.
func (g *Graph) SegsOnLayer(layer LayerID) []*Seg {
	out := make([]*Seg, 0, len(g.segs))
	for _, s := range g.segs {
		if s.Layer == layer {
			out = append(out, s)
		}
	}
	return out
}

// BendsOnLayer returns every bend on layer.
func (g *Graph) BendsOnLayer(layer LayerID) []*Bend {
	out := make([]*Bend, 0, len(g.bends))
	for _, b := range g.bends {
		if b.Layer == layer {
			out = append(out, b)
		}
	}
	return out
}

// shape returns the clearance-relevant geometry of a primitive: dots and
// bend cores as circles are approximated by their own disks; segs as their
// two endpoints plus half-width. Bends' swept arc is conservatively bounded
// by the circle through Core with the bend's radius, inflated the same as a
// dot would be, which is what clearance checks against other bends use.
type shape struct {
	circle  *geometry.Circle // for dots and a bend's core disk approximation
	segFrom geometry.Point2D
	segTo   geometry.Point2D
	halfW   float64
	isSeg   bool
}

func (g *Graph) dotShape(d *Dot) shape {
	c := d.circle()
	return shape{circle: &c}
}

func (g *Graph) segShape(s *Seg) (shape, bool) {
	from, ok1 := g.dots[s.From]
	to, ok2 := g.dots[s.To]
	if !ok1 || !ok2 {
		return shape{}, false
	}
	return shape{isSeg: true, segFrom: from.Center, segTo: to.Center, halfW: s.Width / 2}, true
}

// bendShape approximates a bend's swept arc by the annulus between its
// core's radius and the bend's own radius; for clearance purposes we bound
// it by the full disk around the core center whose radius is the distance
// from core to the inner dot (the width of the seg it carries is not
// added), which is conservative but simple, matching spec.md §9's
// preference for avoiding finer-grained incremental structures unless
// profiling demands it.
func (g *Graph) bendShape(b *Bend) (shape, bool) {
	core, ok := g.dots[b.Core]
	if !ok {
		return shape{}, false
	}
	inner, ok := g.dots[b.Inner]
	if !ok {
		return shape{}, false
	}
	radius := core.Center.Distance(inner.Center)
	c := geometry.Circle{Center: core.Center, Radius: radius}
	return shape{circle: &c}, true
}

func (sh shape) minDistance(other shape) float64 {
	switch {
	case sh.circle != nil && other.circle != nil:
		return geometry.MinDistance(*sh.circle, *other.circle)
	case sh.circle != nil && other.isSeg:
		return geometry.CircleSegmentDistance(*sh.circle, other.segFrom, other.segTo) - other.halfW
	case sh.isSeg && other.circle != nil:
		return other.minDistance(sh)
	case sh.isSeg && other.isSeg:
		return geometry.SegmentSegmentDistance(sh.segFrom, sh.segTo, other.segFrom, other.segTo) - sh.halfW - other.halfW
	default:
		return 0
	}
}

func (sh shape) bounds(eps float64) geometry.Rect {
	if sh.circle != nil {
		return geometry.Inflate(*sh.circle, eps)
	}
	r := geometry.BoundingBox([]geometry.Point2D{sh.segFrom, sh.segTo})
	pad := sh.halfW + eps
	return geometry.Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}
