package layout

import (
	"fmt"

	"topola/internal/routererr"
	"topola/internal/spatialindex"
	"topola/pkg/geometry"
)

// siID translates this package's per-kind ids into the single dense id
// space the spatial index (C2) expects; refOf is its inverse.
func (g *Graph) siID(ref PrimitiveRef) spatialindex.ID {
	switch ref.Kind {
	case KindDot:
		return spatialindex.ID(ref.Dot)
	case KindSeg:
		return spatialindex.ID(ref.Seg)
	default:
		return spatialindex.ID(ref.Bend)
	}
}

// WouldCollide reports which existing primitive a proposed edit collided
// with (spec.md §4.3).
type WouldCollide struct {
	Other PrimitiveRef
}

func (e *WouldCollide) Error() string {
	return fmt.Sprintf("would collide with %s", e.Other)
}

func (e *WouldCollide) Unwrap() error {
	return routererr.ErrInvariantViolation
}

// checkClearance queries the spatial index around box for primitives of a
// different net than net (on the same layer) and returns the first whose
// true geometric distance to sh violates g.clearance(layer). The primitives
// listed in self (the primitive being added or moved, and for a bend also
// the core it wraps) are skipped.
func (g *Graph) checkClearance(sh shape, layer LayerID, net NetID, self ...PrimitiveRef) (PrimitiveRef, bool) {
	clearance := g.clearance(layer)
	candidates := g.index.Query(sh.bounds(clearance))
	for _, id := range candidates {
		ref, ok := g.refOf(id)
		if !ok {
			continue
		}
		skip := false
		for _, s := range self {
			if ref == s {
				skip = true
			}
		}
		if skip {
			continue
		}
		other, oLayer, oNet, ok := g.primitiveMeta(ref)
		if !ok || oLayer != layer || oNet == net {
			continue
		}
		if sh.minDistance(other) < clearance-geometry.Epsilon {
			return ref, true
		}
	}
	return PrimitiveRef{}, false
}

// refOf is the inverse of siID: given a raw spatial-index id, find which
// primitive it names. Primitive kinds are disjoint numerically only because
// ids are allocated from one shared counter; we still need a membership
// test since the index stores raw uint64s.
func (g *Graph) refOf(id spatialindex.ID) (PrimitiveRef, bool) {
	raw := uint64(id)
	if _, ok := g.dots[DotID(raw)]; ok {
		return dotRef(DotID(raw)), true
	}
	if _, ok := g.segs[SegID(raw)]; ok {
		return segRef(SegID(raw)), true
	}
	if _, ok := g.bends[BendID(raw)]; ok {
		return bendRef(BendID(raw)), true
	}
	return PrimitiveRef{}, false
}

func (g *Graph) primitiveMeta(ref PrimitiveRef) (shape, LayerID, NetID, bool) {
	switch ref.Kind {
	case KindDot:
		d, ok := g.dots[ref.Dot]
		if !ok {
			return shape{}, 0, 0, false
		}
		return g.dotShape(d), d.Layer, d.Net, true
	case KindSeg:
		s, ok := g.segs[ref.Seg]
		if !ok {
			return shape{}, 0, 0, false
		}
		sh, ok := g.segShape(s)
		return sh, s.Layer, s.Net, ok
	default:
		b, ok := g.bends[ref.Bend]
		if !ok {
			return shape{}, 0, 0, false
		}
		sh, ok := g.bendShape(b)
		return sh, b.Layer, b.Net, ok
	}
}

// AddFixedDot adds a fixed pad/pin/via terminal. It fails with WouldCollide
// if the new dot's inflated shape intersects an existing primitive of a
// different net (spec.md §4.3).
func (g *Graph) AddFixedDot(center geometry.Point2D, radius float64, layer LayerID, net NetID) (DotID, error) {
	return g.addDot(center, radius, layer, net, true)
}

// AddLooseDot adds an interior bend-vertex dot, created by the router
// inside a drawing transaction.
func (g *Graph) AddLooseDot(center geometry.Point2D, radius float64, layer LayerID, net NetID) (DotID, error) {
	return g.addDot(center, radius, layer, net, false)
}

func (g *Graph) addDot(center geometry.Point2D, radius float64, layer LayerID, net NetID, fixed bool) (DotID, error) {
	id := DotID(g.allocID())
	d := &Dot{ID: id, Center: center, Radius: radius, Layer: layer, Net: net, Fixed: fixed}
	sh := g.dotShape(d)
	if other, collide := g.checkClearance(sh, layer, net, dotRef(id)); collide {
		g.nextID--
		return 0, fmt.Errorf("layout: add dot: %w", &WouldCollide{Other: other})
	}
	g.dots[id] = d
	g.dotSegs[id] = make(map[SegID]struct{})
	g.index.Insert(g.siID(dotRef(id)), sh.bounds(g.clearance(layer)))
	return id, nil
}

// AddSeg joins two dots with a straight copper segment, validating that
// both endpoints exist, lie on the same layer, are distinct, and that the
// new seg clears every primitive of a different net (spec.md §4.3).
func (g *Graph) AddSeg(from, to DotID, width float64, net NetID) (SegID, error) {
	fd, ok1 := g.dots[from]
	td, ok2 := g.dots[to]
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("layout: add seg: %w", routererr.ErrInvariantViolation)
	}
	if from == to {
		return 0, fmt.Errorf("layout: add seg: endpoints identical: %w", routererr.ErrInvariantViolation)
	}
	if fd.Layer != td.Layer {
		return 0, fmt.Errorf("layout: add seg: endpoints on different layers: %w", routererr.ErrInvariantViolation)
	}
	layer := fd.Layer
	sh := shape{isSeg: true, segFrom: fd.Center, segTo: td.Center, halfW: width / 2}

	id := SegID(g.allocID())
	if other, collide := g.checkClearance(sh, layer, net, segRef(id)); collide {
		g.nextID--
		return 0, fmt.Errorf("layout: add seg: %w", &WouldCollide{Other: other})
	}

	s := &Seg{ID: id, From: from, To: to, Width: width, Layer: layer, Net: net}
	g.segs[id] = s
	g.dotSegs[from][id] = struct{}{}
	g.dotSegs[to][id] = struct{}{}
	g.index.Insert(g.siID(segRef(id)), sh.bounds(g.clearance(layer)))
	return id, nil
}

// AddBend adds a circular arc around core, between loose dots inner and
// outer. inner must already be the endpoint of exactly one seg; outer may
// be the endpoint of at most one, since a drawing step adds the bend before
// the seg that leaves outer (spec.md §3, §4.4). The new bend is inserted
// into core's bow ordered by radius.
func (g *Graph) AddBend(core, inner, outer DotID, cw bool, net NetID) (BendID, error) {
	cd, ok := g.dots[core]
	if !ok {
		return 0, fmt.Errorf("layout: add bend: unknown core: %w", routererr.ErrInvariantViolation)
	}
	inD, ok := g.dots[inner]
	if !ok {
		return 0, fmt.Errorf("layout: add bend: unknown inner: %w", routererr.ErrInvariantViolation)
	}
	od, ok := g.dots[outer]
	if !ok {
		return 0, fmt.Errorf("layout: add bend: unknown outer: %w", routererr.ErrInvariantViolation)
	}
	if cd.Layer != inD.Layer || cd.Layer != od.Layer {
		return 0, fmt.Errorf("layout: add bend: layer mismatch: %w", routererr.ErrInvariantViolation)
	}
	if len(g.dotSegs[inner]) != 1 || len(g.dotSegs[outer]) > 1 {
		return 0, fmt.Errorf("layout: add bend: inner must own exactly one seg and outer at most one: %w", routererr.ErrInvariantViolation)
	}
	if _, has := g.dotBend[inner]; has {
		return 0, fmt.Errorf("layout: add bend: inner already part of a bend: %w", routererr.ErrInvariantViolation)
	}
	if _, has := g.dotBend[outer]; has {
		return 0, fmt.Errorf("layout: add bend: outer already part of a bend: %w", routererr.ErrInvariantViolation)
	}

	radius := cd.Center.Distance(inD.Center)
	layer := cd.Layer
	arcShape := shape{circle: &geometry.Circle{Center: cd.Center, Radius: radius}}

	id := BendID(g.allocID())
	if other, collide := g.checkClearance(arcShape, layer, net, bendRef(id), dotRef(core)); collide {
		g.nextID--
		return 0, fmt.Errorf("layout: add bend: %w", &WouldCollide{Other: other})
	}

	b := &Bend{ID: id, Core: core, Inner: inner, Outer: outer, CW: cw, Layer: layer, Net: net}
	g.bends[id] = b
	g.dotBend[inner] = id
	g.dotBend[outer] = id
	g.insertBow(core, id, radius)
	g.index.Insert(g.siID(bendRef(id)), arcShape.bounds(g.clearance(layer)))
	return id, nil
}

func (g *Graph) insertBow(core DotID, bend BendID, radius float64) {
	bow := g.bow[core]
	pos := len(bow)
	for i, b := range bow {
		if r, ok := g.bends[b]; ok {
			if cd, ok2 := g.dots[core]; ok2 {
				if innerDot, ok3 := g.dots[r.Inner]; ok3 {
					if radius < cd.Center.Distance(innerDot.Center) {
						pos = i
						break
					}
				}
			}
		}
	}
	bow = append(bow, 0)
	copy(bow[pos+1:], bow[pos:])
	bow[pos] = bend
	g.bow[core] = bow
}

func (g *Graph) removeFromBow(core DotID, bend BendID) {
	bow := g.bow[core]
	for i, b := range bow {
		if b == bend {
			g.bow[core] = append(bow[:i], bow[i+1:]...)
			return
		}
	}
}

// MoveLooseDot relocates a loose dot, re-checking clearance against every
// other primitive and maintaining the spatial index (remove+insert for the
// dot and everything whose AABB depends on it, per spec.md §9).
func (g *Graph) MoveLooseDot(dot DotID, newCenter geometry.Point2D) error {
	d, ok := g.dots[dot]
	if !ok {
		return fmt.Errorf("layout: move dot: %w", routererr.ErrUnknownID)
	}
	if d.Fixed {
		return fmt.Errorf("layout: move dot: dot is fixed: %w", routererr.ErrInvariantViolation)
	}

	oldCenter := d.Center
	d.Center = newCenter

	// Re-check clearance for the dot itself and every seg/bend whose shape
	// depends on its center, rolling back if any violates.
	affected := g.affectedByDot(dot)
	for _, ref := range affected {
		sh, layer, net, ok := g.primitiveMeta(ref)
		if !ok {
			continue
		}
		if other, collide := g.checkClearance(sh, layer, net, ref); collide {
			d.Center = oldCenter
			return fmt.Errorf("layout: move dot: %w", &WouldCollide{Other: other})
		}
	}

	for _, ref := range affected {
		sh, layer, _, ok := g.primitiveMeta(ref)
		if !ok {
			continue
		}
		if err := g.index.Update(g.siID(ref), sh.bounds(g.clearance(layer))); err != nil {
			return fmt.Errorf("layout: move dot: %w", err)
		}
	}
	return nil
}

// affectedByDot returns the dot itself plus every seg and bend whose shape
// is derived from dot's position.
func (g *Graph) affectedByDot(dot DotID) []PrimitiveRef {
	refs := []PrimitiveRef{dotRef(dot)}
	for seg := range g.dotSegs[dot] {
		refs = append(refs, segRef(seg))
	}
	if bend, ok := g.dotBend[dot]; ok {
		refs = append(refs, bendRef(bend))
	}
	if bow, ok := g.bow[dot]; ok {
		for _, b := range bow {
			refs = append(refs, bendRef(b))
		}
	}
	return refs
}

// Remove deletes a primitive, permitted only when doing so preserves the
// invariants of the remaining primitives (spec.md §4.3): a dot cannot be
// removed while any seg or bend still references it.
func (g *Graph) Remove(ref PrimitiveRef) error {
	switch ref.Kind {
	case KindDot:
		if len(g.dotSegs[ref.Dot]) > 0 {
			return fmt.Errorf("layout: remove %s: dot has dependent segs: %w", ref, routererr.ErrInvariantViolation)
		}
		if _, has := g.dotBend[ref.Dot]; has {
			return fmt.Errorf("layout: remove %s: dot has a dependent bend: %w", ref, routererr.ErrInvariantViolation)
		}
		if len(g.bow[ref.Dot]) > 0 {
			return fmt.Errorf("layout: remove %s: dot is a bend core with wrapped bends: %w", ref, routererr.ErrInvariantViolation)
		}
		delete(g.dots, ref.Dot)
		delete(g.dotSegs, ref.Dot)
		return g.index.Remove(g.siID(ref))
	case KindSeg:
		s, ok := g.segs[ref.Seg]
		if !ok {
			return fmt.Errorf("layout: remove %s: %w", ref, routererr.ErrUnknownID)
		}
		delete(g.dotSegs[s.From], ref.Seg)
		delete(g.dotSegs[s.To], ref.Seg)
		delete(g.segs, ref.Seg)
		return g.index.Remove(g.siID(ref))
	default:
		b, ok := g.bends[ref.Bend]
		if !ok {
			return fmt.Errorf("layout: remove %s: %w", ref, routererr.ErrUnknownID)
		}
		delete(g.dotBend, b.Inner)
		delete(g.dotBend, b.Outer)
		g.removeFromBow(b.Core, ref.Bend)
		delete(g.bends, ref.Bend)
		return g.index.Remove(g.siID(ref))
	}
}

// RestoreDot reinserts a dot under its original id rather than allocating a
// fresh one, for C10's Redo to restore exactly the primitive Undo removed
// (spec.md §8's undo/redo round-trip law: "...produces state S again,
// primitive ids preserved"). Clearance is not re-checked: d previously
// coexisted validly with whatever of the graph remains.
func (g *Graph) RestoreDot(d Dot) {
	cp := d
	g.dots[cp.ID] = &cp
	g.dotSegs[cp.ID] = make(map[SegID]struct{})
	g.index.Insert(g.siID(dotRef(cp.ID)), g.dotShape(&cp).bounds(g.clearance(cp.Layer)))
}

// RestoreSeg reinserts a seg under its original id. Both endpoints must
// already be present, so a caller restoring a whole band restores dots
// before segs.
func (g *Graph) RestoreSeg(s Seg) {
	cp := s
	g.segs[cp.ID] = &cp
	g.dotSegs[cp.From][cp.ID] = struct{}{}
	g.dotSegs[cp.To][cp.ID] = struct{}{}
	if sh, ok := g.segShape(&cp); ok {
		g.index.Insert(g.siID(segRef(cp.ID)), sh.bounds(g.clearance(cp.Layer)))
	}
}

// RestoreBend reinserts a bend under its original id, re-threading it into
// its core's bow at the radius it originally held. Core, inner, and outer
// dots must already be present, so a caller restoring a whole band restores
// dots and segs before bends.
func (g *Graph) RestoreBend(b Bend) {
	cp := b
	g.bends[cp.ID] = &cp
	g.dotBend[cp.Inner] = cp.ID
	g.dotBend[cp.Outer] = cp.ID
	var radius float64
	if core, ok := g.dots[cp.Core]; ok {
		if inner, ok := g.dots[cp.Inner]; ok {
			radius = core.Center.Distance(inner.Center)
		}
	}
	g.insertBow(cp.Core, cp.ID, radius)
	if sh, ok := g.bendShape(&cp); ok {
		g.index.Insert(g.siID(bendRef(cp.ID)), sh.bounds(g.clearance(cp.Layer)))
	}
}

// Neighbors returns every primitive within clearance range of ref on the
// same layer, optionally filtered to one net. It is a finite slice rather
// than a lazy iterator (spec.md calls for "a lazy, finite sequence"; Go's
// idiom for that without iterators (pre-1.23 range-over-func elsewhere in
// this module) is to materialize the bounded result, which clearance
// queries always are).
func (g *Graph) Neighbors(ref PrimitiveRef, net *NetID) []PrimitiveRef {
	sh, layer, _, ok := g.primitiveMeta(ref)
	if !ok {
		return nil
	}
	clearance := g.clearance(layer)
	box := sh.bounds(clearance)
	var out []PrimitiveRef
	for _, id := range g.index.Query(box) {
		other, ok := g.refOf(id)
		if !ok || other == ref {
			continue
		}
		oSh, oLayer, oNet, ok := g.primitiveMeta(other)
		if !ok || oLayer != layer {
			continue
		}
		if net != nil && oNet != *net {
			continue
		}
		if sh.minDistance(oSh) <= clearance+geometry.Epsilon {
			out = append(out, other)
		}
	}
	return out
}
