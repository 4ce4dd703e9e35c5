// Package drawing implements the "guide" operations (C4) that extend a
// partially drawn band by one head step: start at a fixed dot, wrap a core
// dot with a tangent bend, and finish into a target dot. Grounded on
// original_source's guide.rs/draw.rs (the Head abstraction) and draw.rs's
// geometry-checked single-step edits.
package drawing

import (
	"errors"
	"fmt"

	"topola/internal/layout"
	"topola/internal/routererr"
	"topola/pkg/geometry"
)

// step records what one ExtendToBend call created, so UndoLast can roll it
// back without re-deriving geometry.
type step struct {
	prevDot  layout.DotID
	innerDot layout.DotID
	outerDot layout.DotID
	seg      layout.SegID
	bend     layout.BendID
}

// Head is a partially drawn band: a loose dot (or, before the first step,
// the band's starting fixed dot) plus the history needed to undo the most
// recent extension.
type Head struct {
	g       *layout.Graph
	band    layout.BandID
	net     layout.NetID
	width   float64
	dot     layout.DotID
	history []step
}

// StartFrom begins a band at a fixed dot (spec.md §4.4).
func StartFrom(g *layout.Graph, bands *layout.Bands, dot layout.DotID, width float64) (*Head, error) {
	d, ok := g.Dot(dot)
	if !ok {
		return nil, fmt.Errorf("drawing: start_from: %w", routererr.ErrUnknownID)
	}
	if !d.Fixed {
		return nil, fmt.Errorf("drawing: start_from: dot is not fixed: %w", routererr.ErrInvariantViolation)
	}
	bandID := bands.Register(d.Net, width, dot)
	return &Head{g: g, band: bandID, net: d.Net, width: width, dot: dot}, nil
}

// Dot returns the head's current loose (or starting fixed) dot.
func (h *Head) Dot() layout.DotID { return h.dot }

// Band returns the band handle this head is drawing.
func (h *Head) Band() layout.BandID { return h.band }

// ExtendToBend adds a seg from the head's current dot into a new loose
// "inner" dot tangent to core, a bend wrapping core between that inner dot
// and a new "outer" dot tangent toward next, and leaves the head at the
// outer dot (spec.md §4.4). next is the following anchor the Router's
// funnel step already knows (the next obstacle's center, or the final
// target) — the guide API needs it to place the outer tangent point, since
// a bend's two tangent segs are not independent of what comes after it.
//
// ExtendToBend fails with a wrapped routererr.ErrNoTangent ("Geometric") if
// no tangent solution exists, and with a *routererr.Obstruction if the
// proposed seg or bend collides with a primitive of a different band — the
// Router is expected to hand that off to the Shover and retry.
func (h *Head) ExtendToBend(core layout.DotID, cw bool, next geometry.Point2D) error {
	curDot, ok := h.g.Dot(h.dot)
	if !ok {
		return fmt.Errorf("drawing: extend_to_bend: %w", routererr.ErrUnknownID)
	}
	coreDot, ok := h.g.Dot(core)
	if !ok {
		return fmt.Errorf("drawing: extend_to_bend: unknown core: %w", routererr.ErrUnknownID)
	}

	bow := h.g.Bow(core)
	offset := float64(len(bow)+1) * (h.width + h.g.Clearance(coreDot.Layer))
	bendRadius := coreDot.Radius + offset

	anchor := geometry.Circle{Center: curDot.Center, Radius: curDot.Radius}
	coreCircle := geometry.Circle{Center: coreDot.Center, Radius: bendRadius}
	nextAnchor := geometry.Circle{Center: next, Radius: 0}

	_, innerPoint, err := geometry.TangentPoints(anchor, coreCircle, cw)
	if err != nil {
		return fmt.Errorf("drawing: extend_to_bend: %w", errors.Join(routererr.ErrNoTangent, err))
	}
	outerPoint, _, err := geometry.TangentPoints(coreCircle, nextAnchor, cw)
	if err != nil {
		return fmt.Errorf("drawing: extend_to_bend: %w", errors.Join(routererr.ErrNoTangent, err))
	}

	innerDot, err := h.g.AddLooseDot(innerPoint, 0, coreDot.Layer, h.net)
	if err != nil {
		return fmt.Errorf("drawing: extend_to_bend: inner dot: %w", toObstructed(err))
	}
	seg, err := h.g.AddSeg(h.dot, innerDot, h.width, h.net)
	if err != nil {
		_ = h.g.Remove(layout.PrimitiveRefOfDot(innerDot))
		return fmt.Errorf("drawing: extend_to_bend: seg: %w", toObstructed(err))
	}
	outerDot, err := h.g.AddLooseDot(outerPoint, 0, coreDot.Layer, h.net)
	if err != nil {
		h.rollback(seg, innerDot, 0, 0)
		return fmt.Errorf("drawing: extend_to_bend: outer dot: %w", toObstructed(err))
	}
	bend, err := h.g.AddBend(core, innerDot, outerDot, cw, h.net)
	if err != nil {
		h.rollback(seg, innerDot, outerDot, 0)
		return fmt.Errorf("drawing: extend_to_bend: bend: %w", toObstructed(err))
	}

	h.history = append(h.history, step{prevDot: h.dot, innerDot: innerDot, outerDot: outerDot, seg: seg, bend: bend})
	h.dot = outerDot
	return nil
}

// FinishAt closes the band with a final seg into target (spec.md §4.4).
func (h *Head) FinishAt(target layout.DotID) error {
	td, ok := h.g.Dot(target)
	if !ok {
		return fmt.Errorf("drawing: finish_at: %w", routererr.ErrUnknownID)
	}
	if !td.Fixed {
		return fmt.Errorf("drawing: finish_at: target is not fixed: %w", routererr.ErrInvariantViolation)
	}
	_, err := h.g.AddSeg(h.dot, target, h.width, h.net)
	if err != nil {
		return fmt.Errorf("drawing: finish_at: %w", toObstructed(err))
	}
	return nil
}

// UndoLast rolls back the most recent ExtendToBend within this head's band
// (spec.md §4.4).
func (h *Head) UndoLast() error {
	if len(h.history) == 0 {
		return fmt.Errorf("drawing: undo_last: nothing to undo: %w", routererr.ErrInvariantViolation)
	}
	last := h.history[len(h.history)-1]
	h.history = h.history[:len(h.history)-1]
	h.rollback(last.seg, last.innerDot, last.outerDot, last.bend)
	h.dot = last.prevDot
	return nil
}

// rollback removes whichever of these ids are non-zero / exist, in an order
// that never violates an invariant: bend before the dots it references,
// seg before the dots it references.
func (h *Head) rollback(seg layout.SegID, innerDot, outerDot layout.DotID, bend layout.BendID) {
	if bend != 0 {
		_ = h.g.Remove(layout.PrimitiveRefOfBend(bend))
	}
	if seg != 0 {
		_ = h.g.Remove(layout.PrimitiveRefOfSeg(seg))
	}
	if outerDot != 0 {
		_ = h.g.Remove(layout.PrimitiveRefOfDot(outerDot))
	}
	if innerDot != 0 {
		_ = h.g.Remove(layout.PrimitiveRefOfDot(innerDot))
	}
}

// toObstructed classifies an AddXxx failure as an Obstruction (by a
// specific primitive) when possible, so the Router/Shover can act on it;
// otherwise passes the error through.
func toObstructed(err error) error {
	var wc *layout.WouldCollide
	if errors.As(err, &wc) {
		return routererr.NewObstruction(wc.Other)
	}
	return err
}
