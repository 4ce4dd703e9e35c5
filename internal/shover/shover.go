// Package shover implements C5: when a drawing op reports Obstructed by a
// band of another net with a shoveable segment, the Shover displaces that
// band's loose primitives to make clearance rather than failing outright.
// Grounded on spec.md §4.5 and, for the bounded-depth recursive worklist
// shape, on spec.md §9's "explicit worklist with a depth cap and a staged
// journal; commit only when the root extend succeeds".
package shover

import (
	"errors"
	"fmt"

	"topola/internal/layout"
	"topola/internal/logging"
	"topola/internal/metrics"
	"topola/internal/routererr"
	"topola/pkg/geometry"
)

// Options controls which shove strategies the Shover may use (spec.md §6,
// RouterOptions).
type Options struct {
	// SqueezeUnderBands carries the squeeze_under_bands option. Neither
	// the Shover nor the Router reads it: a shoved bend is always pushed
	// outward, never under another bend.
	SqueezeUnderBands bool
	// WrapAroundBands carries the wrap_around_bands option. Neither the
	// Shover nor the Router reads it.
	WrapAroundBands bool
	// MaxDepth bounds the shove's recursive worklist (spec.md §4.5 step 4).
	MaxDepth int
}

// DefaultMaxDepth bounds shove recursion when Options.MaxDepth is zero.
const DefaultMaxDepth = 16

// Shover carries the dependencies the displacement policy needs: the graph
// it mutates and the logger/metrics it reports through at each suspension
// point (spec.md §5).
type Shover struct {
	g       *layout.Graph
	opts    Options
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a Shover bound to a layout graph.
func New(g *layout.Graph, opts Options, log *logging.Logger, m *metrics.Metrics) *Shover {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Shover{g: g, opts: opts, log: log, metrics: m}
}

// move records one dot's displacement, for transactional rollback.
type move struct {
	dot layout.DotID
	old geometry.Point2D
}

// Shove attempts to displace the obstruction (a seg or bend belonging to a
// band of another net) out of the way of squeezingLine, the straight seg
// the caller is trying to draw. It returns nil on success (the obstruction
// and any secondary obstructions it caused have been displaced) or an error
// — in which case every displacement made during this call has already
// been rolled back (spec.md §4.5, "the shove is transactional").
func (s *Shover) Shove(obstruction layout.PrimitiveRef, squeezingFrom, squeezingTo geometry.Point2D, width float64) error {
	var journal []move
	depth := 0
	err := s.shoveOne(obstruction, squeezingFrom, squeezingTo, width, &journal, &depth)
	if s.metrics != nil {
		s.metrics.ShoveDepth.Observe(float64(depth))
	}
	if err != nil {
		s.rollback(journal)
		return err
	}
	return nil
}

func (s *Shover) rollback(journal []move) {
	for i := len(journal) - 1; i >= 0; i-- {
		m := journal[i]
		_ = s.g.MoveLooseDot(m.dot, m.old)
	}
}

func (s *Shover) shoveOne(ref layout.PrimitiveRef, from, to geometry.Point2D, width float64, journal *[]move, depth *int) error {
	*depth++
	if *depth > s.opts.MaxDepth {
		return fmt.Errorf("shover: %w", routererr.ErrShoveDepthExceeded)
	}

	switch ref.Kind {
	case layout.KindSeg:
		return s.shoveSeg(ref.Seg, from, to, width, journal, depth)
	case layout.KindBend:
		return s.shoveBend(ref.Bend, from, to, width, journal, depth)
	default:
		// Fixed dots are never shoveable.
		return fmt.Errorf("shover: %w", routererr.ErrObstructed)
	}
}

// shoveSeg splits the shove into translations of the seg's two endpoints,
// perpendicular to the squeezing line, by the minimum delta that restores
// clearance (spec.md §4.5 step 2).
func (s *Shover) shoveSeg(segID layout.SegID, from, to geometry.Point2D, width float64, journal *[]move, depth *int) error {
	seg, ok := s.g.Seg(segID)
	if !ok {
		return fmt.Errorf("shover: %w", routererr.ErrUnknownID)
	}
	fromDot, ok1 := s.g.Dot(seg.From)
	toDot, ok2 := s.g.Dot(seg.To)
	if !ok1 || !ok2 || fromDot.Fixed || toDot.Fixed {
		return fmt.Errorf("shover: seg has a fixed endpoint, not shoveable: %w", routererr.ErrObstructed)
	}

	normal := perpendicular(from, to)
	clearance := s.g.Clearance(seg.Layer)
	needed := clearance + width/2 + seg.Width/2 + geometry.Epsilon

	for _, dotID := range [2]layout.DotID{seg.From, seg.To} {
		d, _ := s.g.Dot(dotID)
		dist := geometry.SegmentMinDistance(d.Center, from, to)
		if dist >= needed {
			continue
		}
		delta := needed - dist
		newCenter := geometry.Point2D{X: d.Center.X + normal.X*delta, Y: d.Center.Y + normal.Y*delta}
		old := d.Center
		if err := s.g.MoveLooseDot(dotID, newCenter); err != nil {
			return s.recoverFromBlockedMove(err, dotID, newCenter, width, journal, depth)
		}
		*journal = append(*journal, move{dot: dotID, old: old})
	}
	s.log.Printf("shoved seg %d by clearance delta", segID)
	return nil
}

// shoveBend shoves a bend by pushing its inner/outer dots further from the
// core by clearance plus the squeezing width (spec.md §4.5 step 3). The
// bend keeps its place in its core's bow; its ordinal is not changed.
func (s *Shover) shoveBend(bendID layout.BendID, from, to geometry.Point2D, width float64, journal *[]move, depth *int) error {
	bend, ok := s.g.Bend(bendID)
	if !ok {
		return fmt.Errorf("shover: %w", routererr.ErrUnknownID)
	}
	core, ok := s.g.Dot(bend.Core)
	if !ok {
		return fmt.Errorf("shover: %w", routererr.ErrUnknownID)
	}
	clearance := s.g.Clearance(bend.Layer)
	extra := clearance + width + geometry.Epsilon

	for _, dotID := range [2]layout.DotID{bend.Inner, bend.Outer} {
		d, ok := s.g.Dot(dotID)
		if !ok || d.Fixed {
			return fmt.Errorf("shover: bend endpoint not shoveable: %w", routererr.ErrObstructed)
		}
		dir := unit(core.Center, d.Center)
		newCenter := geometry.Point2D{
			X: d.Center.X + dir.X*extra,
			Y: d.Center.Y + dir.Y*extra,
		}
		old := d.Center
		if err := s.g.MoveLooseDot(dotID, newCenter); err != nil {
			return s.recoverFromBlockedMove(err, dotID, newCenter, width, journal, depth)
		}
		*journal = append(*journal, move{dot: dotID, old: old})
	}
	s.log.Printf("shoved bend %d outward on core %d", bendID, bend.Core)
	return nil
}

// recoverFromBlockedMove is reached when displacing one primitive would
// itself collide with a third (spec.md §4.5 step 4: "if any new violation
// appears, recurse with that primitive as the next shove target").
func (s *Shover) recoverFromBlockedMove(moveErr error, dotID layout.DotID, target geometry.Point2D, width float64, journal *[]move, depth *int) error {
	var wc *layout.WouldCollide
	if !errors.As(moveErr, &wc) {
		return fmt.Errorf("shover: %w", moveErr)
	}
	d, _ := s.g.Dot(dotID)
	if err := s.shoveOne(wc.Other, d.Center, target, width, journal, depth); err != nil {
		return err
	}
	// Retry the original move now that the secondary obstruction is clear.
	old := d.Center
	if err := s.g.MoveLooseDot(dotID, target); err != nil {
		return fmt.Errorf("shover: %w", err)
	}
	*journal = append(*journal, move{dot: dotID, old: old})
	return nil
}

func perpendicular(a, b geometry.Point2D) geometry.Point2D {
	d := b.Sub(a)
	length := d.Length()
	if length < geometry.Epsilon {
		return geometry.Point2D{X: 0, Y: 1}
	}
	return geometry.Point2D{X: -d.Y / length, Y: d.X / length}
}

func unit(from, to geometry.Point2D) geometry.Point2D {
	d := to.Sub(from)
	length := d.Length()
	if length < geometry.Epsilon {
		return geometry.Point2D{X: 1, Y: 0}
	}
	return d.Scale(1 / length)
}
