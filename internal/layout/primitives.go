package layout

import "topola/pkg/geometry"

// Dot is a circular, fixed-radius copper pad or internal bend-end vertex
// (spec.md §3). A Fixed dot is a pin/pad/via terminal and is never moved; a
// loose dot is created by the router and may be displaced by shoving.
//
// SPEC_FULL.md's domain-stack note distinguishes FixedDot/LooseDot at the
// type level in the original (topola, Rust); this Go port keeps that
// distinction as the Fixed bool plus the invariant checks in ops.go, rather
// than separate Go types, matching the teacher's preference for tagged data
// over type-level state machines (internal/via's DetectionMethod enum).
type Dot struct {
	ID     DotID
	Center geometry.Point2D
	Radius float64
	Layer  LayerID
	Net    NetID
	Fixed  bool
}

func (d *Dot) circle() geometry.Circle {
	return geometry.Circle{Center: d.Center, Radius: d.Radius}
}

// Seg is a straight copper segment joining exactly two dots. A seg owns no
// geometry beyond its width; its line is induced by its endpoints.
type Seg struct {
	ID    SegID
	From  DotID
	To    DotID
	Width float64
	Layer LayerID
	Net   NetID
}

// OtherEnd returns the endpoint of the seg that is not dot.
func (s *Seg) OtherEnd(dot DotID) DotID {
	if s.From == dot {
		return s.To
	}
	return s.From
}

// Bend is a circular arc wrapped around a core dot, between two tangent
// segs attached at Inner and Outer. Its radius is implied by the distance
// from Core's center to Inner's (equivalently Outer's) center; no separate
// radius field is stored, avoiding a second source of truth.
type Bend struct {
	ID    BendID
	Core  DotID
	Inner DotID
	Outer DotID
	CW    bool
	Layer LayerID
	Net   NetID
}
