// Package layout implements the persistent, mutable graph of dots, segs,
// and bends that is the layout engine's primary state (spec.md §3, §4.3,
// component C3). It owns the spatial index (C2) and enforces every
// adjacency and clearance invariant eagerly: every mutating call either
// succeeds fully or leaves the graph unchanged.
package layout

import "strconv"

// DotID, SegID, and BendID are dense, unique ids drawn from one shared
// counter (spec.md §3: "all share a dense index space per layer"), so no
// two primitives of any kind ever collide in the spatial index or in a
// command's inverse journal.
type DotID uint64
type SegID uint64
type BendID uint64

// LayerID names one copper layer; routing is per-layer except for vias
// (spec.md glossary).
type LayerID int32

// NetID names one electrical net. NoNet marks a primitive (e.g. a keepout
// dot) that belongs to no net.
type NetID int32

// NoNet is the sentinel NetID for primitives with no electrical net.
const NoNet NetID = -1

// PrimitiveKind tags which arena an id indexes into, used where code needs
// to handle a primitive generically (spatial index query results, removal).
type PrimitiveKind uint8

const (
	KindDot PrimitiveKind = iota
	KindSeg
	KindBend
)

// PrimitiveRef is a kind-tagged id, the Go analogue of the tagged-variant
// node spec.md §9 calls for ("avoid polymorphic node objects; use arenas +
// ids").
type PrimitiveRef struct {
	Kind PrimitiveKind
	Dot  DotID
	Seg  SegID
	Bend BendID
}

func dotRef(id DotID) PrimitiveRef   { return PrimitiveRef{Kind: KindDot, Dot: id} }
func segRef(id SegID) PrimitiveRef   { return PrimitiveRef{Kind: KindSeg, Seg: id} }
func bendRef(id BendID) PrimitiveRef { return PrimitiveRef{Kind: KindBend, Bend: id} }

// PrimitiveRefOfDot, PrimitiveRefOfSeg, and PrimitiveRefOfBend build a
// PrimitiveRef from outside the package (the drawing and shover packages
// need to name primitives they just created or are about to remove).
func PrimitiveRefOfDot(id DotID) PrimitiveRef   { return dotRef(id) }
func PrimitiveRefOfSeg(id SegID) PrimitiveRef   { return segRef(id) }
func PrimitiveRefOfBend(id BendID) PrimitiveRef { return bendRef(id) }

// String renders a PrimitiveRef for log/error messages.
func (r PrimitiveRef) String() string {
	switch r.Kind {
	case KindDot:
		return "dot#" + strconv.FormatUint(uint64(r.Dot), 10)
	case KindSeg:
		return "seg#" + strconv.FormatUint(uint64(r.Seg), 10)
	case KindBend:
		return "bend#" + strconv.FormatUint(uint64(r.Bend), 10)
	default:
		return "?"
	}
}
