// Package routererr collects the sentinel error values shared across the
// layout engine and autorouter (spec.md §7). Every mutating or searching
// call that can fail locally wraps one of these with fmt.Errorf("...: %w")
// so callers use errors.Is/errors.As, the same idiom the teacher used in
// internal/via and internal/alignment (plain fmt.Errorf wrapping, no
// pkg/errors).
package routererr

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTangent means no tangent line exists between two circles for the
	// requested winding (spec.md §7.1, "Geometric").
	ErrNoTangent = errors.New("no tangent solution")

	// ErrObstructed means a proposed edit collides with a primitive of a
	// different band (spec.md §7.2).
	ErrObstructed = errors.New("obstructed")

	// ErrInvariantViolation means a mutation would break a layout-graph
	// invariant; always a bug, always fatal to the enclosing transaction
	// (spec.md §7.3).
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNoPath means A* exhausted its open set without reaching the target
	// triangle (spec.md §7.4).
	ErrNoPath = errors.New("no path")

	// ErrRouteFailed accumulates a ratline into the autorouter's "undone"
	// list (spec.md §7.5).
	ErrRouteFailed = errors.New("route failed")

	// ErrAborted is returned by a long command's Step when abort() has been
	// requested (spec.md §7.6).
	ErrAborted = errors.New("aborted")

	// ErrUnknownID means a primitive id was not found; always a hard error,
	// indicating corruption of the layout graph or spatial index (spec.md
	// §4.2 "Failure semantics").
	ErrUnknownID = errors.New("unknown primitive id")

	// ErrShoveDepthExceeded means the shover's recursive displacement
	// worklist exceeded its depth cap (spec.md §4.5 step 4).
	ErrShoveDepthExceeded = errors.New("shove depth exceeded")

	// ErrAlreadyConnected is an informational, non-fatal notice: the
	// ratline's source and target already belong to the same net's
	// connected layout (spec.md §9, Open Questions).
	ErrAlreadyConnected = errors.New("already connected")

	// ErrIO means an adapter (board file, command stream) failed to read
	// or write its underlying file (spec.md §7, "IOError/ParseError
	// (adapter-only)"). Never returned by the layout engine or router
	// themselves.
	ErrIO = errors.New("io error")

	// ErrParse means an adapter successfully read a file but could not
	// parse or validate its contents (spec.md §7, adapter-only).
	ErrParse = errors.New("parse error")
)

// ErrIOError wraps a lower-level I/O error (e.g. from os.ReadFile) with
// ErrIO so adapter callers can errors.Is(err, routererr.ErrIO).
func ErrIOError(cause error) error {
	return fmt.Errorf("%w: %v", ErrIO, cause)
}

// ErrParseError wraps a lower-level parse/validate error with ErrParse.
func ErrParseError(cause error) error {
	return fmt.Errorf("%w: %v", ErrParse, cause)
}

// Obstruction identifies the specific primitive an edit collided with, so
// callers (the Shover, the Router's retry loop) can act on it instead of
// just failing.
type Obstruction struct {
	By any // a layout.PrimitiveRef naming the specific dot/seg/bend
}

func (o *Obstruction) Error() string {
	return ErrObstructed.Error()
}

func (o *Obstruction) Unwrap() error {
	return ErrObstructed
}

// NewObstruction wraps ErrObstructed with the offending primitive id.
func NewObstruction(by any) error {
	return &Obstruction{By: by}
}

// RouteFailure carries the ratline that could not be routed and the
// underlying cause (NoPath, ErrShoveDepthExceeded, ...), accumulated by the
// autorouter into its "undone" report (spec.md §6, §7.5).
type RouteFailure struct {
	Ratline any // autorouter.Ratline, kept as `any` here to avoid an import cycle
	Cause   error
}

func (r *RouteFailure) Error() string {
	if r.Cause != nil {
		return ErrRouteFailed.Error() + ": " + r.Cause.Error()
	}
	return ErrRouteFailed.Error()
}

func (r *RouteFailure) Unwrap() []error {
	return []error{ErrRouteFailed, r.Cause}
}

// NewRouteFailure wraps ErrRouteFailed with the ratline that failed and its
// cause.
func NewRouteFailure(ratline any, cause error) error {
	return &RouteFailure{Ratline: ratline, Cause: cause}
}
