// Package autorouter implements C9: the outer loop that drives the Router
// (C8) across every ratline of a net list, optionally presorting ratlines
// by estimated detour, and reporting which ones ended up routed vs. left
// for manual attention. Grounded on original_source's router.rs's top-level
// loop plus route.rs's ordering heuristic, and on spec.md §5's cooperative
// Step()-based long-command shape (no goroutines/callbacks for the outer
// loop itself — each Step call attempts exactly one ratline).
package autorouter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"topola/internal/layout"
	"topola/internal/logging"
	"topola/internal/metrics"
	"topola/internal/navmesh"
	"topola/internal/router"
	"topola/internal/routererr"
	"topola/internal/shover"
)

// Ratline is one undrawn connection the autorouter must attempt: a pair of
// fixed dots on the same net and layer (spec.md §6's netlist-to-ratline
// expansion; a net with N pins becomes a minimum spanning set of N-1
// ratlines, built by the caller feeding New/Run, not by this
// package, since that choice is board-topology policy, not routing).
type Ratline struct {
	Net   layout.NetID
	Layer layout.LayerID
	From  layout.DotID
	To    layout.DotID
}

// RouterOptions mirrors spec.md §6's config surface for one autoroute
// command.
type RouterOptions struct {
	Width           float64
	Shove           shover.Options
	MaxReplans      int
	PresortByDetour bool
}

// Report is the {done, undone} result of one autoroute command (spec.md
// §6).
type Report struct {
	ID     uuid.UUID
	Done   []Result
	Undone []Result
}

// Result pairs a ratline with the band it became, or the error that
// stranded it.
type Result struct {
	Ratline Ratline
	Band    layout.BandID
	Err     error
}

// Status reports where a Step-driven autoroute command currently stands
// (spec.md §5: "long commands expose Step() (Status, error) rather than
// blocking or using callbacks").
type Status int

const (
	Running Status = iota
	Done
	AbortedStatus
)

// Invoker drives one autoroute command across a list of ratlines,
// one Step() at a time, so a host (CLI driver, watch mode, or a future
// interactive UI) can interleave it with other work or abort mid-course.
type Invoker struct {
	id       uuid.UUID
	g        *layout.Graph
	bands    *layout.Bands
	meshes   map[layout.LayerID]*navmesh.Mesh
	opts     RouterOptions
	log      *logging.Logger
	metrics  *metrics.Metrics
	ratlines []Ratline
	cursor   int
	report   Report
	aborted  bool
}

// New creates an Invoker for one autoroute command over ratlines, using
// meshes[layer] as the navmesh for each ratline's layer (the caller
// invalidates/rebuilds these as the layout graph changes between calls;
// the autorouter never owns the meshes itself — C6's lazy-rebuild already
// handles staleness).
func New(g *layout.Graph, bands *layout.Bands, meshes map[layout.LayerID]*navmesh.Mesh, ratlines []Ratline, opts RouterOptions, log *logging.Logger, m *metrics.Metrics) *Invoker {
	if log == nil {
		log = logging.Discard()
	}
	inv := &Invoker{
		id:      uuid.New(),
		g:       g,
		bands:   bands,
		meshes:  meshes,
		opts:    opts,
		log:     log.With("autoroute"),
		metrics: m,
	}
	inv.ratlines = append([]Ratline(nil), ratlines...)
	if opts.PresortByDetour {
		sortByDetour(inv.ratlines, g)
	}
	inv.report.ID = inv.id
	return inv
}

// ID returns this command's uuid, used as its transaction id in the
// command-stream schema (spec.md §6).
func (inv *Invoker) ID() uuid.UUID { return inv.id }

// Abort requests the command stop before its next Step (spec.md §5, §7.6).
// Ratlines already routed stay routed; Step will mark the remainder
// Undone with routererr.ErrAborted without attempting them.
func (inv *Invoker) Abort() { inv.aborted = true }

// Step attempts exactly one ratline and advances the cursor, returning the
// command's current Status. Calling Step again after Done is a no-op that
// keeps returning Done.
func (inv *Invoker) Step() (Status, error) {
	if inv.cursor >= len(inv.ratlines) {
		return Done, nil
	}
	rl := inv.ratlines[inv.cursor]
	inv.cursor++

	if inv.aborted {
		for _, rest := range inv.ratlines[inv.cursor-1:] {
			inv.report.Undone = append(inv.report.Undone, Result{Ratline: rest, Err: routererr.ErrAborted})
		}
		inv.cursor = len(inv.ratlines)
		return AbortedStatus, routererr.ErrAborted
	}

	mesh, ok := inv.meshes[rl.Layer]
	if !ok {
		err := fmt.Errorf("autorouter: no navmesh registered for layer %d: %w", rl.Layer, routererr.ErrInvariantViolation)
		inv.report.Undone = append(inv.report.Undone, Result{Ratline: rl, Err: err})
		return inv.statusFor(), err
	}

	r := router.New(inv.g, inv.bands, mesh, inv.log, inv.metrics, inv.opts.Shove)
	band, err := r.Route(rl.From, rl.To, router.Options{Width: inv.opts.Width, Shove: inv.opts.Shove, MaxReplans: inv.opts.MaxReplans})
	if err != nil {
		if errors.Is(err, routererr.ErrAlreadyConnected) {
			// spec.md's Open Question on this case: a ratline whose
			// endpoints are already on the same band is a no-op, not a
			// failure — recorded in Done (not Undone) so Run()/Report
			// never surfaces it as something needing manual attention.
			inv.log.Printf("ratline %v already connected, skipping", rl)
			inv.report.Done = append(inv.report.Done, Result{Ratline: rl})
			return inv.statusFor(), nil
		}
		wrapped := routererr.NewRouteFailure(rl, err)
		inv.report.Undone = append(inv.report.Undone, Result{Ratline: rl, Err: wrapped})
		inv.log.Printf("ratline %v failed: %v", rl, err)
		return inv.statusFor(), nil
	}
	inv.report.Done = append(inv.report.Done, Result{Ratline: rl, Band: band})
	return inv.statusFor(), nil
}

func (inv *Invoker) statusFor() Status {
	if inv.cursor >= len(inv.ratlines) {
		return Done
	}
	return Running
}

// Run drives Step to completion (or abort) and returns the final report;
// convenience for callers (tests, the CLI driver) that don't need to
// interleave anything between steps.
func (inv *Invoker) Run() Report {
	for {
		status, _ := inv.Step()
		if status != Running {
			break
		}
	}
	return inv.report
}

// Report returns the command's report so far (valid to call mid-course).
func (inv *Invoker) Report() Report { return inv.report }

// sortByDetour orders ratlines so that pairs with the smallest Euclidean
// ideal length route first, a simple greedy heuristic that tends to leave
// the board's open space for the longer, harder-to-route pairs (spec.md
// §6's PresortOptions, grounded on original_source route.rs's detour-based
// priority queue).
func sortByDetour(ratlines []Ratline, g *layout.Graph) {
	type weighted struct {
		rl     Ratline
		length float64
	}
	items := make([]weighted, len(ratlines))
	for i, rl := range ratlines {
		from, ok1 := g.Dot(rl.From)
		to, ok2 := g.Dot(rl.To)
		var length float64
		if ok1 && ok2 {
			length = from.Center.Distance(to.Center)
		}
		items[i] = weighted{rl: rl, length: length}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].length < items[j].length
	})
	for i, it := range items {
		ratlines[i] = it.rl
	}
}
