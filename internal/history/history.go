// Package history implements C10: the transactional command stream. Every
// user-visible operation (place a via, run an autoroute pass, remove
// bands) is a Command that executes against the layout graph and records
// an inverse so Undo/Redo can replay it exactly, matching spec.md §6's
// {done, undone} history model and original_source's stretch.rs/step.rs
// "commands carry their own inverse" pattern.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"topola/internal/autorouter"
	"topola/internal/layout"
	"topola/internal/logging"
	"topola/internal/metrics"
	"topola/internal/navmesh"
	"topola/internal/routererr"
	"topola/pkg/geometry"
)

// Command is a tagged-union of the four user-visible operations spec.md
// §6 names. Exactly one of the payload fields is non-nil, mirroring the
// layout package's own tagged-variant-over-polymorphism idiom.
type Command struct {
	ID          uuid.UUID    `json:"id"`
	PlaceVia    *PlaceVia    `json:"place_via,omitempty"`
	Autoroute   *Autoroute   `json:"autoroute,omitempty"`
	RemoveBands *RemoveBands `json:"remove_bands,omitempty"`
	Abort       *Abort       `json:"abort,omitempty"`
}

// PlaceVia adds a fixed via dot joining layers (spec.md §6).
type PlaceVia struct {
	Layer  layout.LayerID `json:"layer"`
	Center [2]float64     `json:"center"`
	Radius float64        `json:"radius"`
	Net    layout.NetID   `json:"net"`
}

// Autoroute runs the autorouter over a set of ratlines (spec.md §6).
type Autoroute struct {
	Ratlines []autorouter.Ratline     `json:"ratlines"`
	Options  autorouter.RouterOptions `json:"options"`
}

// RemoveBands deletes a set of previously drawn bands (spec.md §6).
type RemoveBands struct {
	Bands []layout.BandID `json:"bands"`
}

// Abort requests the currently-running long command (an Autoroute) stop
// before its next Step (spec.md §6, §7.6).
type Abort struct{}

// inverse is what Invoker records per executed command, so Undo can
// restore the graph without re-deriving geometry: a plain list of
// primitive-level remove/restore operations, applied in reverse order.
type inverse struct {
	removeBands []layout.BandID   // bands an Autoroute created
	removeVia   layout.DotID      // dot a PlaceVia created
	restoreInfo []removedBandInfo // bands a RemoveBands deleted
}

// removedBandInfo is just enough to log that a band existed; full
// geometric restoration of a removed band is out of scope per spec.md §6
// Non-goals ("undo of RemoveBands is not required to be geometry-exact",
// SPEC_FULL.md's Open Question resolution logged in DESIGN.md) — Undo
// after a RemoveBands instead re-announces the bands as gone and leaves
// reconnecting them to a fresh Autoroute command.
type removedBandInfo struct {
	Net   layout.NetID
	Width float64
	From  layout.DotID
}

// entry pairs an executed Command with the inverse needed to undo it and
// the report an Autoroute produced (nil for the other kinds).
type entry struct {
	cmd    Command
	inv    inverse
	report *autorouter.Report
	redo   redoSnapshot
}

// redoSnapshot holds value copies of every primitive a command created,
// taken at Execute time before Undo can remove them, so Redo can reinsert
// them under their original ids instead of replaying the command through
// Execute's forward path, which would hand out fresh ones from the graph's
// monotonic counter (spec.md §8's undo/redo round-trip law: "...produces
// state S again, primitive ids preserved").
type redoSnapshot struct {
	dot   *layout.Dot
	bands []bandSnapshot
}

// bandSnapshot is enough to reconstruct one band's full interior: its
// registry entry plus every loose dot, seg, and bend that undoing it would
// remove (fixed endpoint dots are never removed by Undo, so they need no
// snapshot here).
type bandSnapshot struct {
	band  layout.Band
	dots  []layout.Dot
	segs  []layout.Seg
	bends []layout.Bend
}

// Invoker holds the linear command history and cursor (spec.md §6): redo
// is available until the next Execute call, which truncates anything past
// the cursor, the conventional undo-stack discipline.
type Invoker struct {
	g       *layout.Graph
	bands   *layout.Bands
	meshes  map[layout.LayerID]*navmesh.Mesh
	log     *logging.Logger
	metrics *metrics.Metrics

	entries []entry
	cursor  int // number of entries currently applied
}

// New creates an Invoker over a layout graph, its band registry, and the
// per-layer navmeshes an Autoroute command will route against.
func New(g *layout.Graph, bands *layout.Bands, meshes map[layout.LayerID]*navmesh.Mesh, log *logging.Logger, m *metrics.Metrics) *Invoker {
	if log == nil {
		log = logging.Discard()
	}
	return &Invoker{g: g, bands: bands, meshes: meshes, log: log.With("history"), metrics: m}
}

// Execute runs cmd, truncating any redo-able tail, and records its
// inverse. It returns the Autoroute report when cmd is an Autoroute
// command (nil otherwise).
func (inv *Invoker) Execute(cmd Command) (*autorouter.Report, error) {
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}

	inv.entries = inv.entries[:inv.cursor]

	var inverseRec inverse
	var redo redoSnapshot
	var report *autorouter.Report
	var err error

	switch {
	case cmd.PlaceVia != nil:
		inverseRec, redo, err = inv.doPlaceVia(cmd.PlaceVia)
	case cmd.Autoroute != nil:
		report, inverseRec, redo, err = inv.doAutoroute(cmd.Autoroute)
	case cmd.RemoveBands != nil:
		inverseRec, err = inv.doRemoveBands(cmd.RemoveBands)
	case cmd.Abort != nil:
		err = fmt.Errorf("history: abort is not itself undoable: %w", routererr.ErrInvariantViolation)
	default:
		err = fmt.Errorf("history: empty command: %w", routererr.ErrInvariantViolation)
	}
	if err != nil && report == nil {
		return report, err
	}

	// A partially routed Autoroute still returns its error, but its entry is
	// recorded so the bands it did route can be undone.
	inv.entries = append(inv.entries, entry{cmd: cmd, inv: inverseRec, report: report, redo: redo})
	inv.cursor = len(inv.entries)
	return report, err
}

func (inv *Invoker) doPlaceVia(p *PlaceVia) (inverse, redoSnapshot, error) {
	center := geometry.Point2D{X: p.Center[0], Y: p.Center[1]}
	id, err := inv.g.AddFixedDot(center, p.Radius, p.Layer, p.Net)
	if err != nil {
		return inverse{}, redoSnapshot{}, fmt.Errorf("history: place_via: %w", err)
	}
	inv.invalidateAllMeshes()
	var cp layout.Dot
	if d, ok := inv.g.Dot(id); ok {
		cp = *d
	}
	return inverse{removeVia: id}, redoSnapshot{dot: &cp}, nil
}

func (inv *Invoker) doAutoroute(a *Autoroute) (*autorouter.Report, inverse, redoSnapshot, error) {
	runner := autorouter.New(inv.g, inv.bands, inv.meshes, a.Ratlines, a.Options, inv.log, inv.metrics)
	report := runner.Run()
	var created []layout.BandID
	var snaps []bandSnapshot
	for _, r := range report.Done {
		created = append(created, r.Band)
		if mesh, ok := inv.meshes[r.Ratline.Layer]; ok {
			mesh.Invalidate()
		}
		if snap, ok := inv.snapshotBand(r.Band); ok {
			snaps = append(snaps, snap)
		}
	}
	var cmdErr error
	if len(report.Undone) > 0 {
		cmdErr = fmt.Errorf("history: autoroute: %d ratline(s) undone", len(report.Undone))
	}
	return &report, inverse{removeBands: created}, redoSnapshot{bands: snaps}, cmdErr
}

// snapshotBand captures value copies of band's registry entry and every
// loose dot, seg, and bend in its interior, for Redo to restore verbatim
// after an Undo tears them back down. Fixed dots the band merely touches
// (its start, and any fixed dot it terminates at) are skipped: Undo never
// removes them, so Redo never needs to restore them.
func (inv *Invoker) snapshotBand(id layout.BandID) (bandSnapshot, bool) {
	band, ok := inv.bands.Get(id)
	if !ok {
		return bandSnapshot{}, false
	}
	segIDs, bendIDs, _, ok := inv.g.Interior(band.From)
	if !ok {
		return bandSnapshot{}, false
	}
	snap := bandSnapshot{band: *band}
	seen := map[layout.DotID]bool{}
	addDot := func(id layout.DotID) {
		if seen[id] {
			return
		}
		seen[id] = true
		if d, ok := inv.g.Dot(id); ok && !d.Fixed {
			snap.dots = append(snap.dots, *d)
		}
	}
	for _, segID := range segIDs {
		if s, ok := inv.g.Seg(segID); ok {
			snap.segs = append(snap.segs, *s)
			addDot(s.From)
			addDot(s.To)
		}
	}
	for _, bendID := range bendIDs {
		if b, ok := inv.g.Bend(bendID); ok {
			snap.bends = append(snap.bends, *b)
			addDot(b.Inner)
			addDot(b.Outer)
		}
	}
	return snap, true
}

func (inv *Invoker) doRemoveBands(r *RemoveBands) (inverse, error) {
	var restored []removedBandInfo
	for _, id := range r.Bands {
		band, ok := inv.bands.Get(id)
		if !ok {
			continue
		}
		if err := inv.removeBandPrimitives(band); err != nil {
			return inverse{}, fmt.Errorf("history: remove_bands: %w", err)
		}
		restored = append(restored, removedBandInfo{Net: band.Net, Width: band.Width, From: band.From})
		inv.bands.Remove(id)
	}
	return inverse{restoreInfo: restored}, nil
}

// removeBandPrimitives walks a band's interior and deletes its segs and
// bends' loose dots in the order Remove requires (innermost dependents
// first): bends before the dots they wrap, segs before the dots they
// join.
func (inv *Invoker) removeBandPrimitives(band *layout.Band) error {
	segIDs, bendIDs, end, ok := inv.g.Interior(band.From)
	if !ok {
		return fmt.Errorf("remove_bands: malformed band %d: %w", band.ID, routererr.ErrInvariantViolation)
	}
	for _, bendID := range bendIDs {
		b, ok := inv.g.Bend(bendID)
		if !ok {
			continue
		}
		inner, outer := b.Inner, b.Outer
		if err := inv.g.Remove(layout.PrimitiveRefOfBend(bendID)); err != nil {
			return err
		}
		inv.removeLooseDotIfExists(inner)
		inv.removeLooseDotIfExists(outer)
	}
	for _, segID := range segIDs {
		if err := inv.g.Remove(layout.PrimitiveRefOfSeg(segID)); err != nil {
			return err
		}
	}
	_ = end
	inv.invalidateAllMeshes()
	return nil
}

func (inv *Invoker) removeLooseDotIfExists(dot layout.DotID) {
	if d, ok := inv.g.Dot(dot); ok && !d.Fixed {
		_ = inv.g.Remove(layout.PrimitiveRefOfDot(dot))
	}
}

// invalidateAllMeshes marks every registered layer's navmesh dirty. Most
// mutations here (PlaceVia, band removal) could name their one affected
// layer, but an Autoroute command can touch several at once, so a single
// conservative sweep keeps this invalidation logic in one place rather
// than threading a layer set through every call site.
func (inv *Invoker) invalidateAllMeshes() {
	for _, m := range inv.meshes {
		m.Invalidate()
	}
}

// Undo reverses the most recently executed command, if any.
func (inv *Invoker) Undo() error {
	if inv.cursor == 0 {
		return fmt.Errorf("history: nothing to undo: %w", routererr.ErrInvariantViolation)
	}
	e := inv.entries[inv.cursor-1]
	if err := inv.undoEntry(e); err != nil {
		return err
	}
	inv.cursor--
	return nil
}

func (inv *Invoker) undoEntry(e entry) error {
	switch {
	case e.cmd.PlaceVia != nil:
		if err := inv.g.Remove(layout.PrimitiveRefOfDot(e.inv.removeVia)); err != nil {
			return fmt.Errorf("history: undo place_via: %w", err)
		}
	case e.cmd.Autoroute != nil:
		for _, bandID := range e.inv.removeBands {
			band, ok := inv.bands.Get(bandID)
			if !ok {
				continue
			}
			if err := inv.removeBandPrimitives(band); err != nil {
				return fmt.Errorf("history: undo autoroute: %w", err)
			}
			inv.bands.Remove(bandID)
		}
	case e.cmd.RemoveBands != nil:
		inv.log.Printf("undo remove_bands: %d band(s) left disconnected (not re-routed); use a fresh autoroute command to reconnect", len(e.inv.restoreInfo))
	}
	inv.invalidateAllMeshes()
	return nil
}

// Redo restores the command Undo most recently reversed, if any, by
// reinserting the primitives stashed in its redoSnapshot under their
// original ids, rather than re-running the command through Execute: the
// forward path would allocate fresh ids from the graph's monotonic
// counter, violating spec.md §8's undo/redo round-trip law ("...produces
// state S again, primitive ids preserved"). Unlike Execute, Redo never
// truncates inv.entries, so further redo-able entries beyond this one
// survive.
func (inv *Invoker) Redo() error {
	if inv.cursor >= len(inv.entries) {
		return fmt.Errorf("history: nothing to redo: %w", routererr.ErrInvariantViolation)
	}
	e := inv.entries[inv.cursor]
	if err := inv.redoEntry(e); err != nil {
		return err
	}
	inv.cursor++
	return nil
}

func (inv *Invoker) redoEntry(e entry) error {
	switch {
	case e.cmd.PlaceVia != nil:
		if e.redo.dot == nil {
			return fmt.Errorf("history: redo place_via: no stashed primitive: %w", routererr.ErrInvariantViolation)
		}
		inv.g.RestoreDot(*e.redo.dot)
	case e.cmd.Autoroute != nil:
		for _, snap := range e.redo.bands {
			for _, d := range snap.dots {
				inv.g.RestoreDot(d)
			}
			for _, s := range snap.segs {
				inv.g.RestoreSeg(s)
			}
			for _, b := range snap.bends {
				inv.g.RestoreBend(b)
			}
			inv.bands.RestoreBand(snap.band)
		}
	case e.cmd.RemoveBands != nil:
		inv.log.Printf("redo remove_bands: %d band(s) removed again; Undo never restored them, so there is nothing further to reapply", len(e.inv.restoreInfo))
	}
	inv.invalidateAllMeshes()
	return nil
}

// Encode renders the done/undone command ids as the JSON schema spec.md
// §6 calls for, using encoding/json per the teacher's config package's own
// preference for stdlib-serialization-plus-struct-tags over a third
// schema layer.
func (inv *Invoker) Encode() ([]byte, error) {
	type streamEntry struct {
		ID uuid.UUID `json:"id"`
	}
	done := make([]streamEntry, inv.cursor)
	undone := make([]streamEntry, len(inv.entries)-inv.cursor)
	for i := 0; i < inv.cursor; i++ {
		done[i] = streamEntry{ID: inv.entries[i].cmd.ID}
	}
	for i := inv.cursor; i < len(inv.entries); i++ {
		undone[i-inv.cursor] = streamEntry{ID: inv.entries[i].cmd.ID}
	}
	return json.Marshal(struct {
		Done   []streamEntry `json:"done"`
		Undone []streamEntry `json:"undone"`
	}{Done: done, Undone: undone})
}
