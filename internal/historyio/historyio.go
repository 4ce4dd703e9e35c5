// Package historyio is the adapter (C11-adjacent, spec.md §6) between the
// on-disk JSON command stream — a tagged-union wire schema naming pins and
// layers by string/int, not by resolved DotID — and history.Command, whose
// payloads already carry resolved layout.DotID/layout.NetID values. It
// plays the same "wire struct in, domain struct out" role the teacher's
// internal/netlist adapter plays between a parsed net list and internal
// component/pin ids.
package historyio

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"topola/internal/autorouter"
	"topola/internal/board"
	"topola/internal/history"
	"topola/internal/layout"
	"topola/internal/routererr"
	"topola/internal/shover"
)

// Stream is the root {done, undone} command-stream document (spec.md §6).
type Stream struct {
	Done   []WireCommand `json:"done"`
	Undone []WireCommand `json:"undone"`
}

// WireCommand is a single-key tagged object, one of Autoroute, PlaceVia,
// RemoveBands, or Abort (spec.md §6's command table).
type WireCommand struct {
	Autoroute   *wireAutoroute `json:"Autoroute,omitempty"`
	PlaceVia    *wirePlaceVia  `json:"PlaceVia,omitempty"`
	RemoveBands *wireRemove    `json:"RemoveBands,omitempty"`
	Abort       *wireAbort     `json:"Abort,omitempty"`
}

// wireAutoroute models spec.md §6's two-element Autoroute payload:
// `[ {selectors}, {presort_by_pairwise_detours, router_options} ]`. json
// arrays can't carry struct tags, so it gets a custom UnmarshalJSON that
// decodes each element by position.
type wireAutoroute struct {
	Selectors     []wireSelector
	PresortByPair bool
	RouterOptions wireRouterOptions
}

type wireSelector struct {
	Pin   string `json:"pin"`
	Layer int32  `json:"layer"`
}

type wireRouterOptions struct {
	WrapAroundBands     bool     `json:"wrap_around_bands"`
	SqueezeUnderBands   *bool    `json:"squeeze_under_bands"`
	SqueezeThroughUnder *bool    `json:"squeeze_through_under_bands"`
	RoutedBandWidth     *float64 `json:"routed_band_width"`
}

func (a *wireAutoroute) UnmarshalJSON(data []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("historyio: Autoroute payload must be a 2-element array: %w", err)
	}
	var selectors struct {
		Selectors []wireSelector `json:"selectors"`
	}
	if err := json.Unmarshal(parts[0], &selectors); err != nil {
		return fmt.Errorf("historyio: Autoroute selectors: %w", err)
	}
	var opts struct {
		PresortByPairwiseDetours bool              `json:"presort_by_pairwise_detours"`
		RouterOptions            wireRouterOptions `json:"router_options"`
	}
	if err := json.Unmarshal(parts[1], &opts); err != nil {
		return fmt.Errorf("historyio: Autoroute options: %w", err)
	}
	a.Selectors = selectors.Selectors
	a.PresortByPair = opts.PresortByPairwiseDetours
	a.RouterOptions = opts.RouterOptions
	return nil
}

type wirePlaceVia struct {
	At     [2]float64 `json:"at"`
	Layers []int32    `json:"layers"`
}

type wireRemove struct {
	Bands []uint64 `json:"bands"`
}

type wireAbort struct{}

// Resolver supplies the board-seeded lookups (pin ref -> dot, default
// via geometry) historyio needs to turn wire pin/layer references into
// resolved layout ids. Produced by board.Seed.
type Resolver struct {
	Seeded       *board.Seeded
	Graph        *layout.Graph
	ViaRadius    float64 // fallback radius for a PlaceVia command that doesn't name one (spec.md §6's wire schema has no radius field)
	DefaultWidth float64 // fallback band width when router_options.routed_band_width is absent
}

// Decode parses a command-stream document and resolves every wire command
// against r into history.Command values ready for Invoker.Execute,
// returning the done and undone slices separately since a freshly loaded
// session typically replays only the done list and leaves undone available
// for Redo.
func Decode(data []byte, r Resolver) (done, undone []history.Command, err error) {
	var stream Stream
	if err := json.Unmarshal(data, &stream); err != nil {
		return nil, nil, fmt.Errorf("historyio: %w", routererr.ErrParseError(err))
	}
	done, err = resolveAll(stream.Done, r)
	if err != nil {
		return nil, nil, err
	}
	undone, err = resolveAll(stream.Undone, r)
	if err != nil {
		return nil, nil, err
	}
	return done, undone, nil
}

func resolveAll(cmds []WireCommand, r Resolver) ([]history.Command, error) {
	out := make([]history.Command, 0, len(cmds))
	for i, c := range cmds {
		resolved, err := resolveOne(c, r)
		if err != nil {
			return nil, fmt.Errorf("historyio: command %d: %w", i, err)
		}
		out = append(out, resolved...)
	}
	return out, nil
}

// resolveOne returns one or more history.Command values for a single wire
// command: a PlaceVia naming several layers becomes one history.Command
// per layer, since history.PlaceVia places a single-layer fixed dot
// (SPEC_FULL.md's C3 data model keeps a via's per-layer terminals as
// separate dots, joined only by sharing a center, exactly as board.Seed
// already does for board-file vias).
func resolveOne(c WireCommand, r Resolver) ([]history.Command, error) {
	switch {
	case c.Autoroute != nil:
		cmd, err := resolveAutoroute(c.Autoroute, r)
		if err != nil {
			return nil, err
		}
		return []history.Command{cmd}, nil
	case c.PlaceVia != nil:
		return resolvePlaceVia(c.PlaceVia, r), nil
	case c.RemoveBands != nil:
		bands := make([]layout.BandID, len(c.RemoveBands.Bands))
		for i, b := range c.RemoveBands.Bands {
			bands[i] = layout.BandID(b)
		}
		return []history.Command{{ID: uuid.New(), RemoveBands: &history.RemoveBands{Bands: bands}}}, nil
	case c.Abort != nil:
		return []history.Command{{ID: uuid.New(), Abort: &history.Abort{}}}, nil
	default:
		return nil, fmt.Errorf("empty wire command: %w", routererr.ErrInvariantViolation)
	}
}

func resolvePlaceVia(p *wirePlaceVia, r Resolver) []history.Command {
	var cmds []history.Command
	for _, layerID := range p.Layers {
		cmds = append(cmds, history.Command{
			ID: uuid.New(),
			PlaceVia: &history.PlaceVia{
				Layer:  layout.LayerID(layerID),
				Center: p.At,
				Radius: r.ViaRadius,
				Net:    layout.NoNet,
			},
		})
	}
	return cmds
}

// resolveAutoroute pairs selectors consecutively into ratlines ((0,1),
// (2,3), …) per spec.md §6, resolves each pin ref through r.Seeded.Dots,
// and translates the wire router_options aliases into
// autorouter.RouterOptions. presort_by_pairwise_detours is interpreted to
// reorder the already-consecutive-paired ratlines by detour (the meaning
// autorouter.RouterOptions.PresortByDetour already carries), not to
// re-pair the selectors themselves: spec.md names no pairing algorithm
// beyond "consecutive", so the Open Question is resolved in favor of the
// one pairing rule the spec does state.
func resolveAutoroute(a *wireAutoroute, r Resolver) (history.Command, error) {
	if len(a.Selectors)%2 != 0 {
		return history.Command{}, fmt.Errorf("Autoroute selectors: odd count %d, cannot pair consecutively: %w", len(a.Selectors), routererr.ErrParse)
	}

	var ratlines []autorouter.Ratline
	for i := 0; i+1 < len(a.Selectors); i += 2 {
		from, err := resolveSelector(a.Selectors[i], r)
		if err != nil {
			return history.Command{}, err
		}
		to, err := resolveSelector(a.Selectors[i+1], r)
		if err != nil {
			return history.Command{}, err
		}
		fromDot, _ := r.Graph.Dot(from)
		net := layout.NoNet
		if fromDot != nil {
			net = fromDot.Net
		}
		ratlines = append(ratlines, autorouter.Ratline{
			Net:   net,
			Layer: layout.LayerID(a.Selectors[i].Layer),
			From:  from,
			To:    to,
		})
	}

	opts := a.RouterOptions
	squeeze := false
	switch {
	case opts.SqueezeUnderBands != nil:
		squeeze = *opts.SqueezeUnderBands
	case opts.SqueezeThroughUnder != nil:
		squeeze = *opts.SqueezeThroughUnder
	}
	width := r.DefaultWidth
	if opts.RoutedBandWidth != nil {
		width = *opts.RoutedBandWidth
	}

	return history.Command{
		ID: uuid.New(),
		Autoroute: &history.Autoroute{
			Ratlines: ratlines,
			Options: autorouter.RouterOptions{
				Width: width,
				Shove: shover.Options{
					SqueezeUnderBands: squeeze,
					WrapAroundBands:   opts.WrapAroundBands,
				},
				MaxReplans:      0, // zero lets router.DefaultMaxReplans apply
				PresortByDetour: a.PresortByPair,
			},
		},
	}, nil
}

func resolveSelector(s wireSelector, r Resolver) (layout.DotID, error) {
	dot, ok := r.Seeded.Dots[s.Pin]
	if !ok {
		return 0, fmt.Errorf("Autoroute selector %q: unknown pin: %w", s.Pin, routererr.ErrParse)
	}
	return dot, nil
}

// Encode renders done/undone history.Command lists back to the wire
// schema; the CLI driver does not call it. PlaceVia is written with its
// center and its single layer, RemoveBands with its band ids, and any
// other command without a payload as Abort. Autoroute is written with
// wrap_around_bands only: no selectors and no other router option, and in
// wireAutoroute's plain struct form rather than the two-element array
// Decode reads, so an encoded Autoroute does not decode back.
func Encode(done, undone []history.Command) ([]byte, error) {
	encodeOne := func(cmd history.Command) WireCommand {
		switch {
		case cmd.PlaceVia != nil:
			return WireCommand{PlaceVia: &wirePlaceVia{
				At:     cmd.PlaceVia.Center,
				Layers: []int32{int32(cmd.PlaceVia.Layer)},
			}}
		case cmd.Autoroute != nil:
			return WireCommand{Autoroute: &wireAutoroute{
				RouterOptions: wireRouterOptions{
					WrapAroundBands: cmd.Autoroute.Options.Shove.WrapAroundBands,
				},
			}}
		case cmd.RemoveBands != nil:
			bands := make([]uint64, len(cmd.RemoveBands.Bands))
			for i, b := range cmd.RemoveBands.Bands {
				bands[i] = uint64(b)
			}
			return WireCommand{RemoveBands: &wireRemove{Bands: bands}}
		default:
			return WireCommand{Abort: &wireAbort{}}
		}
	}

	wireDone := make([]WireCommand, len(done))
	for i, c := range done {
		wireDone[i] = encodeOne(c)
	}
	wireUndone := make([]WireCommand, len(undone))
	for i, c := range undone {
		wireUndone[i] = encodeOne(c)
	}
	return json.Marshal(Stream{Done: wireDone, Undone: wireUndone})
}

// SortedBandIDs is a small helper the CLI driver uses when printing a
// RemoveBands summary, kept here rather than in internal/layout since it's
// purely a wire-presentation concern.
func SortedBandIDs(bands []layout.BandID) []layout.BandID {
	out := append([]layout.BandID(nil), bands...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
