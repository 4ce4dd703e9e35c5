// Package cmd holds topola's cobra command tree (grounded on
// OpenTraceJTAG's cmd/jtag/cmd: one rootCmd with persistent flags, verbs
// registered onto it from init()). topola ships a single verb — run the
// board/command-stream/snapshot pipeline spec.md §6 describes — so unlike
// jtag's discover/parse/info split, everything lives on rootCmd itself;
// --watch toggles whether it loops.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"topola/internal/board"
	"topola/internal/config"
	"topola/internal/history"
	"topola/internal/historyio"
	"topola/internal/layout"
	"topola/internal/logging"
	"topola/internal/metrics"
	"topola/internal/navmesh"
	"topola/internal/overlay"
	"topola/internal/routererr"
	"topola/internal/version"
	"topola/internal/watch"
	"topola/pkg/geometry"
)

var (
	configPath  string
	renderPath  string
	watchMode   bool
	verbose     bool
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "topola <board-file> <snapshot-out> [command-file]",
	Short: "Load a board, replay a command stream, write a session snapshot",
	Long: `topola loads a board description (YAML; spec.md §6's BoardDescription
adapted from a Specctra DSN front-end), optionally replays a JSON command
stream of Autoroute/PlaceVia/RemoveBands/Abort commands against it, and
writes the resulting routed-net snapshot.

Examples:
  topola board.yaml session.json
  topola board.yaml session.json commands.json
  topola board.yaml session.json commands.json --render board.png --watch`,
	Args: cobra.RangeArgs(2, 3),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a topola.yaml config file (defaults built in)")
	rootCmd.PersistentFlags().StringVar(&renderPath, "render", "", "also rasterize the first layer with primitives to this PNG path")
	rootCmd.PersistentFlags().BoolVar(&watchMode, "watch", false, "re-run the pipeline whenever the board or command file changes")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")
	rootCmd.Args = cobra.MatchAll(func(cmd *cobra.Command, args []string) error {
		if showVersion {
			return nil
		}
		return cobra.RangeArgs(2, 3)(cmd, args)
	})
}

// Execute runs the root command and returns the process exit code spec.md
// §6 assigns (0/1/2/3), rather than calling os.Exit itself, so main.go
// keeps the only os.Exit call in the binary.
func Execute() int {
	var code int
	rootCmd.RunE = func(c *cobra.Command, args []string) error {
		var err error
		code, err = run(args)
		return err
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code == 0 {
			code = 3
		}
	}
	return code
}

func run(args []string) (int, error) {
	if showVersion {
		fmt.Printf("topola %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return 0, nil
	}

	boardPath := args[0]
	snapshotPath := args[1]
	var commandPath string
	if len(args) == 3 {
		commandPath = args[2]
	}

	log := logging.New("cli", os.Stderr)
	if !verbose {
		log = logging.Discard()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return 2, fmt.Errorf("topola: %w", routererr.ErrParseError(err))
	}

	runOnce := func() int {
		code, err := pipeline(boardPath, snapshotPath, commandPath, cfg, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return code
	}

	code := runOnce()
	if !watchMode {
		return code, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := []string{boardPath}
	if commandPath != "" {
		paths = append(paths, commandPath)
	}
	w := watch.New(paths, log)
	werr := w.Watch(ctx, func(path string) {
		fmt.Fprintf(os.Stderr, "topola: %s changed, re-running\n", path)
		code = runOnce()
	})
	if werr != nil && !errors.Is(werr, context.Canceled) {
		return 3, werr
	}
	return code, nil
}

// pipeline runs one full load->replay->snapshot pass, returning the exit
// code spec.md §6 assigns for that pass.
func pipeline(boardPath, snapshotPath, commandPath string, cfg *config.Config, log *logging.Logger) (int, error) {
	desc, err := board.Load(boardPath)
	if err != nil {
		return 2, fmt.Errorf("topola: %w", err)
	}

	clearance := func(layout.LayerID) float64 { return cfg.Clearance.Clearance }
	seeded, err := board.Seed(desc, clearance)
	if err != nil {
		return 2, fmt.Errorf("topola: %w", err)
	}

	m := metrics.New()
	meshes := make(map[layout.LayerID]*navmesh.Mesh)
	for _, l := range desc.Layers {
		meshes[layout.LayerID(l.ID)] = navmesh.New(layout.LayerID(l.ID), nil)
	}

	inv := history.New(seeded.Graph, seeded.Bands, meshes, log, m)

	var totalUndone int
	if commandPath != "" {
		data, err := os.ReadFile(commandPath)
		if err != nil {
			return 2, fmt.Errorf("topola: %w", routererr.ErrIOError(err))
		}
		resolver := historyio.Resolver{
			Seeded:       seeded,
			Graph:        seeded.Graph,
			ViaRadius:    cfg.Clearance.Width,
			DefaultWidth: cfg.Clearance.Width,
		}
		done, _, err := historyio.Decode(data, resolver)
		if err != nil {
			return 2, fmt.Errorf("topola: %w", err)
		}
		for _, c := range done {
			report, err := inv.Execute(c)
			if err != nil && errors.Is(err, routererr.ErrInvariantViolation) {
				return 3, fmt.Errorf("topola: %w", err)
			}
			if report != nil {
				totalUndone += len(report.Undone)
				for _, r := range report.Undone {
					log.Printf("ratline %v left unrouted: %v", r.Ratline, r.Err)
				}
			}
		}
	}

	if err := writeSnapshot(snapshotPath, seeded.Graph, seeded.Bands, desc.Layers); err != nil {
		return 2, fmt.Errorf("topola: %w", routererr.ErrIOError(err))
	}

	if renderPath != "" {
		if err := renderFirstLayer(seeded, desc.Layers); err != nil {
			return 2, fmt.Errorf("topola: %w", routererr.ErrIOError(err))
		}
	}

	if totalUndone > 0 {
		return 1, nil
	}
	return 0, nil
}

// sessionSnapshot is the full on-disk snapshot document: the per-net
// polylines historyio needs for an SES-style emitter, plus a per-layer
// convex outline (overlay.ConvexOutline) a debug front-end can draw
// without recomputing the board's footprint itself.
type sessionSnapshot struct {
	Nets     []overlay.NetSnapshot        `json:"nets"`
	Outlines map[int32][]geometry.Point2D `json:"outlines,omitempty"`
}

func writeSnapshot(path string, g *layout.Graph, bands *layout.Bands, layers []board.Layer) error {
	outlines := make(map[int32][]geometry.Point2D, len(layers))
	for _, l := range layers {
		hull := overlay.ConvexOutline(g, layout.LayerID(l.ID))
		if len(hull) > 0 {
			outlines[l.ID] = hull
		}
	}
	snap := sessionSnapshot{Nets: overlay.Snapshot(g, bands), Outlines: outlines}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// renderFirstLayer rasterizes the first board layer (in declaration order)
// that actually carries any primitive, a reasonable single-image default
// for a CLI whose --render flag is a debug convenience, not the primary
// output (overlay.RenderPNG itself is per-layer; a multi-layer PNG dump is
// left to a caller that wants one file per layer).
func renderFirstLayer(seeded *board.Seeded, layers []board.Layer) error {
	f, err := os.Create(renderPath)
	if err != nil {
		return err
	}
	defer f.Close()

	layer := layout.LayerID(0)
	for _, l := range layers {
		if len(seeded.Graph.DotsOnLayer(layout.LayerID(l.ID))) > 0 {
			layer = layout.LayerID(l.ID)
			break
		}
	}
	return overlay.RenderPNG(f, seeded.Graph, layer, overlay.RenderOptions{})
}
