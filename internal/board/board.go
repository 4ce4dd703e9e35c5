// Package board implements C11: the on-disk board description (layers,
// pads, vias, keepouts, nets) and the adapter that seeds a fresh
// layout.Graph from it. Grounded on original_source's layout.rs board
// loader and the teacher's own config-struct-plus-validator-tags idiom
// (internal/config), reusing go-playground/validator/v10 and yaml.v3 for
// parsing so a board file and a topola.yaml config file are loaded the
// same way.
package board

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"topola/internal/layout"
	"topola/internal/routererr"
	"topola/pkg/geometry"
)

// Layer names one copper layer by its stackup position (spec.md glossary).
type Layer struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name" validate:"required"`
}

// Pad is a fixed terminal belonging to a component pin.
type Pad struct {
	Component string  `yaml:"component" validate:"required"`
	Number    string  `yaml:"number" validate:"required"`
	Layer     int32   `yaml:"layer"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Radius    float64 `yaml:"radius" validate:"gt=0"`
}

// Ref returns the "<comp>-<num>" pin reference spec.md §6 uses in net pin
// lists.
func (p Pad) Ref() string { return p.Component + "-" + p.Number }

// Via is a fixed terminal present on every layer it lists, used as a
// same-net bridge between layers (spec.md glossary; inter-layer routing
// itself is a Non-goal, but a via's *terminal* dots exist on each layer it
// names so that a same-layer route can end at one).
type Via struct {
	Name   string  `yaml:"name" validate:"required"`
	Layers []int32 `yaml:"layers" validate:"required,min=1"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius" validate:"gt=0"`
}

// Keepout is a fixed, net-less obstruction dot (spec.md §3, "a primitive
// with no electrical net" — used for board edge clearance and mechanical
// exclusion zones the original_source board.rs also models).
type Keepout struct {
	Layer  int32   `yaml:"layer"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius" validate:"gt=0"`
}

// Net names one electrical net and the pin/via refs that must end up
// connected (spec.md §6's "pins[] with component-pin refs").
type Net struct {
	Name string   `yaml:"name" validate:"required"`
	Pins []string `yaml:"pins" validate:"required,min=2"`
}

// Description is the root of a board file (spec.md §6, BoardDescription).
type Description struct {
	Layers   []Layer   `yaml:"layers" validate:"required,min=1,dive"`
	Pads     []Pad     `yaml:"pads" validate:"dive"`
	Vias     []Via     `yaml:"vias" validate:"dive"`
	Keepouts []Keepout `yaml:"keepouts" validate:"dive"`
	Nets     []Net     `yaml:"nets" validate:"dive"`
}

var validate = validator.New()

// Load reads, parses, and validates a board file at path.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("board: %w", routererr.ErrIOError(err))
	}
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("board: %w", routererr.ErrParseError(err))
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("board: %w", routererr.ErrParseError(err))
	}
	return &d, nil
}

// Seeded is the result of adapting a Description into a fresh layout
// graph: the graph itself, a lookup from pin ref to the dot that
// terminates it, and net name to NetID so a caller can build ratlines.
type Seeded struct {
	Graph   *layout.Graph
	Bands   *layout.Bands
	Dots    map[string]layout.DotID
	NetID   map[string]layout.NetID
	NetName map[layout.NetID]string
}

// Seed builds a fresh layout.Graph from d: every pad and via terminal
// becomes a fixed dot, every keepout becomes a fixed, net-less dot, laid
// down in an order (keepouts and vias before pads) that makes the earliest
// clearance violation point at the true obstruction rather than an
// incidental ordering artifact. clearance supplies the per-layer
// clearance the layout graph enforces (spec.md §3; normally
// config.ClearanceDefaults.Clearance, constant across layers for a single
// board).
func Seed(d *Description, clearance layout.ClearanceFunc) (*Seeded, error) {
	g := layout.New(clearance)
	bands := layout.NewBands()
	seeded := &Seeded{
		Graph:   g,
		Bands:   bands,
		Dots:    make(map[string]layout.DotID),
		NetID:   make(map[string]layout.NetID),
		NetName: make(map[layout.NetID]string),
	}

	nextNet := layout.NetID(0)
	netIDFor := func(name string) layout.NetID {
		if id, ok := seeded.NetID[name]; ok {
			return id
		}
		id := nextNet
		nextNet++
		seeded.NetID[name] = id
		seeded.NetName[id] = name
		return id
	}

	pinNet := make(map[string]layout.NetID)
	for _, n := range d.Nets {
		id := netIDFor(n.Name)
		for _, pin := range n.Pins {
			pinNet[pin] = id
		}
	}

	for _, k := range d.Keepouts {
		if _, err := g.AddFixedDot(geometry.Point2D{X: k.X, Y: k.Y}, k.Radius, layout.LayerID(k.Layer), layout.NoNet); err != nil {
			return nil, fmt.Errorf("board: seed keepout: %w", err)
		}
	}

	for _, v := range d.Vias {
		net, ok := pinNet[v.Name]
		if !ok {
			net = layout.NoNet
		}
		for _, layerID := range v.Layers {
			dot, err := g.AddFixedDot(geometry.Point2D{X: v.X, Y: v.Y}, v.Radius, layout.LayerID(layerID), net)
			if err != nil {
				return nil, fmt.Errorf("board: seed via %q: %w", v.Name, err)
			}
			seeded.Dots[fmt.Sprintf("%s@%d", v.Name, layerID)] = dot
		}
	}

	for _, p := range d.Pads {
		ref := p.Ref()
		net, ok := pinNet[ref]
		if !ok {
			net = layout.NoNet
		}
		dot, err := g.AddFixedDot(geometry.Point2D{X: p.X, Y: p.Y}, p.Radius, layout.LayerID(p.Layer), net)
		if err != nil {
			return nil, fmt.Errorf("board: seed pad %q: %w", ref, err)
		}
		seeded.Dots[ref] = dot
	}

	return seeded, nil
}
