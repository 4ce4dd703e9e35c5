// Package config loads RouterOptions and clearance/width defaults from a
// YAML file, the same load-or-default shape as cwilson613-specularium's
// internal/config (Load/LoadFromPath/DefaultConfig), validated with
// go-playground/validator/v10 struct tags (grounded on AleutianLocal's use
// of validator for request validation).
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SqueezePolicy controls whether the Shover may displace a seg that is
// itself sitting under another band's bend ("squeeze under"). Two spellings
// of this key appear in on-disk command files: squeeze_under_bands and
// squeeze_through_under_bands. SqueezePolicy accepts both as aliases
// (spec.md §9, Open Questions) by unmarshaling either into the same field.
type SqueezePolicy struct {
	Enabled bool
}

// UnmarshalYAML lets SqueezePolicy be written as a bare bool in YAML.
func (s *SqueezePolicy) UnmarshalYAML(value *yaml.Node) error {
	var b bool
	if err := value.Decode(&b); err != nil {
		return err
	}
	s.Enabled = b
	return nil
}

// MarshalYAML round-trips SqueezePolicy back to a bare bool.
func (s SqueezePolicy) MarshalYAML() (any, error) {
	return s.Enabled, nil
}

// RouterOptions are the per-autoroute-run knobs from spec.md §4.9 and §6.
type RouterOptions struct {
	WrapAroundBands  bool          `yaml:"wrap_around_bands"`
	SqueezeUnderBand SqueezePolicy `yaml:"squeeze_under_bands"`
	RoutedBandWidth  float64       `yaml:"routed_band_width" validate:"gte=0"`
}

// rawRouterOptions is the on-disk shape of RouterOptions. It lets
// topola.yaml spell the squeeze option squeeze_through_under_bands as well;
// RouterOptions.UnmarshalYAML resolves either spelling into
// SqueezeUnderBand, preferring squeeze_under_bands when both are set.
type rawRouterOptions struct {
	WrapAroundBands         bool    `yaml:"wrap_around_bands"`
	SqueezeUnderBands       *bool   `yaml:"squeeze_under_bands"`
	SqueezeThroughUnderBand *bool   `yaml:"squeeze_through_under_bands"`
	RoutedBandWidth         float64 `yaml:"routed_band_width"`
}

func (r *RouterOptions) UnmarshalYAML(value *yaml.Node) error {
	var raw rawRouterOptions
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.WrapAroundBands = raw.WrapAroundBands
	r.RoutedBandWidth = raw.RoutedBandWidth
	switch {
	case raw.SqueezeUnderBands != nil:
		r.SqueezeUnderBand.Enabled = *raw.SqueezeUnderBands
	case raw.SqueezeThroughUnderBand != nil:
		r.SqueezeUnderBand.Enabled = *raw.SqueezeThroughUnderBand
	}
	return nil
}

// PresortOptions controls the autorouter's ratline ordering pass (spec.md
// §4.9 step 1).
type PresortOptions struct {
	PresortByPairwiseDetours bool `yaml:"presort_by_pairwise_detours"`
}

// ClearanceDefaults are the board-level defaults spec.md §6 says come from
// the DSN board description; a YAML config may override them for local
// testing/CLI use without a full board file.
type ClearanceDefaults struct {
	Clearance float64 `yaml:"clearance" validate:"gte=0"`
	Width     float64 `yaml:"width" validate:"gt=0"`
}

// Config is the root of a topola.yaml file.
type Config struct {
	Clearance ClearanceDefaults `yaml:"clearance"`
	Router    RouterOptions     `yaml:"router"`
	Presort   PresortOptions    `yaml:"presort"`
}

var validate = validator.New()

// Default returns the built-in defaults used when no config file is given.
func Default() *Config {
	return &Config{
		Clearance: ClearanceDefaults{Clearance: 0.2, Width: 0.25},
		Router: RouterOptions{
			WrapAroundBands:  false,
			SqueezeUnderBand: SqueezePolicy{Enabled: false},
			RoutedBandWidth:  0.25,
		},
		Presort: PresortOptions{PresortByPairwiseDetours: false},
	}
}

// Load reads and validates a YAML config file. If path is empty, Default()
// is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads, parses, and validates the config file at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
