// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads layer shell clients and their surfaces from YAML.
//
// A minimal file:
//
//	backend: software
//	clear_color: "#00000000"
//	surfaces:
//	  - namespace: bar
//	    layer: top
//	    anchor: top|left|right
//	    height: 32
//	    exclusive_zone: 32
//
// Fields missing from the file keep the values of DefaultConfig.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/layershell"
	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/surface"
)

// BackendAuto selects the highest-priority available backend.
const BackendAuto = "auto"

// Margins is the distance from each anchored edge, in logical pixels.
type Margins struct {
	Top    int32 `yaml:"top"`
	Right  int32 `yaml:"right"`
	Bottom int32 `yaml:"bottom"`
	Left   int32 `yaml:"left"`
}

// Surface describes one layer surface.
type Surface struct {
	Namespace string `yaml:"namespace"`
	Layer     string `yaml:"layer"`  // background, bottom, top, overlay
	Anchor    string `yaml:"anchor"` // edges joined with "|", e.g. "top|left|right"
	// Width and Height are logical pixels. 0 lets the compositor decide
	// and requires anchoring both opposite edges.
	Width         uint32  `yaml:"width"`
	Height        uint32  `yaml:"height"`
	Margin        Margins `yaml:"margin"`
	ExclusiveZone int32   `yaml:"exclusive_zone"`
	Keyboard      string  `yaml:"keyboard"` // none, exclusive, on-demand
	Output        string  `yaml:"output"`
}

// Config is the file configuration of a client.
type Config struct {
	// Backend names the device backend, or "auto".
	Backend string `yaml:"backend"`
	// FenceTimeout bounds GPU waits; 0 waits for as long as the device lives.
	FenceTimeout time.Duration `yaml:"fence_timeout"`
	// ClearColor is "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa".
	ClearColor string `yaml:"clear_color"`
	// ImageCount is the requested swapchain length; 0 picks one.
	ImageCount uint32    `yaml:"image_count"`
	LogLevel   string    `yaml:"log_level"`
	Surfaces   []Surface `yaml:"surfaces"`
}

// DefaultConfig returns the configuration used for missing fields.
func DefaultConfig() *Config {
	return &Config{
		Backend:    BackendAuto,
		ClearColor: "#00000000",
		LogLevel:   "info",
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend) == "" {
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend is required")}
	}
	if c.FenceTimeout < 0 {
		return &ValidationError{Path: "fence_timeout", Err: fmt.Errorf("fence_timeout must be >= 0")}
	}
	if _, err := c.Clear(); err != nil {
		return &ValidationError{Path: "clear_color", Err: err}
	}
	if _, err := c.Level(); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	seen := make(map[string]int, len(c.Surfaces))
	for i, s := range c.Surfaces {
		path := fmt.Sprintf("surfaces[%d]", i)
		if strings.TrimSpace(s.Namespace) == "" {
			return &ValidationError{Path: path + ".namespace", Err: fmt.Errorf("namespace is required")}
		}
		if j, dup := seen[s.Namespace]; dup {
			return &ValidationError{Path: path + ".namespace", Err: fmt.Errorf("namespace %q already used by surfaces[%d]", s.Namespace, j)}
		}
		seen[s.Namespace] = i
		if _, err := s.LayerSpec(); err != nil {
			return &ValidationError{Path: path, Err: err}
		}
	}
	return nil
}

// Clear parses ClearColor.
func (c *Config) Clear() (gg.RGBA, error) {
	hex := strings.TrimPrefix(c.ClearColor, "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, fmt.Errorf("invalid color %q", c.ClearColor)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return gg.RGBA{}, fmt.Errorf("invalid color %q", c.ClearColor)
	}
	return gg.Hex(hex), nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	return l, nil
}

// Options converts the client-wide fields into client options.
// The config must be valid.
func (c *Config) Options() []layershell.Option {
	var opts []layershell.Option
	if c.FenceTimeout > 0 {
		opts = append(opts, layershell.WithFenceTimeout(c.FenceTimeout))
	}
	if col, err := c.Clear(); err == nil {
		opts = append(opts, layershell.WithClearColor(col))
	}
	if c.ImageCount > 0 {
		opts = append(opts, layershell.WithImageCount(c.ImageCount))
	}
	return opts
}

// BackendFactory returns the factory for the configured backend.
func (c *Config) BackendFactory() layershell.BackendFactory {
	if c.Backend == BackendAuto {
		return backend.Best()
	}
	return backend.Named(c.Backend)
}

// LayerSpec converts s into a surface request.
func (s Surface) LayerSpec() (surface.LayerSpec, error) {
	spec := surface.LayerSpec{
		Namespace: s.Namespace,
		Size:      geometry.Size{Width: s.Width, Height: s.Height},
		Margin: surface.Margin{
			Top:    s.Margin.Top,
			Right:  s.Margin.Right,
			Bottom: s.Margin.Bottom,
			Left:   s.Margin.Left,
		},
		ExclusiveZone: s.ExclusiveZone,
		Output:        s.Output,
	}
	var err error
	if spec.Layer, err = surface.ParseLayer(s.Layer); err != nil {
		return spec, err
	}
	if spec.Anchor, err = surface.ParseAnchor(s.Anchor); err != nil {
		return spec, err
	}
	if spec.Keyboard, err = surface.ParseKeyboardInteractivity(s.Keyboard); err != nil {
		return spec, err
	}
	if err := spec.Validate(); err != nil {
		return spec, err
	}
	return spec, nil
}

// ValidationError locates an invalid configuration field.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
