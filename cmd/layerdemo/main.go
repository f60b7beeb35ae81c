// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command layerdemo renders a color-cycling bar into layer surfaces of the
// headless compositor and saves the last frame as PNG.
//
// Surfaces and backend come from the config file; without one, a single
// bar across the top of the output is used.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"iter"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/layershell"
	_ "github.com/gogpu/layershell/backend/software"
	"github.com/gogpu/layershell/config"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/headless"
	"github.com/gogpu/layershell/present"
	"github.com/gogpu/layershell/surface"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default $XDG_CONFIG_HOME/layershell/config.yaml)")
		frames     = flag.Int("frames", 600, "frames to render")
		transition = flag.Int("transition", 60, "frames per color transition")
		interval   = flag.Duration("interval", 16*time.Millisecond, "time between frames, 0 renders as fast as possible")
		scale      = flag.Float64("scale", 1, "preferred scale sent by the compositor")
		output     = flag.String("output", "layerdemo.png", "PNG file for the last frame of the first surface")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, demo{
		configPath: *configPath,
		frames:     *frames,
		transition: *transition,
		interval:   *interval,
		scale:      *scale,
		output:     *output,
		verbose:    *verbose,
	}); err != nil {
		log.Fatalf("layerdemo: %v", err)
	}
}

type demo struct {
	configPath string
	frames     int
	transition int
	interval   time.Duration
	scale      float64
	output     string
	verbose    bool
}

// defaultBar is used when the config lists no surfaces.
var defaultBar = surface.LayerSpec{
	Namespace:     "layerdemo",
	Layer:         surface.LayerTop,
	Anchor:        surface.AnchorTop | surface.AnchorLeft | surface.AnchorRight,
	Size:          geometry.Size{Height: 60},
	ExclusiveZone: 60,
}

func run(ctx context.Context, d demo) error {
	cfg, err := loadConfig(d.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if d.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(layershell.NewElapsedHandler(os.Stderr, level))
	layershell.SetLogger(logger)

	compOpts := []headless.Option{headless.WithLogger(logger)}
	if d.scale != 1 {
		f, err := geometry.FromFloat(d.scale)
		if err != nil {
			return err
		}
		compOpts = append(compOpts, headless.WithScale(f))
	}
	comp := headless.New(compOpts...)
	client := comp.NewClient(cfg.Options()...)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}()

	specs, err := surfaceSpecs(cfg)
	if err != nil {
		return err
	}
	var bars []*bar
	for _, spec := range specs {
		h, err := client.Register(ctx, spec)
		if err != nil {
			return err
		}
		r, err := h.AttachBackend(cfg.BackendFactory())
		if err != nil {
			return err
		}
		bars = append(bars, &bar{handle: h, renderer: r})
	}

	next, stopColors := iter.Pull(cycle(defaultPalette, d.transition))
	defer stopColors()

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	start := time.Now()
	for frame := 0; frame < d.frames; frame++ {
		col, _ := next()
		for _, b := range bars {
			out, err := b.renderer.Render(ctx, b.draw(col))
			if err != nil {
				return fmt.Errorf("%s: %w", b.handle.Surface().Spec().Namespace, err)
			}
			logger.Debug("frame", "surface", b.handle.ID(), "n", frame, "outcome", out)
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
	elapsed := time.Since(start)

	for _, b := range bars {
		s := b.renderer.Stats()
		logger.Info("surface stats",
			"namespace", b.handle.Surface().Spec().Namespace,
			"presented", s.Presents,
			"recreations", s.Recreations,
			"dropped", s.Dropped,
			"fps", fmt.Sprintf("%.1f", float64(s.Presents)/elapsed.Seconds()))
	}

	if d.output != "" && len(bars) > 0 {
		if err := savePNG(comp, bars[0].handle.ID(), d.output); err != nil {
			return err
		}
		logger.Info("frame saved", "path", d.output)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return config.DefaultConfig(), nil
		}
	}
	return config.LoadFromPath(path)
}

func surfaceSpecs(cfg *config.Config) ([]surface.LayerSpec, error) {
	if len(cfg.Surfaces) == 0 {
		return []surface.LayerSpec{defaultBar}, nil
	}
	specs := make([]surface.LayerSpec, 0, len(cfg.Surfaces))
	for _, s := range cfg.Surfaces {
		spec, err := s.LayerSpec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func savePNG(comp *headless.Compositor, id surface.ID, path string) (err error) {
	img, err := comp.Snapshot(id)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return png.Encode(f, img)
}

type bar struct {
	handle   *layershell.Handle
	renderer *layershell.Renderer
}

// draw paints a white bar with a dot and a pill in col.
func (b *bar) draw(col gg.RGBA) present.DrawFunc {
	return func(dc *gg.Context) error {
		size := b.renderer.Snapshot().Logical
		w, h := float64(size.Width), float64(size.Height)
		dc.SetRGB(1, 1, 1)
		dc.DrawRectangle(0, 0, w, h)
		if err := dc.Fill(); err != nil {
			return err
		}

		dc.SetRGBA(col.R, col.G, col.B, col.A)
		r := h * 0.4
		dc.DrawCircle(min(500, w/2), h/2, r)
		if err := dc.Fill(); err != nil {
			return err
		}
		pill := min(w/3, 400)
		dc.DrawRoundedRectangle(w-pill-h/2, h/2-r/2, pill, r, r/2)
		return dc.Fill()
	}
}
