// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/gg"
)

// NoTimeout is the default fence timeout. It bounds waits only by the
// device's lifetime.
const NoTimeout = time.Duration(math.MaxInt64)

// Option configures an Engine.
//
// Example:
//
//	e := present.NewEngine(st,
//		present.WithClearColor(gg.White),
//		present.WithFenceTimeout(2*time.Second),
//	)
type Option func(*options)

type options struct {
	logger       *slog.Logger
	fenceTimeout time.Duration
	clearColor   gg.RGBA
	imageCount   uint32
	label        string
}

func defaultOptions() options {
	return options{
		fenceTimeout: NoTimeout,
		clearColor:   gg.Transparent,
	}
}

// WithLogger sets the engine's logger. nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFenceTimeout bounds every fence and acquire wait. Expiry is reported
// as ErrDeviceLost. Non-positive values restore NoTimeout.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			d = NoTimeout
		}
		o.fenceTimeout = d
	}
}

// WithClearColor sets the color each image is cleared to before the draw
// callback runs.
func WithClearColor(c gg.RGBA) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithImageCount requests a swapchain length. It is clamped to the device's
// capabilities; 0 means one more than the device minimum.
func WithImageCount(n uint32) Option {
	return func(o *options) {
		o.imageCount = n
	}
}

// WithLabel names the engine's resources for debugging.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
