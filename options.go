// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"log/slog"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/layershell/present"
)

// Option configures a Client.
//
// Example:
//
//	c := layershell.NewClient(conn,
//		layershell.WithLogger(logger),
//		layershell.WithClearColor(gg.Transparent),
//	)
type Option func(*options)

// options holds the configuration shared by every surface of a client.
type options struct {
	logger  *slog.Logger
	present []present.Option
}

func defaultOptions() options {
	return options{}
}

// WithLogger sets the client logger. It is passed on to the input router
// and to every presentation engine. nil uses the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFenceTimeout bounds GPU waits of every renderer. Expiry is treated as
// device loss. The default waits for as long as the device lives.
func WithFenceTimeout(d time.Duration) Option {
	return WithPresentOptions(present.WithFenceTimeout(d))
}

// WithClearColor sets the color every frame is cleared to before drawing.
func WithClearColor(c gg.RGBA) Option {
	return WithPresentOptions(present.WithClearColor(c))
}

// WithImageCount requests a swapchain length for every renderer.
func WithImageCount(n uint32) Option {
	return WithPresentOptions(present.WithImageCount(n))
}

// WithPresentOptions appends options passed to every presentation engine
// the client creates.
func WithPresentOptions(opts ...present.Option) Option {
	return func(o *options) {
		o.present = append(o.present, opts...)
	}
}
