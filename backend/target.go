// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell/surface"
)

// Target is the surface a device presents to.
type Target struct {
	// Display is the native compositor connection handle.
	Display uintptr

	// Surface is the registered surface being presented.
	Surface surface.Surface

	// Sink receives presented frames from CPU backends. It is nil when
	// the connection composites through the GPU only.
	Sink Sink
}

// Frame is one presented image.
type Frame struct {
	Surface surface.ID
	Index   uint32
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat

	// Pix holds packed rows in Format. It is only valid during the
	// PresentFrame call.
	Pix []byte
}

// Sink accepts presented frames on behalf of the compositor.
type Sink interface {
	PresentFrame(f Frame)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(f Frame)

// PresentFrame implements Sink.
func (fn SinkFunc) PresentFrame(f Frame) { fn(f) }
