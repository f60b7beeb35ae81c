// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"context"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/surface"
)

// Conn is the compositor connection a Client drives.
//
// Implementations deliver compositor events by calling the Client's
// callback methods (Configure, PreferredScale, Closed, the input entry
// points), possibly from within Commit or Roundtrip.
type Conn interface {
	// Display returns the native display handle passed to backends.
	Display() uintptr

	// CreateLayerSurface creates a layer surface with a viewport and
	// fractional scale object. The surface is not committed.
	CreateLayerSurface(spec surface.LayerSpec) (surface.ID, surface.Viewport, error)

	// Commit commits the surface's pending state.
	Commit(id surface.ID) error

	// Roundtrip blocks until the compositor processed every request sent
	// so far and all resulting events were dispatched.
	Roundtrip(ctx context.Context) error

	// DestroySurface destroys the surface and its viewport.
	DestroySurface(id surface.ID) error
}

// FrameSinker is implemented by connections that composite CPU frames
// themselves. Software backends present into the returned sink.
type FrameSinker interface {
	FrameSink(id surface.ID) backend.Sink
}
