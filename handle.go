// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/present"
	"github.com/gogpu/layershell/surface"
)

// Handle is the host's reference to a registered layer surface.
type Handle struct {
	client *Client
	rec    *surface.Record
	surf   *surface.LayerSurface

	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	renderer *Renderer
}

// ID returns the surface identity.
func (h *Handle) ID() surface.ID { return h.surf.ID() }

// Surface returns the layer surface. Input handlers are installed on it.
func (h *Handle) Surface() *surface.LayerSurface { return h.surf }

// Geometry returns the surface's size and scale state.
func (h *Handle) Geometry() *geometry.State { return h.surf.Geometry() }

// Done is closed when the surface is unregistered, either by the host or
// because the compositor closed it.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Renderer returns the attached renderer, if any.
func (h *Handle) Renderer() (*Renderer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.renderer, h.renderer != nil
}

// Unregister is shorthand for Client.Unregister(h.ID()).
func (h *Handle) Unregister() error {
	return h.client.Unregister(h.ID())
}

// AttachBackend creates a device with f and binds a presentation engine
// for the surface to it. A surface has at most one renderer.
func (h *Handle) AttachBackend(f BackendFactory) (*Renderer, error) {
	if h.closed() {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceClosed, h.ID())
	}
	if _, ok := h.rec.Presenter(); ok {
		return nil, fmt.Errorf("%w: %v", surface.ErrAlreadyAttached, h.ID())
	}

	c := h.client
	t := backend.Target{
		Display: c.conn.Display(),
		Surface: h.surf,
	}
	if fs, ok := c.conn.(FrameSinker); ok {
		t.Sink = fs.FrameSink(h.ID())
	}

	dev, err := f(t)
	if err != nil {
		return nil, fmt.Errorf("layershell: open backend for %v: %w", h.ID(), err)
	}

	opts := append([]present.Option{
		present.WithLogger(c.log),
		present.WithLabel(h.ID().String()),
	}, c.opts.present...)
	eng := present.NewEngine(h.surf.Geometry(), opts...)
	if err := eng.Attach(dev); err != nil {
		dev.Destroy()
		return nil, fmt.Errorf("layershell: attach %v: %w", h.ID(), err)
	}
	if err := h.rec.Attach(eng); err != nil {
		_ = eng.Detach()
		return nil, err
	}

	r := &Renderer{handle: h, engine: eng}
	h.mu.Lock()
	h.renderer = r
	h.mu.Unlock()

	c.log.Info("backend attached", "id", h.ID(), "size", h.surf.Geometry().Physical())
	return r, nil
}

// AttachBackendNamed attaches the registered backend called name.
func (h *Handle) AttachBackendNamed(name string) (*Renderer, error) {
	return h.AttachBackend(backend.Named(name))
}

// AttachBestBackend attaches the highest-priority available backend.
func (h *Handle) AttachBestBackend() (*Renderer, error) {
	return h.AttachBackend(backend.Best())
}

func (h *Handle) syncViewport() {
	snap := h.surf.Geometry().Snapshot()
	if err := surface.SyncViewport(h.surf.Viewport(), snap); err != nil {
		h.client.log.Warn("viewport sync failed", "id", h.ID(), "err", err)
	}
}

func (h *Handle) close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.renderer = nil
		h.mu.Unlock()
		close(h.done)
	})
}

func (h *Handle) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Renderer draws frames into a surface through its presentation engine.
//
// Render must not be called concurrently with itself. Compositor
// callbacks may run while a frame renders; size and scale changes are
// picked up by the next frame. Stats, State and Extent may be called from
// the draw callback. Detach or Unregister called from it takes effect when
// the callback returns, and that frame is not presented.
type Renderer struct {
	handle *Handle
	engine *present.Engine
}

// Render draws and presents one frame. dc passed to draw is scaled to
// logical pixels.
func (r *Renderer) Render(ctx context.Context, draw present.DrawFunc) (present.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return present.Skipped, err
	}
	return r.engine.Render(draw)
}

// Stats returns the engine's counters.
func (r *Renderer) Stats() present.Stats { return r.engine.Stats() }

// State returns the engine's lifecycle state.
func (r *Renderer) State() present.State { return r.engine.State() }

// Extent returns the physical size of the current swapchain.
func (r *Renderer) Extent() gputypes.Extent3D { return r.engine.Extent() }

// Snapshot returns the logical size and scale of the frame being drawn.
// Draw callbacks should size their content from it rather than from
// Handle.Geometry, which may already hold a newer configure.
func (r *Renderer) Snapshot() geometry.Snapshot { return r.engine.Snapshot() }

// Detach waits for the device to go idle and releases every resource.
// The surface stays registered and a new backend may be attached. Called
// from the draw callback it returns present.ErrDetachDeferred.
func (r *Renderer) Detach() error {
	h := r.handle
	h.mu.Lock()
	if h.renderer == r {
		h.renderer = nil
	}
	h.mu.Unlock()
	if p, ok := h.rec.Presenter(); ok && p == r.engine {
		return h.rec.Detach()
	}
	return r.engine.Detach()
}
