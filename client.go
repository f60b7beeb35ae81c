// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/input"
	"github.com/gogpu/layershell/present"
	"github.com/gogpu/layershell/surface"
)

// BackendFactory creates the presentation device for a registered
// surface. See package backend for the registry of named factories.
type BackendFactory = backend.Factory

// Client owns the layer surfaces of one compositor connection.
//
// The compositor side calls the callback methods (Configure,
// PreferredScale, Closed, the output and seat methods, the input entry
// points); the host registers surfaces, attaches backends and renders.
// Callbacks and rendering may run on different goroutines.
type Client struct {
	conn     Conn
	opts     options
	log      *slog.Logger
	registry *surface.Registry
	router   *input.Router

	mu      sync.Mutex
	handles map[surface.ID]*Handle
	outputs []string
	closed  bool
}

// NewClient creates a client on conn.
func NewClient(conn Conn, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}
	return &Client{
		conn:     conn,
		opts:     o,
		log:      log,
		registry: surface.NewRegistry(),
		router:   input.NewRouter(input.WithLogger(log)),
		handles:  make(map[surface.ID]*Handle),
	}
}

// Register creates a layer surface from spec and waits for the compositor
// to process its first commit. When Register returns, any size the
// compositor assigned has been applied to the surface geometry.
func (c *Client) Register(ctx context.Context, spec surface.LayerSpec) (*Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if c.isClosed() {
		return nil, ErrClientClosed
	}

	id, vp, err := c.conn.CreateLayerSurface(spec)
	if err != nil {
		return nil, fmt.Errorf("layershell: create surface %q: %w", spec.Namespace, err)
	}
	ls := surface.NewLayerSurface(id, spec, vp)
	rec, err := c.registry.Register(ls)
	if err != nil {
		// The identity belongs to a live surface; leave it alone.
		return nil, fmt.Errorf("layershell: register %v: %w: %w", id, ErrProtocol, err)
	}
	h := &Handle{
		client: c,
		rec:    rec,
		surf:   ls,
		done:   make(chan struct{}),
	}
	c.mu.Lock()
	c.handles[id] = h
	c.mu.Unlock()

	if err := surface.SyncViewport(vp, ls.Geometry().Snapshot()); err != nil {
		c.log.Warn("initial viewport sync failed", "id", id, "err", err)
	}
	if err := c.conn.Commit(id); err != nil {
		_ = c.Unregister(id)
		return nil, fmt.Errorf("layershell: commit %v: %w", id, err)
	}
	if err := c.conn.Roundtrip(ctx); err != nil {
		_ = c.Unregister(id)
		return nil, fmt.Errorf("layershell: roundtrip for %v: %w", id, err)
	}

	c.log.Info("surface registered",
		"id", id,
		"namespace", spec.Namespace,
		"layer", spec.Layer,
		"size", ls.Geometry().Logical())
	return h, nil
}

// Lookup returns the handle of a registered surface.
func (c *Client) Lookup(id surface.ID) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[id]
	return h, ok
}

// Surfaces returns the registered identities in ascending order.
func (c *Client) Surfaces() []surface.ID {
	return c.registry.IDs()
}

// Unregister detaches the surface's renderer, waiting for the device to
// go idle, and then destroys the surface.
func (c *Client) Unregister(id surface.ID) error {
	c.mu.Lock()
	h, ok := c.handles[id]
	delete(c.handles, id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownSurface, id)
	}

	c.router.Forget(h.surf)
	detachErr := c.registry.Unregister(id)
	if errors.Is(detachErr, present.ErrDetachDeferred) {
		// Unregistered from the draw callback: the frame detaches the
		// engine once the callback returns.
		c.log.Debug("detach deferred to end of frame", "id", id)
		detachErr = nil
	}
	h.close()
	destroyErr := c.conn.DestroySurface(id)
	if destroyErr != nil {
		destroyErr = fmt.Errorf("layershell: destroy %v: %w", id, destroyErr)
	}
	c.log.Info("surface unregistered", "id", id)
	return errors.Join(detachErr, destroyErr)
}

// Close unregisters every surface. The client cannot register surfaces
// afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, id := range c.registry.IDs() {
		if err := c.Unregister(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// handle resolves id for an incoming event. Events for unknown surfaces
// are dropped: they race with unregistration.
func (c *Client) handle(id surface.ID, event string) (*Handle, bool) {
	h, ok := c.Lookup(id)
	if !ok {
		c.log.Warn("event for unknown surface dropped", "id", id, "event", event)
	}
	return h, ok
}

// Configure applies a compositor size assignment. A zero dimension keeps
// the current value of that dimension.
func (c *Client) Configure(id surface.ID, width, height uint32) {
	h, ok := c.handle(id, "configure")
	if !ok {
		return
	}
	if width > surface.MaxDimension || height > surface.MaxDimension {
		c.log.Warn("configure with oversized dimension dropped", "id", id, "width", width, "height", height)
		return
	}
	geom := h.surf.Geometry()
	size := geom.Logical()
	if width != 0 {
		size.Width = width
	}
	if height != 0 {
		size.Height = height
	}
	geom.Resize(size)
	h.syncViewport()
	c.log.Debug("surface configured", "id", id, "size", size)
}

// PreferredScale applies the compositor's preferred fractional scale.
// The factor is in 120ths; 0 clears the scale.
func (c *Client) PreferredScale(id surface.ID, f geometry.ScaleFactor) {
	h, ok := c.handle(id, "preferred_scale")
	if !ok {
		return
	}
	h.surf.Geometry().Rescale(f)
	h.syncViewport()
	c.log.Debug("surface scale changed", "id", id, "scale", f)
}

// Closed handles the compositor closing a surface. The surface is
// unregistered and its handle's Done channel is closed.
func (c *Client) Closed(id surface.ID) {
	if _, ok := c.handle(id, "closed"); !ok {
		return
	}
	if err := c.Unregister(id); err != nil {
		c.log.Warn("unregister after close failed", "id", id, "err", err)
	}
}

// OutputAdded records an output announced by the compositor.
func (c *Client) OutputAdded(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.outputs, name) {
		c.outputs = append(c.outputs, name)
	}
	c.log.Debug("output added", "name", name)
}

// OutputRemoved forgets an output.
func (c *Client) OutputRemoved(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = slices.DeleteFunc(c.outputs, func(o string) bool { return o == name })
	c.log.Debug("output removed", "name", name)
}

// Outputs returns the names of the known outputs in announcement order.
func (c *Client) Outputs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.outputs)
}

// SeatCapabilityAdded enables routing for a seat device class.
func (c *Client) SeatCapabilityAdded(capability input.Capability) {
	c.router.CapabilityAdded(capability)
}

// SeatCapabilityRemoved disables routing for a seat device class.
func (c *Client) SeatCapabilityRemoved(capability input.Capability) {
	c.router.CapabilityRemoved(capability)
}

// Capabilities returns the current seat capabilities.
func (c *Client) Capabilities() input.Capability {
	return c.router.Capabilities()
}
