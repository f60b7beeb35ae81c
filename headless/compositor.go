// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package headless is an in-process compositor implementing
// layershell.Conn.
//
// It places layer surfaces on one virtual output, answers the first
// commit of each surface with a configure, and keeps the last frame each
// surface presented through the software backend. Snapshot composes that
// frame through the surface viewport the way a real compositor would
// show it.
//
//	comp := headless.New(headless.WithOutput("HEADLESS-1", 1280, 720))
//	client := comp.NewClient()
//	h, _ := client.Register(ctx, spec)
//	r, _ := h.AttachBackendNamed(backend.BackendSoftware)
//	r.Render(ctx, draw)
//	img, _ := comp.Snapshot(h.ID())
package headless

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell"
	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/internal/logging"
	"github.com/gogpu/layershell/internal/pixfmt"
	"github.com/gogpu/layershell/surface"
)

// Default virtual output.
const (
	DefaultOutputName   = "HEADLESS-1"
	DefaultOutputWidth  = 1920
	DefaultOutputHeight = 1080
)

// Option configures a Compositor.
type Option func(*Compositor)

// WithOutput sets the virtual output's name and logical size.
func WithOutput(name string, width, height uint32) Option {
	return func(c *Compositor) {
		c.output = name
		c.outSize = geometry.Size{Width: width, Height: height}
	}
}

// WithScale makes the compositor send a preferred scale, in 120ths, to
// every new surface.
func WithScale(f geometry.ScaleFactor) Option {
	return func(c *Compositor) {
		c.scale = f
	}
}

// WithLogger sets the compositor logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compositor) {
		c.log = logging.OrNop(l)
	}
}

// Compositor is an in-process layer shell compositor. It is safe for
// concurrent use.
type Compositor struct {
	output  string
	outSize geometry.Size
	scale   geometry.ScaleFactor
	log     *slog.Logger

	mu       sync.Mutex
	client   *layershell.Client
	nextID   surface.ID
	surfaces map[surface.ID]*layer
	queue    []func(*layershell.Client)
}

// layer is the compositor-side state of one surface.
type layer struct {
	spec       surface.LayerSpec
	vp         *viewport
	configured bool
	size       geometry.Size

	frame  *image.RGBA
	frames int
}

// New creates a compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		output:   DefaultOutputName,
		outSize:  geometry.Size{Width: DefaultOutputWidth, Height: DefaultOutputHeight},
		log:      logging.Nop(),
		surfaces: make(map[surface.ID]*layer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient creates a client connected to the compositor and announces the
// virtual output to it.
func (c *Compositor) NewClient(opts ...layershell.Option) *layershell.Client {
	client := layershell.NewClient(c, opts...)
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	client.OutputAdded(c.output)
	return client
}

// Display implements layershell.Conn. The headless compositor has no native
// display handle.
func (c *Compositor) Display() uintptr { return 0 }

// CreateLayerSurface implements layershell.Conn.
func (c *Compositor) CreateLayerSurface(spec surface.LayerSpec) (surface.ID, surface.Viewport, error) {
	if spec.Output != "" && spec.Output != c.output {
		return 0, nil, fmt.Errorf("headless: unknown output %q", spec.Output)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	l := &layer{spec: spec, vp: &viewport{}}
	c.surfaces[id] = l
	c.log.Debug("layer surface created", "id", id, "namespace", spec.Namespace)
	return id, l.vp, nil
}

// Commit implements layershell.Conn. The first commit of a surface is
// answered with a configure, and with the preferred scale if one is set.
func (c *Compositor) Commit(id surface.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.surfaces[id]
	if !ok {
		return fmt.Errorf("headless: commit: %w: %v", layershell.ErrUnknownSurface, id)
	}
	if l.configured {
		return nil
	}
	l.configured = true
	l.size = c.place(l.spec)
	size, scale := l.size, c.scale
	c.queue = append(c.queue, func(client *layershell.Client) {
		client.Configure(id, size.Width, size.Height)
	})
	if scale.Valid() {
		c.queue = append(c.queue, func(client *layershell.Client) {
			client.PreferredScale(id, scale)
		})
	}
	return nil
}

// place computes the size of a surface on the output. A zero dimension
// spans the output between the surface's margins.
func (c *Compositor) place(spec surface.LayerSpec) geometry.Size {
	size := spec.Size
	if size.Width == 0 {
		size.Width = span(c.outSize.Width, spec.Margin.Left, spec.Margin.Right)
	}
	if size.Height == 0 {
		size.Height = span(c.outSize.Height, spec.Margin.Top, spec.Margin.Bottom)
	}
	return size
}

func span(total uint32, a, b int32) uint32 {
	v := int64(total) - int64(max(a, 0)) - int64(max(b, 0))
	return uint32(max(v, 1))
}

// Roundtrip implements layershell.Conn by dispatching every queued event.
func (c *Compositor) Roundtrip(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.mu.Lock()
		queue := c.queue
		c.queue = nil
		client := c.client
		c.mu.Unlock()
		if len(queue) == 0 {
			return nil
		}
		if client == nil {
			return fmt.Errorf("headless: no client bound")
		}
		for _, ev := range queue {
			ev(client)
		}
	}
}

// DestroySurface implements layershell.Conn.
func (c *Compositor) DestroySurface(id surface.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.surfaces[id]; !ok {
		return fmt.Errorf("headless: destroy: %w: %v", layershell.ErrUnknownSurface, id)
	}
	delete(c.surfaces, id)
	c.log.Debug("layer surface destroyed", "id", id)
	return nil
}

// FrameSink implements layershell.FrameSinker. Presented frames replace the
// surface's last frame.
func (c *Compositor) FrameSink(id surface.ID) backend.Sink {
	return backend.SinkFunc(func(f backend.Frame) {
		c.present(id, f)
	})
}

func (c *Compositor) present(id surface.ID, f backend.Frame) {
	img := image.NewRGBA(image.Rect(0, 0, int(f.Width), int(f.Height)))
	var err error
	switch f.Format {
	case gputypes.TextureFormatBGRA8Unorm:
		err = pixfmt.SwapRB(img.Pix, f.Pix)
	case gputypes.TextureFormatRGBA8Unorm:
		copy(img.Pix, f.Pix)
	default:
		err = fmt.Errorf("unsupported format %v", f.Format)
	}
	if err != nil {
		c.log.Warn("frame dropped", "id", id, "err", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.surfaces[id]
	if !ok {
		c.log.Warn("frame for destroyed surface dropped", "id", id)
		return
	}
	l.frame = img
	l.frames++
}

// Configure sends a new size for a surface. 0 keeps a dimension.
func (c *Compositor) Configure(id surface.ID, width, height uint32) {
	c.emit(func(client *layershell.Client) { client.Configure(id, width, height) })
}

// SetPreferredScale sends a preferred scale for a surface.
func (c *Compositor) SetPreferredScale(id surface.ID, f geometry.ScaleFactor) {
	c.emit(func(client *layershell.Client) { client.PreferredScale(id, f) })
}

// CloseSurface closes a surface from the compositor side, as when its
// output disappears.
func (c *Compositor) CloseSurface(id surface.ID) {
	c.emit(func(client *layershell.Client) { client.Closed(id) })
}

func (c *Compositor) emit(ev func(*layershell.Client)) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		ev(client)
	}
}

// Output returns the virtual output's name and logical size.
func (c *Compositor) Output() (string, geometry.Size) {
	return c.output, c.outSize
}

// Surfaces returns the live surface identities in ascending order.
func (c *Compositor) Surfaces() []surface.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]surface.ID, 0, len(c.surfaces))
	for id := range c.surfaces {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Frames returns the number of frames a surface presented.
func (c *Compositor) Frames(id surface.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.surfaces[id]; ok {
		return l.frames
	}
	return 0
}

// Viewport returns the viewport state of a surface.
func (c *Compositor) Viewport(id surface.ID) (ViewportState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.surfaces[id]
	if !ok {
		return ViewportState{}, false
	}
	return l.vp.state(), true
}

// Frame returns a copy of the last frame a surface presented, in buffer
// pixels.
func (c *Compositor) Frame(id surface.ID) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, err := c.presented(id)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(l.frame.Rect)
	copy(out.Pix, l.frame.Pix)
	return out, nil
}

// Snapshot composes the last frame of a surface through its viewport: the
// source rectangle of the buffer is scaled to the destination size. The
// result is in logical pixels.
func (c *Compositor) Snapshot(id surface.ID) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, err := c.presented(id)
	if err != nil {
		return nil, err
	}
	vs := l.vp.state()
	src := l.frame.Rect
	dst := image.Rect(0, 0, src.Dx(), src.Dy())
	if vs.SourceSet {
		src = vs.Source.Intersect(l.frame.Rect)
	}
	if vs.DestinationSet {
		dst = image.Rect(0, 0, int(vs.Destination.Width), int(vs.Destination.Height))
	}
	out := image.NewRGBA(dst)
	xdraw.NearestNeighbor.Scale(out, dst, l.frame, src, xdraw.Src, nil)
	return out, nil
}

func (c *Compositor) presented(id surface.ID) (*layer, error) {
	l, ok := c.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("headless: %w: %v", layershell.ErrUnknownSurface, id)
	}
	if l.frame == nil {
		return nil, fmt.Errorf("headless: %v has not presented", id)
	}
	return l, nil
}
