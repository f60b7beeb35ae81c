// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/internal/logging"
)

// RequiredFormat is the only swapchain format the engine renders to.
const RequiredFormat = gputypes.TextureFormatBGRA8Unorm

// DrawFunc draws one frame. dc is scaled so that coordinates are logical
// pixels. Returning an error aborts the frame without submitting it.
type DrawFunc func(dc *gg.Context) error

// State is the lifecycle state of an Engine.
type State uint8

// Engine states.
const (
	StateUninitialized State = iota
	StateReady
	StateRecreatePending
	StateDestroyed
)

var stateNames = [...]string{"uninitialized", "ready", "recreate-pending", "destroyed"}

// String implements fmt.Stringer.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Outcome reports what a Render call did.
type Outcome uint8

// Render outcomes.
const (
	// Presented means the frame was drawn, submitted and presented.
	Presented Outcome = iota
	// Recreated means the swapchain was rebuilt and nothing was drawn.
	Recreated
	// Skipped means nothing was drawn, for example while the surface has
	// no size yet.
	Skipped
	// Aborted means the draw callback failed and nothing was submitted.
	Aborted
)

var outcomeNames = [...]string{"presented", "recreated", "skipped", "aborted"}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Stats counts engine activity.
type Stats struct {
	// Builds counts swapchain builds, including the first.
	Builds int
	// Recreations counts builds after the first.
	Recreations int
	// Presents counts frames handed to the compositor.
	Presents int
	// Dropped counts Render calls that returned without presenting.
	Dropped int
}

// element is the per-image state of the swapchain.
type element struct {
	image  Image
	view   ImageView
	target *gg.Context

	// start is signaled when the acquired image may be written and end
	// when rendering to it completed.
	start Semaphore
	end   Semaphore

	// fence guards reuse of this element's submission.
	fence Fence

	// lastUsed is the fence of the submission that last wrote this image.
	lastUsed Fence
}

// Engine drives one surface's swapchain through acquire, draw, submit and
// present.
//
// An Engine does not start goroutines; the caller's loop calls Render once
// per frame. Render and Detach are serialized by the engine. State, Stats
// and Extent never wait for a frame and may be called from the draw
// callback.
type Engine struct {
	opts options
	log  *slog.Logger
	geom *geometry.State

	// mu is held for a whole frame.
	mu         sync.Mutex
	dev        Device
	caps       Capabilities
	sc         Swapchain
	elems      []*element
	frame      int
	snap       geometry.Snapshot
	suboptimal bool
	lost       error
	built      bool

	// info is what the accessors read.
	info struct {
		sync.Mutex
		state  State
		stats  Stats
		extent gputypes.Extent3D
		snap   geometry.Snapshot
	}

	// draw tracks a running draw callback and a Detach requested by it.
	drawState struct {
		sync.Mutex
		drawing       bool
		detachPending bool
	}
}

// NewEngine creates an engine for a surface with the given geometry.
// No device is attached yet.
func NewEngine(geom *geometry.State, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		opts: o,
		log:  logging.OrNop(o.logger),
		geom: geom,
	}
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	e.info.Lock()
	defer e.info.Unlock()
	return e.info.state
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() Stats {
	e.info.Lock()
	defer e.info.Unlock()
	return e.info.stats
}

// Extent returns the physical size of the current swapchain.
func (e *Engine) Extent() gputypes.Extent3D {
	e.info.Lock()
	defer e.info.Unlock()
	return e.info.extent
}

// Snapshot returns the geometry the current swapchain was built for.
// Inside the draw callback it is the geometry of the frame being drawn.
func (e *Engine) Snapshot() geometry.Snapshot {
	e.info.Lock()
	defer e.info.Unlock()
	return e.info.snap
}

func (e *Engine) setState(st State) {
	e.info.Lock()
	e.info.state = st
	e.info.Unlock()
}

func (e *Engine) update(fn func(st *State, stats *Stats)) {
	e.info.Lock()
	fn(&e.info.state, &e.info.stats)
	e.info.Unlock()
}

// dropped counts a frame that was not presented and moves to st.
func (e *Engine) dropped(st State) {
	e.update(func(s *State, stats *Stats) {
		*s = st
		stats.Dropped++
	})
}

func (e *Engine) drawing() bool {
	e.drawState.Lock()
	defer e.drawState.Unlock()
	return e.drawState.drawing
}

// Attach binds dev to the engine and builds the first swapchain at the
// surface's current physical size.
//
// It fails with ErrUnsupportedFormat if dev cannot present BGRA8 images,
// or with an error wrapping ErrResourceCreation if allocation fails. On
// failure the engine stays uninitialized and the caller keeps ownership
// of dev. On success the engine owns dev and destroys it in Detach.
func (e *Engine) Attach(dev Device) error {
	if e.drawing() {
		return ErrInDraw
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.State() {
	case StateDestroyed:
		return ErrDetached
	case StateUninitialized:
	default:
		return ErrAlreadyAttached
	}

	caps, err := dev.Capabilities()
	if err != nil {
		return fmt.Errorf("%w: capabilities: %w", ErrResourceCreation, err)
	}
	if !slices.Contains(caps.Formats, RequiredFormat) {
		return fmt.Errorf("%w: device offers %v", ErrUnsupportedFormat, caps.Formats)
	}

	e.dev = dev
	e.caps = caps
	e.geom.ConsumeIfDirty(nil)
	if err := e.build(e.geom.Snapshot()); err != nil {
		e.teardown()
		e.dev = nil
		return err
	}
	if e.sc == nil {
		e.setState(StateRecreatePending)
	} else {
		e.setState(StateReady)
	}
	e.log.Info("presentation attached",
		"label", e.opts.label,
		"extent", sizeOf(e.Extent()),
		"images", len(e.elems))
	return nil
}

// Render draws and presents one frame.
//
// It returns without drawing when geometry changed since the previous call
// or the swapchain went stale; the caller simply calls Render again on the
// next frame. An error from draw is returned after discarding the frame.
// ErrDeviceLost is sticky.
//
// Calling Render from its own draw callback returns ErrInDraw.
func (e *Engine) Render(draw DrawFunc) (Outcome, error) {
	if e.drawing() {
		return Skipped, ErrInDraw
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.State()
	switch {
	case state == StateUninitialized:
		return Skipped, ErrNotAttached
	case state == StateDestroyed:
		return Skipped, ErrDetached
	case e.lost != nil:
		return Skipped, e.lost
	}

	// Geometry is polled here, once per frame, so that any number of
	// changes since the previous frame cost one rebuild.
	snap, dirty := e.pollGeometry()
	if dirty || state == StateRecreatePending || e.suboptimal {
		return e.recreate(snap)
	}

	cur := e.elems[e.frame]
	timeout := e.opts.fenceTimeout

	if err := e.dev.WaitFence(cur.fence, timeout); err != nil {
		return Skipped, e.deviceLost("wait frame fence", err)
	}

	index, err := e.sc.AcquireNextImage(timeout, cur.start)
	switch {
	case err == nil:
	case errors.Is(err, ErrSuboptimal):
		// Still presentable; rebuild on the next frame.
		e.suboptimal = true
	case errors.Is(err, ErrOutOfDate):
		e.log.Debug("acquire out of date", "label", e.opts.label)
		e.setState(StateRecreatePending)
		e.geom.ConsumeIfDirty(func(s geometry.Snapshot) { snap = s })
		return e.recreate(snap)
	case errors.Is(err, ErrTimeout):
		return Skipped, e.deviceLost("acquire", err)
	default:
		e.dropped(StateRecreatePending)
		return Skipped, fmt.Errorf("present: acquire: %w", err)
	}
	if int(index) >= len(e.elems) {
		e.dropped(StateRecreatePending)
		return Skipped, fmt.Errorf("present: acquired index %d of %d images", index, len(e.elems))
	}

	img := e.elems[index]
	if img.lastUsed != nil && img.lastUsed != cur.fence {
		if err := e.dev.WaitFence(img.lastUsed, timeout); err != nil {
			return Skipped, e.deviceLost("wait image fence", err)
		}
	}
	img.lastUsed = cur.fence

	detach, err := e.draw(img.target, draw)
	if detach {
		e.update(func(_ *State, stats *Stats) { stats.Dropped++ })
		if err := e.detach(); err != nil {
			return Aborted, err
		}
		return Aborted, ErrDetached
	}
	if err != nil {
		// The start semaphore is signaled and nothing will wait on it,
		// so the synchronization objects are rebuilt before reuse.
		e.dropped(StateRecreatePending)
		return Aborted, fmt.Errorf("present: draw: %w", err)
	}

	if err := e.dev.ResetFence(cur.fence); err != nil {
		return Skipped, e.deviceLost("reset fence", err)
	}
	sub := &Submission{
		Wait:   cur.start,
		Signal: cur.end,
		Fence:  cur.fence,
		Target: img.view,
		Pixels: img.target.ResizeTarget().Data(),
		Extent: e.Extent(),
	}
	if err := e.dev.Submit(sub); err != nil {
		return Skipped, e.deviceLost("submit", err)
	}

	err = e.sc.Present(index, cur.end)
	e.frame = (e.frame + 1) % len(e.elems)
	switch {
	case err == nil:
		e.update(func(_ *State, stats *Stats) { stats.Presents++ })
		return Presented, nil
	case errors.Is(err, ErrSuboptimal):
		e.update(func(_ *State, stats *Stats) { stats.Presents++ })
		e.suboptimal = true
		return Presented, nil
	case errors.Is(err, ErrOutOfDate):
		e.dropped(StateRecreatePending)
		return Skipped, nil
	default:
		e.dropped(StateRecreatePending)
		return Skipped, fmt.Errorf("present: present: %w", err)
	}
}

// Detach waits for the device to go idle, releases every swapchain
// resource and destroys the device. The engine cannot be used afterwards.
// Detach is idempotent.
//
// While a draw callback runs, Detach returns ErrDetachDeferred at once and
// the frame's Render call detaches the engine when the callback returns,
// without submitting the frame.
func (e *Engine) Detach() error {
	e.drawState.Lock()
	if e.drawState.drawing {
		e.drawState.detachPending = true
		e.drawState.Unlock()
		return ErrDetachDeferred
	}
	e.drawState.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detach()
}

// detach is Detach with mu held.
func (e *Engine) detach() error {
	switch e.State() {
	case StateDestroyed:
		return nil
	case StateUninitialized:
		e.setState(StateDestroyed)
		return nil
	}

	var idleErr error
	if err := e.dev.WaitIdle(); err != nil {
		idleErr = fmt.Errorf("%w: wait idle: %w", ErrDeviceLost, err)
		e.log.Warn("wait idle failed during detach", "label", e.opts.label, "err", err)
	}
	e.teardown()
	e.dev.Destroy()
	e.dev = nil
	e.setState(StateDestroyed)
	e.log.Info("presentation detached", "label", e.opts.label)
	return idleErr
}

// pollGeometry consumes pending geometry changes.
func (e *Engine) pollGeometry() (geometry.Snapshot, bool) {
	var snap geometry.Snapshot
	if e.geom.ConsumeIfDirty(func(s geometry.Snapshot) { snap = s }) {
		return snap, true
	}
	return e.geom.Snapshot(), false
}

// recreate rebuilds the swapchain for snap after the device is idle.
func (e *Engine) recreate(snap geometry.Snapshot) (Outcome, error) {
	e.dropped(StateRecreatePending)

	if e.sc != nil {
		if err := e.dev.WaitIdle(); err != nil {
			return Skipped, e.deviceLost("wait idle", err)
		}
	}
	if err := e.build(snap); err != nil {
		return Skipped, err
	}
	if e.sc == nil {
		return Skipped, nil
	}
	e.setState(StateReady)
	return Recreated, nil
}

// build replaces the swapchain and all elements with ones sized for snap.
// The device must be idle. An empty physical size leaves no swapchain.
func (e *Engine) build(snap geometry.Snapshot) error {
	phys := snap.Physical()
	old := e.sc
	e.destroyElements()
	e.suboptimal = false
	e.frame = 0

	if phys.Empty() {
		if old != nil {
			e.dev.DestroySwapchain(old)
			e.sc = nil
		}
		e.snap = snap
		e.setFrame(snap, gputypes.Extent3D{})
		e.log.Debug("surface has no size, swapchain deferred", "label", e.opts.label)
		return nil
	}

	extent := gputypes.Extent3D{Width: phys.Width, Height: phys.Height, DepthOrArrayLayers: 1}
	sc, err := e.dev.CreateSwapchain(&SwapchainDescriptor{
		Label:          e.opts.label,
		Format:         RequiredFormat,
		Extent:         extent,
		ImageCount:     e.imageCount(),
		CompositeAlpha: CompositeAlphaPremultiplied,
		Old:            old,
	})
	if old != nil {
		e.dev.DestroySwapchain(old)
		e.sc = nil
	}
	if err != nil {
		return fmt.Errorf("%w: swapchain %v: %w", ErrResourceCreation, phys, err)
	}
	e.sc = sc

	images := sc.Images()
	if len(images) == 0 {
		return fmt.Errorf("%w: swapchain has no images", ErrResourceCreation)
	}
	for i, img := range images {
		el, err := e.newElement(img, phys)
		if err != nil {
			return fmt.Errorf("%w: image %d: %w", ErrResourceCreation, i, err)
		}
		e.elems = append(e.elems, el)
	}

	e.snap = snap
	recreated := e.built
	e.info.Lock()
	e.info.extent = extent
	e.info.snap = snap
	e.info.stats.Builds++
	if recreated {
		e.info.stats.Recreations++
	}
	e.info.Unlock()
	e.built = true
	e.log.Debug("swapchain built",
		"label", e.opts.label,
		"extent", phys,
		"logical", snap.Logical,
		"scale", snap.Factor(),
		"images", len(e.elems))
	return nil
}

func (e *Engine) newElement(img Image, phys geometry.Size) (*element, error) {
	el := &element{image: img}
	var err error
	defer func() {
		if err != nil {
			e.destroyElement(el)
		}
	}()

	if el.view, err = e.dev.CreateImageView(img); err != nil {
		return nil, err
	}
	if el.start, err = e.dev.CreateSemaphore(); err != nil {
		return nil, err
	}
	if el.end, err = e.dev.CreateSemaphore(); err != nil {
		return nil, err
	}
	// Signaled so the first wait on a fresh element returns at once.
	if el.fence, err = e.dev.CreateFence(true); err != nil {
		return nil, err
	}
	el.target = gg.NewContext(int(phys.Width), int(phys.Height))
	return el, nil
}

func (e *Engine) setFrame(snap geometry.Snapshot, ext gputypes.Extent3D) {
	e.info.Lock()
	e.info.snap = snap
	e.info.extent = ext
	e.info.Unlock()
}

// draw runs fn against target scaled to logical units. detach reports
// that Detach was called while fn ran.
func (e *Engine) draw(target *gg.Context, fn DrawFunc) (detach bool, err error) {
	target.Identity()
	target.ClearWithColor(e.opts.clearColor)
	if fn == nil {
		return false, nil
	}

	f := e.snap.Factor()
	target.Push()
	target.Scale(f, f)
	e.drawState.Lock()
	e.drawState.drawing = true
	e.drawState.Unlock()
	defer func() {
		e.drawState.Lock()
		e.drawState.drawing = false
		detach = e.drawState.detachPending
		e.drawState.detachPending = false
		e.drawState.Unlock()
	}()
	err = fn(target)
	target.Pop()
	if err != nil {
		return false, err
	}
	return false, target.FlushGPU()
}

func (e *Engine) imageCount() uint32 {
	n := e.opts.imageCount
	if n == 0 {
		n = e.caps.MinImageCount + 1
	}
	if n < e.caps.MinImageCount {
		n = e.caps.MinImageCount
	}
	if e.caps.MaxImageCount > 0 && n > e.caps.MaxImageCount {
		n = e.caps.MaxImageCount
	}
	if n == 0 {
		n = 1
	}
	return n
}

// deviceLost records a fatal device error.
func (e *Engine) deviceLost(op string, err error) error {
	if errors.Is(err, ErrDeviceLost) {
		e.lost = fmt.Errorf("present: %s: %w", op, err)
	} else {
		e.lost = fmt.Errorf("%w: %s: %w", ErrDeviceLost, op, err)
	}
	e.log.Error("device lost", "label", e.opts.label, "op", op, "err", err)
	return e.lost
}

// teardown destroys all elements and the swapchain.
func (e *Engine) teardown() {
	e.destroyElements()
	if e.sc != nil {
		e.dev.DestroySwapchain(e.sc)
		e.sc = nil
	}
}

func (e *Engine) destroyElements() {
	for _, el := range e.elems {
		e.destroyElement(el)
	}
	e.elems = nil
}

func (e *Engine) destroyElement(el *element) {
	if el.target != nil {
		_ = el.target.Close()
	}
	if el.fence != nil {
		e.dev.DestroyFence(el.fence)
	}
	if el.end != nil {
		e.dev.DestroySemaphore(el.end)
	}
	if el.start != nil {
		e.dev.DestroySemaphore(el.start)
	}
	if el.view != nil {
		e.dev.DestroyImageView(el.view)
	}
	*el = element{}
}

func sizeOf(ext gputypes.Extent3D) geometry.Size {
	return geometry.Size{Width: ext.Width, Height: ext.Height}
}
