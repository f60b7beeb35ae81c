// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/internal/logging"
	"github.com/gogpu/layershell/present"
)

// Errors returned when resolving a device provider.
var (
	// ErrNilProvider is returned when no provider is given.
	ErrNilProvider = errors.New("native: nil device provider")

	// ErrNoHAL is returned when the provider does not expose HAL objects.
	ErrNoHAL = errors.New("native: provider does not expose hal.Device and hal.Queue")

	// ErrNilCompositor is returned when no compositor is given.
	ErrNilCompositor = errors.New("native: nil compositor")
)

// halDevice is the part of hal.Device the presentation device uses.
type halDevice interface {
	CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error)
	DestroyTexture(t hal.Texture)
	CreateTextureView(t hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error)
	DestroyTextureView(v hal.TextureView)
}

// halQueue is the part of hal.Queue the presentation device uses.
type halQueue interface {
	Submit(buffers []hal.CommandBuffer) (uint64, error)
	PollCompleted() uint64
	WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error
}

// pollInterval bounds how long a fence wait sleeps between queue polls.
const pollInterval = time.Millisecond

// Presentation is one image handed to the compositor.
type Presentation struct {
	Target  backend.Target
	Index   uint32
	Texture hal.Texture
	View    hal.TextureView
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat
}

// Compositor displays presented textures. It runs on the render
// goroutine and may return present.ErrOutOfDate or present.ErrSuboptimal.
type Compositor interface {
	PresentTexture(p Presentation) error
}

// CompositorFunc adapts a function into a Compositor.
type CompositorFunc func(p Presentation) error

// PresentTexture implements Compositor.
func (fn CompositorFunc) PresentTexture(p Presentation) error { return fn(p) }

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.log = logging.OrNop(l)
	}
}

// WithIdleTimeout bounds WaitIdle. Non-positive values and the default
// wait without a bound, like present.NoTimeout.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(d *Device) {
		if timeout <= 0 {
			timeout = present.NoTimeout
		}
		d.idleTimeout = timeout
	}
}

// Device presents through a gogpu/wgpu HAL device shared with the host.
//
// Swapchain images are textures owned by the device. Every frame's pixels
// are uploaded with a queue write followed by a submission; a
// present.Fence is the submission index the queue returned, and waiting on
// it polls the queue until that index completed. The queue executes in
// order, so semaphores only record the protocol.
type Device struct {
	mu          sync.Mutex
	log         *slog.Logger
	target      backend.Target
	device      halDevice
	queue       halQueue
	compositor  Compositor
	format      gputypes.TextureFormat
	idleTimeout time.Duration

	submitted uint64
	destroyed bool
}

// halProvider is implemented by gogpu device providers that expose their
// HAL objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// New creates a device on the HAL device and queue of provider. The
// provider is usually a gpucontext.DeviceProvider from a gogpu host that
// also implements HalDevice() any and HalQueue() any.
func New(provider any, comp Compositor, t backend.Target, opts ...Option) (*Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if comp == nil {
		return nil, ErrNilCompositor
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}

	d := newDevice(device, queue, comp, t, opts...)
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		d.log.Debug("native device attached to provider", "surface_format", dp.SurfaceFormat())
	}
	return d, nil
}

// FromProvider is New for a typed gogpu device provider.
func FromProvider(p gpucontext.DeviceProvider, comp Compositor, t backend.Target, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	return New(p, comp, t, opts...)
}

func newDevice(device halDevice, queue halQueue, comp Compositor, t backend.Target, opts ...Option) *Device {
	d := &Device{
		log:         logging.Nop(),
		target:      t,
		device:      device,
		queue:       queue,
		compositor:  comp,
		format:      present.RequiredFormat,
		idleTimeout: present.NoTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register registers the native backend with priority 100. The backend
// is available once provider is non-nil; each opened device presents
// through comp.
func Register(provider any, comp Compositor, opts ...Option) {
	backend.Register(backend.BackendNative, 100, func(t backend.Target) (present.Device, error) {
		return New(provider, comp, t, opts...)
	}, func() bool {
		return provider != nil
	})
}

// Capabilities implements present.Device.
func (d *Device) Capabilities() (present.Capabilities, error) {
	return present.Capabilities{
		MinImageCount: 2,
		MaxImageCount: 3,
		Formats:       []gputypes.TextureFormat{d.format},
	}, nil
}

type semaphore struct {
	signaled bool
}

// CreateSemaphore implements present.Device.
func (d *Device) CreateSemaphore() (present.Semaphore, error) {
	return &semaphore{}, nil
}

// DestroySemaphore implements present.Device.
func (d *Device) DestroySemaphore(present.Semaphore) {}

// fence is a queue submission index. value 0 means nothing is pending:
// either nothing was submitted since the fence was reset, or the queue
// completed the work synchronously.
type fence struct {
	value    uint64
	signaled bool
}

// CreateFence implements present.Device.
func (d *Device) CreateFence(signaled bool) (present.Fence, error) {
	return &fence{signaled: signaled}, nil
}

// DestroyFence implements present.Device.
func (d *Device) DestroyFence(present.Fence) {}

// WaitFence implements present.Device.
func (d *Device) WaitFence(f present.Fence, timeout time.Duration) error {
	fe, ok := f.(*fence)
	if !ok {
		return fmt.Errorf("native: wait on foreign fence %T", f)
	}
	if fe.value == 0 {
		if fe.signaled {
			return nil
		}
		return errors.New("native: wait on fence that was never submitted")
	}
	return d.waitSubmission(fe.value, timeout)
}

// ResetFence implements present.Device.
func (d *Device) ResetFence(f present.Fence) error {
	fe, ok := f.(*fence)
	if !ok {
		return fmt.Errorf("native: reset of foreign fence %T", f)
	}
	fe.value = 0
	fe.signaled = false
	return nil
}

// waitSubmission polls the queue until submission index completed.
// timeout present.NoTimeout waits forever.
func (d *Device) waitSubmission(index uint64, timeout time.Duration) error {
	if d.queue.PollCompleted() >= index {
		return nil
	}
	var deadline <-chan time.Time
	if timeout < present.NoTimeout {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			if d.queue.PollCompleted() >= index {
				return nil
			}
			return fmt.Errorf("native: submission %d: %w", index, present.ErrTimeout)
		case <-tick.C:
			if d.queue.PollCompleted() >= index {
				return nil
			}
		}
	}
}

// Submit implements present.Device. The pixels are converted to BGRA,
// written to the target texture and fenced with the next timeline value.
func (d *Device) Submit(s *present.Submission) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return errDestroyed
	}
	fe, ok := s.Fence.(*fence)
	if !ok {
		return fmt.Errorf("native: submit with foreign fence %T", s.Fence)
	}
	v, ok := s.Target.(*view)
	if !ok {
		return fmt.Errorf("native: submit to foreign view %T", s.Target)
	}
	if sem, ok := s.Wait.(*semaphore); ok {
		sem.signaled = false
	}

	if err := v.img.stage(s.Pixels, s.Extent); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: v.img.texture, MipLevel: 0, Aspect: gputypes.TextureAspectAll},
		v.img.staging,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  s.Extent.Width * 4,
			RowsPerImage: s.Extent.Height,
		},
		&hal.Extent3D{Width: s.Extent.Width, Height: s.Extent.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: write texture %d: %w", v.img.index, err)
	}

	index, err := d.queue.Submit(nil)
	if err != nil {
		return fmt.Errorf("native: queue submit: %w", err)
	}
	if index > d.submitted {
		d.submitted = index
	}
	fe.value = index
	fe.signaled = index == 0
	if sem, ok := s.Signal.(*semaphore); ok {
		sem.signaled = true
	}
	return nil
}

// WaitIdle implements present.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	last := d.submitted
	d.mu.Unlock()

	if last == 0 {
		return nil
	}
	return d.waitSubmission(last, d.idleTimeout)
}

// Destroy implements present.Device.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyed = true
}

var errDestroyed = errors.New("native: device destroyed")
