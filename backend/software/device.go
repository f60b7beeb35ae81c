// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/internal/logging"
	"github.com/gogpu/layershell/present"
)

// ErrContract is returned when the device is driven in a way a real GPU
// driver would reject, such as waiting on a semaphore nobody signaled.
var ErrContract = errors.New("software: synchronization contract violated")

// errInjected is returned by resource creation after FailCreation.
var errInjected = errors.New("software: injected allocation failure")

// Counts reports live resources of a Device.
type Counts struct {
	Swapchains int
	Images     int
	Views      int
	Semaphores int
	Fences     int
}

// Zero reports whether no resources are alive.
func (c Counts) Zero() bool {
	return c == Counts{}
}

// Device is a CPU presentation device.
//
// Submissions are executed synchronously: pixels are converted to BGRA
// inside Submit and handed to the target's Sink on Present. Semaphores and
// fences are tracked on the host and every misuse is recorded as a
// violation.
type Device struct {
	mu     sync.Mutex
	log    *slog.Logger
	target backend.Target
	caps   present.Capabilities

	nextID    int
	live      Counts
	destroyed bool

	surfaceExtent *gputypes.Extent3D
	outOfDate     bool
	suboptimal    bool
	failNext      string

	hung    bool
	resume  chan struct{}
	pending []*fence

	presented  int
	violations []string
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.log = logging.OrNop(l)
	}
}

// WithImageCounts sets the swapchain length bounds the device reports.
func WithImageCounts(minCount, maxCount uint32) Option {
	return func(d *Device) {
		d.caps.MinImageCount = minCount
		d.caps.MaxImageCount = maxCount
	}
}

// WithFormats replaces the presentable formats the device reports.
func WithFormats(formats ...gputypes.TextureFormat) Option {
	return func(d *Device) {
		d.caps.Formats = formats
	}
}

// New creates a software device presenting to t.Sink. A nil sink discards
// presented frames.
func New(t backend.Target, opts ...Option) *Device {
	d := &Device{
		log:    logging.Nop(),
		target: t,
		caps: present.Capabilities{
			MinImageCount: 2,
			MaxImageCount: 4,
			Formats: []gputypes.TextureFormat{
				gputypes.TextureFormatBGRA8Unorm,
				gputypes.TextureFormatRGBA8Unorm,
			},
		},
		resume: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// open is the registry factory.
func open(t backend.Target) (present.Device, error) {
	return New(t), nil
}

func init() {
	backend.Register(backend.BackendSoftware, 10, open, nil)
}

// Capabilities implements present.Device.
func (d *Device) Capabilities() (present.Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return present.Capabilities{}, errDestroyed
	}
	return d.caps, nil
}

// Submit implements present.Device. The copy happens immediately; the
// fence signals at once unless the device hangs.
func (d *Device) Submit(s *present.Submission) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return errDestroyed
	}
	fe, ok := s.Fence.(*fence)
	if !ok {
		d.violate("submit: foreign fence %T", s.Fence)
		return fmt.Errorf("software: submit: %w", ErrContract)
	}
	if fe.signaled || fe.pending {
		d.violate("submit: fence %d was not reset", fe.id)
		return fmt.Errorf("software: submit: %w", ErrContract)
	}
	v, ok := s.Target.(*view)
	if !ok || v.img == nil {
		d.violate("submit: foreign or destroyed view %T", s.Target)
		return fmt.Errorf("software: submit: %w", ErrContract)
	}
	if err := d.consume(s.Wait, "submit"); err != nil {
		return err
	}
	if err := v.img.write(s.Pixels, s.Extent); err != nil {
		return fmt.Errorf("software: submit: %w", err)
	}
	d.signal(s.Signal, "submit")

	if d.hung {
		fe.pending = true
		d.pending = append(d.pending, fe)
		return nil
	}
	fe.signaled = true
	return nil
}

// WaitIdle implements present.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hung && len(d.pending) > 0 {
		return fmt.Errorf("software: wait idle: %d submissions pending: %w", len(d.pending), present.ErrTimeout)
	}
	return nil
}

// Destroy implements present.Device. Every other resource must already be
// destroyed.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return
	}
	if !d.live.Zero() {
		d.violate("destroy: resources still alive: %+v", d.live)
	}
	d.destroyed = true
	d.log.Debug("software device destroyed", "presented", d.presented)
}

// Live returns the number of resources currently alive.
func (d *Device) Live() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// Presented returns the number of images presented.
func (d *Device) Presented() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

// Violations returns the recorded contract violations.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// SetSurfaceExtent sets the size of the surface as the compositor sees
// it. Swapchains of another size report ErrOutOfDate until rebuilt.
// A zero width clears the constraint.
func (d *Device) SetSurfaceExtent(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width == 0 {
		d.surfaceExtent = nil
		return
	}
	d.surfaceExtent = &gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
}

// MarkOutOfDate makes the next acquire report ErrOutOfDate.
func (d *Device) MarkOutOfDate() {
	d.mu.Lock()
	d.outOfDate = true
	d.mu.Unlock()
}

// MarkSuboptimal makes the next acquire report ErrSuboptimal.
func (d *Device) MarkSuboptimal() {
	d.mu.Lock()
	d.suboptimal = true
	d.mu.Unlock()
}

// FailCreation makes the next creation of kind fail. kind is one of
// "swapchain", "view", "semaphore" or "fence".
func (d *Device) FailCreation(kind string) {
	d.mu.Lock()
	d.failNext = kind
	d.mu.Unlock()
}

// Hang stops fences from signaling until Resume.
func (d *Device) Hang() {
	d.mu.Lock()
	d.hung = true
	d.mu.Unlock()
}

// Resume signals every fence submitted while hung.
func (d *Device) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hung {
		return
	}
	d.hung = false
	for _, fe := range d.pending {
		fe.pending = false
		fe.signaled = true
	}
	d.pending = nil
	close(d.resume)
	d.resume = make(chan struct{})
}

var errDestroyed = errors.New("software: device destroyed")

// fail consumes an injected failure for kind. Must be called with mu held.
func (d *Device) fail(kind string) error {
	if d.destroyed {
		return errDestroyed
	}
	if d.failNext == kind {
		d.failNext = ""
		return fmt.Errorf("%s: %w", kind, errInjected)
	}
	return nil
}

// violate records a contract violation. Must be called with mu held.
func (d *Device) violate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.violations = append(d.violations, msg)
	d.log.Error("software device contract violation", "detail", msg)
}
