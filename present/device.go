// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Opaque handles owned by a Device. Each backend defines its own concrete
// types; the engine only passes them back to the Device that created them
// and compares them with ==, so they must be comparable (pointers in
// practice).
type (
	// Semaphore orders GPU work against other GPU work.
	Semaphore interface{}

	// Fence signals the host when submitted GPU work completes.
	Fence interface{}

	// Image is a presentable image owned by a Swapchain.
	Image interface{}

	// ImageView is a render target view of an Image.
	ImageView interface{}
)

// CompositeAlpha selects how the compositor blends presented images.
type CompositeAlpha uint8

// Composite alpha modes.
const (
	// CompositeAlphaPremultiplied blends using premultiplied color,
	// which is what gg produces.
	CompositeAlphaPremultiplied CompositeAlpha = iota
	CompositeAlphaOpaque
)

// Capabilities describes what a Device can present to its surface.
type Capabilities struct {
	// MinImageCount and MaxImageCount bound the swapchain length.
	// MaxImageCount 0 means no upper bound.
	MinImageCount uint32
	MaxImageCount uint32

	// Formats lists the presentable pixel formats.
	Formats []gputypes.TextureFormat
}

// SwapchainDescriptor describes a swapchain to create.
type SwapchainDescriptor struct {
	Label          string
	Format         gputypes.TextureFormat
	Extent         gputypes.Extent3D
	ImageCount     uint32
	CompositeAlpha CompositeAlpha

	// Old is the swapchain being replaced, if any. It is still destroyed
	// by the caller after the new one is created.
	Old Swapchain
}

// Swapchain is an ordered set of presentable images.
type Swapchain interface {
	// Images returns the swapchain's images in index order.
	Images() []Image

	// AcquireNextImage returns the index of the next writable image and
	// arranges for signal to be signaled once it may be written.
	//
	// It returns ErrOutOfDate when the swapchain no longer matches the
	// surface, and a valid index together with ErrSuboptimal when the
	// image is presentable but the swapchain should be rebuilt.
	// ErrTimeout is returned if no image became available in time.
	AcquireNextImage(timeout time.Duration, signal Semaphore) (uint32, error)

	// Present queues image index for display once wait is signaled.
	// It may return ErrOutOfDate or ErrSuboptimal.
	Present(index uint32, wait Semaphore) error
}

// Submission is one frame's work: copy Pixels into Target after Wait is
// signaled, then signal Signal and Fence.
type Submission struct {
	Wait   Semaphore
	Signal Semaphore
	Fence  Fence
	Target ImageView

	// Pixels holds packed RGBA8 rows of Extent.Width pixels, as drawn by
	// gg. The device converts them to the swapchain format.
	Pixels []byte
	Extent gputypes.Extent3D
}

// Device is a presentation device bound to one surface.
//
// A Device is driven by a single Engine; the engine serializes every call.
type Device interface {
	// Capabilities reports the surface's presentation capabilities.
	Capabilities() (Capabilities, error)

	CreateSwapchain(desc *SwapchainDescriptor) (Swapchain, error)
	DestroySwapchain(sc Swapchain)

	CreateImageView(img Image) (ImageView, error)
	DestroyImageView(v ImageView)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)

	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)

	// WaitFence blocks until f is signaled. It returns ErrTimeout when
	// timeout expires first.
	WaitFence(f Fence, timeout time.Duration) error

	// ResetFence returns f to the unsignaled state.
	ResetFence(f Fence) error

	// Submit queues s for execution.
	Submit(s *Submission) error

	// WaitIdle blocks until all submitted work and presentation finished.
	WaitIdle() error

	// Destroy releases the device. All other resources must be destroyed
	// first.
	Destroy()
}
