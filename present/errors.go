// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import "errors"

// Staleness reported by devices. The engine recovers from these by
// rebuilding the swapchain and never returns them from Render.
var (
	// ErrOutOfDate means the swapchain no longer matches its surface and
	// cannot be presented to.
	ErrOutOfDate = errors.New("present: swapchain out of date")

	// ErrSuboptimal means the swapchain can still present but no longer
	// matches the surface exactly.
	ErrSuboptimal = errors.New("present: swapchain suboptimal")
)

// Capability and resource errors. They are fatal to the affected surface.
var (
	// ErrUnsupportedFormat is returned by Attach when the device cannot
	// present BGRA8 images.
	ErrUnsupportedFormat = errors.New("present: required pixel format unsupported")

	// ErrResourceCreation wraps device allocation failures.
	ErrResourceCreation = errors.New("present: resource creation failed")
)

// ErrDeviceLost is returned when the device stopped responding, including
// fence waits that hit their timeout. The engine is unusable afterwards
// except for Detach.
var ErrDeviceLost = errors.New("present: device lost")

// ErrTimeout is returned by Device.WaitFence and Swapchain.AcquireNextImage
// when the timeout expires. The engine reports it as ErrDeviceLost.
var ErrTimeout = errors.New("present: wait timed out")

// Lifecycle errors.
var (
	ErrNotAttached     = errors.New("present: no device attached")
	ErrAlreadyAttached = errors.New("present: device already attached")
	ErrDetached        = errors.New("present: engine detached")
)

// Errors for engine calls made from a draw callback.
var (
	// ErrInDraw is returned by Render and Attach when called from the
	// engine's own draw callback.
	ErrInDraw = errors.New("present: called from the draw callback")

	// ErrDetachDeferred is returned by Detach while a draw callback runs.
	// The engine detaches when the callback returns.
	ErrDetachDeferred = errors.New("present: detach deferred until the draw callback returns")
)
