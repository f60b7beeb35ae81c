// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software implements a CPU presentation device.
//
// Importing the package registers it as the "software" backend with
// priority 10. Presented images are converted to BGRA8 and passed to the
// target's backend.Sink.
//
// The device validates the synchronization it is driven with: a submit
// must wait on a signaled semaphore, a fence must be reset before it is
// submitted again, and every resource must be released before Destroy.
// Misuse is recorded and can be inspected with Violations, which makes the
// device suitable for testing presentation loops:
//
//	dev := software.New(backend.Target{Sink: sink})
//	dev.SetSurfaceExtent(800, 600) // swapchains of other sizes go stale
//	dev.MarkSuboptimal()           // next acquire reports suboptimal
//	dev.Hang()                     // fences stop signaling
package software
