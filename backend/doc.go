// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backend provides a pluggable registry of presentation devices.
//
// A backend turns a Target (compositor connection plus registered surface)
// into a present.Device. Two backends ship with layershell:
//
//   - software: a CPU device that hands frames to a Sink (priority 10)
//   - native: a gogpu/wgpu HAL device built from a host's
//     gpucontext.DeviceProvider (priority 100, registered explicitly)
//
// # Backend Registration
//
// The software backend registers itself on import:
//
//	import _ "github.com/gogpu/layershell/backend/software"
//
// # Backend Selection
//
// Use OpenBest to get the best available backend, or Open to request a
// specific backend by name:
//
//	dev, err := backend.OpenBest(target)
//
//	dev, err := backend.Open("software", target)
//
// Named and Best return the same operations as Factory values, ready to be
// passed to Handle.AttachBackend.
package backend
