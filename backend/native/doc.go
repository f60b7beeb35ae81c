// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package native presents through a gogpu/wgpu HAL device owned by the
// host application.
//
// Swapchain images are HAL textures. Each frame is uploaded with a queue
// texture write and handed to a Compositor, which shows the texture on
// screen or samples it into the host's own frame:
//
//	native.Register(provider, native.CompositorFunc(func(p native.Presentation) error {
//		return host.Show(p.Target.Surface.ID(), p.View)
//	}))
//
// provider is the host's gpucontext.DeviceProvider; it must also expose
// HalDevice() any and HalQueue() any. Register makes the device available
// to backend.OpenBest with a higher priority than the software backend.
package native
