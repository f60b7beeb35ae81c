// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package present drives a surface's swapchain.
//
// An Engine owns one Device and the swapchain built on it. Every swapchain
// image gets a gg drawing context of the surface's physical size, two
// semaphores and a fence. Each Render call:
//
//  1. polls the surface geometry and, if it changed, waits for the device
//     to go idle, rebuilds the swapchain and returns without drawing;
//  2. waits for the current element's fence;
//  3. acquires an image, rebuilding on ErrOutOfDate and scheduling a
//     rebuild on ErrSuboptimal;
//  4. waits for the last submission that wrote the acquired image;
//  5. clears the image and calls the DrawFunc with a context scaled to
//     logical units;
//  6. submits the pixels and presents the image;
//  7. advances to the next element.
//
// A typical frame loop:
//
//	e := present.NewEngine(surf.Geometry())
//	if err := e.Attach(dev); err != nil {
//		return err
//	}
//	defer e.Detach()
//
//	for running {
//		_, err := e.Render(func(dc *gg.Context) error {
//			dc.SetRGB(0.2, 0.4, 0.8)
//			dc.DrawRectangle(0, 0, 1920, 60)
//			return dc.Fill()
//		})
//		if err != nil {
//			return err
//		}
//	}
//
// Staleness (ErrOutOfDate, ErrSuboptimal) is handled inside Render and is
// never returned. ErrUnsupportedFormat and ErrResourceCreation are fatal to
// the surface. ErrDeviceLost is fatal to the engine: every later Render
// returns it, and only Detach is still meaningful.
package present
