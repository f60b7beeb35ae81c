// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package layershell renders gg drawings into compositor layer surfaces:
// panels, bars, overlays and wallpapers anchored to the edges of an
// output.
//
// # Overview
//
// A [Client] owns the layer surfaces of one compositor connection ([Conn]).
// The host registers a surface from a [surface.LayerSpec], attaches a
// rendering backend to it and draws frames:
//
//	c := layershell.NewClient(conn, layershell.WithLogger(logger))
//	h, err := c.Register(ctx, surface.LayerSpec{
//		Namespace: "bar",
//		Layer:     surface.LayerTop,
//		Anchor:    surface.AnchorTop | surface.AnchorLeft | surface.AnchorRight,
//		Size:      geometry.Size{Height: 32},
//	})
//	if err != nil {
//		return err
//	}
//	r, err := h.AttachBestBackend()
//	if err != nil {
//		return err
//	}
//	_, err = r.Render(ctx, func(dc *gg.Context) error {
//		dc.SetRGB(0.1, 0.1, 0.1)
//		dc.DrawRectangle(0, 0, 200, 32)
//		return dc.Fill()
//	})
//
// # Geometry
//
// Surfaces are sized in logical pixels. The compositor may assign a
// fractional preferred scale, expressed in 120ths; the swapchain is then
// built at the physical size and the surface viewport maps it back to the
// logical size. Size and scale changes arrive through [Client.Configure]
// and [Client.PreferredScale] and are applied by the next frame.
//
// # Input
//
// The connection forwards seat events to the client's input entry points.
// Keyboard events follow focus, pointer events go to the surface they
// target and touch points stay with the surface they started on. Handlers
// are installed on [Handle.Surface].
//
// # Backends
//
// Devices come from package backend. The software backend is always
// available and presents CPU frames to connections implementing
// [FrameSinker]. The native backend submits through a wgpu HAL device and
// is registered by the host with backend/native.Register.
//
// # Logging
//
// The package is silent by default. See [SetLogger] and [WithLogger].
package layershell
