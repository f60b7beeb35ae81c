// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface keeps the records of compositor surfaces owned by a client.
//
// Every surface kind implements Surface, a capability set of identity,
// viewport, geometry and input handlers. LayerSurface is the kind created
// for layer shell requests described by a LayerSpec.
//
// # Registry
//
// A Registry holds one Record per live compositor identity:
//
//	reg := surface.NewRegistry()
//	rec, err := reg.Register(s)
//	if err != nil {
//		// *DuplicateError: the identity is already live.
//	}
//
//	rec.Attach(engine)
//	defer reg.Unregister(s.ID()) // detaches engine first
//
// Unregister always detaches the presentation engine before dropping the
// record, so surface resources are never destroyed under in-flight GPU work.
//
// # Viewport
//
// SyncViewport maps a buffer of the physical size onto the logical size.
// It is called whenever geometry changes, so a scale change alone is
// displayed correctly until the next frame rebuilds the buffer.
package surface
