// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package geometry tracks the logical size and fractional scale of a surface.
//
// A State is written by compositor event handlers and polled once per frame
// by the presentation engine:
//
//	st := geometry.NewState(geometry.Size{Width: 1920, Height: 60})
//	st.Rescale(180) // 1.5x
//
//	st.ConsumeIfDirty(func(s geometry.Snapshot) {
//		fmt.Println(s.Physical()) // 2880x90
//	})
//
// Several changes between two polls are delivered as one.
package geometry
