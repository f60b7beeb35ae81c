// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"fmt"

	"github.com/gogpu/layershell/geometry"
)

// Viewport controls how a surface's buffer maps to its on-screen area.
//
// The source rectangle selects a region of the buffer in buffer pixels; the
// destination size is the surface size in logical pixels. The compositor
// scales the source region to the destination.
type Viewport interface {
	SetSource(x, y, width, height float64) error
	SetDestination(width, height int32) error
}

// SyncViewport points v at a buffer of the snapshot's physical size shown at
// its logical size. Empty sizes are skipped since the protocol rejects them.
func SyncViewport(v Viewport, s geometry.Snapshot) error {
	if v == nil {
		return nil
	}
	phys := s.Physical()
	if phys.Empty() || s.Logical.Empty() {
		return nil
	}
	if s.Logical.Width > MaxDimension || s.Logical.Height > MaxDimension {
		return fmt.Errorf("surface: viewport destination %v exceeds %d", s.Logical, MaxDimension)
	}
	if err := v.SetSource(0, 0, float64(phys.Width), float64(phys.Height)); err != nil {
		return fmt.Errorf("surface: viewport source: %w", err)
	}
	if err := v.SetDestination(int32(s.Logical.Width), int32(s.Logical.Height)); err != nil {
		return fmt.Errorf("surface: viewport destination: %w", err)
	}
	return nil
}
