// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/layershell/geometry"
)

// ViewportState is what a client last set on a surface viewport.
type ViewportState struct {
	// Source is the buffer region shown, in buffer pixels.
	Source    image.Rectangle
	SourceSet bool

	// Destination is the on-screen size, in logical pixels.
	Destination    geometry.Size
	DestinationSet bool
}

type viewport struct {
	mu sync.Mutex
	st ViewportState
}

// SetSource implements surface.Viewport. Fractional rectangles are
// rounded to whole buffer pixels.
func (v *viewport) SetSource(x, y, width, height float64) error {
	if x < 0 || y < 0 || width <= 0 || height <= 0 {
		return fmt.Errorf("headless: invalid viewport source %gx%g+%g+%g", width, height, x, y)
	}
	r := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+width)), int(math.Round(y+height)),
	)
	v.mu.Lock()
	v.st.Source = r
	v.st.SourceSet = true
	v.mu.Unlock()
	return nil
}

// SetDestination implements surface.Viewport.
func (v *viewport) SetDestination(width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("headless: invalid viewport destination %dx%d", width, height)
	}
	v.mu.Lock()
	v.st.Destination = geometry.Size{Width: uint32(width), Height: uint32(height)}
	v.st.DestinationSet = true
	v.mu.Unlock()
	return nil
}

func (v *viewport) state() ViewportState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.st
}
