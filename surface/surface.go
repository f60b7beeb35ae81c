// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"strconv"
	"sync"

	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/input"
)

// ID is the compositor-assigned identity of a surface. It is opaque and
// stable for the surface's lifetime.
type ID uint64

// String implements fmt.Stringer.
func (id ID) String() string { return "surface#" + strconv.FormatUint(uint64(id), 10) }

// Surface is the capability set every registered surface kind provides.
type Surface interface {
	input.Target

	// ID returns the compositor identity.
	ID() ID

	// Viewport returns the buffer-to-surface mapping control.
	Viewport() Viewport

	// Geometry returns the surface's size and scale state.
	Geometry() *geometry.State
}

// LayerSurface is a Surface created from a LayerSpec.
//
// Input handlers may be replaced at any time; events delivered concurrently
// with a replacement go to either the old or the new handler.
type LayerSurface struct {
	id       ID
	spec     LayerSpec
	viewport Viewport
	geom     *geometry.State

	mu       sync.RWMutex
	keyboard input.KeyboardHandler
	pointer  input.PointerHandler
	touch    input.TouchHandler
}

// NewLayerSurface creates a LayerSurface. The geometry starts at the
// requested size without a scale.
func NewLayerSurface(id ID, spec LayerSpec, vp Viewport) *LayerSurface {
	return &LayerSurface{
		id:       id,
		spec:     spec,
		viewport: vp,
		geom:     geometry.NewState(spec.Size),
	}
}

// ID implements Surface.
func (s *LayerSurface) ID() ID { return s.id }

// Viewport implements Surface.
func (s *LayerSurface) Viewport() Viewport { return s.viewport }

// Geometry implements Surface.
func (s *LayerSurface) Geometry() *geometry.State { return s.geom }

// Spec returns the layer parameters the surface was created with.
func (s *LayerSurface) Spec() LayerSpec { return s.spec }

// KeyboardHandler implements input.Target.
func (s *LayerSurface) KeyboardHandler() input.KeyboardHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyboard
}

// PointerHandler implements input.Target.
func (s *LayerSurface) PointerHandler() input.PointerHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pointer
}

// TouchHandler implements input.Target.
func (s *LayerSurface) TouchHandler() input.TouchHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touch
}

// SetKeyboardHandler sets the keyboard handler. nil drops keyboard events.
func (s *LayerSurface) SetKeyboardHandler(h input.KeyboardHandler) {
	s.mu.Lock()
	s.keyboard = h
	s.mu.Unlock()
}

// SetPointerHandler sets the pointer handler. nil drops pointer events.
func (s *LayerSurface) SetPointerHandler(h input.PointerHandler) {
	s.mu.Lock()
	s.pointer = h
	s.mu.Unlock()
}

// SetTouchHandler sets the touch handler. nil drops touch events.
func (s *LayerSurface) SetTouchHandler(h input.TouchHandler) {
	s.mu.Lock()
	s.touch = h
	s.mu.Unlock()
}
