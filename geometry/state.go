// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package geometry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrInvalidScale is returned when a scale factor cannot be represented.
var ErrInvalidScale = errors.New("geometry: invalid scale factor")

// Size is a width and height pair in either logical or physical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Empty reports whether either dimension is zero.
func (s Size) Empty() bool { return s.Width == 0 || s.Height == 0 }

// Scale returns s multiplied by f.
func (s Size) Scale(f ScaleFactor) Size {
	return Size{Width: f.Scale(s.Width), Height: f.Scale(s.Height)}
}

// String implements fmt.Stringer.
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Snapshot is a consistent view of a State.
type Snapshot struct {
	Logical  Size
	Scale    ScaleFactor
	HasScale bool
}

// Physical returns the physical size for the snapshot.
func (s Snapshot) Physical() Size {
	if !s.HasScale {
		return s.Logical
	}
	return s.Logical.Scale(s.Scale)
}

// Factor returns the drawing multiplier for the snapshot, 1 without a scale.
func (s Snapshot) Factor() float64 {
	if !s.HasScale {
		return 1
	}
	return s.Scale.Float64()
}

// State holds the geometry of one surface.
//
// Compositor event handlers write it through Resize and Rescale, and the
// presentation engine reads it once per frame through ConsumeIfDirty.
// The logical size and scale are always read together; the dirty flag is
// advisory.
type State struct {
	mu       sync.Mutex
	logical  Size
	scale    ScaleFactor
	hasScale bool

	dirty atomic.Bool
}

// NewState returns a State with the given logical size and no scale.
// The state starts dirty so the first consumer sees it.
func NewState(logical Size) *State {
	s := &State{logical: logical}
	s.dirty.Store(true)
	return s
}

// Resize replaces the logical size and marks the state dirty.
// Identical sizes are not suppressed.
func (s *State) Resize(logical Size) {
	s.mu.Lock()
	s.logical = logical
	s.mu.Unlock()
	s.dirty.Store(true)
}

// Rescale replaces the scale factor and marks the state dirty.
// A zero factor removes the scale.
func (s *State) Rescale(f ScaleFactor) {
	s.mu.Lock()
	s.scale = f
	s.hasScale = f.Valid()
	s.mu.Unlock()
	s.dirty.Store(true)
}

// Snapshot returns the logical size and scale as one consistent value.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Logical: s.logical, Scale: s.scale, HasScale: s.hasScale}
}

// Logical returns the logical size.
func (s *State) Logical() Size {
	return s.Snapshot().Logical
}

// Scale returns the scale factor and whether one is set.
func (s *State) Scale() (ScaleFactor, bool) {
	snap := s.Snapshot()
	return snap.Scale, snap.HasScale
}

// Physical returns the logical size multiplied by the scale, or the
// logical size when no scale is set.
func (s *State) Physical() Size {
	return s.Snapshot().Physical()
}

// Dirty reports whether a change is waiting to be consumed.
func (s *State) Dirty() bool { return s.dirty.Load() }

// ConsumeIfDirty calls fn once with the current snapshot if the state is
// dirty and clears the flag. It reports whether fn was called.
//
// Changes made while fn runs mark the state dirty again and are seen by the
// next call.
func (s *State) ConsumeIfDirty(fn func(Snapshot)) bool {
	if !s.dirty.CompareAndSwap(true, false) {
		return false
	}
	if fn != nil {
		fn(s.Snapshot())
	}
	return true
}
