// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/layershell/geometry"
)

// Layer is the stacking layer of a layer surface.
type Layer uint8

// Layers, bottom to top.
const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

var layerNames = [...]string{"background", "bottom", "top", "overlay"}

// String implements fmt.Stringer.
func (l Layer) String() string {
	if int(l) < len(layerNames) {
		return layerNames[l]
	}
	return fmt.Sprintf("Layer(%d)", uint8(l))
}

// ParseLayer parses a layer name as produced by Layer.String.
func ParseLayer(s string) (Layer, error) {
	for i, name := range layerNames {
		if strings.EqualFold(s, name) {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("surface: unknown layer %q", s)
}

// Anchor is a set of screen edges a layer surface is attached to.
type Anchor uint8

// Anchor edges.
const (
	AnchorTop Anchor = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

// Has reports whether every edge of a2 is in a.
func (a Anchor) Has(a2 Anchor) bool { return a&a2 == a2 }

// String implements fmt.Stringer.
func (a Anchor) String() string {
	var parts []string
	for i, name := range anchorNames {
		if a.Has(1 << i) {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

var anchorNames = [...]string{"top", "bottom", "left", "right"}

// ParseAnchor parses edge names separated by '|' or ','.
func ParseAnchor(s string) (Anchor, error) {
	var a Anchor
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' || r == ' ' })
	for _, f := range fields {
		found := false
		for i, name := range anchorNames {
			if strings.EqualFold(f, name) {
				a |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("surface: unknown anchor edge %q", f)
		}
	}
	return a, nil
}

// KeyboardInteractivity controls whether a layer surface can take focus.
type KeyboardInteractivity uint8

// Keyboard interactivity modes.
const (
	KeyboardNone KeyboardInteractivity = iota
	KeyboardExclusive
	KeyboardOnDemand
)

var interactivityNames = [...]string{"none", "exclusive", "on-demand"}

// String implements fmt.Stringer.
func (k KeyboardInteractivity) String() string {
	if int(k) < len(interactivityNames) {
		return interactivityNames[k]
	}
	return fmt.Sprintf("KeyboardInteractivity(%d)", uint8(k))
}

// ParseKeyboardInteractivity parses a mode name.
func ParseKeyboardInteractivity(s string) (KeyboardInteractivity, error) {
	for i, name := range interactivityNames {
		if strings.EqualFold(s, name) {
			return KeyboardInteractivity(i), nil
		}
	}
	return 0, fmt.Errorf("surface: unknown keyboard interactivity %q", s)
}

// Margin is the distance from each anchored edge, in logical pixels.
type Margin struct {
	Top, Right, Bottom, Left int32
}

// LayerSpec describes a layer surface to create.
type LayerSpec struct {
	// Namespace identifies the surface's purpose to the compositor.
	Namespace string

	Layer  Layer
	Anchor Anchor

	// Size is the requested logical size. A zero dimension lets the
	// compositor choose it, which requires anchoring both opposite edges.
	Size geometry.Size

	Margin        Margin
	ExclusiveZone int32
	Keyboard      KeyboardInteractivity

	// Output names the output to place the surface on. Empty lets the
	// compositor choose.
	Output string
}

// MaxDimension is the largest surface width or height the protocol
// carries; sizes travel as signed 32-bit integers.
const MaxDimension = math.MaxInt32

// ErrInvalidSpec is returned for layer specs the compositor would reject.
var ErrInvalidSpec = errors.New("surface: invalid layer spec")

// Validate checks the constraints the layer shell protocol places on a
// surface request.
func (s LayerSpec) Validate() error {
	if s.Layer > LayerOverlay {
		return fmt.Errorf("%w: layer %v", ErrInvalidSpec, s.Layer)
	}
	if s.Keyboard > KeyboardOnDemand {
		return fmt.Errorf("%w: keyboard interactivity %v", ErrInvalidSpec, s.Keyboard)
	}
	if s.Size.Width > MaxDimension || s.Size.Height > MaxDimension {
		return fmt.Errorf("%w: size %v exceeds %d", ErrInvalidSpec, s.Size, MaxDimension)
	}
	if s.Size.Width == 0 && !s.Anchor.Has(AnchorLeft|AnchorRight) {
		return fmt.Errorf("%w: zero width requires left and right anchors", ErrInvalidSpec)
	}
	if s.Size.Height == 0 && !s.Anchor.Has(AnchorTop|AnchorBottom) {
		return fmt.Errorf("%w: zero height requires top and bottom anchors", ErrInvalidSpec)
	}
	return nil
}
