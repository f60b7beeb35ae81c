// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package input

import "time"

// Capability is a bit set of seat input devices.
type Capability uint8

// Seat capabilities.
const (
	CapPointer Capability = 1 << iota
	CapKeyboard
	CapTouch
)

// Has reports whether all bits of c2 are set in c.
func (c Capability) Has(c2 Capability) bool { return c&c2 == c2 }

// String implements fmt.Stringer.
func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if c.Has(CapPointer) {
		add("pointer")
	}
	if c.Has(CapKeyboard) {
		add("keyboard")
	}
	if c.Has(CapTouch) {
		add("touch")
	}
	return s
}

// KeyState is the state of a key or button.
type KeyState uint8

// Key and button states.
const (
	Released KeyState = iota
	Pressed
)

// Modifiers is the xkb modifier state delivered with keyboard focus changes.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// KeyEvent is a key press or release. Code is the evdev scancode.
type KeyEvent struct {
	Serial uint32
	Time   time.Duration
	Code   uint32
	State  KeyState
}

// KeyboardEnter is delivered when a surface gains keyboard focus.
type KeyboardEnter struct {
	Serial uint32
	// Pressed holds the keys already down when focus arrived.
	Pressed []uint32
}

// PointerKind identifies the variant of a PointerEvent.
type PointerKind uint8

// Pointer event kinds.
const (
	PointerEnter PointerKind = iota
	PointerLeave
	PointerMotion
	PointerButton
	PointerAxis
	// PointerRelative is unaccelerated relative motion, delivered
	// independently of the absolute position.
	PointerRelative
)

var pointerKindNames = [...]string{"enter", "leave", "motion", "button", "axis", "relative"}

// String implements fmt.Stringer.
func (k PointerKind) String() string {
	if int(k) < len(pointerKindNames) {
		return pointerKindNames[k]
	}
	return "unknown"
}

// Axis is a scroll axis.
type Axis uint8

// Scroll axes.
const (
	AxisVertical Axis = iota
	AxisHorizontal
)

// PointerEvent is one pointer event. Positions are surface-local logical
// coordinates.
type PointerEvent struct {
	Kind   PointerKind
	Serial uint32
	Time   time.Duration
	X, Y   float64

	// Button and State are set for PointerButton.
	Button uint32
	State  KeyState

	// Axis and Value are set for PointerAxis.
	Axis  Axis
	Value float64

	// DX and DY are set for PointerRelative. The unaccelerated deltas
	// are in DXRaw and DYRaw.
	DX, DY       float64
	DXRaw, DYRaw float64
}

// TouchDown starts a touch point.
type TouchDown struct {
	Serial uint32
	Time   time.Duration
	ID     int32
	X, Y   float64
}

// TouchUp ends a touch point.
type TouchUp struct {
	Serial uint32
	Time   time.Duration
	ID     int32
}

// TouchMotion moves a touch point.
type TouchMotion struct {
	Time time.Duration
	ID   int32
	X, Y float64
}

// TouchShape describes the contact ellipse of a touch point.
type TouchShape struct {
	ID           int32
	Major, Minor float64
}

// TouchOrientation describes the angle of a touch point's contact ellipse.
type TouchOrientation struct {
	ID          int32
	Orientation float64
}
