// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package input

// KeyboardHandler receives keyboard events for a surface.
type KeyboardHandler interface {
	Enter(e KeyboardEnter)
	Leave(serial uint32)
	Key(e KeyEvent)
	Modifiers(m Modifiers)
}

// PointerHandler receives pointer events for a surface.
type PointerHandler interface {
	Pointer(e PointerEvent)
}

// TouchHandler receives touch events for a surface.
type TouchHandler interface {
	Down(e TouchDown)
	Up(e TouchUp)
	Motion(e TouchMotion)
	Shape(e TouchShape)
	Orientation(e TouchOrientation)
	// Cancel is called once per surface holding at least one active touch
	// when the compositor takes over the touch sequence.
	Cancel()
}

// Target is a surface that can receive input.
//
// Each accessor returns nil when the surface does not handle that device;
// events for a nil handler are dropped. Targets are compared with ==, so
// implementations should be pointer types.
type Target interface {
	KeyboardHandler() KeyboardHandler
	PointerHandler() PointerHandler
	TouchHandler() TouchHandler
}

// KeyboardFunc adapts a function receiving keys into a KeyboardHandler.
// Focus and modifier events are ignored.
type KeyboardFunc func(e KeyEvent)

func (f KeyboardFunc) Enter(KeyboardEnter) {}
func (f KeyboardFunc) Leave(uint32)        {}
func (f KeyboardFunc) Key(e KeyEvent)      { f(e) }
func (f KeyboardFunc) Modifiers(Modifiers) {}

// PointerFunc adapts a function into a PointerHandler.
type PointerFunc func(e PointerEvent)

func (f PointerFunc) Pointer(e PointerEvent) { f(e) }
