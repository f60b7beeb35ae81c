// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package input

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/layershell/internal/logging"
)

// Errors.
var (
	// ErrProtocol marks events that contradict the compositor's own
	// protocol contract. Routing state is no longer trustworthy after it.
	ErrProtocol = errors.New("input: protocol violation")

	// ErrUnknownTouch is returned for touch events naming a touch point
	// that was never put down or has already been lifted.
	ErrUnknownTouch = errors.New("input: unknown touch point")
)

// UnknownTouchError reports a touch event for an inactive touch point.
// It matches both ErrUnknownTouch and ErrProtocol.
type UnknownTouchError struct {
	ID    int32
	Event string
}

func (e *UnknownTouchError) Error() string {
	return fmt.Sprintf("input: touch %s for unknown touch point %d", e.Event, e.ID)
}

// Unwrap returns the sentinel errors matched by e.
func (e *UnknownTouchError) Unwrap() []error {
	return []error{ErrUnknownTouch, ErrProtocol}
}

// RouterOption configures a Router.
type RouterOption func(*routerOptions)

type routerOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for dropped events and focus changes.
func WithLogger(l *slog.Logger) RouterOption {
	return func(o *routerOptions) {
		o.logger = l
	}
}

// Router delivers seat events to the surface that owns them.
//
// Keyboard events go to the surface holding keyboard focus, touch events to
// the surface where the touch point went down, and pointer events to the
// surface named in the event. Handlers are called without the router's lock
// held, in the order events arrive.
type Router struct {
	log *slog.Logger

	mu      sync.Mutex
	caps    Capability
	focus   Target
	touches map[int32]Target
}

// NewRouter creates a Router with no capabilities and no focus.
func NewRouter(opts ...RouterOption) *Router {
	o := routerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Router{
		log:     logging.OrNop(o.logger),
		touches: make(map[int32]Target),
	}
}

// Capabilities returns the seat capabilities currently present.
func (r *Router) Capabilities() Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caps
}

// CapabilityAdded records new seat devices.
func (r *Router) CapabilityAdded(c Capability) {
	r.mu.Lock()
	r.caps |= c
	r.mu.Unlock()
	r.log.Debug("seat capability added", "capability", c)
}

// CapabilityRemoved drops seat devices. Removing the keyboard clears focus;
// removing touch cancels every active touch point.
func (r *Router) CapabilityRemoved(c Capability) {
	r.mu.Lock()
	r.caps &^= c
	if c.Has(CapKeyboard) {
		r.focus = nil
	}
	r.mu.Unlock()
	r.log.Debug("seat capability removed", "capability", c)

	if c.Has(CapTouch) {
		r.TouchCancel()
	}
}

// Focus returns the surface holding keyboard focus.
func (r *Router) Focus() (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focus, r.focus != nil
}

// KeyboardEnter gives keyboard focus to t and forwards the event.
func (r *Router) KeyboardEnter(t Target, e KeyboardEnter) {
	if t == nil {
		return
	}
	r.mu.Lock()
	r.focus = t
	r.mu.Unlock()

	if h := t.KeyboardHandler(); h != nil {
		h.Enter(e)
	}
}

// KeyboardLeave forwards the event to t and clears focus if t holds it.
// A leave for a surface that lost focus already only reaches its handler.
func (r *Router) KeyboardLeave(t Target, serial uint32) {
	if t == nil {
		return
	}
	if h := t.KeyboardHandler(); h != nil {
		h.Leave(serial)
	}

	r.mu.Lock()
	if r.focus == t {
		r.focus = nil
	}
	r.mu.Unlock()
}

// Key forwards a key event to the focused surface. Without focus the event
// is dropped.
func (r *Router) Key(e KeyEvent) {
	h := r.keyboard()
	if h == nil {
		r.log.Debug("key dropped without focus", "code", e.Code, "state", e.State)
		return
	}
	h.Key(e)
}

// Modifiers forwards a modifier update to the focused surface. Without focus
// the event is dropped.
func (r *Router) Modifiers(m Modifiers) {
	h := r.keyboard()
	if h == nil {
		r.log.Debug("modifiers dropped without focus")
		return
	}
	h.Modifiers(m)
}

func (r *Router) keyboard() KeyboardHandler {
	r.mu.Lock()
	t := r.focus
	r.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.KeyboardHandler()
}

// Pointer forwards a pointer event to t, the surface the event names.
func (r *Router) Pointer(t Target, e PointerEvent) {
	if t == nil {
		return
	}
	if h := t.PointerHandler(); h != nil {
		h.Pointer(e)
	}
}

// TouchDown forwards the event to t and makes t the owner of e.ID.
func (r *Router) TouchDown(t Target, e TouchDown) {
	if t == nil {
		return
	}
	r.mu.Lock()
	if prev, ok := r.touches[e.ID]; ok && prev != t {
		r.log.Warn("touch point reused before release", "id", e.ID)
	}
	r.touches[e.ID] = t
	r.mu.Unlock()

	if h := t.TouchHandler(); h != nil {
		h.Down(e)
	}
}

// TouchUp forwards the event to the owner of e.ID and releases the id.
func (r *Router) TouchUp(e TouchUp) error {
	r.mu.Lock()
	t, ok := r.touches[e.ID]
	delete(r.touches, e.ID)
	r.mu.Unlock()
	if !ok {
		return &UnknownTouchError{ID: e.ID, Event: "up"}
	}
	if t == nil {
		return nil
	}
	if h := t.TouchHandler(); h != nil {
		h.Up(e)
	}
	return nil
}

// TouchMotion forwards the event to the owner of e.ID.
func (r *Router) TouchMotion(e TouchMotion) error {
	h, err := r.touchOwner(e.ID, "motion")
	if err != nil {
		return err
	}
	if h != nil {
		h.Motion(e)
	}
	return nil
}

// TouchShape forwards the event to the owner of e.ID.
func (r *Router) TouchShape(e TouchShape) error {
	h, err := r.touchOwner(e.ID, "shape")
	if err != nil {
		return err
	}
	if h != nil {
		h.Shape(e)
	}
	return nil
}

// TouchOrientation forwards the event to the owner of e.ID.
func (r *Router) TouchOrientation(e TouchOrientation) error {
	h, err := r.touchOwner(e.ID, "orientation")
	if err != nil {
		return err
	}
	if h != nil {
		h.Orientation(e)
	}
	return nil
}

func (r *Router) touchOwner(id int32, event string) (TouchHandler, error) {
	r.mu.Lock()
	t, ok := r.touches[id]
	r.mu.Unlock()
	if !ok {
		return nil, &UnknownTouchError{ID: id, Event: event}
	}
	if t == nil {
		return nil, nil
	}
	return t.TouchHandler(), nil
}

// TouchCancel notifies every surface holding an active touch point, once
// per surface, and forgets all touch points.
func (r *Router) TouchCancel() {
	r.mu.Lock()
	owners := make([]Target, 0, len(r.touches))
	seen := make(map[Target]bool, len(r.touches))
	for _, t := range r.touches {
		if t != nil && !seen[t] {
			seen[t] = true
			owners = append(owners, t)
		}
	}
	clear(r.touches)
	r.mu.Unlock()

	for _, t := range owners {
		if h := t.TouchHandler(); h != nil {
			h.Cancel()
		}
	}
}

// ActiveTouches returns the number of touch points currently down.
func (r *Router) ActiveTouches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.touches {
		if t != nil {
			n++
		}
	}
	return n
}

// Forget removes every reference to t. It is called when a surface is
// unregistered so that late events for it are not delivered. Touch points
// t owned stay known until released, so their remaining events are
// swallowed instead of being reported as unknown.
func (r *Router) Forget(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focus == t {
		r.focus = nil
	}
	for id, owner := range r.touches {
		if owner == t {
			r.touches[id] = nil
		}
	}
}
