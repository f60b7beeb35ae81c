// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"github.com/gogpu/layershell/input"
	"github.com/gogpu/layershell/surface"
)

// KeyboardEnter gives keyboard focus to a surface.
func (c *Client) KeyboardEnter(id surface.ID, e input.KeyboardEnter) {
	if h, ok := c.handle(id, "keyboard_enter"); ok {
		c.router.KeyboardEnter(h.surf, e)
	}
}

// KeyboardLeave takes keyboard focus away from a surface.
func (c *Client) KeyboardLeave(id surface.ID, serial uint32) {
	if h, ok := c.handle(id, "keyboard_leave"); ok {
		c.router.KeyboardLeave(h.surf, serial)
	}
}

// Key delivers a key event to the focused surface.
func (c *Client) Key(e input.KeyEvent) {
	c.router.Key(e)
}

// Modifiers delivers a modifier change to the focused surface.
func (c *Client) Modifiers(m input.Modifiers) {
	c.router.Modifiers(m)
}

// Pointer delivers a pointer event to the surface it targets.
func (c *Client) Pointer(id surface.ID, e input.PointerEvent) {
	if h, ok := c.handle(id, "pointer"); ok {
		c.router.Pointer(h.surf, e)
	}
}

// TouchDown starts a touch point on a surface. Later events of the point
// go to the same surface.
func (c *Client) TouchDown(id surface.ID, e input.TouchDown) {
	if h, ok := c.handle(id, "touch_down"); ok {
		c.router.TouchDown(h.surf, e)
	}
}

// TouchUp ends a touch point. An unknown point is a protocol error.
func (c *Client) TouchUp(e input.TouchUp) error {
	return c.router.TouchUp(e)
}

// TouchMotion moves a touch point.
func (c *Client) TouchMotion(e input.TouchMotion) error {
	return c.router.TouchMotion(e)
}

// TouchShape updates the contact ellipse of a touch point.
func (c *Client) TouchShape(e input.TouchShape) error {
	return c.router.TouchShape(e)
}

// TouchOrientation updates the orientation of a touch point.
func (c *Client) TouchOrientation(e input.TouchOrientation) error {
	return c.router.TouchOrientation(e)
}

// TouchCancel cancels every active touch point.
func (c *Client) TouchCancel() {
	c.router.TouchCancel()
}
