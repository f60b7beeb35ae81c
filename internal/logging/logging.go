// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package logging holds the slog plumbing shared by layershell packages.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// ElapsedHandler writes one line per record prefixed with the seconds
// elapsed since the handler was created:
//
//	[   0.004213] DEBUG swapchain built extent=1920x60 images=3
type ElapsedHandler struct {
	start time.Time
	level slog.Leveler
	now   func() time.Time

	mu  *sync.Mutex
	w   io.Writer
	pre []slog.Attr
	grp string
}

// NewElapsedHandler returns an ElapsedHandler writing to w. Records below
// level are dropped; a nil level means slog.LevelInfo.
func NewElapsedHandler(w io.Writer, level slog.Leveler) *ElapsedHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ElapsedHandler{
		start: time.Now(),
		level: level,
		now:   time.Now,
		mu:    &sync.Mutex{},
		w:     w,
	}
}

// Enabled implements slog.Handler.
func (h *ElapsedHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *ElapsedHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = h.now()
	}
	elapsed := t.Sub(h.start).Seconds()

	buf := fmt.Appendf(nil, "[%11.6f] %s %s", elapsed, r.Level, r.Message)
	for _, a := range h.pre {
		buf = appendAttr(buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.grp, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs implements slog.Handler.
func (h *ElapsedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.pre = make([]slog.Attr, 0, len(h.pre)+len(attrs))
	h2.pre = append(h2.pre, h.pre...)
	for _, a := range attrs {
		if h.grp != "" {
			a.Key = h.grp + "." + a.Key
		}
		h2.pre = append(h2.pre, a)
	}
	return &h2
}

// WithGroup implements slog.Handler.
func (h *ElapsedHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h.grp != "" {
		name = h.grp + "." + name
	}
	h2.grp = name
	return &h2
}

func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, key, ga)
		}
		return buf
	}
	return fmt.Appendf(buf, " %s=%v", key, a.Value.Any())
}
