// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/layershell/internal/logging"
)

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(logging.Nop())
}

// SetLogger configures the default logger for clients created afterwards
// that were not given one with WithLogger. By default layershell produces
// no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by layershell:
//   - [slog.LevelDebug]: per-frame diagnostics (swapchain rebuild extents)
//   - [slog.LevelInfo]: lifecycle events (surface registered, backend attached)
//   - [slog.LevelWarn]: recovered problems (events for unknown surfaces)
//
// Example:
//
//	layershell.SetLogger(slog.New(layershell.NewElapsedHandler(os.Stderr, slog.LevelDebug)))
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(logging.OrNop(l))
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// NewElapsedHandler returns a text handler that prefixes every record with
// the seconds elapsed since the handler was created:
//
//	[   0.001234] INFO surface registered id=surface#1
func NewElapsedHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return logging.NewElapsedHandler(w, level)
}
