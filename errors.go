// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell

import (
	"errors"

	"github.com/gogpu/layershell/input"
	"github.com/gogpu/layershell/surface"
)

// ErrProtocol marks contract violations by the compositor or the host:
// unknown touch points and duplicate surface identities. Routing state
// cannot be trusted after one.
var ErrProtocol = input.ErrProtocol

// ErrUnknownSurface is returned for operations on unregistered surfaces.
var ErrUnknownSurface = surface.ErrNotRegistered

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New("layershell: client closed")

// ErrSurfaceClosed is returned by operations on a Handle whose surface was
// unregistered or closed by the compositor.
var ErrSurfaceClosed = errors.New("layershell: surface closed")
