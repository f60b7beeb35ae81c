// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package input routes seat events to the surfaces that own them.
//
// A seat multiplexes one keyboard, one pointer and one touch device across
// every surface of a client. The Router keeps the two pieces of state needed
// to pick the right surface: which surface holds keyboard focus, and which
// surface each active touch point went down on.
//
// Unknown touch points are protocol violations. The router returns an error
// matching ErrProtocol and the caller is expected to stop dispatching.
package input
