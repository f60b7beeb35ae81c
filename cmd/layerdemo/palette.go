// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"iter"

	"github.com/gogpu/gg"
)

// defaultPalette is cycled by the demo bar.
var defaultPalette = []gg.RGBA{
	gg.Hex("#423e3b"),
	gg.Hex("#ff2e00"),
	gg.Hex("#fea82f"),
	gg.Hex("#5448c8"),
}

// cycle yields colors fading from each palette entry to the next over
// transition frames, wrapping around forever.
func cycle(palette []gg.RGBA, transition int) iter.Seq[gg.RGBA] {
	transition = max(transition, 1)
	return func(yield func(gg.RGBA) bool) {
		if len(palette) == 0 {
			return
		}
		for i := 0; ; i = (i + 1) % len(palette) {
			a, b := palette[i], palette[(i+1)%len(palette)]
			for step := range transition {
				if !yield(a.Lerp(b, float64(step)/float64(transition))) {
					return
				}
			}
		}
	}
}
