// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pixfmt converts between the RGBA layout drawn by gg and the
// BGRA layout of presentable images.
package pixfmt

import "fmt"

// BytesPerPixel is the size of one RGBA8 or BGRA8 pixel.
const BytesPerPixel = 4

// SwapRB copies src to dst exchanging the red and blue channels of every
// pixel. The conversion is its own inverse, so it serves both RGBA to BGRA
// and BGRA to RGBA.
//
// src and dst may be the same slice. Rows are packed: stride equals
// width*BytesPerPixel on both sides.
func SwapRB(dst, src []byte) error {
	if len(src)%BytesPerPixel != 0 {
		return fmt.Errorf("pixfmt: source length %d is not a whole number of pixels", len(src))
	}
	if len(dst) < len(src) {
		return fmt.Errorf("pixfmt: destination length %d < source length %d", len(dst), len(src))
	}
	for i := 0; i < len(src); i += BytesPerPixel {
		r, g, b, a := src[i], src[i+1], src[i+2], src[i+3]
		dst[i+0] = b
		dst[i+1] = g
		dst[i+2] = r
		dst[i+3] = a
	}
	return nil
}

// SwapRBRows is SwapRB for buffers whose rows may be padded.
func SwapRBRows(dst []byte, dstStride int, src []byte, srcStride int, width, height int) error {
	row := width * BytesPerPixel
	if srcStride < row || dstStride < row {
		return fmt.Errorf("pixfmt: stride smaller than row of %d bytes", row)
	}
	if height > 0 && (len(src) < srcStride*(height-1)+row || len(dst) < dstStride*(height-1)+row) {
		return fmt.Errorf("pixfmt: buffer too small for %dx%d", width, height)
	}
	for y := 0; y < height; y++ {
		if err := SwapRB(dst[y*dstStride:y*dstStride+row], src[y*srcStride:y*srcStride+row]); err != nil {
			return err
		}
	}
	return nil
}
