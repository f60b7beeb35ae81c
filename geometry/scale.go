// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package geometry

import (
	"fmt"
	"math"
)

// Denominator is the fixed denominator of a ScaleFactor.
// A compositor advertising a preferred scale of 1.5 sends 180.
const Denominator = 120

// ScaleFactor is a fractional display scale expressed as a numerator over
// Denominator. The zero value is not a valid scale.
type ScaleFactor uint32

// Identity is the 1:1 scale factor.
const Identity ScaleFactor = Denominator

// FromFloat converts a floating point scale to the nearest ScaleFactor.
// It returns an error for non-positive, NaN or infinite values.
func FromFloat(f float64) (ScaleFactor, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, f)
	}
	n := math.Round(f * Denominator)
	if n < 1 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, f)
	}
	return ScaleFactor(n), nil
}

// Valid reports whether the factor can be used to scale sizes.
func (f ScaleFactor) Valid() bool { return f > 0 }

// Float64 returns the factor as a floating point multiplier.
func (f ScaleFactor) Float64() float64 {
	return float64(f) / Denominator
}

// Scale multiplies a logical dimension by the factor, rounding to the
// nearest integer with ties away from zero.
func (f ScaleFactor) Scale(dim uint32) uint32 {
	// dim*f/120 rounded half up; unsigned so half up is away from zero.
	v := (uint64(dim)*uint64(f) + Denominator/2) / Denominator
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// Unscale divides a physical dimension by the factor with the same rounding
// as Scale. An invalid factor returns dim unchanged.
func (f ScaleFactor) Unscale(dim uint32) uint32 {
	if f == 0 {
		return dim
	}
	num := 2*uint64(dim)*Denominator + uint64(f)
	v := num / (2 * uint64(f))
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// String implements fmt.Stringer.
func (f ScaleFactor) String() string {
	return fmt.Sprintf("%d/%d", uint32(f), Denominator)
}
