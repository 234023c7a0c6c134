// Package xmath collects the small generic numeric helpers that the
// teacher drivers used to hand-roll per package (see
// tmc5160/helpers.go's constrain, tmc2209/current.go's Constrain/Map).
package xmath

import "golang.org/x/exp/constraints"

// Clamp returns value bounded to [lo, hi].
func Clamp[T constraints.Ordered](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Map rescales value from [fromLo, fromHi] into [toLo, toHi].
func Map[T constraints.Float](value, fromLo, fromHi, toLo, toHi T) T {
	return (value-fromLo)*(toHi-toLo)/(fromHi-fromLo) + toLo
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// NearZero reports whether v is within eps of zero, treating floating
// point residue as exact zero.
func NearZero(v, eps float64) bool {
	return v > -eps && v < eps
}
