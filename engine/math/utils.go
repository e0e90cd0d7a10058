package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// AlignUp rounds v up to the next multiple of align. align must be a power of two.
func AlignUp[T constraints.Unsigned](v, align T) T {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// MipLevels returns the length of the full mip chain for a width x height image.
func MipLevels[T constraints.Unsigned](width, height T) T {
	size := Max(width, height)
	var levels T = 1
	for size > 1 {
		size >>= 1
		levels++
	}
	return levels
}
