// Package rng provides the seeded scalar generator behind strum order,
// humanization and velocity jitter.
//
// Scalar is not cryptographic. A given arrangement seed renders identically
// on every run; the value depends on IEEE-754 float64 arithmetic and
// math.Sin, so changing either changes every render.
package rng

import (
	"math"
	"unicode/utf16"
)

const sineScale = 10000

// Scalar returns frac(sin(seed) * 10000), a value in [0, 1).
func Scalar(seed int) float64 {
	s := math.Sin(float64(seed)) * sineScale
	return s - math.Floor(s)
}

// FirstCode returns the first UTF-16 code unit of id, or 0 for an empty id.
func FirstCode(id string) int {
	units := utf16.Encode([]rune(id))
	if len(units) == 0 {
		return 0
	}
	return int(units[0])
}

// LastCode returns the last UTF-16 code unit of id, or 0 for an empty id.
func LastCode(id string) int {
	units := utf16.Encode([]rune(id))
	if len(units) == 0 {
		return 0
	}
	return int(units[len(units)-1])
}

// ChordSeeds derives the per-chord sub-seeds from the arrangement seed.
//
// The mapping is part of the reproducibility contract:
//
//	strum    = seed + first UTF-16 code unit of chordID
//	humanize = seed + last UTF-16 code unit of chordID
func ChordSeeds(seed int, chordID string) (strum, humanize int) {
	return seed + FirstCode(chordID), seed + LastCode(chordID)
}

// Permutation returns a Fisher-Yates shuffle of 0..n-1 driven by
// Scalar(seed+i) for i from n-1 down to 1.
func Permutation(n, seed int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(math.Floor(Scalar(seed+i) * float64(i+1)))
		order[i], order[j] = order[j], order[i]
	}
	return order
}
