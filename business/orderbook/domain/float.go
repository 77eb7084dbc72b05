package domain

import "math"

// totalOrderKey maps f onto a uint64 that sorts in the same order as
// IEEE-754's totalOrder predicate: ascending key order matches ascending
// float order, including across -0/+0 and signed infinities, without ever
// branching on a partial (NaN-producing) comparison.
func totalOrderKey(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// CompareTotalOrder returns -1, 0, or 1 comparing a and b under the total
// order on float64 bit patterns. Used everywhere the merge engine and its
// priority queues need a strict, deterministic ordering that never takes
// the NaN-is-unordered branch of the built-in comparison operators.
func CompareTotalOrder(a, b float64) int {
	ka, kb := totalOrderKey(a), totalOrderKey(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

// IsFiniteNonNegative reports whether f is finite, not NaN, and >= 0 — the
// invariant required of every raw PriceLevel field on input.
func IsFiniteNonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
