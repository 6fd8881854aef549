package table

import "math/bits"

// nextPowerOfTwo returns the smallest power of two >= n, with a floor of 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// maxProbesFor computes the reprobe cap: min(capacity, floor(log2(capacity)) + c)
// for a small constant c, per the design's probing policy.
func maxProbesFor(capacity int) int {
	const c = 6
	lg := bits.Len(uint(capacity)) - 1
	if lg < 0 {
		lg = 0
	}
	mp := lg + c
	if mp > capacity {
		mp = capacity
	}
	if mp < 1 {
		mp = 1
	}
	return mp
}

// startIndex derives the initial slot index for a hash: its low bits modulo
// capacity (capacity is always a power of two).
func (t *Table[K, V]) startIndex(hash uint64) int {
	return int(hash & uint64(t.capacity-1))
}

// nextIndex advances the open-addressing probe sequence by one.
func (t *Table[K, V]) nextIndex(idx int) int {
	return (idx + 1) & (t.capacity - 1)
}
