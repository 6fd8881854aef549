package lockfreemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// TestHeavyUsage reproduces original_source/src/lib.rs's test_heavy_usage:
// many goroutines each repeatedly picking insert/remove/get against a
// small, bounded key universe, checking only that every observed value is
// one some goroutine could legally have written — never a value from
// outside the key's legal range, which would indicate a torn or corrupted
// write. Seeded deterministically so a failure reproduces.
func TestHeavyUsage(t *testing.T) {
	const keyUniverse = 64
	const goroutines = 24
	const opsPerGoroutine = 2000

	m := New[int, int](WithCapacity[int](8))

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			guard := m.Pin()
			defer guard.Release()

			for i := 0; i < opsPerGoroutine; i++ {
				key := int(rng.Intn(keyUniverse))
				switch rng.Intn(3) {
				case 0:
					m.Insert(guard, key, key*1000+int(seed%1000))
				case 1:
					m.Remove(guard, key)
				case 2:
					if v, ok := m.Get(guard, key); ok {
						require.Equal(t, key, v/1000, "value %d doesn't belong to key %d", v, key)
					}
				}
			}
		}(uint64(1000 + g))
	}
	wg.Wait()

	guard := m.Pin()
	defer guard.Release()
	for _, k := range m.Keys(guard) {
		v, ok := m.Get(guard, k)
		require.True(t, ok)
		require.Equal(t, k, v/1000, "final snapshot: value %d doesn't belong to key %d", v, k)
	}
}

// TestResizeStressDeterministic inserts a large, deterministically
// shuffled key set into a tiny initial capacity so many resizes are
// forced back-to-back, then verifies every key survived with its
// original value (original_source's test_resize, generalized from a
// fixed sequence to a seeded random permutation).
func TestResizeStressDeterministic(t *testing.T) {
	const n = 5000
	rng := rand.New(rand.NewSource(42))
	perm := rng.Perm(n)

	m := New[int, int](WithCapacity[int](2))
	guard := m.Pin()
	defer guard.Release()

	for _, k := range perm {
		m.Insert(guard, k, k*2)
	}
	require.Equal(t, n, m.Len())

	for _, k := range perm {
		v, ok := m.Get(guard, k)
		require.True(t, ok)
		require.Equal(t, k*2, v)
	}
}
