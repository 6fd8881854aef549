// Package lockfreemap implements a lock-free, resizable, concurrent
// associative map in the style of java.util.concurrent.ConcurrentHashMap:
// CAS-based slot cells, open addressing with linear probing, and a
// cooperative, incremental resize protocol where any operation that
// notices a resize in progress helps migrate a chunk of it before
// retrying.
package lockfreemap

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/listr0ng/lockfreemap/internal/epoch"
	"github.com/listr0ng/lockfreemap/internal/table"
)

// Map is a concurrent, lock-free associative map from K to V. The zero
// value is not usable; construct one with New.
type Map[K comparable, V comparable] struct {
	head      table.Head[K, V]
	reclaimer *epoch.Reclaimer
}

// New constructs a Map, applying the given Options over sane defaults (16
// slots, a seeded xxhash-based Builder, logging disabled). Panics wrapping
// ErrInvalidCapacity or ErrNilHasher if an Option supplies a negative
// capacity or a nil hasher. A capacity of 0 is legal (per spec.md §6,
// effective capacity = next_power_of_two(max(n, 1))) and silently becomes 1.
func New[K comparable, V comparable](opts ...Option[K]) *Map[K, V] {
	cfg := newConfig[K]()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.capacity < 0 {
		panic(fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.capacity))
	}
	if cfg.hasher == nil {
		panic(ErrNilHasher)
	}

	reclaimer := epoch.New()
	t := table.New[K, V](cfg.capacity, cfg.hasher, reclaimer, cfg.logger)
	head := new(atomic.Pointer[table.Table[K, V]])
	head.Store(t)
	return &Map[K, V]{head: head, reclaimer: reclaimer}
}

// Pin acquires an epoch guard. Every pointer a Get/Keys call hands back
// remains valid for as long as the returned guard is held; call Release
// once the caller is done inspecting results.
func (m *Map[K, V]) Pin() *epoch.Guard {
	return m.reclaimer.Pin()
}

// Capacity returns the current table's slot count. Eventually consistent
// with any in-flight resize: during a resize this reports the old table's
// capacity until migration completes and the new table is promoted.
func (m *Map[K, V]) Capacity() int {
	return m.head.Load().Capacity()
}

// Len returns the number of live entries. Eventually consistent under
// concurrent mutation. If the head table still has a successor, Len first
// drains and promotes that in-flight resize (as Keys does), so a quiescent
// map reports its exact entry count.
func (m *Map[K, V]) Len() int {
	t := m.head.Load()
	if t.Successor() != nil {
		t.Keys(nil, m.head)
		t = m.head.Load()
	}
	return int(t.Size())
}

// ContainsKey reports whether key is present, pinning its own guard for the
// duration of the lookup.
func (m *Map[K, V]) ContainsKey(key K) bool {
	g := m.Pin()
	defer g.Release()
	_, ok := m.Get(g, key)
	return ok
}

// Get returns the value associated with key, if any. guard must be held
// for the lifetime of the call (obtain one with Pin).
func (m *Map[K, V]) Get(guard *epoch.Guard, key K) (V, bool) {
	t := m.head.Load()
	node := t.Get(guard, m.head, key)
	return node.Value()
}

// Insert associates key with value unconditionally, returning the prior
// value (if any) and whether one existed.
func (m *Map[K, V]) Insert(guard *epoch.Guard, key K, value V) (V, bool) {
	t := m.head.Load()
	prior := t.PutIfMatch(guard, m.head, key, table.KeyOwned, table.NewValue(value), table.MatchCond[V]{Kind: table.MatchAlways})
	return prior.Value()
}

// Replace sets key's value to value only if key already maps to a live
// value, returning the value it replaced. A no-op (false) if key is
// absent.
func (m *Map[K, V]) Replace(guard *epoch.Guard, key K, value V) (V, bool) {
	t := m.head.Load()
	prior := t.PutIfMatch(guard, m.head, key, table.KeyBorrowed, table.NewValue(value), table.MatchCond[V]{Kind: table.MatchAnyValue})
	return prior.Value()
}

// CompareAndReplace sets key's value to newVal only if key currently maps
// to old (compared with ==), reporting whether the swap happened.
func (m *Map[K, V]) CompareAndReplace(guard *epoch.Guard, key K, old, newVal V) bool {
	t := m.head.Load()
	prior := t.PutIfMatch(guard, m.head, key, table.KeyBorrowed, table.NewValue(newVal), table.MatchCond[V]{Kind: table.MatchSpecificValue, Expected: old})
	v, ok := prior.Value()
	return ok && v == old
}

// Remove deletes key, returning the value it held and whether it was
// present. A no-op if key is absent. Uses MatchAlways (not MatchAnyValue)
// so the documented Empty -> Tombstone no-op fast path (spec.md §4.3) stays
// reachable rather than being short-circuited before the value-cell CAS.
func (m *Map[K, V]) Remove(guard *epoch.Guard, key K) (V, bool) {
	t := m.head.Load()
	prior := t.PutIfMatch(guard, m.head, key, table.KeyBorrowed, table.NewTombstone[V](), table.MatchCond[V]{Kind: table.MatchAlways})
	return prior.Value()
}

// Keys returns a snapshot of every live key. Order is unspecified. guard
// must be held for the duration of the call.
func (m *Map[K, V]) Keys(guard *epoch.Guard) []K {
	t := m.head.Load()
	return t.Keys(guard, m.head)
}

// Clear replaces the map's contents with a fresh, empty table at the
// current capacity. Any guard pinned before Clear keeps the old table
// reachable until released, per the epoch contract documented in
// internal/epoch.
func (m *Map[K, V]) Clear() {
	m.ClearWithCapacity(m.Capacity())
}

// ClearWithCapacity replaces the map's contents with a fresh, empty table
// of capacity n slots (rounded up to a power of two). n == 0 is legal and
// yields a capacity-1 table; only a negative n panics.
func (m *Map[K, V]) ClearWithCapacity(n int) {
	if n < 0 {
		panic(fmt.Errorf("%w: %d", ErrInvalidCapacity, n))
	}
	old := m.head.Load()
	fresh := table.New[K, V](n, old.Hasher().Clone(), m.reclaimer, old.Logger())
	m.head.Store(fresh)
	// The old table is unlinked from head but any guard pinned before this
	// Clear may still be walking it (e.g. mid-Keys). Defer retires it only
	// once every such guard has released, per the pin-guard contract.
	m.reclaimer.Defer(func() {
		old.Logger().Debug().Int("capacity", old.Capacity()).Msg("table retired by clear")
	})
}

// String renders the chain of tables currently backing the map (the head
// table and any successor still mid-migration), mirroring the original
// Rust implementation's Debug output for the same structure.
func (m *Map[K, V]) String() string {
	var b strings.Builder
	b.WriteString("Map{")
	t := m.head.Load()
	first := true
	for t != nil {
		if !first {
			b.WriteString(" -> ")
		}
		first = false
		fmt.Fprintf(&b, "table(capacity=%d, size=%d)", t.Capacity(), t.Size())
		t = t.Successor()
	}
	b.WriteString("}")
	return b.String()
}
