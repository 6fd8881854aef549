// Package table implements the lock-free slot state machine and the
// cooperative resize protocol described by the core's design: a fixed
// capacity array of (key cell, value cell) pairs, open addressed, with a
// write-once forwarding pointer to a successor table.
package table

import "sync/atomic"

// valueKind tags the payload a value cell currently holds. The kind always
// travels with its node — a node is immutable once published, so advancing
// a cell along the lattice means swinging the cell's pointer to a brand new
// node rather than mutating one in place. That gives every transition a
// single-word CAS without needing to steal tag bits out of the pointer
// itself (the alternative the design notes call out as "simpler but
// wider" — here it isn't wider, because the tag rides along for free).
type valueKind uint8

const (
	kindTombstone valueKind = iota
	kindValue
	kindPrime
	kindCopied
)

// ValueNode is the boxed payload behind a value cell, returned to the root
// package by Get/PutIfMatch as the "raw sentinel" spec.md's §4.2 describes.
// nil itself represents Empty; any other state is one of the kinds below.
type ValueNode[V comparable] struct {
	kind   valueKind
	val    V
	primed *ValueNode[V] // only set when kind == kindPrime: the captured prior state
}

func valueOf[V comparable](v V) *ValueNode[V] {
	return &ValueNode[V]{kind: kindValue, val: v}
}

func tombstoneNode[V comparable]() *ValueNode[V] {
	return &ValueNode[V]{kind: kindTombstone}
}

// NewValue boxes v as a live Value node, the newVal argument PutIfMatch
// callers (Insert/Replace/CompareAndReplace) pass in.
func NewValue[V comparable](v V) *ValueNode[V] {
	return valueOf(v)
}

// NewTombstone boxes a Tombstone node, the newVal Remove passes to
// PutIfMatch.
func NewTombstone[V comparable]() *ValueNode[V] {
	return tombstoneNode[V]()
}

func primeOf[V comparable](captured *ValueNode[V]) *ValueNode[V] {
	return &ValueNode[V]{kind: kindPrime, primed: captured}
}

// copiedSentinelNode is the distinguished terminal state of a slot the
// resizer has finalized as carrying nothing live across to the successor.
func copiedSentinelNode[V comparable]() *ValueNode[V] {
	return &ValueNode[V]{kind: kindCopied}
}

// IsValue reports whether the node is a live Value.
func (n *ValueNode[V]) IsValue() bool {
	return n != nil && n.kind == kindValue
}

func (n *ValueNode[V]) isTombstone() bool {
	return n != nil && n.kind == kindTombstone
}

func (n *ValueNode[V]) isPrime() bool {
	return n != nil && n.kind == kindPrime
}

func (n *ValueNode[V]) isCopied() bool {
	return n != nil && n.kind == kindCopied
}

// Value returns the node's payload and true if it is a live Value, or the
// zero value and false otherwise (Empty or Tombstone — the only two states
// PutIfMatch/Get ever hand back to the root package).
func (n *ValueNode[V]) Value() (V, bool) {
	if n.IsValue() {
		return n.val, true
	}
	var zero V
	return zero, false
}

// slot is one key/value pair of atomic cells at a fixed table index.
type slot[K comparable, V comparable] struct {
	key atomic.Pointer[K]
	val atomic.Pointer[ValueNode[V]]
}

// loadKey reports the committed key, if any. The key cell is write-once:
// once non-nil it never changes for the lifetime of the table.
func (s *slot[K, V]) loadKey() (K, bool) {
	p := s.key.Load()
	if p == nil {
		var zero K
		return zero, false
	}
	return *p, true
}

// claimKey attempts Empty -> Key(k). Returns false if another writer won
// the race; the slot's committed key (whatever it turned out to be) can be
// read back with loadKey.
func (s *slot[K, V]) claimKey(k K) bool {
	return s.key.CompareAndSwap(nil, &k)
}

func (s *slot[K, V]) loadValue() *ValueNode[V] {
	return s.val.Load()
}

func (s *slot[K, V]) casValue(old, new *ValueNode[V]) bool {
	debugAssert(rankOf(new) >= rankOf(old), "value cell would regress rank %d -> %d", rankOf(old), rankOf(new))
	return s.val.CompareAndSwap(old, new)
}

// rankOf orders a value-cell state for the lattice-monotonicity invariant
// (§3 invariant 2): Empty/Tombstone/Value all sit at rank 1 since a
// tombstoned slot may be legally re-inserted and a Value may be legally
// replaced by another Value -- the invariant this guards against is only
// ever moving away from Prime/CopiedSentinel, which are terminal for a
// table once reached.
func rankOf[V comparable](n *ValueNode[V]) int {
	if n == nil {
		return 1
	}
	switch n.kind {
	case kindPrime:
		return 2
	case kindCopied:
		return 3
	default: // kindTombstone, kindValue
		return 1
	}
}
