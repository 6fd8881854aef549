package table

import (
	"sync/atomic"

	"github.com/listr0ng/lockfreemap/internal/epoch"
	"github.com/listr0ng/lockfreemap/internal/hash"
	"github.com/rs/zerolog"
)

// KeyMode distinguishes the two key_spec shapes spec.md's put_if_match
// takes: a key that may be freshly claimed if the slot is empty (Owned),
// or a key that is only ever matched against, never inserted (Borrowed) —
// used by Replace/Remove/CompareAndReplace, where an absent key is a no-op.
type KeyMode uint8

const (
	KeyOwned KeyMode = iota
	KeyBorrowed
)

// MatchKind selects one of put_if_match's three match conditions.
type MatchKind uint8

const (
	// MatchAlways proceeds unconditionally.
	MatchAlways MatchKind = iota
	// MatchAnyValue proceeds only if the current cell already holds a
	// live Value (used by Replace).
	MatchAnyValue
	// MatchSpecificValue proceeds only if the current cell holds a live
	// Value equal to Cond.Expected (used by CompareAndReplace).
	MatchSpecificValue
	// matchSpecificEmpty proceeds only if the current cell is Empty.
	// Used exclusively by the migration driver to place a captured
	// value into the successor table without clobbering a write a
	// concurrent operation already redirected there.
	matchSpecificEmpty
)

// MatchCond is put_if_match's match_cond argument.
type MatchCond[V comparable] struct {
	Kind     MatchKind
	Expected V
}

// Head is the back-reference every table operation carries: a pointer to
// the top-level container's forwarding pointer, so that a table which
// notices its own migration just completed can install the new head.
type Head[K comparable, V comparable] = *atomic.Pointer[Table[K, V]]

const migrationChunkSize = 32

// Table is one node in the chain of tables backing a map: a fixed-capacity
// open-addressed array of slots plus the atomic counters and forwarding
// pointer the resize protocol needs.
type Table[K comparable, V comparable] struct {
	capacity  int
	slots     []slot[K, V]
	hasher    hash.Builder[K]
	maxProbes int

	size      atomic.Int64
	slotsUsed atomic.Int64

	newerMap atomic.Pointer[Table[K, V]]
	copyDone atomic.Int64
	copyIdx  atomic.Int64

	reclaimer *epoch.Reclaimer
	logger    zerolog.Logger
}

// New allocates an empty table. capacity is rounded up to the next power
// of two (minimum 1).
func New[K comparable, V comparable](capacity int, hasher hash.Builder[K], reclaimer *epoch.Reclaimer, logger zerolog.Logger) *Table[K, V] {
	capacity = nextPowerOfTwo(capacity)
	return &Table[K, V]{
		capacity:  capacity,
		slots:     make([]slot[K, V], capacity),
		hasher:    hasher,
		maxProbes: maxProbesFor(capacity),
		reclaimer: reclaimer,
		logger:    logger,
	}
}

// Capacity returns the table's fixed slot count.
func (t *Table[K, V]) Capacity() int { return t.capacity }

// Size returns the live entry count. Eventually consistent under concurrent
// mutation.
func (t *Table[K, V]) Size() int64 { return t.size.Load() }

// Hasher returns the table's hash builder, so a caller allocating a fresh
// table (e.g. ClearWithCapacity) can carry the same hashing strategy
// forward.
func (t *Table[K, V]) Hasher() hash.Builder[K] { return t.hasher }

// Logger returns the table's logger, for the same reason as Hasher.
func (t *Table[K, V]) Logger() zerolog.Logger { return t.logger }

// Successor returns the table currently being migrated into, or nil if no
// resize is in flight.
func (t *Table[K, V]) Successor() *Table[K, V] { return t.newerMap.Load() }

// shouldResize reports whether slots_used has crossed the high-water mark
// (3/4 of capacity).
func (t *Table[K, V]) shouldResize() bool {
	return t.slotsUsed.Load()*4 >= int64(t.capacity)*3
}

// ensureSuccessor returns the table's successor, allocating one if none
// exists yet. Concurrent callers race on the same CAS; the loser discards
// its draft and adopts the winner's.
func (t *Table[K, V]) ensureSuccessor(head Head[K, V]) *Table[K, V] {
	if succ := t.newerMap.Load(); succ != nil {
		return succ
	}
	newCap := int64(t.capacity) * 2
	// If live entries are already crowding the doubled capacity's own
	// load threshold, grow further to avoid an immediate re-resize.
	for t.size.Load()*4 >= newCap*3 {
		newCap *= 2
	}
	draft := New[K, V](int(newCap), t.hasher.Clone(), t.reclaimer, t.logger)
	if !t.newerMap.CompareAndSwap(nil, draft) {
		return t.newerMap.Load()
	}
	t.logger.Debug().
		Int("old_capacity", t.capacity).
		Int("new_capacity", draft.capacity).
		Msg("resize triggered")
	return draft
}

// triggerOrHelp ensures a successor exists, performs one chunk of
// migration (the helper rule), and returns the successor.
func (t *Table[K, V]) triggerOrHelp(head Head[K, V]) *Table[K, V] {
	succ := t.ensureSuccessor(head)
	t.migrateOneChunk(head)
	return succ
}

// maybePromote installs the successor as the new head once this table's
// migration has fully drained. A no-op if head has already moved past t.
func (t *Table[K, V]) maybePromote(head Head[K, V]) {
	if head == nil {
		return
	}
	succ := t.newerMap.Load()
	if succ == nil || t.copyDone.Load() < int64(t.capacity) {
		return
	}
	if head.CompareAndSwap(t, succ) {
		t.logger.Debug().Int("capacity", succ.capacity).Msg("resize promoted")
	}
}

// Get implements spec.md §4.2's get algorithm.
func (t *Table[K, V]) Get(guard *epoch.Guard, head Head[K, V], key K) *ValueNode[V] {
	cur := t
outer:
	for {
		h := cur.hasher.Hash(key)
		idx := cur.startIndex(h)
		probes := 0
	probeLoop:
		for {
			if probes > cur.maxProbes {
				succ := cur.newerMap.Load()
				if succ == nil {
					return nil
				}
				cur.migrateOneChunk(head)
				cur = succ
				continue outer
			}
			s := &cur.slots[idx]
			k, hasKey := s.loadKey()
			if !hasKey {
				return nil
			}
			if k != key {
				probes++
				idx = cur.nextIndex(idx)
				continue probeLoop
			}
			node := s.loadValue()
			switch {
			case node == nil || node.isTombstone():
				return nil
			case node.IsValue():
				return node
			default: // Prime or CopiedSentinel: entry captured for migration
				cur.migrateIndex(idx, head)
				succ := cur.newerMap.Load()
				cur = succ
				continue outer
			}
		}
	}
}

// PutIfMatch implements spec.md §4.2's put_if_match algorithm, the single
// placement primitive underpinning Insert, Replace, Remove, and
// CompareAndReplace. It returns the witnessed prior value cell: nil for
// Empty (or for a KeyBorrowed key that is absent), a Tombstone node for a
// removed entry; Value() reports both as absent.
//
// The spec's resize gate ("if the pending value would introduce or modify
// a live entry, redirect") collapses here to an unconditional redirect once
// newerMap is set: invariant 3 already forbids introducing a new Value in a
// table once it has a successor, and distinguishing the remaining cases
// (tombstone writes, no-op match failures) buys nothing a table-wide
// redirect doesn't already give for free. See DESIGN.md.
func (t *Table[K, V]) PutIfMatch(guard *epoch.Guard, head Head[K, V], key K, keyMode KeyMode, newVal *ValueNode[V], cond MatchCond[V]) *ValueNode[V] {
	cur := t
outer:
	for {
		if cur.newerMap.Load() == nil && cur.shouldResize() {
			cur.ensureSuccessor(head)
		}
		h := cur.hasher.Hash(key)
		idx := cur.startIndex(h)
		probes := 0
	probeLoop:
		for {
			if probes > cur.maxProbes {
				cur = cur.triggerOrHelp(head)
				continue outer
			}
			s := &cur.slots[idx]

			var matched bool
		claimLoop:
			for {
				k, hasKey := s.loadKey()
				switch {
				case !hasKey:
					if keyMode == KeyBorrowed {
						return nil
					}
					if s.claimKey(key) {
						cur.slotsUsed.Add(1)
						matched = true
						break claimLoop
					}
					continue claimLoop // lost the race, reread
				case k == key:
					matched = true
					break claimLoop
				default:
					matched = false
					break claimLoop
				}
			}
			if !matched {
				probes++
				idx = cur.nextIndex(idx)
				continue probeLoop
			}

			for { // value-cell CAS retry loop (spec.md §4.2 steps 3-5)
				if succ := cur.newerMap.Load(); succ != nil {
					cur.migrateIndex(idx, head)
					cur = succ
					continue outer
				}
				curVal := s.loadValue()
				if curVal.isPrime() || curVal.isCopied() {
					// Table gained a successor between our check
					// above and this read; redirect once it's visible.
					continue
				}
				proceed := false
				switch cond.Kind {
				case MatchAlways:
					proceed = true
				case MatchAnyValue:
					proceed = curVal.IsValue()
				case MatchSpecificValue:
					proceed = curVal.IsValue() && curVal.val == cond.Expected
				case matchSpecificEmpty:
					proceed = curVal == nil
				}
				if !proceed {
					return curVal
				}
				if !s.casValue(curVal, newVal) {
					continue
				}
				wasLive := curVal.IsValue()
				nowLive := newVal.IsValue()
				if !wasLive && nowLive {
					cur.size.Add(1)
				} else if wasLive && !nowLive {
					cur.size.Add(-1)
				}
				return curVal
			}
		}
	}
}

// Keys drains any in-flight resize on this table and every successor, then
// returns a snapshot of all live keys. Order is unspecified.
func (t *Table[K, V]) Keys(guard *epoch.Guard, head Head[K, V]) []K {
	cur := t
	for {
		succ := cur.newerMap.Load()
		if succ == nil {
			break
		}
		for cur.copyDone.Load() < int64(cur.capacity) {
			cur.migrateOneChunk(head)
		}
		cur.maybePromote(head)
		cur = succ
	}
	keys := make([]K, 0, cur.size.Load())
	for i := range cur.slots {
		s := &cur.slots[i]
		k, hasKey := s.loadKey()
		if !hasKey {
			continue
		}
		if s.loadValue().IsValue() {
			keys = append(keys, k)
		}
	}
	return keys
}
