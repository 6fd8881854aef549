package table

// migrateOneChunk claims the next unclaimed chunk of source slots (via
// fetch-add on copyIdx) and migrates each one. A no-op once every slot has
// already been claimed by some chunk.
func (t *Table[K, V]) migrateOneChunk(head Head[K, V]) {
	succ := t.newerMap.Load()
	if succ == nil {
		return
	}
	chunk := migrationChunkSize
	if chunk > t.capacity {
		chunk = t.capacity
	}
	start := int(t.copyIdx.Add(int64(chunk))) - chunk
	if start >= t.capacity {
		return
	}
	end := start + chunk
	if end > t.capacity {
		end = t.capacity
	}
	for i := start; i < end; i++ {
		t.migrateIndex(i, head)
	}
}

// migrateIndex migrates a single source slot and, if this call is the one
// that finalized it, advances copy_done and promotes the successor once
// the whole table has drained.
func (t *Table[K, V]) migrateIndex(idx int, head Head[K, V]) {
	succ := t.newerMap.Load()
	if succ == nil {
		return
	}
	if migrateSlot[K, V](t, idx, succ) {
		if t.copyDone.Add(1) == int64(t.capacity) {
			t.maybePromote(head)
		}
	}
}

// migrateSlot implements spec.md §4.5's per-slot migration steps 1-3. It
// reports whether this call performed the final Prime -> CopiedSentinel
// transition (so callers count each slot toward copy_done exactly once).
func migrateSlot[K comparable, V comparable](src *Table[K, V], idx int, dst *Table[K, V]) bool {
	s := &src.slots[idx]
	for {
		cur := s.loadValue()
		switch {
		case cur.isCopied():
			return false
		case cur.isPrime():
			return finalizeMigratedSlot(dst, s, cur.primed)
		case cur == nil || cur.isTombstone():
			if s.casValue(cur, copiedSentinelNode[V]()) {
				return true
			}
			continue
		default: // isValue
			prime := primeOf(cur)
			if !s.casValue(cur, prime) {
				continue
			}
			return finalizeMigratedSlot(dst, s, cur)
		}
	}
}

// finalizeMigratedSlot copies a captured live value into dst (match_cond
// Specific(Empty), so a value a concurrent writer already redirected into
// dst is never clobbered), then finalizes the source slot to
// CopiedSentinel. It reports whether this call performed that final CAS.
func finalizeMigratedSlot[K comparable, V comparable](dst *Table[K, V], s *slot[K, V], captured *ValueNode[V]) bool {
	if captured.IsValue() {
		if key, ok := s.loadKey(); ok {
			dst.PutIfMatch(nil, nil, key, KeyOwned, valueOf(captured.val), MatchCond[V]{Kind: matchSpecificEmpty})
		}
	}
	for {
		cur := s.loadValue()
		if cur.isCopied() {
			return false
		}
		if !cur.isPrime() {
			return false
		}
		if s.casValue(cur, copiedSentinelNode[V]()) {
			return true
		}
	}
}
