package table

import (
	"sync/atomic"
	"testing"

	"github.com/listr0ng/lockfreemap/internal/epoch"
	"github.com/listr0ng/lockfreemap/internal/hash"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestHead(capacity int) (Head[string, int], *epoch.Reclaimer) {
	r := epoch.New()
	t := New[string, int](capacity, hash.NewXXHashBuilder[string](0), r, zerolog.Nop())
	head := new(atomic.Pointer[Table[string, int]])
	head.Store(t)
	return head, r
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	head, _ := newTestHead(8)
	node := head.Load().Get(nil, head, "missing")
	require.False(t, node.IsValue())
}

func TestPutThenGet(t *testing.T) {
	head, _ := newTestHead(8)
	tbl := head.Load()
	prior := tbl.PutIfMatch(nil, head, "a", KeyOwned, NewValue(1), MatchCond[int]{Kind: MatchAlways})
	require.False(t, prior.IsValue())

	node := tbl.Get(nil, head, "a")
	v, ok := node.Value()
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.EqualValues(t, 1, tbl.Size())
}

func TestReplaceNoOpWhenAbsent(t *testing.T) {
	head, _ := newTestHead(8)
	tbl := head.Load()
	prior := tbl.PutIfMatch(nil, head, "ghost", KeyBorrowed, NewValue(9), MatchCond[int]{Kind: MatchAnyValue})
	require.False(t, prior.IsValue())
	require.False(t, tbl.Get(nil, head, "ghost").IsValue())
}

func TestReplaceOverwritesExisting(t *testing.T) {
	head, _ := newTestHead(8)
	tbl := head.Load()
	tbl.PutIfMatch(nil, head, "k", KeyOwned, NewValue(1), MatchCond[int]{Kind: MatchAlways})
	prior := tbl.PutIfMatch(nil, head, "k", KeyBorrowed, NewValue(2), MatchCond[int]{Kind: MatchAnyValue})
	v, ok := prior.Value()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = tbl.Get(nil, head, "k").Value()
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.EqualValues(t, 1, tbl.Size())
}

func TestCompareAndReplaceRejectsOnMismatch(t *testing.T) {
	head, _ := newTestHead(8)
	tbl := head.Load()
	tbl.PutIfMatch(nil, head, "k", KeyOwned, NewValue(1), MatchCond[int]{Kind: MatchAlways})
	prior := tbl.PutIfMatch(nil, head, "k", KeyBorrowed, NewValue(99), MatchCond[int]{Kind: MatchSpecificValue, Expected: 2})
	v, ok := prior.Value()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, _ = tbl.Get(nil, head, "k").Value()
	require.Equal(t, 1, v)
}

func TestRemoveTombstonesEntry(t *testing.T) {
	head, _ := newTestHead(8)
	tbl := head.Load()
	tbl.PutIfMatch(nil, head, "k", KeyOwned, NewValue(7), MatchCond[int]{Kind: MatchAlways})
	prior := tbl.PutIfMatch(nil, head, "k", KeyBorrowed, NewTombstone[int](), MatchCond[int]{Kind: MatchAnyValue})
	v, ok := prior.Value()
	require.True(t, ok)
	require.Equal(t, 7, v)

	require.False(t, tbl.Get(nil, head, "k").IsValue())
	require.EqualValues(t, 0, tbl.Size())
}

func TestKeysSnapshotsLiveEntriesOnly(t *testing.T) {
	head, _ := newTestHead(16)
	tbl := head.Load()
	for i, k := range []string{"a", "b", "c", "d"} {
		tbl.PutIfMatch(nil, head, k, KeyOwned, NewValue(i), MatchCond[int]{Kind: MatchAlways})
	}
	tbl.PutIfMatch(nil, head, "b", KeyBorrowed, NewTombstone[int](), MatchCond[int]{Kind: MatchAnyValue})

	keys := head.Load().Keys(nil, head)
	require.ElementsMatch(t, []string{"a", "c", "d"}, keys)
}

func TestResizeGrowsAndPreservesEntries(t *testing.T) {
	head, _ := newTestHead(4)
	tbl := head.Load()
	for i := 0; i < 64; i++ {
		key := string(rune('a' + i%26))
		tbl = head.Load()
		tbl.PutIfMatch(nil, head, key+string(rune('0'+i/26)), KeyOwned, NewValue(i), MatchCond[int]{Kind: MatchAlways})
	}
	require.Greater(t, head.Load().Capacity(), 4)

	for i := 0; i < 64; i++ {
		key := string(rune('a'+i%26)) + string(rune('0'+i/26))
		v, ok := head.Load().Get(nil, head, key).Value()
		require.True(t, ok, "key %s should still be present after resize", key)
		require.Equal(t, i, v)
	}
}
