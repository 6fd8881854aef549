package table

import "testing"

// TestRankOfOrdersLattice pins down the rank ordering debugAssert relies on
// for its monotonicity check, independent of the mapdebug build tag.
func TestRankOfOrdersLattice(t *testing.T) {
	var empty *ValueNode[int]
	value := valueOf(1)
	tomb := tombstoneNode[int]()
	prime := primeOf(value)
	copied := copiedSentinelNode[int]()

	if rankOf(empty) != 1 || rankOf(value) != 1 || rankOf(tomb) != 1 {
		t.Fatalf("Empty/Value/Tombstone must share rank 1, got %d/%d/%d", rankOf(empty), rankOf(value), rankOf(tomb))
	}
	if rankOf(prime) <= rankOf(value) {
		t.Fatalf("Prime must outrank Value")
	}
	if rankOf(copied) <= rankOf(prime) {
		t.Fatalf("CopiedSentinel must outrank Prime")
	}
}
