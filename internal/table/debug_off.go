//go:build !mapdebug

package table

// debugAssert is a no-op in ordinary builds; pass -tags mapdebug to turn on
// the lattice-invariant checks in debug_on.go. Keeping the call sites
// unconditional and the two implementations behind a build tag means the
// hot path pays nothing for this in production.
func debugAssert(cond bool, format string, args ...any) {}
