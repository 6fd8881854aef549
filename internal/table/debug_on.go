//go:build mapdebug

package table

import "fmt"

// debugAssert panics if cond is false. Only compiled in with -tags mapdebug;
// guards the slot-lattice invariants (spec §3) during testing without
// costing the production build anything.
func debugAssert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("lockfreemap: invariant violated: "+format, args...))
	}
}
