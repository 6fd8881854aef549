// Package epoch implements the pin-guard contract the core relies on for
// deferred reclamation: a thread pins the current epoch before it returns
// any borrow, and the reclaimer will not run a retired callback until every
// guard pinned at or before that callback's epoch has released.
//
// Go's garbage collector already keeps unlinked tables and nodes alive for
// as long as anything references them, so nothing here frees memory by
// hand. What the reclaimer buys is the contract itself: callers that thread
// a *Guard through Get/Insert/Remove get the same "borrow is valid until
// guard release" story the core's design assumes, and Defer gives a caller
// that genuinely needs it (an external resource tied to a retired node, or
// just resize lifecycle tracing) a place to hook in.
package epoch

import (
	"sync"
	"sync/atomic"
)

// Guard is a pin token. A guard must be released exactly once.
type Guard struct {
	r      *Reclaimer
	epoch  uint64
	pinned atomic.Bool
}

// Release unpins the guard, allowing the reclaimer to retire callbacks
// whose epoch is now behind every remaining pinned guard. Calling Release
// more than once is a no-op.
func (g *Guard) Release() {
	if g == nil || g.r == nil {
		return
	}
	if !g.pinned.CompareAndSwap(true, false) {
		return
	}
	g.r.unpin(g)
}

// Reclaimer tracks the global epoch and the set of currently pinned guards.
// One Reclaimer is shared by a map and all of its successor tables.
type Reclaimer struct {
	epoch  atomic.Uint64
	mu     sync.Mutex
	active map[*Guard]uint64
	queued []retirement
}

type retirement struct {
	epoch uint64
	fn    func()
}

// New returns a reclaimer starting at epoch 0.
func New() *Reclaimer {
	return &Reclaimer{active: make(map[*Guard]uint64)}
}

// Pin registers the caller as observing the current epoch and returns a
// guard bounding the lifetime of any borrow returned while it is held.
func (r *Reclaimer) Pin() *Guard {
	g := &Guard{r: r, epoch: r.epoch.Load()}
	g.pinned.Store(true)
	r.mu.Lock()
	r.active[g] = g.epoch
	r.mu.Unlock()
	return g
}

func (r *Reclaimer) unpin(g *Guard) {
	r.mu.Lock()
	delete(r.active, g)
	r.drainLocked()
	r.mu.Unlock()
}

// Defer schedules fn to run once no currently-pinned guard predates the
// epoch observed at the time Defer is called. fn runs synchronously on
// whichever goroutine happens to release the last blocking guard (or
// immediately, if nothing blocks it).
func (r *Reclaimer) Defer(fn func()) {
	epoch := r.epoch.Add(1) - 1
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, retirement{epoch: epoch, fn: fn})
	r.drainLocked()
}

// drainLocked runs every queued retirement whose epoch is behind all
// currently active guards. Caller must hold r.mu.
func (r *Reclaimer) drainLocked() {
	if len(r.queued) == 0 {
		return
	}
	minActive := r.epoch.Load()
	for _, e := range r.active {
		if e < minActive {
			minActive = e
		}
	}
	remaining := r.queued[:0]
	for _, q := range r.queued {
		if q.epoch < minActive {
			q.fn()
		} else {
			remaining = append(remaining, q)
		}
	}
	r.queued = remaining
}

// ActiveGuards reports the number of currently pinned guards; exposed for
// tests that need to assert reclamation eventually drains.
func (r *Reclaimer) ActiveGuards() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
