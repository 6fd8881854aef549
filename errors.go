package lockfreemap

import "errors"

// Sentinel errors that Map's constructor and ClearWithCapacity panic with,
// named in the teacher's register (ConcurrentMap panics with IllegalArgError
// for bad constructor arguments rather than threading an error return
// through every call site — the same tradeoff is made here).
var (
	// ErrInvalidCapacity is wrapped in the panic New (for a negative
	// WithCapacity) and ClearWithCapacity raise when asked for a negative
	// capacity. 0 is legal (it becomes 1).
	ErrInvalidCapacity = errors.New("lockfreemap: capacity must not be negative")

	// ErrNilHasher is the panic value of New when a nil Builder is supplied
	// explicitly.
	ErrNilHasher = errors.New("lockfreemap: hasher builder must not be nil")
)
