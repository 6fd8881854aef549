package lockfreemap

import (
	"github.com/listr0ng/lockfreemap/internal/hash"
	"github.com/rs/zerolog"
)

// defaultCapacity is the slot count a zero-value New starts with.
const defaultCapacity = 16

// config collects every constructor-time knob. Built by applying Options
// left to right over a set of defaults, the same pattern the retrieval
// pack's config-driven examples use for a small, rarely-extended set of
// settings (a struct plus functional options beats a parameter-per-knob
// constructor once there's more than two or three).
type config[K comparable] struct {
	capacity int
	hasher   hash.Builder[K]
	logger   zerolog.Logger
}

// Option configures a Map at construction time.
type Option[K comparable] func(*config[K])

func newConfig[K comparable]() *config[K] {
	return &config[K]{
		capacity: defaultCapacity,
		hasher:   hash.NewXXHashBuilder[K](0),
		logger:   zerolog.Nop(),
	}
}

// WithCapacity sets the map's initial slot count (rounded up to the next
// power of two; 0 is legal and becomes 1). Panics via ErrInvalidCapacity at
// construction time if n is negative.
func WithCapacity[K comparable](n int) Option[K] {
	return func(c *config[K]) {
		c.capacity = n
	}
}

// WithHasher supplies a non-default hashing strategy.
func WithHasher[K comparable](h hash.Builder[K]) Option[K] {
	return func(c *config[K]) {
		c.hasher = h
	}
}

// WithLogger attaches a structured logger. The zero value (Nop) drops every
// event, keeping the hot path allocation-free when logging isn't wanted.
func WithLogger[K comparable](l zerolog.Logger) Option[K] {
	return func(c *config[K]) {
		c.logger = l
	}
}
