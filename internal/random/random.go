package random

import (
	"math/rand"
	"sync"
)

// Source yields uniform integers in [0, n). Implementations must be safe for
// concurrent use because every agent goroutine draws from the same source.
type Source interface {
	Intn(n int) int
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(n int) int

// Intn implements Source.
func (f SourceFunc) Intn(n int) int {
	if f == nil || n <= 0 {
		return 0
	}
	return f(n)
}

// Locked serializes access to a seeded *rand.Rand.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked returns a mutex-guarded source seeded with seed.
func NewLocked(seed int64) *Locked {
	return &Locked{rng: rand.New(rand.NewSource(seed))}
}

// Intn implements Source. Non-positive n yields 0.
func (l *Locked) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

type global struct{}

func (global) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n)
}

// Global returns a source backed by the process-wide math/rand generator.
func Global() Source {
	return global{}
}

// Or returns src, or Global when src is nil.
func Or(src Source) Source {
	if src == nil {
		return Global()
	}
	return src
}

// Chance reports whether a draw lands under probability p (0..1).
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	const resolution = 10000
	return Or(src).Intn(resolution) < int(p*resolution)
}
