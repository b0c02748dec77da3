// Package random provides the seedable random sources used by movement,
// combat and drone battles. Each operation draws from its own Source.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
)

// Source is the subset of *rand.Rand the game rules roll against.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Factory hands out a fresh Source per operation.
type Factory func() Source

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Seeded returns a deterministic source for the given seed.
func Seeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SeededFactory derives one deterministic source per call from a base seed,
// so a whole test run replays identically.
func SeededFactory(seed uint64) Factory {
	var n atomic.Uint64
	return func() Source {
		return Seeded(seed + n.Add(1))
	}
}

// CryptoFactory seeds every source from crypto/rand, falling back to the
// runtime generator if the system source fails.
func CryptoFactory() Factory {
	return func() Source {
		seed, err := NewSeed()
		if err != nil {
			seed = rand.Uint64()
		}
		return Seeded(seed)
	}
}

// IntRange returns a uniform integer in [lo, hi].
func IntRange(src Source, lo, hi int) int {
	return lo + src.IntN(hi-lo+1)
}
