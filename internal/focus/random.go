package focus

import (
	"math/rand/v2"
	"time"
)

// Random is the source of the per-round draws.
// *rand.Rand from math/rand/v2 satisfies it; tests supply fixed sequences.
type Random interface {
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// NewRandom returns a PCG-backed source. A zero seed derives one from the current time.
func NewRandom(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// drawTarget returns a duration drawn uniformly from [minMs, maxMs) milliseconds.
func drawTarget(r Random, minMs, maxMs int) time.Duration {
	return time.Duration(minMs+r.IntN(maxMs-minMs)) * time.Millisecond
}

// drawSymbol returns a symbol drawn uniformly from the alphabet.
func drawSymbol(r Random, symbols []rune) rune {
	return symbols[r.IntN(len(symbols))]
}
