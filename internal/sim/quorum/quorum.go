// Package quorum holds per-level 64-bit consensus signal words.
package quorum

import (
	"math/bits"
	"math/rand/v2"
)

// Bits is one word per lineage level.
type Bits []uint64

func New(nlev int) Bits { return make(Bits, nlev) }

func (b Bits) Clone() Bits { return append(Bits(nil), b...) }

// Seed sets one uniformly chosen bit at each level with probability probs[lev].
// Levels beyond len(probs) are left alone.
func (b Bits) Seed(rng *rand.Rand, probs []float64) {
	for lev := range b {
		if lev >= len(probs) {
			return
		}
		if rng.Float64() < probs[lev] {
			b[lev] |= 1 << rng.IntN(64)
		}
	}
}

func (b Bits) Set(lev, bit int) {
	if lev < 0 || lev >= len(b) {
		return
	}
	b[lev] |= 1 << (uint(bit) % 64)
}

func (b Bits) Test(lev, bit int) bool {
	if lev < 0 || lev >= len(b) {
		return false
	}
	return b[lev]&(1<<(uint(bit)%64)) != 0
}

// UnsetMask clears, per level, every bit set in mask.
func (b Bits) UnsetMask(mask Bits) {
	for i := range b {
		if i < len(mask) {
			b[i] &^= mask[i]
		}
	}
}

func (b Bits) Or(o Bits) {
	for i := range b {
		if i < len(o) {
			b[i] |= o[i]
		}
	}
}

// OrLevel merges a single level from o.
func (b Bits) OrLevel(o Bits, lev int) {
	if lev < len(b) && lev < len(o) {
		b[lev] |= o[lev]
	}
}

func (b Bits) And(o Bits) {
	for i := range b {
		if i < len(o) {
			b[i] &= o[i]
		} else {
			b[i] = 0
		}
	}
}

func (b Bits) Not() {
	for i := range b {
		b[i] = ^b[i]
	}
}

func (b Bits) Count(lev int) int {
	if lev < 0 || lev >= len(b) {
		return 0
	}
	return bits.OnesCount64(b[lev])
}

func (b Bits) CountAll() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b Bits) Clear() {
	for i := range b {
		b[i] = 0
	}
}

func (b Bits) ClearLevel(lev int) {
	if lev >= 0 && lev < len(b) {
		b[lev] = 0
	}
}

func (b Bits) Equal(o Bits) bool {
	if len(b) != len(o) {
		return false
	}
	for i := range b {
		if b[i] != o[i] {
			return false
		}
	}
	return true
}
