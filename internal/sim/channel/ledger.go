// Package channel tracks a cell's hierarchical lineage ("kin group") identifiers.
//
// Level 0 is the finest grouping. A birth at reproduction level L keeps the
// parent's ids at levels >= L and draws fresh ids below it, so two cells that
// share an id at level L also descend from the same split at every coarser level.
package channel

import (
	"math/rand/v2"
)

// IDer is anything that can report a lineage id per level.
type IDer interface {
	ID(lev int) (uint64, bool)
}

// Ledger is one cell's lineage record. The zero value is unusable; use New.
type Ledger struct {
	present bool
	ids     []uint64
	gens    []uint32
	epochs  []uint32
}

// New returns an absent ledger with nlev levels.
func New(nlev int) *Ledger {
	return &Ledger{
		ids:    make([]uint64, nlev),
		gens:   make([]uint32, nlev),
		epochs: make([]uint32, nlev),
	}
}

func (l *Ledger) NumLevels() int { return len(l.ids) }

func (l *Ledger) Present() bool { return l.present }

// Init draws fresh ids at every level and zeroes the counters.
func (l *Ledger) Init(rng *rand.Rand) {
	l.present = true
	for i := range l.ids {
		l.ids[i] = rng.Uint64()
		l.gens[i] = 0
		l.epochs[i] = 0
	}
}

func (l *Ledger) ID(lev int) (uint64, bool) {
	if !l.present || lev < 0 || lev >= len(l.ids) {
		return 0, false
	}
	return l.ids[lev], true
}

func (l *Ledger) Generation(lev int) uint32 { return l.gens[lev] }

func (l *Ledger) Epoch(lev int) uint32 { return l.epochs[lev] }

// Clear makes every level absent.
func (l *Ledger) Clear() {
	l.present = false
	for i := range l.ids {
		l.ids[i], l.gens[i], l.epochs[i] = 0, 0, 0
	}
}

// Inherit performs a birth at reproduction level lev. Levels below lev draw
// fresh ids from rng; levels at or above copy the parent and bump its generation.
func (l *Ledger) Inherit(rng *rand.Rand, parent Snapshot, lev int) {
	l.present = true
	for i := range l.ids {
		if i < lev {
			l.ids[i] = rng.Uint64()
			l.gens[i] = 0
			l.epochs[i] = 0
			continue
		}
		if i < len(parent.IDs) {
			l.ids[i] = parent.IDs[i]
		}
		if i < len(parent.Generations) {
			l.gens[i] = parent.Generations[i] + 1
		}
		if i < len(parent.Epochs) {
			l.epochs[i] = parent.Epochs[i]
		}
	}
}

// AdvanceEpoch ages every present level by one tick.
func (l *Ledger) AdvanceEpoch() {
	if !l.present {
		return
	}
	for i := range l.epochs {
		l.epochs[i]++
	}
}

// IsExpired returns how many ticks level lev has outlived limit (0 if not expired).
func (l *Ledger) IsExpired(lev int, limit uint32) uint32 {
	if !l.present || lev < 0 || lev >= len(l.epochs) || limit == 0 {
		return 0
	}
	if e := l.epochs[lev]; e > limit {
		return e - limit
	}
	return 0
}

// CheckMatch is true iff both sides are present at lev with equal ids.
func CheckMatch(a, b IDer, lev int) bool {
	x, ok := a.ID(lev)
	if !ok {
		return false
	}
	y, ok := b.ID(lev)
	return ok && x == y
}

func (l *Ledger) CheckMatch(other IDer, lev int) bool { return CheckMatch(l, other, lev) }

// Snapshot is an immutable copy of a ledger, safe to share across goroutines.
type Snapshot struct {
	Present     bool
	IDs         []uint64
	Generations []uint32
	Epochs      []uint32
}

func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		Present:     l.present,
		IDs:         append([]uint64(nil), l.ids...),
		Generations: append([]uint32(nil), l.gens...),
		Epochs:      append([]uint32(nil), l.epochs...),
	}
}

func (s Snapshot) ID(lev int) (uint64, bool) {
	if !s.Present || lev < 0 || lev >= len(s.IDs) {
		return 0, false
	}
	return s.IDs[lev], true
}

// Restore overwrites the ledger with s. The level count must match.
func (l *Ledger) Restore(s Snapshot) {
	l.present = s.Present
	copy(l.ids, s.IDs)
	copy(l.gens, s.Generations)
	copy(l.epochs, s.Epochs)
}

// IsExpired mirrors Ledger.IsExpired for a published copy.
func (s Snapshot) IsExpired(lev int, limit uint32) uint32 {
	if !s.Present || lev < 0 || lev >= len(s.Epochs) || limit == 0 {
		return 0
	}
	if e := s.Epochs[lev]; e > limit {
		return e - limit
	}
	return 0
}
