package family

import (
	"sync/atomic"

	"cellworld.sim/internal/sim/debug"
)

const noneAccepted = -1

// Priority arbitrates births into one destination cell.
//
// Requests are filed under the requester's incoming direction, so every slot
// has a single writer: the neighbor on that side. The accepted marker is the
// only word several workers may race on, and it is claimed by compare-and-swap.
// Pauses are also filed by incoming direction and are written and read only
// by the requester itself.
type Priority struct {
	accepted atomic.Int32
	packs    [4]SirePack
	pause    [4][]uint64 // until-tick per reproduction level
}

// NewPriority allows reproduction levels [0, nlev].
func NewPriority(nlev int) *Priority {
	p := &Priority{}
	p.accepted.Store(noneAccepted)
	for d := range p.pause {
		p.pause[d] = make([]uint64, nlev+1)
	}
	return p
}

// NumLevels is the count of reproduction levels, one more than lineage levels.
func (p *Priority) NumLevels() int { return len(p.pause[0]) }

// IsPaused reports whether requests from incomingDir at level are vetoed at now.
func (p *Priority) IsPaused(incomingDir, level int, now uint64) bool {
	if level < 0 || level >= len(p.pause[incomingDir]) {
		return false
	}
	return now < p.pause[incomingDir][level]
}

// PauseRepr vetoes requests from incomingDir until now+dur. A negative level
// pauses every level.
func (p *Priority) PauseRepr(incomingDir, level int, dur, now uint64) {
	until := now + dur
	if level < 0 {
		for lev := range p.pause[incomingDir] {
			p.pause[incomingDir][lev] = until
		}
		return
	}
	if level < len(p.pause[incomingDir]) {
		p.pause[incomingDir][level] = until
	}
}

// AddRequest files pack and reports whether it won this tick's slot.
// Losing or paused requests cost the caller nothing.
func (p *Priority) AddRequest(pack SirePack, now uint64) bool {
	if p.IsPaused(pack.IncomingDir, pack.Level, now) {
		return false
	}
	if !p.accepted.CompareAndSwap(noneAccepted, int32(pack.IncomingDir)) {
		return false
	}
	p.packs[pack.IncomingDir] = pack
	return true
}

// QueryPendingGenome returns the accepted pack, if any.
func (p *Priority) QueryPendingGenome() (SirePack, bool) {
	d := p.accepted.Load()
	if d == noneAccepted {
		return SirePack{}, false
	}
	debug.Assert(d >= 0 && d < 4, "accepted direction out of range: %d", d)
	return p.packs[d], true
}

// Reset clears the accepted request. Pauses persist until they expire.
func (p *Priority) Reset() {
	if d := p.accepted.Swap(noneAccepted); d != noneAccepted {
		p.packs[d] = SirePack{}
	}
}

// ClearPausesFrom drops the pauses filed by the requester on incomingDir,
// used when that requester's slot changes occupant.
func (p *Priority) ClearPausesFrom(incomingDir int) {
	for lev := range p.pause[incomingDir] {
		p.pause[incomingDir][lev] = 0
	}
}

// Pauses copies the pause table, indexed [incomingDir][level].
func (p *Priority) Pauses() [4][]uint64 {
	var out [4][]uint64
	for d := range p.pause {
		out[d] = append([]uint64(nil), p.pause[d]...)
	}
	return out
}

func (p *Priority) SetPauses(in [4][]uint64) {
	for d := range p.pause {
		copy(p.pause[d], in[d])
	}
}
