// Package stockpile is a cell's resource balance, mirrored across its cardinals,
// plus the single-writer staging slots neighbors use to contribute to it.
package stockpile

import (
	"math"

	"cellworld.sim/internal/sim/debug"
)

// NumCardinals is fixed by the grid's compass directions.
const NumCardinals = 4

// Resistance is an admission-control factor in [0,1] that lapses at Until.
type Resistance struct {
	Value float64
	Until uint64
}

func (r Resistance) at(now uint64) float64 {
	if now >= r.Until {
		return 0
	}
	return r.Value
}

// Stockpile is owned by exactly one cell. Only pending is written from other
// cells, and each of its slots has one writer: the neighbor in that direction.
type Stockpile struct {
	balances [NumCardinals]float64
	pending  [NumCardinals]float64
	received float64

	inRes  [NumCardinals]Resistance
	outRes [NumCardinals]Resistance

	doers   []func()
	harvest []bool
}

func New(nlev int) *Stockpile {
	return &Stockpile{harvest: make([]bool, nlev)}
}

// Query returns the shared balance.
func (s *Stockpile) Query() float64 { return s.balances[0] }

func (s *Stockpile) QueryCardinal(i int) float64 { return s.balances[i] }

// Consistent reports whether every cardinal holds the same balance.
func (s *Stockpile) Consistent() bool {
	for i := 1; i < NumCardinals; i++ {
		if s.balances[i] != s.balances[0] {
			return false
		}
	}
	return true
}

func (s *Stockpile) InDebt() bool { return s.balances[0] < 0 }

func (s *Stockpile) set(v float64) {
	for i := range s.balances {
		s.balances[i] = v
	}
}

func (s *Stockpile) add(v float64) {
	for i := range s.balances {
		s.balances[i] += v
	}
}

// SetBalance overwrites every cardinal's balance.
func (s *Stockpile) SetBalance(v float64) { s.set(v) }

func (s *Stockpile) Decay(rate float64) {
	for i := range s.balances {
		s.balances[i] *= rate
	}
}

// Debit removes amt unconditionally; the balance may go negative.
func (s *Stockpile) Debit(amt float64) { s.add(-amt) }

// RequestResourceFrac withdraws frac of the balance above reserve, never more
// than the balance itself and never a negative amount.
func (s *Stockpile) RequestResourceFrac(frac, reserve float64) float64 {
	bal := s.Query()
	amt := math.Max(math.Min(bal, frac*(bal-reserve)), 0)
	s.add(-amt)
	return amt
}

// RequestResourceAmt withdraws amt, clamped to what is available.
func (s *Stockpile) RequestResourceAmt(amt float64) float64 {
	amt = math.Max(math.Min(amt, s.Query()), 0)
	s.add(-amt)
	return amt
}

// ExternalContribute stages amount arriving from incomingDir. It is resolved
// at the end of the tick.
func (s *Stockpile) ExternalContribute(amount float64, incomingDir int) {
	s.pending[incomingDir] += amount
}

// ResolveExternalContributions credits staged amounts in direction order.
func (s *Stockpile) ResolveExternalContributions() {
	total := 0.0
	for d := range s.pending {
		total += s.pending[d]
		s.pending[d] = 0
	}
	s.received += total
	s.add(total)
	debug.Assert(s.Consistent(), "stockpile diverged after resolve: %v", s.balances)
}

// DiscardExternalContributions drops staged amounts; used on dead slots.
func (s *Stockpile) DiscardExternalContributions() {
	s.pending = [NumCardinals]float64{}
}

// Received returns resource credited since the last call and resets the tally.
func (s *Stockpile) Received() float64 {
	r := s.received
	s.received = 0
	return r
}

func (s *Stockpile) SetInResistance(dir int, v float64, dur, now uint64) {
	s.inRes[dir] = Resistance{Value: clamp01(v), Until: now + dur}
}

func (s *Stockpile) SetOutResistance(dir int, v float64, dur, now uint64) {
	s.outRes[dir] = Resistance{Value: clamp01(v), Until: now + dur}
}

func (s *Stockpile) CheckInResistance(dir int, now uint64) float64 { return s.inRes[dir].at(now) }

func (s *Stockpile) CheckOutResistance(dir int, now uint64) float64 { return s.outRes[dir].at(now) }

// InResistances reports every direction's current inbound resistance.
func (s *Stockpile) InResistances(now uint64) [NumCardinals]float64 {
	var out [NumCardinals]float64
	for d := range out {
		out[d] = s.inRes[d].at(now)
	}
	return out
}

// Harvest credits amount. A non-negative lev marks a withdrawal at that level.
func (s *Stockpile) Harvest(amount float64, lev int) {
	s.add(amount)
	if lev >= 0 && lev < len(s.harvest) {
		s.harvest[lev] = true
	}
}

func (s *Stockpile) QueryHarvestWithdrawals(lev int) bool {
	return lev >= 0 && lev < len(s.harvest) && s.harvest[lev]
}

func (s *Stockpile) ResetHarvestWithdrawals(lev int) {
	if lev >= 0 && lev < len(s.harvest) {
		s.harvest[lev] = false
	}
}

// AddSharingDoer queues fn to run at the next RunSharingDoers.
func (s *Stockpile) AddSharingDoer(fn func()) { s.doers = append(s.doers, fn) }

// RunSharingDoers drains the queue in insertion order.
func (s *Stockpile) RunSharingDoers() int {
	n := len(s.doers)
	for i, fn := range s.doers {
		fn()
		s.doers[i] = nil
	}
	s.doers = s.doers[:0]
	return n
}

// Reset clears everything except staged contributions, which belong to the
// tick's resolve phase.
func (s *Stockpile) Reset() {
	s.balances = [NumCardinals]float64{}
	s.received = 0
	s.inRes = [NumCardinals]Resistance{}
	s.outRes = [NumCardinals]Resistance{}
	s.doers = s.doers[:0]
	for i := range s.harvest {
		s.harvest[i] = false
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Record is the state that survives a tick boundary. Pending contributions
// and sharing doers are always empty there.
type Record struct {
	Balances [NumCardinals]float64
	Received float64
	InRes    [NumCardinals]Resistance
	OutRes   [NumCardinals]Resistance
	Harvest  []bool
}

func (s *Stockpile) Export() Record {
	return Record{
		Balances: s.balances,
		Received: s.received,
		InRes:    s.inRes,
		OutRes:   s.outRes,
		Harvest:  append([]bool(nil), s.harvest...),
	}
}

func (s *Stockpile) Import(r Record) {
	s.balances = r.Balances
	s.received = r.Received
	s.inRes = r.InRes
	s.outRes = r.OutRes
	copy(s.harvest, r.Harvest)
	s.pending = [NumCardinals]float64{}
	s.doers = s.doers[:0]
}
