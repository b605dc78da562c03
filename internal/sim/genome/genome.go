// Package genome bundles what a cell passes to its offspring: a program and
// the tags its environment triggers are addressed with.
package genome

import (
	"math/bits"
	"math/rand/v2"

	"cellworld.sim/internal/sim/substrate"
)

// Event names an environmental condition that launches a core each tick it holds.
type Event int

const (
	EventCellChild Event = iota
	EventCellParent
	EventDebt
	EventExpired
	EventHarvestWithdrawal
	EventKinMatch
	EventPropaguleChild
	EventPropaguleParent
	EventNeighborLive
	EventWealthier
	EventOlder
	EventNeighborExpired
	EventUpdate
	NumEvents
)

var eventNames = [NumEvents]string{
	"cell_child", "cell_parent", "debt", "expired", "harvest_withdrawal",
	"kin_match", "propagule_child", "propagule_parent", "neighbor_live",
	"wealthier", "older", "neighbor_expired", "update",
}

func (e Event) String() string {
	if e < 0 || e >= NumEvents {
		return "unknown"
	}
	return eventNames[e]
}

// EventTags holds the "pro" tag per event. The "anti" tag, launched when the
// condition is false, is its bitwise complement.
type EventTags [NumEvents]substrate.Tag

func RandomEventTags(rng *rand.Rand) EventTags {
	var t EventTags
	for i := range t {
		t[i] = substrate.Tag(rng.Uint64())
	}
	return t
}

// Pro returns the tag for e at lineage level lev. Per-level variants rotate the base tag.
func (t EventTags) Pro(e Event, lev int) substrate.Tag {
	return substrate.Tag(bits.RotateLeft64(uint64(t[e]), 7*lev))
}

func (t EventTags) Anti(e Event, lev int) substrate.Tag { return t.Pro(e, lev).Toggle() }

// Pick returns Pro when cond holds and Anti otherwise.
func (t EventTags) Pick(e Event, lev int, cond bool) substrate.Tag {
	if cond {
		return t.Pro(e, lev)
	}
	return t.Anti(e, lev)
}

type Genome struct {
	Program    substrate.Program
	Tags       EventTags
	Generation uint64
}

// Clone deep-copies the program; tags are a value array.
func (g Genome) Clone() Genome {
	out := g
	if g.Program != nil {
		out.Program = g.Program.Clone()
	}
	return out
}

// Mutator perturbs a genome in place before it is placed in a child.
type Mutator interface {
	Mutate(g *Genome, rng *rand.Rand)
}

// TagMutator flips each event-tag bit independently with probability FlipProb.
// It never touches the program.
type TagMutator struct {
	FlipProb float64
}

func (m TagMutator) Mutate(g *Genome, rng *rand.Rand) {
	if m.FlipProb <= 0 {
		return
	}
	for i := range g.Tags {
		for b := 0; b < 64; b++ {
			if rng.Float64() < m.FlipProb {
				g.Tags[i] ^= 1 << b
			}
		}
	}
}
