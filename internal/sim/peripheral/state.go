// Package peripheral is the per-cardinal state store that programs read and write.
//
// Slots are a flat array addressed by index. The low region is introspective:
// the core fills it and programs may only read it. The high region is writable
// by programs; its first NumOutput slots are published to the facing neighbor.
package peripheral

import (
	"math"
	"math/rand/v2"
)

// MaxLevels bounds the number of lineage levels that have dedicated slots.
const MaxLevels = 4

const (
	SlotStockpile = iota
	SlotCellAge
	SlotResourceReceived
	SlotIncomingInterMessages
	SlotIncomingIntraMessages
	SlotPurgedMessages
	SlotNeighborLive
	SlotNeighborWealthier
	SlotNeighborOlder
	SlotIsChild
	SlotIsParent
	SlotSpawnRequest
	SlotNumBusyCores
	SlotEpoch
	SlotQuorumVolume = SlotEpoch + MaxLevels
	SlotKinMatch     = SlotQuorumVolume + MaxLevels
	SlotInput        = SlotKinMatch + MaxLevels
)

const (
	NumOutput        = 4
	NumIntrospective = SlotInput + NumOutput
	NumWritable      = 16
	NumReadable      = NumIntrospective + NumWritable
)

// State is one cardinal's slot vector.
type State struct {
	slots [NumReadable]float64
}

func wrap(idx, n int) int { return ((idx % n) + n) % n }

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxFloat32:
		return math.MaxFloat32
	case v < -math.MaxFloat32:
		return -math.MaxFloat32
	}
	return v
}

// Read returns any readable slot; idx wraps into range.
func (s *State) Read(idx int) float64 { return s.slots[wrap(idx, NumReadable)] }

func (s *State) writable(idx int) *float64 {
	return &s.slots[NumIntrospective+wrap(idx, NumWritable)]
}

// Write stores into the writable region; idx is relative to that region.
func (s *State) Write(idx int, v float64) { *s.writable(idx) = clamp(v) }

func (s *State) AddTo(idx int, v float64) {
	p := s.writable(idx)
	*p = clamp(*p + v)
}

func (s *State) Multiply(idx int, v float64) {
	p := s.writable(idx)
	*p = clamp(*p * v)
}

// Set writes an introspective slot. Only the core calls this.
func (s *State) Set(slot int, v float64) {
	if slot < 0 || slot >= NumIntrospective {
		return
	}
	s.slots[slot] = clamp(v)
}

// Inc adds delta to an introspective counter slot.
func (s *State) Inc(slot int, delta float64) {
	if slot < 0 || slot >= NumIntrospective {
		return
	}
	s.slots[slot] = clamp(s.slots[slot] + delta)
}

// Output copies the published slice of the writable region.
func (s *State) Output() [NumOutput]float64 {
	var out [NumOutput]float64
	copy(out[:], s.slots[NumIntrospective:NumIntrospective+NumOutput])
	return out
}

// SetInputs loads a neighbor's published outputs.
func (s *State) SetInputs(in [NumOutput]float64) {
	copy(s.slots[SlotInput:SlotInput+NumOutput], in[:])
}

// DecayToBaseline moves every writable slot toward zero by factor rate.
func (s *State) DecayToBaseline(rate float64) {
	for i := NumIntrospective; i < NumReadable; i++ {
		s.slots[i] *= rate
	}
}

// ApplyNoise perturbs each writable slot with probability p by a uniform
// amount in [-scale, scale].
func (s *State) ApplyNoise(rng *rand.Rand, p, scale float64) {
	if p <= 0 {
		return
	}
	for i := NumIntrospective; i < NumReadable; i++ {
		if rng.Float64() < p {
			s.slots[i] = clamp(s.slots[i] + (rng.Float64()*2-1)*scale)
		}
	}
}

func (s *State) Reset() { s.slots = [NumReadable]float64{} }

// Slots exposes the raw vector for snapshots and digests.
func (s *State) Slots() [NumReadable]float64 { return s.slots }

func (s *State) SetSlots(v [NumReadable]float64) { s.slots = v }
