// Package substrate defines the narrow boundary between the simulation core and
// the program-execution engine that drives each cardinal.
//
// The core never looks inside a Program. It launches cores for tags, hands them
// register files, steps the hardware, and exposes its own state through Peripheral.
package substrate

import (
	"math/bits"
	"math/rand/v2"
)

// Tag is an affinity used for approximate matching.
type Tag uint64

// Distance is the Hamming distance between two tags.
func Distance(a, b Tag) int { return bits.OnesCount64(uint64(a ^ b)) }

// Toggle flips every bit of the tag.
func (t Tag) Toggle() Tag { return ^t }

const NumRegisters = 8

type Registers [NumRegisters]float64

// Program is an evolvable genome program. Implementations must make Clone a deep copy.
type Program interface {
	Clone() Program
}

// Hardware executes a Program for one cardinal.
type Hardware interface {
	SetProgram(p Program)
	Reset()
	// TryLaunchCore starts a new core for the module best matching tag,
	// considering at most budget candidate modules. It returns false when
	// all cores are busy or nothing matches.
	TryLaunchCore(tag Tag, budget int) bool
	// SetRegisters loads r into the most recently launched core.
	SetRegisters(r Registers)
	// Process advances the hardware n steps with p as its view of the world.
	Process(n int, p Peripheral)
	Match(tag Tag) []uint64
	MatchRaw(tag Tag) []float64
	NumBusyCores() int
}

// RegulatorState is opaque module-regulation state copied from parent to offspring.
type RegulatorState []float64

// Regulated is implemented by hardware that supports regulator inheritance.
type Regulated interface {
	ViewRegulators() RegulatorState
	SetRegulators(RegulatorState)
}

// Stateful hardware can carry in-flight cores across a snapshot. Programs
// themselves are never saved; they are rebuilt by the Factory.
type Stateful interface {
	SaveState() ([]byte, error)
	LoadState(b []byte) error
}

// Factory builds programs and hardware for freshly constructed cells.
type Factory interface {
	NewProgram(rng *rand.Rand) Program
	NewHardware(rng *rand.Rand) Hardware
}

// Peripheral is what a running program may observe and do. Relative
// directions are offsets from the cardinal's facing.
type Peripheral interface {
	Facing() int
	Update() uint64
	Rand() *rand.Rand

	ReadState(idx int) float64
	WriteState(idx int, v float64)
	AddToState(idx int, v float64)
	MultiplyState(idx int, v float64)

	Reproduce(dirOffset, level int, endowment float64, inheritRegulators bool)
	SendResource(dirOffset int, fraction, multiplier, reserve float64)
	SetInResistance(dirOffset int, v float64, dur uint64)
	SetOutResistance(dirOffset int, v float64, dur uint64)
	// PauseRepr pauses own reproduction toward dirOffset; level < 0 pauses every level.
	PauseRepr(dirOffset, level int, dur uint64)
	SetStockpileReserve(amt float64)
	SetReproductionReserve(amt float64)

	SendInterMessage(tag Tag, r Registers)
	SendIntraMessage(tag Tag, r Registers)
	SetInboxActivity(active bool)
	PutMembrane(tag Tag, val int)

	SetHeir(dirOffset int, dur uint64)
	DoApoptosis()
	SetQuorumBit(level, bit int)
}
