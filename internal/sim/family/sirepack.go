// Package family holds the per-cell records that govern reproduction and
// inheritance: staged birth requests and their arbitration, parent/child
// bookkeeping, heir designation, and self-requested death.
package family

import (
	"cellworld.sim/internal/sim/channel"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/substrate"
)

// SirePack is a staged birth request from a parent to one neighbor.
type SirePack struct {
	Origin      int
	OutgoingDir int
	IncomingDir int
	Level       int

	Channel          channel.Snapshot
	FamilyGeneration uint64
	PrevChan         uint64

	Genome     genome.Genome
	Regulators substrate.RegulatorState
	Endowment  float64
	Tick       uint64
}
