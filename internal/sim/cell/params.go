package cell

import "cellworld.sim/internal/sim/genome"

// Params are the per-run constants every cell consults. Per-level slices
// have one entry per lineage level.
type Params struct {
	NLev          int
	HardwareSteps int
	InboxCapacity int

	RepThresh    float64
	MaxEndowment float64
	HeirShare    float64

	BaseHarvest           float64
	CollectiveHarvestRate []float64
	ResourceDecay         float64 // per-tick balance multiplier; disable via the stage frequency

	StateDecay float64
	NoiseProb  float64
	NoiseScale float64

	QuorumSeedProb []float64
	QuorumCap      []int

	ExpLimit        []uint32
	ExpGracePeriod  uint32
	ChannelsVisible bool

	KillOnDebt bool
	DeathProb  float64

	RunningLogDuration uint64
}

// Env is what a cell needs from outside itself during one tick.
type Env struct {
	Tick    uint64
	Params  *Params
	Mutator genome.Mutator
	Grid    Grid
}

// Grid resolves neighbor indices. Cell returns the live record, which may only
// be touched through single-writer slots; Published returns the tick-start view.
type Grid interface {
	Cell(idx int) *Cell
	Published(idx int) *View
}

// CollectiveRate is the kin-harvest rate at lev; levels past the table pay
// nothing.
func (p *Params) CollectiveRate(lev int) float64 {
	if lev >= 0 && lev < len(p.CollectiveHarvestRate) {
		return p.CollectiveHarvestRate[lev]
	}
	return 0
}

func (p *Params) expLimit(lev int) uint32 {
	if lev < len(p.ExpLimit) {
		return p.ExpLimit[lev]
	}
	return 0
}
