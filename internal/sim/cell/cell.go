// Package cell is one grid slot: four cardinals plus the ledgers they share.
//
// A Cell never holds a pointer to the world. It reaches neighbors by index
// through Env.Grid, reads them only through published Views, and writes them
// only through slots reserved for its own direction.
package cell

import (
	"math/rand/v2"

	"cellworld.sim/internal/sim/channel"
	"cellworld.sim/internal/sim/family"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/peripheral"
	"cellworld.sim/internal/sim/quorum"
	"cellworld.sim/internal/sim/stockpile"
	"cellworld.sim/internal/sim/substrate"
)

type Cell struct {
	Index     int
	Neighbors [grid.NumDirs]int

	RNG *rand.Rand
	pcg *rand.PCG

	Alive    bool
	JustBorn bool
	Age      uint64

	Cardinals [grid.NumDirs]*Cardinal

	Channel   *channel.Ledger
	Quorum    quorum.Bits
	Stockpile *stockpile.Stockpile
	Family    *family.Family
	Priority  *family.Priority
	Heir      family.Heir
	Apoptosis family.Apoptosis
	Genome    genome.Genome

	NeighborViews [grid.NumDirs]View
	OutputBuffer  [grid.NumDirs][peripheral.NumOutput]float64

	Log            RunningLog
	SpawnRequested bool
}

// New builds a dead cell whose RNG is seeded from (seed, stream).
func New(idx int, neighbors [grid.NumDirs]int, p *Params, seed, stream uint64, f substrate.Factory) *Cell {
	pcg := rand.NewPCG(seed, stream)
	c := &Cell{
		Index:     idx,
		Neighbors: neighbors,
		RNG:       rand.New(pcg),
		pcg:       pcg,
		Channel:   channel.New(p.NLev),
		Quorum:    quorum.New(p.NLev),
		Stockpile: stockpile.New(p.NLev),
		Family:    family.NewFamily(),
		Priority:  family.NewPriority(p.NLev),
	}
	for d := range c.Cardinals {
		c.Cardinals[d] = newCardinal(c, grid.Dir(d), f.NewHardware(c.RNG), p.InboxCapacity)
	}
	return c
}

// Seed makes the cell a founder: fresh lineage at every level, a program from
// the factory, and the given balance.
func (c *Cell) Seed(tick uint64, f substrate.Factory, balance float64) {
	c.Alive = true
	c.JustBorn = true
	c.Age = 0
	c.Channel.Init(c.RNG)
	c.Family.Set(family.NoPos, tick, 0, 0, -1)
	c.install(genome.Genome{
		Program: f.NewProgram(c.RNG),
		Tags:    genome.RandomEventTags(c.RNG),
	}, nil)
	c.Stockpile.SetBalance(balance)
}

func (c *Cell) install(g genome.Genome, regs substrate.RegulatorState) {
	c.Genome = g
	for _, k := range c.Cardinals {
		k.HW.SetProgram(g.Program)
		if regs == nil {
			continue
		}
		if r, ok := k.HW.(substrate.Regulated); ok {
			r.SetRegulators(regs)
		}
	}
}

// Balance is the shared stockpile balance.
func (c *Cell) Balance() float64 { return c.Stockpile.Query() }

// TopID is the coarsest lineage id, used for propagule relations.
func (c *Cell) TopID() uint64 {
	id, _ := c.Channel.ID(c.Channel.NumLevels() - 1)
	return id
}

// View is the read-only copy of a cell that neighbors see for one tick.
type View struct {
	Alive        bool
	Balance      float64
	Age          uint64
	Channel      channel.Snapshot
	Quorum       quorum.Bits
	Family       family.View
	InResistance [grid.NumDirs]float64
	Outputs      [grid.NumDirs][peripheral.NumOutput]float64
}

// Publish copies out everything a neighbor may read. Slices are freshly
// allocated so that a View stays valid after the cell moves on.
func (c *Cell) Publish(now uint64) View {
	if !c.Alive {
		return View{}
	}
	return View{
		Alive:        true,
		Balance:      c.Stockpile.Query(),
		Age:          c.Age,
		Channel:      c.Channel.Snapshot(),
		Quorum:       c.Quorum.Clone(),
		Family:       c.Family.View(),
		InResistance: c.Stockpile.InResistances(now),
		Outputs:      c.OutputBuffer,
	}
}

func (v *View) TopID() uint64 {
	id, _ := v.Channel.ID(len(v.Channel.IDs) - 1)
	return id
}

// FlushOutboxes moves staged inter-cell messages into the facing neighbors.
// The receiving inbox belongs to the neighbor's cardinal facing back here,
// which only this cell writes.
func (c *Cell) FlushOutboxes(g Grid) {
	for d, k := range c.Cardinals {
		if k.Outbox.Len() == 0 {
			continue
		}
		n := g.Cell(c.Neighbors[d])
		k.Outbox.Drain(n.Cardinals[grid.Dir(d).Opp()].InterInbox)
	}
}
