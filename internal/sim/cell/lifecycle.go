package cell

import (
	"math"

	"cellworld.sim/internal/sim/family"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/peripheral"
)

// DeathRoutine pays live heirs and frees the slot. Heir shares are staged as
// contributions and land in the resolve phase.
func (c *Cell) DeathRoutine(env *Env) { c.die(env, true) }

func (c *Cell) die(env *Env, payHeirs bool) {
	if !c.Alive {
		return
	}
	if payHeirs {
		c.payHeirs(env)
	}
	c.Log.Add(env.Tick, LogDeath, c.Index)
	c.clear(env)
}

func (c *Cell) payHeirs(env *Env) {
	estate := env.Params.HeirShare * math.Max(c.Stockpile.Query(), 0)
	if estate <= 0 {
		return
	}
	var live []grid.Dir
	for _, d := range c.Heir.Heirs(env.Tick) {
		if env.Grid.Published(c.Neighbors[d]).Alive {
			live = append(live, grid.Dir(d))
		}
	}
	if len(live) == 0 {
		return
	}
	share := estate / float64(len(live))
	for _, d := range live {
		env.Grid.Cell(c.Neighbors[d]).Stockpile.ExternalContribute(share, int(d.Opp()))
	}
}

func (c *Cell) clear(env *Env) {
	c.Alive = false
	c.JustBorn = false
	c.Age = 0
	c.Channel.Clear()
	c.Family.Clear()
	c.Stockpile.Reset()
	c.Quorum.Clear()
	c.Heir.Clear()
	c.Apoptosis.Clear()
	c.Genome = genome.Genome{}
	c.SpawnRequested = false
	c.OutputBuffer = [grid.NumDirs][peripheral.NumOutput]float64{}
	for _, k := range c.Cardinals {
		k.reset()
	}
	for d, n := range c.Neighbors {
		env.Grid.Cell(n).Priority.ClearPausesFrom(int(grid.Dir(d).Opp()))
	}
}

// PlaceBirth installs an accepted request, trampling any occupant. A trampled
// occupant leaves no estate.
func (c *Cell) PlaceBirth(env *Env, pack family.SirePack) {
	c.die(env, false)

	c.Alive = true
	c.JustBorn = true
	c.Age = 0
	c.Channel.Inherit(c.RNG, pack.Channel, pack.Level)
	c.Family.Set(pack.Origin, env.Tick, pack.FamilyGeneration+1, pack.PrevChan, pack.Level)

	g := pack.Genome
	if env.Mutator != nil {
		env.Mutator.Mutate(&g, c.RNG)
	}
	c.install(g, pack.Regulators)
	c.Stockpile.SetBalance(pack.Endowment)
	c.Log.Add(env.Tick, LogBirth, pack.Origin)
}
