package service

import (
	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/debug"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/messaging"
	"cellworld.sim/internal/sim/peripheral"
)

// New builds the pipeline in its one valid order.
func New(f Frequencies) Pipeline {
	return Pipeline{
		&stage{name: "DecayToBaseline", freq: f.DecayToBaseline, apply: decayToBaseline},
		&stage{name: "RunningLogPurge", freq: f.RunningLogPurge, always: true, apply: runningLogPurge},
		&stage{name: "WritableStateNoise", freq: f.WritableStateNoise, apply: writableStateNoise},
		&stage{name: "CpuExecution", freq: f.CpuExecution, apply: cpuExecution},
		&stage{name: "BirthSetup", freq: f.BirthSetup, apply: birthSetup},
		&stage{name: "CellAge", freq: f.CellAge, apply: cellAge},
		&stage{name: "CollectiveHarvesting", freq: f.CollectiveHarvesting, apply: collectiveHarvesting},
		&stage{name: "ConduitFlush", freq: f.ConduitFlush, apply: conduitFlush},
		&stage{name: "EventLaunching", freq: f.EventLaunching, apply: eventLaunching},
		&stage{name: "InterMessageLaunching", freq: f.InterMessageLaunching, apply: interMessageLaunching},
		&stage{name: "InterMessagePurging", freq: f.InterMessagePurging, onDead: true, apply: interMessagePurging},
		&stage{name: "IntraMessageLaunching", freq: f.IntraMessageLaunching, apply: intraMessageLaunching},
		&stage{name: "MessageCounterClear", freq: f.MessageCounterClear, apply: messageCounterClear},
		&stage{name: "QuorumCap", freq: f.QuorumCap, apply: quorumCap},
		&stage{name: "Quorum", freq: f.Quorum, apply: quorumService},
		&stage{name: "ResourceDecay", freq: f.ResourceDecay, apply: resourceDecay},
		&stage{name: "ResourceHarvesting", freq: f.ResourceHarvesting, apply: resourceHarvesting},
		&stage{name: "ResourceReceiving", freq: f.ResourceReceiving, apply: resourceReceiving},
		&stage{name: "ResourceSending", freq: f.ResourceSending, apply: resourceSending},
		&stage{name: "SpawnSending", freq: f.SpawnSending, apply: spawnSending},
		&stage{name: "StateInputJump", freq: f.StateInputJump, apply: stateInputJump},
		&stage{name: "StateOutputPut", freq: f.StateOutputPut, apply: stateOutputPut},
		&stage{name: "EpochAdvance", freq: f.EpochAdvance, apply: epochAdvance},
		&stage{name: "CellDeath", freq: f.CellDeath, apply: cellDeath},
		&stage{name: "Apoptosis", freq: f.Apoptosis, apply: apoptosis},
	}
}

func decayToBaseline(c *cell.Cell, env *cell.Env) {
	if env.Params.StateDecay <= 0 {
		return
	}
	for _, k := range c.Cardinals {
		k.State.DecayToBaseline(env.Params.StateDecay)
	}
}

// runningLogPurge trims history on every slot, live or not.
func runningLogPurge(c *cell.Cell, env *cell.Env) {
	c.Log.Purge(env.Tick, env.Params.RunningLogDuration)
}

func writableStateNoise(c *cell.Cell, env *cell.Env) {
	for _, k := range c.Cardinals {
		k.State.ApplyNoise(c.RNG, env.Params.NoiseProb, env.Params.NoiseScale)
	}
}

func cpuExecution(c *cell.Cell, env *cell.Env) {
	c.RefreshIntrospection(env)
	for _, k := range c.Cardinals {
		k.HW.Process(env.Params.HardwareSteps, k.Peripheral(env))
	}
}

func birthSetup(c *cell.Cell, env *cell.Env) {
	if !c.JustBorn {
		return
	}
	c.JustBorn = false
	c.Age = 0
	c.SetAll(peripheral.SlotIsChild, 0)
	c.SetAll(peripheral.SlotIsParent, 0)
}

func cellAge(c *cell.Cell, _ *cell.Env) {
	c.Age++
	c.SetAll(peripheral.SlotCellAge, float64(c.Age))
}

// collectiveHarvesting pays each level in proportion to live kin around the cell.
func collectiveHarvesting(c *cell.Cell, env *cell.Env) {
	p := env.Params
	for lev := 0; lev < p.NLev; lev++ {
		rate := p.CollectiveRate(lev)
		if rate == 0 {
			continue
		}
		n := 0
		for d := range c.NeighborViews {
			if c.NeighborViews[d].Alive && c.KinMatch(grid.Dir(d), lev) {
				n++
			}
		}
		if n > 0 {
			c.Stockpile.Harvest(rate*float64(n), lev)
		}
	}
}

func conduitFlush(c *cell.Cell, env *cell.Env) {
	for d, n := range c.Neighbors {
		c.NeighborViews[d] = *env.Grid.Published(n)
	}
}

func eventLaunching(c *cell.Cell, env *cell.Env) { c.DispatchEnvTriggers(env) }

func interMessageLaunching(c *cell.Cell, _ *cell.Env) {
	for _, k := range c.Cardinals {
		admitted := k.InterInbox.QueueMessages(k.InboxActive, &k.Membrane)
		launched, purged := messaging.Launch(admitted, k.HW)
		k.State.Inc(peripheral.SlotIncomingInterMessages, float64(launched))
		k.State.Inc(peripheral.SlotPurgedMessages, float64(purged))
	}
}

// interMessagePurging runs on dead slots only: nothing may wait in a freed cell.
func interMessagePurging(c *cell.Cell, _ *cell.Env) {
	for _, k := range c.Cardinals {
		k.InterInbox.Clear()
		k.IntraInbox.Clear()
		k.Outbox.Clear()
	}
}

func intraMessageLaunching(c *cell.Cell, _ *cell.Env) {
	for _, k := range c.Cardinals {
		admitted := k.IntraInbox.QueueMessages(true, nil)
		launched, purged := messaging.Launch(admitted, k.HW)
		k.State.Inc(peripheral.SlotIncomingIntraMessages, float64(launched))
		k.State.Inc(peripheral.SlotPurgedMessages, float64(purged))
	}
}

func messageCounterClear(c *cell.Cell, _ *cell.Env) {
	c.SetAll(peripheral.SlotIncomingInterMessages, 0)
	c.SetAll(peripheral.SlotIncomingIntraMessages, 0)
	c.SetAll(peripheral.SlotPurgedMessages, 0)
}

func quorumCap(c *cell.Cell, env *cell.Env) {
	for lev := 0; lev < len(env.Params.QuorumCap) && lev < len(c.Quorum); lev++ {
		if c.Quorum.Count(lev) > env.Params.QuorumCap[lev] {
			c.Quorum.ClearLevel(lev)
		}
	}
}

// quorumService seeds new bits, then pools bits with live kin at each level.
func quorumService(c *cell.Cell, env *cell.Env) {
	c.Quorum.Seed(c.RNG, env.Params.QuorumSeedProb)
	for lev := range c.Quorum {
		for d := range c.NeighborViews {
			v := &c.NeighborViews[d]
			if v.Alive && c.KinMatch(grid.Dir(d), lev) {
				c.Quorum.OrLevel(v.Quorum, lev)
			}
		}
		if lev < peripheral.MaxLevels {
			c.SetAll(peripheral.SlotQuorumVolume+lev, float64(c.Quorum.Count(lev)))
		}
	}
}

func resourceDecay(c *cell.Cell, env *cell.Env) {
	debug.Assert(c.Stockpile.Consistent(), "cell %d stockpile diverged before decay", c.Index)
	c.Stockpile.Decay(env.Params.ResourceDecay)
	debug.Assert(c.Stockpile.Consistent(), "cell %d stockpile diverged after decay", c.Index)
}

func resourceHarvesting(c *cell.Cell, env *cell.Env) {
	if env.Params.BaseHarvest != 0 {
		c.Stockpile.Harvest(env.Params.BaseHarvest, -1)
	}
}

func resourceReceiving(c *cell.Cell, _ *cell.Env) {
	c.SetAll(peripheral.SlotResourceReceived, c.Stockpile.Received())
}

func resourceSending(c *cell.Cell, _ *cell.Env) { c.Stockpile.RunSharingDoers() }

func spawnSending(c *cell.Cell, env *cell.Env) {
	c.SpawnRequested = false
	for _, k := range c.Cardinals {
		c.TrySpawn(env, k)
	}
	c.SetAll(peripheral.SlotSpawnRequest, boolSlot(c.SpawnRequested))
}

// stateInputJump loads each cardinal's inputs from the neighbor cardinal facing it.
func stateInputJump(c *cell.Cell, _ *cell.Env) {
	for d, k := range c.Cardinals {
		v := &c.NeighborViews[d]
		k.State.SetInputs(v.Outputs[grid.Dir(d).Opp()])
	}
}

func stateOutputPut(c *cell.Cell, _ *cell.Env) {
	for d, k := range c.Cardinals {
		c.OutputBuffer[d] = k.State.Output()
	}
}

func epochAdvance(c *cell.Cell, env *cell.Env) {
	c.Channel.AdvanceEpoch()
	for lev := 0; lev < env.Params.NLev && lev < peripheral.MaxLevels; lev++ {
		c.SetAll(peripheral.SlotEpoch+lev, float64(c.Channel.Epoch(lev)))
	}
}

func cellDeath(c *cell.Cell, env *cell.Env) {
	p := env.Params
	if p.KillOnDebt && c.Stockpile.InDebt() {
		c.DeathRoutine(env)
		return
	}
	if p.DeathProb > 0 && c.RNG.Float64() < p.DeathProb {
		c.DeathRoutine(env)
	}
}

func apoptosis(c *cell.Cell, env *cell.Env) {
	if c.Apoptosis.IsMarked() {
		c.DeathRoutine(env)
	}
}

func boolSlot(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
