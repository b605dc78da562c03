package world

import (
	"testing"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/service"
	"cellworld.sim/internal/sim/substrate"
	"cellworld.sim/internal/sim/substrate/scripted"
)

func lineConfig(nthreads int) WorldConfig {
	return WorldConfig{
		ID:       "test",
		Width:    4,
		Height:   1,
		NThreads: nthreads,
		Seed:     42,
		Params: cell.Params{
			NLev:          1,
			HardwareSteps: 1,
			InboxCapacity: 8,
			RepThresh:     10,
			ResourceDecay: 1,
		},
		Frequencies: service.DefaultFrequencies(),
	}
}

func newTestWorld(t *testing.T, cfg WorldConfig, prog *scripted.Program) *World {
	t.Helper()
	w, err := New(cfg, scripted.Factory{Template: prog})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

// reproduceAt returns a program whose cardinal facing dir reproduces at tick 0.
func reproduceAt(facing, level int, endowment float64) *scripted.Program {
	return &scripted.Program{
		Name: "reproduce",
		Step: func(p substrate.Peripheral) {
			if p.Update() == 0 && p.Facing() == facing {
				p.Reproduce(0, level, endowment, false)
			}
		},
	}
}

// sharer exercises every cross-cell path except births, so a threaded run
// must match a sequential one bit for bit.
func sharer() *scripted.Program {
	const tag substrate.Tag = 0x00ff00ff00ff00ff
	return &scripted.Program{
		Name: "sharer",
		Step: func(p substrate.Peripheral) {
			p.SetInboxActivity(true)
			rng := p.Rand()
			if rng.Float64() < 0.3 {
				p.SendResource(0, 0.1, 1, 1)
			}
			if rng.Float64() < 0.2 {
				p.SendInterMessage(tag, substrate.Registers{float64(p.Update())})
			}
			if rng.Float64() < 0.05 {
				p.SetHeir(0, 4)
			}
			if rng.Float64() < 0.01 {
				p.DoApoptosis()
			}
			if rng.Float64() < 0.1 {
				p.SetInResistance(1, rng.Float64(), 3)
			}
		},
		Modules: []scripted.Module{{
			Tag: tag,
			Fn: func(p substrate.Peripheral, r substrate.Registers) {
				p.AddToState(2, r[0])
			},
		}},
	}
}

func gridConfig(nthreads int) WorldConfig {
	return WorldConfig{
		ID:               "grid",
		Width:            8,
		Height:           6,
		NThreads:         nthreads,
		Seed:             7,
		InitialOccupancy: 0.6,
		InitialBalance:   5,
		StatsEveryTicks:  1,
		Params: cell.Params{
			NLev:                  2,
			HardwareSteps:         2,
			InboxCapacity:         8,
			RepThresh:             3,
			HeirShare:             0.5,
			BaseHarvest:           0.25,
			CollectiveHarvestRate: []float64{0.01, 0.005},
			QuorumSeedProb:        []float64{0.05, 0.05},
			QuorumCap:             []int{8, 8},
			ExpLimit:              []uint32{50, 200},
			ChannelsVisible:       true,
			NoiseProb:             0.01,
			NoiseScale:            0.1,
			StateDecay:            0.1,
			DeathProb:             0.002,
			RunningLogDuration:    16,
			ResourceDecay:         1,
		},
		Frequencies: service.DefaultFrequencies(),
	}
}
