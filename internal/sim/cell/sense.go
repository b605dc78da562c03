package cell

import (
	"cellworld.sim/internal/sim/channel"
	"cellworld.sim/internal/sim/family"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/peripheral"
)

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *Cell) isCellChild(d grid.Dir) bool {
	v := &c.NeighborViews[d]
	return v.Alive && family.IsCellChild(c.Family, c.Index, v.Family, c.Neighbors[d])
}

func (c *Cell) isCellParent(d grid.Dir) bool {
	v := &c.NeighborViews[d]
	return v.Alive && family.IsCellParent(c.Family, c.Index, v.Family, c.Neighbors[d])
}

func (c *Cell) isWealthierThan(d grid.Dir) bool {
	return c.Stockpile.Query() >= c.NeighborViews[d].Balance
}

func (c *Cell) isOlderThan(d grid.Dir) bool {
	return c.Family.BirthTick <= c.NeighborViews[d].Family.BirthTick
}

// KinMatch reports whether the neighbor in d shares this cell's id at lev.
func (c *Cell) KinMatch(d grid.Dir, lev int) bool {
	return channel.CheckMatch(c.Channel, c.NeighborViews[d].Channel, lev)
}

// RefreshIntrospection fills the sensor slots each cardinal reads about itself
// and the neighbor it faces.
func (c *Cell) RefreshIntrospection(env *Env) {
	p := env.Params
	bal := c.Stockpile.Query()
	for _, k := range c.Cardinals {
		d := k.Dir
		v := &c.NeighborViews[d]
		s := &k.State
		s.Set(peripheral.SlotStockpile, bal)
		s.Set(peripheral.SlotCellAge, float64(c.Age))
		s.Set(peripheral.SlotNeighborLive, b2f(v.Alive))
		s.Set(peripheral.SlotNeighborWealthier, b2f(v.Alive && c.isWealthierThan(d)))
		s.Set(peripheral.SlotNeighborOlder, b2f(v.Alive && c.isOlderThan(d)))
		s.Set(peripheral.SlotIsChild, b2f(c.isCellChild(d)))
		s.Set(peripheral.SlotIsParent, b2f(c.isCellParent(d)))
		s.Set(peripheral.SlotNumBusyCores, float64(k.HW.NumBusyCores()))
		for lev := 0; lev < p.NLev && lev < peripheral.MaxLevels; lev++ {
			s.Set(peripheral.SlotEpoch+lev, float64(c.Channel.Epoch(lev)))
			match := 0.0
			if p.ChannelsVisible {
				match = b2f(c.KinMatch(d, lev))
			}
			s.Set(peripheral.SlotKinMatch+lev, match)
		}
	}
}

// DispatchEnvTriggers launches one core per condition that currently holds,
// for each cardinal, addressed by the cell's event tags.
func (c *Cell) DispatchEnvTriggers(env *Env) {
	p := env.Params
	tags := c.Genome.Tags

	withdrew := false
	for lev := 0; lev < p.NLev; lev++ {
		if c.Stockpile.QueryHarvestWithdrawals(lev) {
			withdrew = true
		}
		c.Stockpile.ResetHarvestWithdrawals(lev)
	}
	expired := c.Channel.IsExpired(0, p.expLimit(0)) > p.ExpGracePeriod
	debt := c.Stockpile.InDebt()
	topID := c.TopID()

	for _, k := range c.Cardinals {
		d := k.Dir
		v := &c.NeighborViews[d]
		launch := func(e genome.Event, lev int, cond bool, anti bool) {
			switch {
			case cond:
				k.HW.TryLaunchCore(tags.Pro(e, lev), 1)
			case anti:
				k.HW.TryLaunchCore(tags.Anti(e, lev), 1)
			}
		}

		launch(genome.EventCellChild, 0, c.isCellChild(d), false)
		launch(genome.EventCellParent, 0, c.isCellParent(d), false)
		launch(genome.EventDebt, 0, debt, false)
		launch(genome.EventExpired, 0, expired, false)
		launch(genome.EventHarvestWithdrawal, 0, withdrew, false)
		if p.ChannelsVisible {
			for lev := 0; lev < p.NLev; lev++ {
				launch(genome.EventKinMatch, lev, c.KinMatch(d, lev), true)
			}
			launch(genome.EventPropaguleChild, 0, v.Alive && family.IsPropaguleChild(topID, v.Family), false)
			launch(genome.EventPropaguleParent, 0, v.Alive && family.IsPropaguleParent(c.Family, v.TopID()), false)
		}
		launch(genome.EventNeighborLive, 0, v.Alive, true)
		if v.Alive {
			launch(genome.EventWealthier, 0, c.isWealthierThan(d), true)
			launch(genome.EventOlder, 0, c.isOlderThan(d), true)
		}
		if p.ChannelsVisible {
			for lev := 0; lev < p.NLev; lev++ {
				launch(genome.EventNeighborExpired, lev, v.Channel.IsExpired(lev, p.expLimit(lev)) > 0, false)
			}
		}
		launch(genome.EventUpdate, 0, true, false)

		k.TryClearReserves()
		k.Membrane.Decay()
	}
}
