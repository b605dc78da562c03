// Package introspection summarizes a grid of cells into population statistics.
package introspection

import (
	"math"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/peripheral"
)

// Stats is one tick's population summary. Means are over live cells and are
// zero when nothing is alive.
type Stats struct {
	Tick uint64 `json:"tick"`

	LiveCells     int `json:"live_cells"`
	LiveCardinals int `json:"live_cardinals"`
	Births        int `json:"births"`
	Deaths        int `json:"deaths"`

	MeanAge         float64   `json:"mean_age"`
	MeanKinGroupAge []float64 `json:"mean_kin_group_age"`
	SpawnFraction   float64   `json:"spawn_fraction"`

	MeanReceived      float64 `json:"mean_received"`
	MeanInterMessages float64 `json:"mean_inter_messages"`
	MeanIntraMessages float64 `json:"mean_intra_messages"`

	MaxBalance  float64 `json:"max_balance"`
	MeanBalance float64 `json:"mean_balance"`

	// Consistent is false if any live cell's cardinals disagree on the balance.
	Consistent bool `json:"consistent"`
}

// Collect walks cells once. Births and deaths count running-log entries
// stamped with tick.
func Collect(tick uint64, nlev int, cells []*cell.Cell) Stats {
	st := Stats{
		Tick:            tick,
		MeanKinGroupAge: make([]float64, nlev),
		MaxBalance:      math.Inf(-1),
		Consistent:      true,
	}
	var age, spawn, received, inter, intra, balance float64
	for _, c := range cells {
		for _, e := range c.Log.Entries {
			if e.Tick != tick {
				continue
			}
			switch e.Kind {
			case cell.LogBirth:
				st.Births++
			case cell.LogDeath:
				st.Deaths++
			}
		}
		if !c.Alive {
			continue
		}
		st.LiveCells++
		st.LiveCardinals += len(c.Cardinals)
		age += float64(c.Age)
		for lev := 0; lev < nlev && lev < c.Channel.NumLevels(); lev++ {
			st.MeanKinGroupAge[lev] += float64(c.Channel.Epoch(lev))
		}
		if c.SpawnRequested {
			spawn++
		}
		for _, k := range c.Cardinals {
			received += k.State.Read(peripheral.SlotResourceReceived)
			inter += k.State.Read(peripheral.SlotIncomingInterMessages)
			intra += k.State.Read(peripheral.SlotIncomingIntraMessages)
		}
		b := c.Balance()
		balance += b
		st.MaxBalance = math.Max(st.MaxBalance, b)
		if !c.Stockpile.Consistent() {
			st.Consistent = false
		}
	}
	if st.LiveCells == 0 {
		st.MaxBalance = 0
		return st
	}
	n := float64(st.LiveCells)
	st.MeanAge = age / n
	for lev := range st.MeanKinGroupAge {
		st.MeanKinGroupAge[lev] /= n
	}
	st.SpawnFraction = spawn / n
	st.MeanReceived = received / float64(st.LiveCardinals)
	st.MeanInterMessages = inter / float64(st.LiveCardinals)
	st.MeanIntraMessages = intra / float64(st.LiveCardinals)
	st.MeanBalance = balance / n
	return st
}
