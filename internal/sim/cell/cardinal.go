package cell

import (
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/messaging"
	"cellworld.sim/internal/sim/peripheral"
	"cellworld.sim/internal/sim/substrate"
)

// SpawnIntent is the last reproduction call a cardinal made this tick.
type SpawnIntent struct {
	Dir         grid.Dir
	Level       int
	Endowment   float64
	InheritRegs bool
}

// Cardinal is one independently scheduled execution unit, facing Dir.
type Cardinal struct {
	Dir   grid.Dir
	State peripheral.State
	HW    substrate.Hardware

	InterInbox *messaging.Inbox
	IntraInbox *messaging.Inbox
	Outbox     *messaging.Inbox
	Membrane   messaging.Membrane

	InboxActive bool

	StockpileReserve float64
	stockpileFresh   bool
	ReproReserve     float64
	reproFresh       bool

	Spawn *SpawnIntent

	handle handle
}

func newCardinal(c *Cell, d grid.Dir, hw substrate.Hardware, inboxCap int) *Cardinal {
	k := &Cardinal{
		Dir:        d,
		HW:         hw,
		InterInbox: messaging.NewInbox(inboxCap),
		IntraInbox: messaging.NewInbox(inboxCap),
		Outbox:     messaging.NewInbox(inboxCap),
	}
	k.handle = handle{c: c, k: k}
	return k
}

// Peripheral binds the cardinal to env for one hardware run.
func (k *Cardinal) Peripheral(env *Env) substrate.Peripheral {
	k.handle.env = env
	return &k.handle
}

// TryClearReserves zeroes reserves that were not refreshed since the last call.
func (k *Cardinal) TryClearReserves() {
	if !k.stockpileFresh {
		k.StockpileReserve = 0
	}
	k.stockpileFresh = false
	if !k.reproFresh {
		k.ReproReserve = 0
	}
	k.reproFresh = false
}

func (k *Cardinal) reset() {
	k.State.Reset()
	k.HW.Reset()
	k.InterInbox.Clear()
	k.IntraInbox.Clear()
	k.Outbox.Clear()
	k.Membrane.Clear()
	k.InboxActive = false
	k.StockpileReserve, k.stockpileFresh = 0, false
	k.ReproReserve, k.reproFresh = 0, false
	k.Spawn = nil
}

// SetAll writes an introspective slot on every cardinal.
func (c *Cell) SetAll(slot int, v float64) {
	for _, k := range c.Cardinals {
		k.State.Set(slot, v)
	}
}
