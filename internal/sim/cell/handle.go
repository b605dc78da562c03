package cell

import (
	"math"
	"math/rand/v2"

	"cellworld.sim/internal/sim/debug"
	"cellworld.sim/internal/sim/family"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/messaging"
	"cellworld.sim/internal/sim/substrate"
)

// handle implements substrate.Peripheral for one cardinal.
type handle struct {
	c   *Cell
	k   *Cardinal
	env *Env
}

var _ substrate.Peripheral = (*handle)(nil)

func (h *handle) dir(off int) grid.Dir { return h.k.Dir.Rotate(off) }

func (h *handle) Facing() int      { return int(h.k.Dir) }
func (h *handle) Update() uint64   { return h.env.Tick }
func (h *handle) Rand() *rand.Rand { return h.c.RNG }

func (h *handle) ReadState(idx int) float64        { return h.k.State.Read(idx) }
func (h *handle) WriteState(idx int, v float64)    { h.k.State.Write(idx, v) }
func (h *handle) AddToState(idx int, v float64)    { h.k.State.AddTo(idx, v) }
func (h *handle) MultiplyState(idx int, v float64) { h.k.State.Multiply(idx, v) }

func (h *handle) Reproduce(dirOffset, level int, endowment float64, inheritRegulators bool) {
	level = min(max(level, 0), h.env.Params.NLev)
	h.k.Spawn = &SpawnIntent{
		Dir:         h.dir(dirOffset),
		Level:       level,
		Endowment:   endowment,
		InheritRegs: inheritRegulators,
	}
}

func (h *handle) SendResource(dirOffset int, fraction, multiplier, reserve float64) {
	c, k, env, d := h.c, h.k, h.env, h.dir(dirOffset)
	c.Stockpile.AddSharingDoer(func() {
		c.share(env, d, fraction*multiplier, reserve+k.StockpileReserve)
	})
}

// share pays a neighbor out of this cell's own balance. The amount is capped
// by both sides' resistances and by the sender's reserve.
func (c *Cell) share(env *Env, d grid.Dir, frac, reserve float64) {
	n := c.Neighbors[d]
	v := env.Grid.Published(n)
	if !v.Alive || v.Balance < 0 {
		return
	}
	inRes := v.InResistance[d.Opp()]
	outRes := c.Stockpile.CheckOutResistance(int(d), env.Tick)
	frac = math.Max(math.Min(1, frac), 0) * (1 - inRes) * (1 - outRes)
	amt := c.Stockpile.RequestResourceFrac(frac, math.Max(reserve, 0))
	if amt > 0 {
		env.Grid.Cell(n).Stockpile.ExternalContribute(amt, int(d.Opp()))
	}
}

func (h *handle) SetInResistance(dirOffset int, v float64, dur uint64) {
	h.c.Stockpile.SetInResistance(int(h.dir(dirOffset)), v, dur, h.env.Tick)
}

func (h *handle) SetOutResistance(dirOffset int, v float64, dur uint64) {
	h.c.Stockpile.SetOutResistance(int(h.dir(dirOffset)), v, dur, h.env.Tick)
}

// PauseRepr files the pause in the destination's priority table under the
// slot only this cell writes.
func (h *handle) PauseRepr(dirOffset, level int, dur uint64) {
	d := h.dir(dirOffset)
	dest := h.env.Grid.Cell(h.c.Neighbors[d])
	dest.Priority.PauseRepr(int(d.Opp()), level, dur, h.env.Tick)
}

func (h *handle) SetStockpileReserve(amt float64) {
	h.k.StockpileReserve = math.Max(0, amt)
	h.k.stockpileFresh = true
}

func (h *handle) SetReproductionReserve(amt float64) {
	h.k.ReproReserve = math.Max(0, amt)
	h.k.reproFresh = true
}

func (h *handle) SendInterMessage(tag substrate.Tag, r substrate.Registers) {
	h.k.Outbox.Push(messaging.Message{Tag: tag, Regs: r})
}

// SendIntraMessage delivers to every sibling cardinal.
func (h *handle) SendIntraMessage(tag substrate.Tag, r substrate.Registers) {
	for _, sib := range h.c.Cardinals {
		if sib != h.k {
			sib.IntraInbox.Push(messaging.Message{Tag: tag, Regs: r})
		}
	}
}

func (h *handle) SetInboxActivity(active bool) { h.k.InboxActive = active }

func (h *handle) PutMembrane(tag substrate.Tag, val int) { h.k.Membrane.Put(tag, val) }

func (h *handle) SetHeir(dirOffset int, dur uint64) {
	h.c.Heir.SetHeir(int(h.dir(dirOffset)), dur, h.env.Tick)
}

func (h *handle) DoApoptosis() { h.c.Apoptosis.MarkComplete() }

func (h *handle) SetQuorumBit(level, bit int) { h.c.Quorum.Set(level, bit) }

// TrySpawn turns a cardinal's spawn intent into a birth request. It reports
// whether the destination accepted.
func (c *Cell) TrySpawn(env *Env, k *Cardinal) bool {
	intent := k.Spawn
	k.Spawn = nil
	if intent == nil {
		return false
	}
	p := env.Params
	bal := c.Stockpile.Query()
	if p.RepThresh > bal-k.ReproReserve {
		return false
	}
	endow := math.Min(math.Max(intent.Endowment, 0), math.Max(bal-p.RepThresh, 0))
	if p.MaxEndowment > 0 {
		endow = math.Min(endow, p.MaxEndowment)
	}

	prevChan := c.Family.PrevChan
	if intent.Level >= p.NLev {
		prevChan = c.TopID()
	}
	child := c.Genome.Clone()
	child.Generation++
	pack := family.SirePack{
		Origin:           c.Index,
		OutgoingDir:      int(intent.Dir),
		IncomingDir:      int(intent.Dir.Opp()),
		Level:            intent.Level,
		Channel:          c.Channel.Snapshot(),
		FamilyGeneration: c.Family.CellGen,
		PrevChan:         prevChan,
		Genome:           child,
		Endowment:        endow,
		Tick:             env.Tick,
	}
	if intent.InheritRegs {
		if r, ok := k.HW.(substrate.Regulated); ok {
			pack.Regulators = r.ViewRegulators()
		} else {
			debug.WarnOnce("regulators", "hardware does not support regulator inheritance; offspring start unregulated")
		}
	}

	dest := c.Neighbors[intent.Dir]
	if !env.Grid.Cell(dest).Priority.AddRequest(pack, env.Tick) {
		return false
	}
	c.Stockpile.Debit(p.RepThresh + endow)
	c.Family.AddChildPos(dest)
	c.SpawnRequested = true
	c.Log.Add(env.Tick, LogSpawn, dest)
	return true
}
