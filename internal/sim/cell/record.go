package cell

import (
	"encoding/binary"
	"fmt"
	"hash"
	"math"

	"cellworld.sim/internal/sim/channel"
	"cellworld.sim/internal/sim/family"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/messaging"
	"cellworld.sim/internal/sim/peripheral"
	"cellworld.sim/internal/sim/quorum"
	"cellworld.sim/internal/sim/stockpile"
	"cellworld.sim/internal/sim/substrate"
)

// CardinalRecord is a cardinal's state at a tick boundary. Inter and intra
// inboxes are always drained there; outboxes are not.
type CardinalRecord struct {
	Slots            [peripheral.NumReadable]float64
	Outbox           []messaging.Message
	Membrane         []messaging.MembraneEntry
	InboxActive      bool
	StockpileReserve float64
	StockpileFresh   bool
	ReproReserve     float64
	ReproFresh       bool
	Hardware         []byte
}

// Record is a gob-friendly copy of a cell at a tick boundary. The program is
// not part of it; Import rebuilds it from the factory.
type Record struct {
	Alive    bool
	JustBorn bool
	Age      uint64
	RNG      []byte

	Channel   channel.Snapshot
	Quorum    quorum.Bits
	Stockpile stockpile.Record
	Family    family.Family
	Pauses    [grid.NumDirs][]uint64
	HeirUntil [grid.NumDirs]uint64
	Apoptosis bool

	Tags       genome.EventTags
	Generation uint64

	Cardinals     [grid.NumDirs]CardinalRecord
	NeighborViews [grid.NumDirs]View
	OutputBuffer  [grid.NumDirs][peripheral.NumOutput]float64

	Log            []LogEntry
	SpawnRequested bool
}

func (c *Cell) Export() (Record, error) {
	rng, err := c.pcg.MarshalBinary()
	if err != nil {
		return Record{}, err
	}
	fam := *c.Family
	fam.ChildPos = append([]int(nil), c.Family.ChildPos...)
	r := Record{
		Alive:          c.Alive,
		JustBorn:       c.JustBorn,
		Age:            c.Age,
		RNG:            rng,
		Channel:        c.Channel.Snapshot(),
		Quorum:         c.Quorum.Clone(),
		Stockpile:      c.Stockpile.Export(),
		Family:         fam,
		Pauses:         c.Priority.Pauses(),
		HeirUntil:      c.Heir.Until(),
		Apoptosis:      c.Apoptosis.IsMarked(),
		Tags:           c.Genome.Tags,
		Generation:     c.Genome.Generation,
		NeighborViews:  c.NeighborViews,
		OutputBuffer:   c.OutputBuffer,
		Log:            append([]LogEntry(nil), c.Log.Entries...),
		SpawnRequested: c.SpawnRequested,
	}
	for d, k := range c.Cardinals {
		kr := CardinalRecord{
			Slots:            k.State.Slots(),
			Outbox:           k.Outbox.Messages(),
			Membrane:         k.Membrane.Entries(),
			InboxActive:      k.InboxActive,
			StockpileReserve: k.StockpileReserve,
			StockpileFresh:   k.stockpileFresh,
			ReproReserve:     k.ReproReserve,
			ReproFresh:       k.reproFresh,
		}
		if st, ok := k.HW.(substrate.Stateful); ok && c.Alive {
			if kr.Hardware, err = st.SaveState(); err != nil {
				return Record{}, fmt.Errorf("cardinal %d hardware: %w", d, err)
			}
		}
		r.Cardinals[d] = kr
	}
	return r, nil
}

// Import overwrites the cell with r. A live cell gets a fresh program from f
// before its RNG is restored, so the restored stream is exactly the saved one.
func (c *Cell) Import(r Record, f substrate.Factory) error {
	c.Alive = r.Alive
	c.JustBorn = r.JustBorn
	c.Age = r.Age
	c.Channel.Restore(r.Channel)
	c.Quorum = r.Quorum.Clone()
	if len(c.Quorum) == 0 {
		c.Quorum = quorum.New(c.Channel.NumLevels())
	}
	c.Stockpile.Import(r.Stockpile)
	*c.Family = r.Family
	c.Priority.SetPauses(r.Pauses)
	c.Heir.SetUntil(r.HeirUntil)
	c.Apoptosis.Clear()
	if r.Apoptosis {
		c.Apoptosis.MarkComplete()
	}
	c.NeighborViews = r.NeighborViews
	c.OutputBuffer = r.OutputBuffer
	c.Log.Entries = append(c.Log.Entries[:0], r.Log...)
	c.SpawnRequested = r.SpawnRequested

	c.Genome = genome.Genome{}
	if c.Alive {
		c.install(genome.Genome{Program: f.NewProgram(c.RNG), Tags: r.Tags, Generation: r.Generation}, nil)
	}
	for d, k := range c.Cardinals {
		kr := r.Cardinals[d]
		k.reset()
		k.State.SetSlots(kr.Slots)
		for _, m := range kr.Outbox {
			k.Outbox.Push(m)
		}
		k.Membrane.Restore(kr.Membrane)
		k.InboxActive = kr.InboxActive
		k.StockpileReserve, k.stockpileFresh = kr.StockpileReserve, kr.StockpileFresh
		k.ReproReserve, k.reproFresh = kr.ReproReserve, kr.ReproFresh
		if len(kr.Hardware) == 0 {
			continue
		}
		st, ok := k.HW.(substrate.Stateful)
		if !ok {
			return fmt.Errorf("cardinal %d: hardware cannot restore saved state", d)
		}
		if err := st.LoadState(kr.Hardware); err != nil {
			return fmt.Errorf("cardinal %d hardware: %w", d, err)
		}
	}
	return c.pcg.UnmarshalBinary(r.RNG)
}

// WriteDigest feeds the cell's canonical state into h. Two cells with equal
// digests are indistinguishable to the simulation apart from program internals.
func (c *Cell) WriteDigest(h hash.Hash) {
	var buf [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	flag := func(b bool) {
		if b {
			u64(1)
		} else {
			u64(0)
		}
	}

	flag(c.Alive)
	if !c.Alive {
		return
	}
	u64(c.Age)
	f64(c.Stockpile.Query())
	for lev := 0; lev < c.Channel.NumLevels(); lev++ {
		id, _ := c.Channel.ID(lev)
		u64(id)
		u64(uint64(c.Channel.Generation(lev)))
		u64(uint64(c.Channel.Epoch(lev)))
	}
	for _, w := range c.Quorum {
		u64(w)
	}
	u64(uint64(int64(c.Family.ParentPos)))
	u64(c.Family.CellGen)
	u64(c.Family.BirthTick)
	u64(c.Genome.Generation)
	for _, t := range c.Genome.Tags {
		u64(uint64(t))
	}
	for _, k := range c.Cardinals {
		for _, v := range k.State.Slots() {
			f64(v)
		}
	}
}
