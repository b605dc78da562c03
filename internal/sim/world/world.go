// Package world runs a toroidal grid of cells, partitioned across workers.
//
// A tick has three phases separated by barriers: publish (each cell exposes a
// read-only View and flushes staged messages), services (the pipeline runs on
// every owned cell), and resolve (accepted births land and contributions are
// credited). The last worker to finish a tick runs the bookkeeping: stats,
// tick log, frames, snapshots, and the continuation check.
package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/introspection"
	"cellworld.sim/internal/sim/service"
	"cellworld.sim/internal/sim/substrate"
)

type World struct {
	cfg      WorldConfig
	topo     grid.Topology
	factory  substrate.Factory
	pipeline service.Pipeline
	parts    []grid.Partition

	cells []*cell.Cell
	views []cell.View

	tick      atomic.Uint64
	startedAt time.Time
	runErr    error
	lastStats atomic.Pointer[introspection.Stats]

	runID        string
	logger       *log.Logger
	tickLogger   TickLogger
	statsWriter  StatsWriter
	frames       FrameSink
	snapshotSink chan<- snapshot.SnapshotV1
	gate         Gate
}

// New builds the grid and seeds founders. Every slot draws its occupancy from
// its own RNG so the layout depends only on (Seed, UIDOffset).
func New(cfg WorldConfig, factory substrate.Factory) (*World, error) {
	if factory == nil {
		return nil, fmt.Errorf("world %q: nil substrate factory", cfg.ID)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("world %q: %w", cfg.ID, err)
	}
	topo := grid.Topology{Width: cfg.Width, Height: cfg.Height}
	w := &World{
		cfg:      cfg,
		topo:     topo,
		factory:  factory,
		pipeline: service.New(cfg.Frequencies),
		parts:    grid.Split(topo.Size(), cfg.NThreads),
		cells:    make([]*cell.Cell, topo.Size()),
		views:    make([]cell.View, topo.Size()),
		logger:   log.New(io.Discard, "", 0),
	}
	for i := range w.cells {
		c := cell.New(i, topo.Neighbors(i), &w.cfg.Params, cfg.Seed, uint64(i)+cfg.UIDOffset, factory)
		if c.RNG.Float64() < cfg.InitialOccupancy {
			c.Seed(0, factory, cfg.InitialBalance)
		}
		w.cells[i] = c
	}
	return w, nil
}

func (w *World) SetLogger(l *log.Logger) {
	if l != nil {
		w.logger = l
	}
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetStatsWriter(s StatsWriter)                  { w.statsWriter = s }
func (w *World) SetFrameSink(f FrameSink)                      { w.frames = f }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }
func (w *World) SetGate(g Gate)                                { w.gate = g }
func (w *World) SetRunID(id string)                            { w.runID = id }

func (w *World) ID() string                   { return w.cfg.ID }
func (w *World) Config() WorldConfig          { return w.cfg }
func (w *World) Topology() grid.Topology      { return w.topo }
func (w *World) Partitions() []grid.Partition { return w.parts }

// GetUpdate is the tick the world will run next.
func (w *World) GetUpdate() uint64 { return w.tick.Load() }

func (w *World) GetSize() int { return len(w.cells) }

func (w *World) IsAlive(i int) bool { return w.cells[i].Alive }

// View is the cell as a neighbor would see it right now. Only safe between ticks.
func (w *World) View(i int) cell.View { return w.cells[i].Publish(w.tick.Load()) }

// Cell returns the live record for index i. It also satisfies cell.Grid.
func (w *World) Cell(i int) *cell.Cell { return w.cells[i] }

// Published returns the view cell i published at the start of this tick.
func (w *World) Published(i int) *cell.View { return &w.views[i] }

// LastStats is the most recent introspection sample, or nil before the first.
func (w *World) LastStats() *introspection.Stats { return w.lastStats.Load() }

// Cells exposes the grid for read-only inspection between ticks.
func (w *World) Cells() []*cell.Cell { return w.cells }
