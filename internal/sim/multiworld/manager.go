// Package multiworld runs several independent worlds in lockstep: every tile
// finishes tick t before any tile starts tick t+1, and all tiles stop at the
// same boundary.
package multiworld

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"cellworld.sim/internal/sim/barrier"
	"cellworld.sim/internal/sim/substrate"
	"cellworld.sim/internal/sim/world"
)

type Tile struct {
	Spec  TileSpec
	World *world.World
}

type Manager struct {
	tiles  []*Tile
	logger *log.Logger
}

// NewManager builds one world per tile from base. Each world logs through
// logger's output with a [tile ID] prefix; writes from all tiles are
// serialized, so the output need not be safe for concurrent use.
func NewManager(cfg Config, base world.WorldConfig, factory substrate.Factory, logger *log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Tiles = append([]TileSpec(nil), cfg.Tiles...)
	cfg.Normalize(base.Width, base.Height)
	if err := checkUIDRanges(cfg.Tiles); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	out := &lockedWriter{w: logger.Writer()}
	m := &Manager{logger: log.New(out, logger.Prefix(), logger.Flags())}
	for _, spec := range cfg.Tiles {
		wc := base
		wc.ID = spec.ID
		wc.Seed = base.Seed + spec.SeedOffset
		wc.UIDOffset = spec.UIDOffset
		wc.Width = spec.Width
		wc.Height = spec.Height
		if spec.Threads > 0 {
			wc.NThreads = spec.Threads
		}
		w, err := world.New(wc, factory)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", spec.ID, err)
		}
		w.SetLogger(log.New(out, fmt.Sprintf("[tile %s] ", spec.ID), logger.Flags()))
		m.tiles = append(m.tiles, &Tile{Spec: spec, World: w})
	}
	return m, nil
}

func (m *Manager) Tiles() []*Tile { return m.tiles }

// Run drives every tile until all of them agree to stop, and returns the
// final tick per tile id.
func (m *Manager) Run(ctx context.Context) (map[string]uint64, error) {
	ls := newLockstep(len(m.tiles))
	for _, t := range m.tiles {
		t.World.SetGate(ls.gate)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range m.tiles {
		g.Go(func() error {
			if err := t.World.Run(gctx); err != nil {
				return fmt.Errorf("tile %s: %w", t.Spec.ID, err)
			}
			return nil
		})
	}
	err := g.Wait()

	final := make(map[string]uint64, len(m.tiles))
	for _, t := range m.tiles {
		final[t.Spec.ID] = t.World.GetUpdate()
		m.logger.Printf("tile %s: final tick=%d", t.Spec.ID, final[t.Spec.ID])
	}
	return final, err
}

// lockstep joins the per-tick continuation checks of every tile. A tile
// that wants to stop stops them all.
type lockstep struct {
	b    *barrier.Barrier
	mu   sync.Mutex
	stop bool
	keep bool
}

func newLockstep(n int) *lockstep { return &lockstep{b: barrier.New(n)} }

func (l *lockstep) gate(keepRunning bool) bool {
	if !keepRunning {
		l.mu.Lock()
		l.stop = true
		l.mu.Unlock()
	}
	l.b.Wait(func() {
		l.keep = !l.stop
		l.stop = false
	})
	return l.keep
}

// lockedWriter serializes writes from the per-tile loggers, which each hold
// their own mutex.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
