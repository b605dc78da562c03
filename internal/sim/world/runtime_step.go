package world

import (
	"fmt"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/introspection"
)

func (w *World) env() cell.Env {
	return cell.Env{
		Tick:    w.tick.Load(),
		Params:  &w.cfg.Params,
		Mutator: w.cfg.Mutator,
		Grid:    w,
	}
}

// publish snapshots every owned cell for its neighbors, then hands staged
// inter-cell messages to the facing cardinals.
func (w *World) publish(p grid.Partition) {
	now := w.tick.Load()
	for i := p.Lo; i < p.Hi; i++ {
		w.views[i] = w.cells[i].Publish(now)
	}
	for i := p.Lo; i < p.Hi; i++ {
		w.cells[i].FlushOutboxes(w)
	}
}

func (w *World) services(p grid.Partition) {
	env := w.env()
	for i := p.Lo; i < p.Hi; i++ {
		w.pipeline.Run(w.cells[i], &env)
	}
}

// resolve lands the accepted birth, if any, then credits contributions. A slot
// that ends the tick dead drops whatever was sent to it.
func (w *World) resolve(p grid.Partition) {
	env := w.env()
	for i := p.Lo; i < p.Hi; i++ {
		c := w.cells[i]
		if pack, ok := c.Priority.QueryPendingGenome(); ok {
			c.PlaceBirth(&env, pack)
		}
		c.Priority.Reset()
		if c.Alive {
			c.Stockpile.ResolveExternalContributions()
		} else {
			c.Stockpile.DiscardExternalContributions()
		}
	}
}

// endTick runs with every worker parked at the tick barrier.
func (w *World) endTick(wantDigest bool) (string, error) {
	now := w.tick.Load()

	var st *introspection.Stats
	if every := uint64(w.cfg.StatsEveryTicks); every > 0 && now%every == 0 {
		s := introspection.Collect(now, w.cfg.Params.NLev, w.cells)
		st = &s
		w.lastStats.Store(st)
		if w.statsWriter != nil {
			if err := w.statsWriter.WriteStats(w.cfg.ID, s); err != nil {
				w.logger.Printf("tick %d: stats: %v", now, err)
			}
		}
	}

	var digest string
	if wantDigest || w.tickLogger != nil {
		digest = w.stateDigest(now)
	}
	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: now, Digest: digest, Stats: st}); err != nil {
			return digest, fmt.Errorf("tick %d: tick log: %w", now, err)
		}
	}
	if w.frames != nil {
		w.frames.PublishFrame(w.frame(now))
	}

	next := w.tick.Add(1)

	// Snapshots carry the state the next tick starts from.
	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && next%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap, err := w.ExportSnapshot()
		if err != nil {
			w.logger.Printf("tick %d: snapshot: %v", now, err)
			return digest, nil
		}
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop snapshot if sink is backed up.
		}
	}
	return digest, nil
}

func (w *World) frame(now uint64) Frame {
	f := Frame{
		WorldID: w.cfg.ID,
		Tick:    now,
		Width:   w.topo.Width,
		Height:  w.topo.Height,
		Kin:     make([]uint16, len(w.cells)),
		Balance: make([]float32, len(w.cells)),
	}
	for i, c := range w.cells {
		if !c.Alive {
			continue
		}
		f.Kin[i] = KinColor(c.TopID())
		f.Balance[i] = float32(c.Balance())
	}
	return f
}
