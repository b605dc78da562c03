package world

import (
	"fmt"

	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/cell"
)

// ExportSnapshot captures the world between ticks. It must not run while a
// tick is in flight; the tick barrier and StepOnce callers satisfy that.
func (w *World) ExportSnapshot() (snapshot.SnapshotV1, error) {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			RunID:   w.runID,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
		},
		Grid:  w.gridV1(),
		Cells: make([]cell.Record, len(w.cells)),
	}
	for i, c := range w.cells {
		r, err := c.Export()
		if err != nil {
			return snapshot.SnapshotV1{}, fmt.Errorf("cell %d: %w", i, err)
		}
		snap.Cells[i] = r
	}
	return snap, nil
}

// ImportSnapshot replaces every cell's state. The world must have been built
// with the same grid parameters the snapshot was taken under.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("%w: %d", snapshot.ErrVersion, snap.Header.Version)
	}
	if snap.Grid != w.gridV1() {
		return fmt.Errorf("snapshot grid %+v does not match world %+v", snap.Grid, w.gridV1())
	}
	if len(snap.Cells) != len(w.cells) {
		return fmt.Errorf("snapshot has %d cells, world has %d", len(snap.Cells), len(w.cells))
	}
	for i, r := range snap.Cells {
		if err := w.cells[i].Import(r, w.factory); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
	}
	w.tick.Store(snap.Header.Tick)
	if snap.Header.RunID != "" {
		w.runID = snap.Header.RunID
	}
	return nil
}

func (w *World) gridV1() snapshot.GridV1 {
	return snapshot.GridV1{
		Width:     w.topo.Width,
		Height:    w.topo.Height,
		Seed:      w.cfg.Seed,
		UIDOffset: w.cfg.UIDOffset,
		NLev:      w.cfg.Params.NLev,
	}
}
