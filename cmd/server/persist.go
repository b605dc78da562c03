package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"cellworld.sim/internal/persistence/archive"
	"cellworld.sim/internal/persistence/indexdb"
	persistlog "cellworld.sim/internal/persistence/log"
	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/world"
)

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return err
}

type persistOptions struct {
	ArchiveEveryTicks uint64
	KeepSnapshots     int
}

// tilePersistence owns one world's tick log and snapshot writer.
type tilePersistence struct {
	worldDir string
	opts     persistOptions
	idx      *indexdb.SQLiteIndex
	logger   *log.Logger

	tickLog *persistlog.TickLogger
	snapCh  chan snapshot.SnapshotV1
	wg      sync.WaitGroup
}

func snapshotDir(worldDir string) string { return filepath.Join(worldDir, "snapshots") }

func attachPersistence(w *world.World, worldDir string, idx *indexdb.SQLiteIndex, opts persistOptions, logger *log.Logger) *tilePersistence {
	p := &tilePersistence{
		worldDir: worldDir,
		opts:     opts,
		idx:      idx,
		logger:   logger,
		tickLog:  persistlog.NewTickLogger(worldDir),
		snapCh:   make(chan snapshot.SnapshotV1, 2),
	}
	var tl world.TickLogger = p.tickLog
	if idx != nil {
		tl = multiTickLogger{a: p.tickLog, b: idx.ForWorld(w.ID())}
		w.SetStatsWriter(idx)
	}
	w.SetTickLogger(tl)
	w.SetSnapshotSink(p.snapCh)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for snap := range p.snapCh {
			p.write(snap)
		}
	}()
	return p
}

func (p *tilePersistence) write(snap snapshot.SnapshotV1) {
	path := filepath.Join(snapshotDir(p.worldDir), fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		p.logger.Printf("snapshot write: %v", err)
		return
	}
	if p.idx != nil {
		p.idx.RecordSnapshot(path, snap)
	}
	if archived, ok, err := archive.ArchiveMilestone(p.worldDir, path, snap, p.opts.ArchiveEveryTicks); err != nil {
		p.logger.Printf("archive milestone: %v", err)
	} else if ok {
		p.logger.Printf("archived tick=%d to %s", snap.Header.Tick, archived)
	}
	if _, err := archive.PruneSnapshots(snapshotDir(p.worldDir), p.opts.KeepSnapshots); err != nil {
		p.logger.Printf("prune snapshots: %v", err)
	}
}

// Close drains queued snapshots, writes final if non-nil, and closes the
// tick log. Call it only after the world has stopped.
func (p *tilePersistence) Close(final *snapshot.SnapshotV1) error {
	close(p.snapCh)
	p.wg.Wait()
	if final != nil {
		p.write(*final)
	}
	return p.tickLog.Close()
}
