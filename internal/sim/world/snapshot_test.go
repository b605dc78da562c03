package world

import (
	"path/filepath"
	"testing"

	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/substrate/scripted"
)

func TestSnapshot_ResumeMatchesUninterrupted(t *testing.T) {
	orig := newTestWorld(t, gridConfig(2), scripted.Default())
	for i := 0; i < 12; i++ {
		orig.StepOnce()
	}
	snap, err := orig.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if snap.Header.Tick != 12 {
		t.Fatalf("snapshot tick %d, want 12", snap.Header.Tick)
	}

	path := filepath.Join(t.TempDir(), "12.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	resumed := newTestWorld(t, gridConfig(3), scripted.Default())
	if err := resumed.ImportSnapshot(loaded); err != nil {
		t.Fatalf("import: %v", err)
	}
	if resumed.GetUpdate() != 12 || resumed.Digest() != orig.Digest() {
		t.Fatalf("import did not restore tick-12 state")
	}
	for i := 0; i < 20; i++ {
		ta, da := orig.StepOnce()
		tb, db := resumed.StepOnce()
		if ta != tb || da != db {
			t.Fatalf("tick %d: resumed world diverged", ta)
		}
	}
}

func TestImportSnapshot_RejectsMismatchedGrid(t *testing.T) {
	a := newTestWorld(t, gridConfig(1), scripted.Default())
	snap, err := a.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	cfg := gridConfig(1)
	cfg.Seed++
	b := newTestWorld(t, cfg, scripted.Default())
	if err := b.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected grid mismatch error")
	}
}

type recordingLogger struct{ entries []TickLogEntry }

func (r *recordingLogger) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestEndTick_FeedsSinks(t *testing.T) {
	cfg := gridConfig(2)
	cfg.SnapshotEveryTicks = 5
	cfg.StatsEveryTicks = 2
	w := newTestWorld(t, cfg, scripted.Default())

	tl := &recordingLogger{}
	snaps := make(chan snapshot.SnapshotV1, 4)
	w.SetTickLogger(tl)
	w.SetSnapshotSink(snaps)
	w.SetRunID("run-1")

	var digests []string
	for i := 0; i < 10; i++ {
		_, d := w.StepOnce()
		digests = append(digests, d)
	}
	if len(tl.entries) != 10 {
		t.Fatalf("tick log has %d entries", len(tl.entries))
	}
	for i, e := range tl.entries {
		if e.Tick != uint64(i) || e.Digest != digests[i] {
			t.Fatalf("entry %d = tick %d digest %s", i, e.Tick, e.Digest)
		}
		if (e.Stats != nil) != (i%2 == 0) {
			t.Fatalf("entry %d: stats presence wrong", i)
		}
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	s := <-snaps
	if s.Header.Tick != 5 || s.Header.RunID != "run-1" {
		t.Fatalf("first snapshot header %+v", s.Header)
	}
}
