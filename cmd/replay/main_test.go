package main

import (
	"strings"
	"testing"

	"cellworld.sim/internal/sim/tuning"
	"cellworld.sim/internal/sim/world"
)

type memTicks struct{ entries []world.TickLogEntry }

func (m *memTicks) WriteTick(e world.TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func smallTuning() tuning.Tuning {
	tune := tuning.Defaults()
	tune.World.Width, tune.World.Height, tune.World.Threads = 8, 5, 1
	tune.World.InitialOccupancy = 0.6
	return tune
}

func TestVerify_ReplaysFromSnapshot(t *testing.T) {
	tune := smallTuning()
	factory, err := tune.Factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	orig, err := world.New(tune.WorldConfig(), factory)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	log := &memTicks{}
	orig.SetTickLogger(log)
	for range 3 {
		orig.StepOnce()
	}
	snap, err := orig.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for range 6 {
		orig.StepOnce()
	}

	w, err := restore(tune, snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	var seen []uint64
	checked, err := verify(w, log.entries, 0, 7, func(tick uint64) { seen = append(seen, tick) })
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 5 || len(seen) != 5 || seen[0] != 3 {
		t.Fatalf("checked=%d seen=%v", checked, seen)
	}
}

func TestVerify_ReportsMismatch(t *testing.T) {
	tune := smallTuning()
	factory, _ := tune.Factory()
	orig, err := world.New(tune.WorldConfig(), factory)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	snap, err := orig.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	w, err := restore(tune, snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	entries := []world.TickLogEntry{{Tick: 0, Digest: "bogus"}}
	if _, err := verify(w, entries, 0, 0, nil); err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("want mismatch, got %v", err)
	}
}

func TestRestore_RejectsOtherGrid(t *testing.T) {
	tune := smallTuning()
	factory, _ := tune.Factory()
	orig, err := world.New(tune.WorldConfig(), factory)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	snap, _ := orig.ExportSnapshot()
	tune.Cell.NLev = 1
	tune.Cell.CollectiveHarvestRate = nil
	tune.Cell.QuorumSeedProb = nil
	tune.Cell.QuorumCap = nil
	tune.Cell.ExpLimit = nil
	if _, err := restore(tune, snap); err == nil {
		t.Fatalf("want grid mismatch for nlev change")
	}
}
