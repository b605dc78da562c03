// Package worldtest drives whole worlds through their exported API, the way
// cmd/server and cmd/replay do.
package worldtest

import (
	"path/filepath"
	"testing"

	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/tuning"
	"cellworld.sim/internal/sim/world"
)

// ConfigDir is the repository's sample configuration.
const ConfigDir = "../../../configs"

type Harness struct {
	T    *testing.T
	Tune tuning.Tuning
	W    *world.World
}

// LoadTuning reads the sample tuning.yaml and shrinks it to a grid small
// enough for unit tests.
func LoadTuning(t *testing.T, width, height, threads int) tuning.Tuning {
	t.Helper()
	tune, err := tuning.Load(filepath.Join(ConfigDir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	tune.World.Width, tune.World.Height, tune.World.Threads = width, height, threads
	tune.Run.Updates, tune.Run.Seconds = 0, 0
	return tune
}

func NewHarness(t *testing.T, tune tuning.Tuning) *Harness {
	t.Helper()
	factory, err := tune.Factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	w, err := world.New(tune.WorldConfig(), factory)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, Tune: tune, W: w}
}

// StepFor runs n ticks and returns the digest after each.
func (h *Harness) StepFor(n int) []string {
	h.T.Helper()
	out := make([]string, 0, n)
	for range n {
		_, d := h.W.StepOnce()
		out = append(out, d)
	}
	return out
}

// SaveAndReload writes the world to disk and returns a fresh harness built
// from the same tuning and resumed from that file.
func (h *Harness) SaveAndReload() *Harness {
	h.T.Helper()
	snap, err := h.W.ExportSnapshot()
	if err != nil {
		h.T.Fatalf("export: %v", err)
	}
	path := filepath.Join(h.T.TempDir(), "resume.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		h.T.Fatalf("write snapshot: %v", err)
	}
	read, err := snapshot.ReadSnapshot(path)
	if err != nil {
		h.T.Fatalf("read snapshot: %v", err)
	}
	h2 := NewHarness(h.T, h.Tune)
	if err := h2.W.ImportSnapshot(read); err != nil {
		h.T.Fatalf("import: %v", err)
	}
	return h2
}

// LiveCells counts occupied slots.
func (h *Harness) LiveCells() int {
	n := 0
	for i := range h.W.GetSize() {
		if h.W.IsAlive(i) {
			n++
		}
	}
	return n
}
