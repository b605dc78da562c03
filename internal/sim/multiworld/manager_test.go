package multiworld

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/service"
	"cellworld.sim/internal/sim/substrate/scripted"
	"cellworld.sim/internal/sim/world"
)

func baseConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:               "base",
		Width:            6,
		Height:           4,
		NThreads:         2,
		Seed:             9,
		InitialOccupancy: 0.5,
		InitialBalance:   3,
		Params: cell.Params{
			NLev:          2,
			HardwareSteps: 1,
			InboxCapacity: 4,
			RepThresh:     2,
			BaseHarvest:   0.5,
			ResourceDecay: 1,
		},
		Frequencies: service.DefaultFrequencies(),
	}
}

func twoTiles() Config {
	return Config{Tiles: []TileSpec{{ID: "a"}, {ID: "b", SeedOffset: 1, Threads: 1}}}
}

func TestManager_RunsTilesToBudget(t *testing.T) {
	base := baseConfig()
	base.RunUpdates = 6
	var buf bytes.Buffer
	m, err := NewManager(twoTiles(), base, scripted.Factory{}, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	final, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final["a"] != 6 || final["b"] != 6 {
		t.Fatalf("final ticks: %v", final)
	}
	out := buf.String()
	for _, want := range []string{"[tile a] partition 0: start", "[tile b] partition 0: stop", "tile b: final tick=6"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
}

func TestManager_TileMatchesStandaloneWorld(t *testing.T) {
	base := baseConfig()
	base.RunUpdates = 5
	m, err := NewManager(twoTiles(), base, scripted.Factory{}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	b := m.Tiles()[1]
	solo := base
	solo.ID = "b"
	solo.Seed = base.Seed + 1
	solo.UIDOffset = b.Spec.UIDOffset
	solo.NThreads = 1
	w, err := world.New(solo, scripted.Factory{})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	for w.GetUpdate() < 5 {
		w.StepOnce()
	}
	if got, want := b.World.Digest(), w.Digest(); got != want {
		t.Fatalf("tile digest %s, standalone %s", got, want)
	}
	if m.Tiles()[0].World.Digest() == b.World.Digest() {
		t.Fatalf("tiles with different seeds produced identical states")
	}
}

// stopAt cancels the run when its tile publishes the given tick.
type stopAt struct {
	tick   uint64
	cancel context.CancelFunc
	once   sync.Once
}

func (s *stopAt) PublishFrame(f world.Frame) {
	if f.Tick >= s.tick {
		s.once.Do(s.cancel)
	}
}

func TestManager_TilesStopTogether(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, err := NewManager(twoTiles(), baseConfig(), scripted.Factory{}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Tiles()[0].World.SetFrameSink(&stopAt{tick: 3, cancel: cancel})

	final, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final["a"] == 0 || final["a"] != final["b"] {
		t.Fatalf("tiles stopped apart: %v", final)
	}
}

func TestNewManager_RejectsOverlappingUIDs(t *testing.T) {
	cfg := Config{Tiles: []TileSpec{{ID: "a", UIDOffset: 1}, {ID: "b", UIDOffset: 2}}}
	if _, err := NewManager(cfg, baseConfig(), scripted.Factory{}, nil); err == nil {
		t.Fatalf("want overlap error")
	}
}

// overlapWriter counts Writes that start while another is in flight.
type overlapWriter struct {
	inFlight atomic.Int32
	overlaps atomic.Int32
	n        atomic.Int32
}

func (w *overlapWriter) Write(p []byte) (int, error) {
	if w.inFlight.Add(1) > 1 {
		w.overlaps.Add(1)
	}
	time.Sleep(50 * time.Microsecond)
	w.inFlight.Add(-1)
	w.n.Add(1)
	return len(p), nil
}

func TestManager_TileLogWritesAreSerialized(t *testing.T) {
	base := baseConfig()
	base.RunUpdates = 4
	w := &overlapWriter{}
	m, err := NewManager(twoTiles(), base, scripted.Factory{}, log.New(w, "", 0))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w.n.Load() == 0 {
		t.Fatalf("expected tile log output")
	}
	if n := w.overlaps.Load(); n != 0 {
		t.Fatalf("%d concurrent writes reached the shared output", n)
	}
}
