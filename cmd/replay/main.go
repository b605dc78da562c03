package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "cellworld.sim/internal/persistence/log"
	"cellworld.sim/internal/persistence/snapshot"
	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/tuning"
	"cellworld.sim/internal/sim/world"
	"cellworld.sim/internal/viz"
)

func main() {
	var (
		snapPath    = flag.String("snapshot", "", "path to .snap.zst")
		ticksDir    = flag.String("ticks", "", "tick log dir (default: <world dir>/ticks next to the snapshot)")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "tuning the run used")
		fromTick    = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick      = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		render      = flag.Bool("render", false, "print the grid after the replay")
		renderEvery = flag.Uint64("render_every", 0, "also print the grid every N ticks")
		paint       = flag.String("paint", "kin", "render colors: kin or balance")
		level       = flag.Int("level", -1, "lineage level for -paint kin (default: coarsest)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	live := 0
	for _, c := range snap.Cells {
		if c.Alive {
			live++
		}
	}
	fmt.Printf("snapshot v%d run=%s world=%s tick=%d grid=%dx%d seed=%d nlev=%d live=%d\n",
		snap.Header.Version, snap.Header.RunID, snap.Header.WorldID, snap.Header.Tick,
		snap.Grid.Width, snap.Grid.Height, snap.Grid.Seed, snap.Grid.NLev, live)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	w, err := restore(tune, snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dir := *ticksDir
	if dir == "" {
		dir = persistlog.TickDir(filepath.Dir(filepath.Dir(*snapPath)))
	}
	entries, err := persistlog.ReadTicksFrom(dir, snap.Header.Tick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read tick log:", err)
		os.Exit(1)
	}

	painter := painterFor(*paint, *level, snap.Grid.NLev, tune.Cell.RepThresh)
	var onTick func(tick uint64)
	if *renderEvery > 0 {
		onTick = func(tick uint64) {
			if tick%*renderEvery == 0 {
				printGrid(w, painter)
			}
		}
	}

	checked, err := verify(w, entries, *fromTick, *toTick, onTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d)\n", checked, snap.Header.Tick)
	if *render {
		printGrid(w, painter)
	}
}

// restore builds the snapshot's world with the tuning's rules on a single
// partition, so births resolve in index order.
func restore(tune tuning.Tuning, snap snapshot.SnapshotV1) (*world.World, error) {
	factory, err := tune.Factory()
	if err != nil {
		return nil, fmt.Errorf("substrate: %w", err)
	}
	cfg := tune.WorldConfig()
	cfg.ID = snap.Header.WorldID
	cfg.Width, cfg.Height = snap.Grid.Width, snap.Grid.Height
	cfg.Seed, cfg.UIDOffset = snap.Grid.Seed, snap.Grid.UIDOffset
	cfg.NThreads = 1
	w, err := world.New(cfg, factory)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return w, nil
}

// verify steps w through the logged ticks and compares digests from
// verifyFrom on. Entries before the world's tick are skipped.
func verify(w *world.World, entries []world.TickLogEntry, verifyFrom, toTick uint64, onTick func(uint64)) (uint64, error) {
	if verifyFrom == 0 {
		verifyFrom = w.GetUpdate()
	}
	var checked uint64
	for _, entry := range entries {
		if entry.Tick < w.GetUpdate() {
			continue
		}
		if toTick != 0 && entry.Tick > toTick {
			break
		}
		if entry.Tick != w.GetUpdate() {
			return checked, fmt.Errorf("tick gap: want=%d got=%d", w.GetUpdate(), entry.Tick)
		}
		tick, got := w.StepOnce()
		if onTick != nil {
			onTick(tick)
		}
		if tick < verifyFrom {
			continue
		}
		checked++
		if got != entry.Digest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, got, entry.Digest)
		}
	}
	return checked, nil
}

func painterFor(kind string, level, nlev int, repThresh float64) viz.Painter {
	if kind == "balance" {
		return viz.Alive(viz.Balance(max(2*repThresh, 1)))
	}
	if level < 0 || level >= nlev {
		level = nlev - 1
	}
	return viz.Alive(viz.Kin(level))
}

func printGrid(w *world.World, p viz.Painter) {
	live := 0
	views := make([]cell.View, w.GetSize())
	for i := range views {
		views[i] = w.View(i)
		if views[i].Alive {
			live++
		}
	}
	fmt.Println(viz.Header(w.ID(), w.GetUpdate(), live, len(views)))
	fmt.Println(viz.Render(views, w.Topology().Width, p))
}
