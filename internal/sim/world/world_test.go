package world

import (
	"context"
	"testing"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/grid"
	"cellworld.sim/internal/sim/substrate/scripted"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := lineConfig(1)
	cfg.Width = 0
	if _, err := New(cfg, scripted.Factory{}); err == nil {
		t.Fatalf("expected error for zero width")
	}
	cfg = lineConfig(1)
	cfg.Params.NLev = 0
	if _, err := New(cfg, scripted.Factory{}); err == nil {
		t.Fatalf("expected error for nlev 0")
	}
	if _, err := New(lineConfig(1), nil); err == nil {
		t.Fatalf("expected error for nil factory")
	}
}

func TestNew_ClampsThreads(t *testing.T) {
	w := newTestWorld(t, lineConfig(99), &scripted.Program{})
	if got := len(w.Partitions()); got != 4 {
		t.Fatalf("partitions = %d, want 4", got)
	}
	if w.GetSize() != 4 || w.GetUpdate() != 0 {
		t.Fatalf("size=%d update=%d", w.GetSize(), w.GetUpdate())
	}
}

func TestScenario_ReproduceIntoEmptyNeighbor(t *testing.T) {
	const endow = 7.5
	for _, threads := range []int{1, 4} {
		cfg := lineConfig(threads)
		cfg.RunUpdates = 1
		prog := reproduceAt(int(grid.East), 1, endow)
		w := newTestWorld(t, cfg, prog)
		w.Cell(0).Seed(0, scripted.Factory{Template: prog}, 100)
		parentID, _ := w.Cell(0).Channel.ID(0)

		if err := w.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		if w.GetUpdate() != 1 {
			t.Fatalf("threads=%d: ran to tick %d", threads, w.GetUpdate())
		}
		if !w.IsAlive(1) {
			t.Fatalf("threads=%d: position 1 should be occupied", threads)
		}
		if got, want := w.Cell(0).Balance(), 100-(endow+cfg.Params.RepThresh); got != want {
			t.Fatalf("threads=%d: parent balance %v, want %v", threads, got, want)
		}
		if got := w.Cell(1).Balance(); got != endow {
			t.Fatalf("threads=%d: child balance %v, want %v", threads, got, endow)
		}
		childID, ok := w.Cell(1).Channel.ID(0)
		if !ok || childID == parentID {
			t.Fatalf("threads=%d: child level-0 id %x should be fresh (parent %x)", threads, childID, parentID)
		}
		if w.Cell(1).Family.ParentPos != 0 || !w.Cell(0).Family.HasChildPos(1) {
			t.Fatalf("threads=%d: family links not recorded", threads)
		}
		if w.IsAlive(2) || w.IsAlive(3) {
			t.Fatalf("threads=%d: unexpected births", threads)
		}
	}
}

func TestScenario_MutualReproduction(t *testing.T) {
	for _, threads := range []int{1, 2, 4} {
		cfg := lineConfig(threads)
		cfg.RunUpdates = 1
		east := reproduceAt(int(grid.East), 0, 5)
		west := reproduceAt(int(grid.West), 0, 5)
		w := newTestWorld(t, cfg, east)
		w.Cell(0).Seed(0, scripted.Factory{Template: east}, 50)
		w.Cell(1).Seed(0, scripted.Factory{Template: west}, 50)

		if err := w.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		for pos, parent := range map[int]int{0: 1, 1: 0} {
			c := w.Cell(pos)
			if !c.Alive || c.Family.ParentPos != parent {
				t.Fatalf("threads=%d: position %d alive=%v parent=%d, want child of %d", threads, pos, c.Alive, c.Family.ParentPos, parent)
			}
			births := 0
			for _, e := range c.Log.Entries {
				if e.Kind == cell.LogBirth {
					births++
				}
			}
			if births != 1 {
				t.Fatalf("threads=%d: position %d realized %d births", threads, pos, births)
			}
		}
	}
}

func TestStepOnce_DeterministicDigests(t *testing.T) {
	a := newTestWorld(t, gridConfig(1), scripted.Default())
	b := newTestWorld(t, gridConfig(3), scripted.Default())
	for i := 0; i < 40; i++ {
		ta, da := a.StepOnce()
		tb, db := b.StepOnce()
		if ta != tb || da != db {
			t.Fatalf("tick %d: digest mismatch %s vs %s", ta, da, db)
		}
	}
	if st := a.LastStats(); st == nil || !st.Consistent {
		t.Fatalf("stats missing or inconsistent: %+v", st)
	}
}

func TestRun_ThreadedMatchesSequential(t *testing.T) {
	const ticks = 30
	seq := newTestWorld(t, gridConfig(1), sharer())
	for i := 0; i < ticks; i++ {
		seq.StepOnce()
	}

	cfg := gridConfig(4)
	cfg.RunUpdates = ticks
	par := newTestWorld(t, cfg, sharer())
	if err := par.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if par.GetUpdate() != ticks {
		t.Fatalf("parallel run stopped at %d", par.GetUpdate())
	}
	if seq.Digest() != par.Digest() {
		t.Fatalf("threaded run diverged from sequential run")
	}
}

func TestRun_ThreadedReproductionKeepsLedgersConsistent(t *testing.T) {
	cfg := gridConfig(4)
	cfg.RunUpdates = 60
	w := newTestWorld(t, cfg, scripted.Default())
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	st := w.LastStats()
	if st == nil || st.Tick != 59 || !st.Consistent {
		t.Fatalf("final stats: %+v", st)
	}
	for i, c := range w.Cells() {
		if !c.Stockpile.Consistent() {
			t.Fatalf("cell %d: cardinal balances diverged", i)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := newTestWorld(t, gridConfig(2), scripted.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if w.GetUpdate() != 0 {
		t.Fatalf("cancelled run advanced to %d", w.GetUpdate())
	}
}

func TestRun_GateStopsAllWorkers(t *testing.T) {
	w := newTestWorld(t, gridConfig(3), scripted.Default())
	calls := 0
	w.SetGate(func(keep bool) bool {
		calls++
		return keep && calls <= 5
	})
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if w.GetUpdate() != 5 {
		t.Fatalf("gate should allow exactly 5 ticks, ran %d", w.GetUpdate())
	}
}
