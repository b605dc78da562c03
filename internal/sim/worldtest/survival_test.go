package worldtest

import "testing"

func TestLongRun_StockpilesStayConsistent(t *testing.T) {
	tune := LoadTuning(t, 16, 12, 1)
	tune.Run.StatsEveryTicks = 10
	h := NewHarness(t, tune)

	// Stats are sampled on ticks divisible by 10; end each batch on one.
	h.StepFor(1)
	for range 20 {
		h.StepFor(10)
		st := h.W.LastStats()
		if st == nil || st.Tick+1 != h.W.GetUpdate() {
			t.Fatalf("no fresh stats by tick %d", h.W.GetUpdate())
		}
		if !st.Consistent {
			t.Fatalf("tick %d: cardinal stockpiles diverged", st.Tick)
		}
		if st.LiveCells != h.LiveCells() {
			t.Fatalf("tick %d: stats count %d live cells, grid has %d", st.Tick, st.LiveCells, h.LiveCells())
		}
	}
}
