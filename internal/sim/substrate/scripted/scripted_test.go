package scripted

import (
	"testing"

	"cellworld.sim/internal/sim/substrate"
)

type recorder struct {
	substrate.Peripheral
	writes map[int]float64
}

func (r *recorder) WriteState(idx int, v float64) { r.writes[idx] = v }

func newRecorder() *recorder { return &recorder{writes: map[int]float64{}} }

func twoModules() *Program {
	return &Program{Modules: []Module{
		{Tag: 0x00, Fn: func(p substrate.Peripheral, r substrate.Registers) { p.WriteState(0, r[0]) }},
		{Tag: 0xff, Fn: func(p substrate.Peripheral, r substrate.Registers) { p.WriteState(1, r[0]) }},
	}}
}

func TestLaunch_NearestModuleRunsWithRegisters(t *testing.T) {
	hw := NewHardware(2)
	hw.SetProgram(twoModules())
	if !hw.TryLaunchCore(0xfe, 1) {
		t.Fatalf("expected launch")
	}
	hw.SetRegisters(substrate.Registers{7})
	if hw.NumBusyCores() != 1 {
		t.Fatalf("busy=%d", hw.NumBusyCores())
	}
	rec := newRecorder()
	hw.Process(1, rec)
	if rec.writes[1] != 7 {
		t.Fatalf("module 1 should run with registers, writes=%v", rec.writes)
	}
	if _, ok := rec.writes[0]; ok {
		t.Fatalf("module 0 should not run")
	}
	if hw.NumBusyCores() != 0 {
		t.Fatalf("cores should retire after running")
	}
}

func TestLaunch_RespectsCoreLimitAndThreshold(t *testing.T) {
	hw := NewHardware(1)
	hw.Threshold = 2
	hw.SetProgram(twoModules())
	if hw.TryLaunchCore(0x0f, 1) {
		t.Fatalf("tag four bits away should not match with threshold 2")
	}
	if !hw.TryLaunchCore(0x01, 1) {
		t.Fatalf("close tag should launch")
	}
	if hw.TryLaunchCore(0x01, 1) {
		t.Fatalf("second launch should fail with one core")
	}
	hw.Reset()
	if hw.NumBusyCores() != 0 {
		t.Fatalf("reset should clear cores")
	}
}

func TestRegulators_BiasMatching(t *testing.T) {
	hw := NewHardware(4)
	hw.SetProgram(twoModules())
	if got := hw.Match(0x0f); len(got) != 2 || got[0] != 0 {
		t.Fatalf("tie should keep module order, got %v", got)
	}
	hw.SetRegulators(substrate.RegulatorState{0, 1})
	if got := hw.Match(0x0f); got[0] != 1 {
		t.Fatalf("regulated module should rank first, got %v", got)
	}
	view := hw.ViewRegulators()
	view[1] = 99
	if hw.MatchRaw(0x0f)[1] != 3 {
		t.Fatalf("ViewRegulators must return a copy")
	}
}

func TestClone_IndependentModuleSlice(t *testing.T) {
	p := twoModules()
	c := p.Clone().(*Program)
	c.Modules[0].Tag = 0x1234
	if p.Modules[0].Tag != 0 {
		t.Fatalf("clone shares module slice")
	}
}

func TestSaveLoadState_RestoresPendingCores(t *testing.T) {
	hw := NewHardware(4)
	hw.SetProgram(twoModules())
	hw.TryLaunchCore(0xff, 1)
	hw.SetRegisters(substrate.Registers{5})
	hw.SetRegulators(substrate.RegulatorState{0.5, 0})
	b, err := hw.SaveState()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewHardware(4)
	restored.SetProgram(twoModules())
	if err := restored.LoadState(b); err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.NumBusyCores() != 1 || restored.ViewRegulators()[0] != 0.5 {
		t.Fatalf("restored busy=%d regs=%v", restored.NumBusyCores(), restored.ViewRegulators())
	}
	rec := newRecorder()
	restored.Process(1, rec)
	if rec.writes[1] != 5 {
		t.Fatalf("restored core should run, writes=%v", rec.writes)
	}
}
