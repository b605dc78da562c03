// Package starlark runs cell programs written in Starlark.
//
// A script may define step(cell), called once per hardware step, and
// on_message(cell, tag, regs), called for each launched core. The cell value
// exposes the Peripheral as builtins plus read-only slot constants.
package starlark

import (
	"fmt"
	"math/rand/v2"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"cellworld.sim/internal/sim/debug"
	"cellworld.sim/internal/sim/peripheral"
	"cellworld.sim/internal/sim/substrate"
)

// DefaultMaxSteps caps interpreter work per hardware Process call.
const DefaultMaxSteps = 100_000

// Program is a compiled, frozen script. Clones share the frozen globals.
type Program struct {
	name    string
	globals starlark.StringDict
	step    starlark.Callable
	onMsg   starlark.Callable
}

func (p *Program) Clone() substrate.Program { return p }

func (p *Program) Name() string { return p.name }

// Compile executes src once to collect its top-level functions.
func Compile(name string, src []byte) (*Program, error) {
	thread := &starlark.Thread{Name: "compile:" + name}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, name, src, predeclared())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	globals.Freeze()
	p := &Program{name: name, globals: globals}
	if fn, ok := globals["step"].(starlark.Callable); ok {
		p.step = fn
	}
	if fn, ok := globals["on_message"].(starlark.Callable); ok {
		p.onMsg = fn
	}
	if p.step == nil && p.onMsg == nil {
		return nil, fmt.Errorf("compile %s: script defines neither step nor on_message", name)
	}
	return p, nil
}

func LoadFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Compile(path, src)
}

func predeclared() starlark.StringDict {
	slots := starlark.StringDict{
		"stockpile":          starlark.MakeInt(peripheral.SlotStockpile),
		"cell_age":           starlark.MakeInt(peripheral.SlotCellAge),
		"resource_received":  starlark.MakeInt(peripheral.SlotResourceReceived),
		"inter_messages":     starlark.MakeInt(peripheral.SlotIncomingInterMessages),
		"intra_messages":     starlark.MakeInt(peripheral.SlotIncomingIntraMessages),
		"neighbor_live":      starlark.MakeInt(peripheral.SlotNeighborLive),
		"neighbor_wealthier": starlark.MakeInt(peripheral.SlotNeighborWealthier),
		"neighbor_older":     starlark.MakeInt(peripheral.SlotNeighborOlder),
		"is_child":           starlark.MakeInt(peripheral.SlotIsChild),
		"is_parent":          starlark.MakeInt(peripheral.SlotIsParent),
		"epoch":              starlark.MakeInt(peripheral.SlotEpoch),
		"quorum_volume":      starlark.MakeInt(peripheral.SlotQuorumVolume),
		"kin_match":          starlark.MakeInt(peripheral.SlotKinMatch),
		"input":              starlark.MakeInt(peripheral.SlotInput),
	}
	return starlark.StringDict{
		"SLOT": starlarkstruct.FromStringDict(starlarkstruct.Default, slots),
	}
}

type core struct {
	tag  substrate.Tag
	regs substrate.Registers
}

// Hardware interprets one Program. It accepts every launch while a core is
// free and the script defines on_message.
type Hardware struct {
	MaxCores int
	MaxSteps uint64

	prog   *Program
	thread *starlark.Thread // fresh per Process so the step cap is per call
	cores  []core
}

var _ substrate.Hardware = (*Hardware)(nil)

func NewHardware(maxCores int) *Hardware {
	if maxCores <= 0 {
		maxCores = 8
	}
	return &Hardware{MaxCores: maxCores, MaxSteps: DefaultMaxSteps}
}

func (h *Hardware) SetProgram(p substrate.Program) {
	sp, _ := p.(*Program)
	h.prog = sp
	h.cores = h.cores[:0]
	h.thread = nil
}

func (h *Hardware) Reset() { h.cores = h.cores[:0] }

func (h *Hardware) TryLaunchCore(tag substrate.Tag, _ int) bool {
	if h.prog == nil || h.prog.onMsg == nil || len(h.cores) >= h.MaxCores {
		return false
	}
	h.cores = append(h.cores, core{tag: tag})
	return true
}

func (h *Hardware) SetRegisters(r substrate.Registers) {
	if n := len(h.cores); n > 0 {
		h.cores[n-1].regs = r
	}
}

func (h *Hardware) Match(substrate.Tag) []uint64 { return nil }

func (h *Hardware) MatchRaw(substrate.Tag) []float64 { return nil }

func (h *Hardware) NumBusyCores() int { return len(h.cores) }

func (h *Hardware) Process(n int, p substrate.Peripheral) {
	if h.prog == nil {
		return
	}
	h.thread = &starlark.Thread{Name: h.prog.name}
	h.thread.SetMaxExecutionSteps(h.MaxSteps)
	cell := newCell(p)
	for i := 0; i < n; i++ {
		if h.prog.step != nil {
			h.call(h.prog.step, starlark.Tuple{cell})
		}
		pending := h.cores
		h.cores = nil
		for _, c := range pending {
			regs := make([]starlark.Value, len(c.regs))
			for j, v := range c.regs {
				regs[j] = starlark.Float(v)
			}
			h.call(h.prog.onMsg, starlark.Tuple{cell, starlark.MakeUint64(uint64(c.tag)), starlark.NewList(regs)})
		}
	}
}

func (h *Hardware) call(fn starlark.Callable, args starlark.Tuple) {
	if _, err := starlark.Call(h.thread, fn, args, nil); err != nil {
		debug.WarnOnce("starlark:"+h.prog.name+":"+fn.Name(), fmt.Sprintf("script %s: %v", h.prog.name, err))
	}
}

// Factory compiles nothing; it hands every cell the same frozen Program.
type Factory struct {
	Program  *Program
	MaxCores int
	MaxSteps uint64 // 0 keeps DefaultMaxSteps
}

func (f Factory) NewProgram(*rand.Rand) substrate.Program { return f.Program }

func (f Factory) NewHardware(*rand.Rand) substrate.Hardware {
	h := NewHardware(f.MaxCores)
	if f.MaxSteps > 0 {
		h.MaxSteps = f.MaxSteps
	}
	return h
}
