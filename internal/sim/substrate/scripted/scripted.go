// Package scripted is a substrate whose programs are plain Go callbacks.
//
// A Program has an optional Step run once per hardware step and a set of
// tagged Modules. Launching a core binds the nearest module to a register file;
// the core runs on the next step and then retires.
package scripted

import (
	"math/rand/v2"

	"cellworld.sim/internal/sim/substrate"
)

// DefaultMatchThreshold is the Hamming radius used when Hardware.Threshold is 0.
const DefaultMatchThreshold = 16

type Module struct {
	Tag substrate.Tag
	Fn  func(p substrate.Peripheral, r substrate.Registers)
}

type Program struct {
	Name    string
	Step    func(p substrate.Peripheral)
	Modules []Module
}

func (p *Program) Clone() substrate.Program {
	c := *p
	c.Modules = append([]Module(nil), p.Modules...)
	return &c
}

func (p *Program) tags() []substrate.Tag {
	out := make([]substrate.Tag, len(p.Modules))
	for i, m := range p.Modules {
		out[i] = m.Tag
	}
	return out
}

type core struct {
	module int
	regs   substrate.Registers
}

// Hardware runs a *Program. Regulators bias module matching: each unit of
// regulation moves a module one bit closer.
type Hardware struct {
	MaxCores  int
	Threshold int

	prog       *Program
	cores      []core
	regulators substrate.RegulatorState
}

var (
	_ substrate.Hardware  = (*Hardware)(nil)
	_ substrate.Regulated = (*Hardware)(nil)
)

func NewHardware(maxCores int) *Hardware {
	if maxCores <= 0 {
		maxCores = 8
	}
	return &Hardware{MaxCores: maxCores}
}

func (h *Hardware) SetProgram(p substrate.Program) {
	sp, _ := p.(*Program)
	h.prog = sp
	h.cores = h.cores[:0]
	h.regulators = nil
	if sp != nil {
		h.regulators = make(substrate.RegulatorState, len(sp.Modules))
	}
}

func (h *Hardware) Reset() {
	h.cores = h.cores[:0]
	for i := range h.regulators {
		h.regulators[i] = 0
	}
}

func (h *Hardware) threshold() int {
	if h.Threshold > 0 {
		return h.Threshold
	}
	return DefaultMatchThreshold
}

func (h *Hardware) rank(tag substrate.Tag, limit int) []int {
	if h.prog == nil || len(h.prog.Modules) == 0 {
		return nil
	}
	raw := h.MatchRaw(tag)
	var hits []int
	for i, d := range raw {
		if d <= float64(h.threshold()) {
			hits = append(hits, i)
		}
	}
	// insertion sort keeps ties in module order
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && raw[hits[j]] < raw[hits[j-1]]; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (h *Hardware) TryLaunchCore(tag substrate.Tag, budget int) bool {
	if len(h.cores) >= h.MaxCores {
		return false
	}
	hits := h.rank(tag, budget)
	if len(hits) == 0 {
		return false
	}
	h.cores = append(h.cores, core{module: hits[0]})
	return true
}

func (h *Hardware) SetRegisters(r substrate.Registers) {
	if n := len(h.cores); n > 0 {
		h.cores[n-1].regs = r
	}
}

// Process runs Step then every pending core, n times over.
func (h *Hardware) Process(n int, p substrate.Peripheral) {
	if h.prog == nil {
		return
	}
	for i := 0; i < n; i++ {
		if h.prog.Step != nil {
			h.prog.Step(p)
		}
		pending := h.cores
		h.cores = nil
		for _, c := range pending {
			if fn := h.prog.Modules[c.module].Fn; fn != nil {
				fn(p, c.regs)
			}
		}
	}
}

func (h *Hardware) Match(tag substrate.Tag) []uint64 {
	hits := h.rank(tag, 0)
	out := make([]uint64, len(hits))
	for i, m := range hits {
		out[i] = uint64(m)
	}
	return out
}

// MatchRaw returns the regulated distance from tag to every module.
func (h *Hardware) MatchRaw(tag substrate.Tag) []float64 {
	if h.prog == nil {
		return nil
	}
	out := make([]float64, len(h.prog.Modules))
	for i, m := range h.prog.Modules {
		out[i] = float64(substrate.Distance(tag, m.Tag))
		if i < len(h.regulators) {
			out[i] -= h.regulators[i]
		}
	}
	return out
}

func (h *Hardware) NumBusyCores() int { return len(h.cores) }

func (h *Hardware) ViewRegulators() substrate.RegulatorState {
	return append(substrate.RegulatorState(nil), h.regulators...)
}

func (h *Hardware) SetRegulators(r substrate.RegulatorState) {
	h.regulators = append(h.regulators[:0], r...)
}

// Factory hands out clones of a template program; a nil template uses Default.
type Factory struct {
	Template *Program
	MaxCores int
}

func (f Factory) NewProgram(*rand.Rand) substrate.Program {
	if f.Template == nil {
		return Default()
	}
	return f.Template.Clone()
}

func (f Factory) NewHardware(*rand.Rand) substrate.Hardware { return NewHardware(f.MaxCores) }
