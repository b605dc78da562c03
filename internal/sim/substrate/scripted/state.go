package scripted

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"cellworld.sim/internal/sim/substrate"
)

var _ substrate.Stateful = (*Hardware)(nil)

type savedCore struct {
	Module int
	Regs   substrate.Registers
}

type savedHardware struct {
	Cores      []savedCore
	Regulators substrate.RegulatorState
}

func (h *Hardware) SaveState() ([]byte, error) {
	st := savedHardware{Regulators: h.regulators}
	for _, c := range h.cores {
		st.Cores = append(st.Cores, savedCore{Module: c.module, Regs: c.regs})
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Hardware) LoadState(b []byte) error {
	var st savedHardware
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&st); err != nil {
		return err
	}
	h.cores = h.cores[:0]
	for _, c := range st.Cores {
		if h.prog == nil || c.Module < 0 || c.Module >= len(h.prog.Modules) {
			return fmt.Errorf("scripted: saved core references module %d", c.Module)
		}
		h.cores = append(h.cores, core{module: c.Module, regs: c.Regs})
	}
	if len(st.Regulators) > 0 {
		h.regulators = append(h.regulators[:0], st.Regulators...)
	}
	return nil
}
