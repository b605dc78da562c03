package starlark

import (
	"bytes"
	"encoding/gob"

	"cellworld.sim/internal/sim/substrate"
)

var _ substrate.Stateful = (*Hardware)(nil)

type savedCore struct {
	Tag  substrate.Tag
	Regs substrate.Registers
}

type savedHardware struct {
	Cores []savedCore
}

func (h *Hardware) SaveState() ([]byte, error) {
	var saved savedHardware
	for _, c := range h.cores {
		saved.Cores = append(saved.Cores, savedCore{Tag: c.tag, Regs: c.regs})
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(saved); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Hardware) LoadState(b []byte) error {
	var saved savedHardware
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&saved); err != nil {
		return err
	}
	h.cores = h.cores[:0]
	for _, c := range saved.Cores {
		h.cores = append(h.cores, core{tag: c.Tag, regs: c.Regs})
	}
	return nil
}
