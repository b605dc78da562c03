package scripted

import (
	"cellworld.sim/internal/sim/peripheral"
	"cellworld.sim/internal/sim/substrate"
)

// Tags the default program responds to.
const (
	TagShareRequest substrate.Tag = 0x5a5a5a5a5a5a5a5a
	TagTopUp        substrate.Tag = 0x0f0f0f0f0f0f0f0f
)

// Default is a small hand-written colony program: it keeps the inbox open,
// grows when it can afford to, feeds kin, and asks neighbors for help when broke.
func Default() *Program {
	return &Program{
		Name: "default",
		Step: func(p substrate.Peripheral) {
			rng := p.Rand()
			p.SetInboxActivity(true)
			p.SetStockpileReserve(1)

			bal := p.ReadState(peripheral.SlotStockpile)
			switch {
			case bal > 12 && rng.Float64() < 0.25:
				p.Reproduce(rng.IntN(4), 0, 1, true)
			case bal > 4 && p.ReadState(peripheral.SlotKinMatch) > 0:
				p.SendResource(0, 0.05, 1, 2)
			case bal < 0.5 && rng.Float64() < 0.1:
				p.SendInterMessage(TagShareRequest, substrate.Registers{bal})
			}
			if bal > 20 {
				p.SetHeir(0, 8)
			}
			if bal < -10 {
				p.DoApoptosis()
			}
			p.AddToState(0, 1)
		},
		Modules: []Module{
			{Tag: TagShareRequest, Fn: func(p substrate.Peripheral, _ substrate.Registers) {
				if p.ReadState(peripheral.SlotStockpile) > 6 {
					p.SendResource(0, 0.1, 1, 4)
				}
			}},
			{Tag: TagTopUp, Fn: func(p substrate.Peripheral, r substrate.Registers) {
				p.WriteState(1, r[0])
			}},
		},
	}
}
