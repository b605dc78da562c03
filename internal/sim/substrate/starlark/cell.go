package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"cellworld.sim/internal/sim/substrate"
)

func newCell(p substrate.Peripheral) *starlarkstruct.Struct {
	builtin := func(name string, fn func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			return fn(args, kwargs)
		})
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"facing": starlark.MakeInt(p.Facing()),
		"update": starlark.MakeUint64(p.Update()),

		"random": builtin("random", func(starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
			return starlark.Float(p.Rand().Float64()), nil
		}),
		"read": builtin("read", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var idx int
			if err := starlark.UnpackArgs("read", args, kwargs, "idx", &idx); err != nil {
				return nil, err
			}
			return starlark.Float(p.ReadState(idx)), nil
		}),
		"write": builtin("write", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var idx int
			var v number
			if err := starlark.UnpackArgs("write", args, kwargs, "idx", &idx, "value", &v); err != nil {
				return nil, err
			}
			p.WriteState(idx, float64(v))
			return starlark.None, nil
		}),
		"add": builtin("add", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var idx int
			var v number
			if err := starlark.UnpackArgs("add", args, kwargs, "idx", &idx, "value", &v); err != nil {
				return nil, err
			}
			p.AddToState(idx, float64(v))
			return starlark.None, nil
		}),
		"multiply": builtin("multiply", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var idx int
			var v number
			if err := starlark.UnpackArgs("multiply", args, kwargs, "idx", &idx, "value", &v); err != nil {
				return nil, err
			}
			p.MultiplyState(idx, float64(v))
			return starlark.None, nil
		}),
		"reproduce": builtin("reproduce", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var dir, level int
			var endow number
			inherit := false
			if err := starlark.UnpackArgs("reproduce", args, kwargs, "dir", &dir, "level?", &level, "endowment?", &endow, "inherit_regulators?", &inherit); err != nil {
				return nil, err
			}
			p.Reproduce(dir, level, float64(endow), inherit)
			return starlark.None, nil
		}),
		"share": builtin("share", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var dir int
			var frac, reserve number
			mult := number(1)
			if err := starlark.UnpackArgs("share", args, kwargs, "dir", &dir, "fraction", &frac, "multiplier?", &mult, "reserve?", &reserve); err != nil {
				return nil, err
			}
			p.SendResource(dir, float64(frac), float64(mult), float64(reserve))
			return starlark.None, nil
		}),
		"in_resistance":  resistance("in_resistance", p.SetInResistance),
		"out_resistance": resistance("out_resistance", p.SetOutResistance),
		"pause": builtin("pause", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var dir int
			level := -1
			var dur int
			if err := starlark.UnpackArgs("pause", args, kwargs, "dir", &dir, "level?", &level, "duration?", &dur); err != nil {
				return nil, err
			}
			p.PauseRepr(dir, level, uint64(max(dur, 0)))
			return starlark.None, nil
		}),
		"reserve": builtin("reserve", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var amt number
			if err := starlark.UnpackArgs("reserve", args, kwargs, "amount", &amt); err != nil {
				return nil, err
			}
			p.SetStockpileReserve(float64(amt))
			return starlark.None, nil
		}),
		"repro_reserve": builtin("repro_reserve", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var amt number
			if err := starlark.UnpackArgs("repro_reserve", args, kwargs, "amount", &amt); err != nil {
				return nil, err
			}
			p.SetReproductionReserve(float64(amt))
			return starlark.None, nil
		}),
		"send":       sender("send", p.SendInterMessage),
		"send_intra": sender("send_intra", p.SendIntraMessage),
		"inbox": builtin("inbox", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var active bool
			if err := starlark.UnpackArgs("inbox", args, kwargs, "active", &active); err != nil {
				return nil, err
			}
			p.SetInboxActivity(active)
			return starlark.None, nil
		}),
		"membrane": builtin("membrane", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var tag uint64
			var val int
			if err := starlark.UnpackArgs("membrane", args, kwargs, "tag", &tag, "value", &val); err != nil {
				return nil, err
			}
			p.PutMembrane(substrate.Tag(tag), val)
			return starlark.None, nil
		}),
		"heir": builtin("heir", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var dir, dur int
			if err := starlark.UnpackArgs("heir", args, kwargs, "dir", &dir, "duration", &dur); err != nil {
				return nil, err
			}
			p.SetHeir(dir, uint64(max(dur, 0)))
			return starlark.None, nil
		}),
		"apoptosis": builtin("apoptosis", func(starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
			p.DoApoptosis()
			return starlark.None, nil
		}),
		"quorum": builtin("quorum", func(args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var level, bit int
			if err := starlark.UnpackArgs("quorum", args, kwargs, "level", &level, "bit", &bit); err != nil {
				return nil, err
			}
			p.SetQuorumBit(level, bit)
			return starlark.None, nil
		}),
	})
}

func resistance(name string, set func(dir int, v float64, dur uint64)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var dir, dur int
		var v number
		if err := starlark.UnpackArgs(name, args, kwargs, "dir", &dir, "value", &v, "duration", &dur); err != nil {
			return nil, err
		}
		set(dir, float64(v), uint64(max(dur, 0)))
		return starlark.None, nil
	})
}

func sender(name string, send func(tag substrate.Tag, r substrate.Registers)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var tag uint64
		var regs *starlark.List
		if err := starlark.UnpackArgs(name, args, kwargs, "tag", &tag, "regs?", &regs); err != nil {
			return nil, err
		}
		var r substrate.Registers
		if regs != nil {
			for i := 0; i < regs.Len() && i < substrate.NumRegisters; i++ {
				if f, ok := starlark.AsFloat(regs.Index(i)); ok {
					r[i] = f
				}
			}
		}
		send(substrate.Tag(tag), r)
		return starlark.None, nil
	})
}

// number accepts either a Starlark int or float.
type number float64

func (n *number) Unpack(v starlark.Value) error {
	f, ok := starlark.AsFloat(v)
	if !ok {
		return fmt.Errorf("got %s, want number", v.Type())
	}
	*n = number(f)
	return nil
}
