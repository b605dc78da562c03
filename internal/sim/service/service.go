// Package service is the fixed per-tick pipeline applied to every cell.
//
// The order of Pipeline is part of the model: sensors are refreshed before
// programs run, messages are launched before they are purged, and death is
// decided last so that a dying cell still acts on its final tick.
package service

import (
	"cellworld.sim/internal/sim/cell"
)

// Service is one pipeline stage.
type Service interface {
	Name() string
	ShouldRun(tick uint64, alive bool) bool
	Apply(c *cell.Cell, env *cell.Env)
}

// stage is the common shape: a name, a cadence, and a body. Stages run on live
// cells only, unless onDead (dead cells only) or always is set.
type stage struct {
	name   string
	freq   uint64
	onDead bool
	always bool
	apply  func(c *cell.Cell, env *cell.Env)
}

func (s *stage) Name() string { return s.name }

func (s *stage) ShouldRun(tick uint64, alive bool) bool {
	switch {
	case s.always:
		alive = true
	case s.onDead:
		alive = !alive
	}
	return alive && s.freq > 0 && tick%s.freq == 0
}

func (s *stage) Apply(c *cell.Cell, env *cell.Env) { s.apply(c, env) }

// Pipeline is an ordered list of services.
type Pipeline []Service

// Run applies every due service to c in order. Liveness is re-read before each
// stage, so nothing after a death acts on the freed slot.
func (p Pipeline) Run(c *cell.Cell, env *cell.Env) {
	for _, s := range p {
		if s.ShouldRun(env.Tick, c.Alive) {
			s.Apply(c, env)
		}
	}
}

func (p Pipeline) Names() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Name()
	}
	return out
}
