package world

import (
	"fmt"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/service"
)

type WorldConfig struct {
	ID        string
	Width     int
	Height    int
	NThreads  int
	Seed      uint64
	UIDOffset uint64

	// InitialOccupancy is the chance each slot starts alive.
	InitialOccupancy float64
	InitialBalance   float64

	// RunUpdates stops Run once the tick counter reaches it (absolute, so a
	// resumed world finishes at the same tick). RunSeconds is wall-clock.
	// Zero means unbounded for either.
	RunUpdates uint64
	RunSeconds float64

	SnapshotEveryTicks int
	StatsEveryTicks    int

	Params      cell.Params
	Frequencies service.Frequencies
	Mutator     genome.Mutator
}

func (c *WorldConfig) normalize() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid %dx%d: dimensions must be positive", c.Width, c.Height)
	}
	if c.Params.NLev < 1 {
		return fmt.Errorf("nlev %d: need at least one level", c.Params.NLev)
	}
	size := c.Width * c.Height
	if c.NThreads < 1 {
		c.NThreads = 1
	}
	if c.NThreads > size {
		c.NThreads = size
	}
	if c.Params.InboxCapacity <= 0 {
		c.Params.InboxCapacity = 16
	}
	if c.Params.HardwareSteps <= 0 {
		c.Params.HardwareSteps = 1
	}
	return nil
}
