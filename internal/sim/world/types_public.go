package world

import "cellworld.sim/internal/sim/introspection"

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type StatsWriter interface {
	WriteStats(worldID string, st introspection.Stats) error
}

// FrameSink receives a compact view of the grid after every tick. It is called
// from the tick barrier and must not block.
type FrameSink interface {
	PublishFrame(f Frame)
}

// Gate joins a tick boundary with other worlds. It receives this world's
// decision to keep running and returns the joint decision.
type Gate func(keepRunning bool) bool

type TickLogEntry struct {
	Tick   uint64               `json:"tick"`
	Digest string               `json:"digest,omitempty"`
	Stats  *introspection.Stats `json:"stats,omitempty"`
}

// Frame is the grid as observers see it. Kin holds KinColor of each live
// cell's coarsest lineage id, 0 for empty slots.
type Frame struct {
	WorldID string
	Tick    uint64
	Width   int
	Height  int
	Kin     []uint16
	Balance []float32
}

func KinColor(id uint64) uint16 { return uint16(id%0xFFFF) + 1 }
