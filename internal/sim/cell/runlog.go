package cell

type LogKind uint8

const (
	LogBirth LogKind = iota
	LogDeath
	LogSpawn
)

func (k LogKind) String() string {
	switch k {
	case LogBirth:
		return "birth"
	case LogDeath:
		return "death"
	case LogSpawn:
		return "spawn"
	}
	return "unknown"
}

// LogEntry records an event and the other position involved (the parent for
// a birth, the destination for a spawn, the cell itself for a death).
type LogEntry struct {
	Tick uint64
	Kind LogKind
	Pos  int
}

// RunningLog is a short per-cell history, trimmed by age.
type RunningLog struct {
	Entries []LogEntry
}

func (l *RunningLog) Add(tick uint64, kind LogKind, pos int) {
	l.Entries = append(l.Entries, LogEntry{Tick: tick, Kind: kind, Pos: pos})
}

// Purge drops entries older than dur ticks.
func (l *RunningLog) Purge(now, dur uint64) {
	keep := l.Entries[:0]
	for _, e := range l.Entries {
		if now-e.Tick < dur {
			keep = append(keep, e)
		}
	}
	l.Entries = keep
}

func (l *RunningLog) Count(kind LogKind) int {
	n := 0
	for _, e := range l.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
