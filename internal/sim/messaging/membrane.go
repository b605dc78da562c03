package messaging

import "cellworld.sim/internal/sim/substrate"

// MatchThreshold is the maximum Hamming distance for a membrane entry to apply.
const MatchThreshold = 12

type MembraneEntry struct {
	Tag substrate.Tag
	Val int
}

// Membrane filters incoming messages by tag. Entries keep insertion order so
// that ties resolve the same way on every run.
type Membrane struct {
	entries []MembraneEntry
}

// Put sets the value for tag, replacing an exact-tag entry if one exists.
func (m *Membrane) Put(tag substrate.Tag, val int) {
	for i := range m.entries {
		if m.entries[i].Tag == tag {
			m.entries[i].Val = val
			return
		}
	}
	m.entries = append(m.entries, MembraneEntry{Tag: tag, Val: val})
}

// Match returns the value of the nearest entry within MatchThreshold.
func (m *Membrane) Match(tag substrate.Tag) (int, bool) {
	if len(m.entries) == 0 {
		return 0, false
	}
	tags := make([]substrate.Tag, len(m.entries))
	for i, e := range m.entries {
		tags[i] = e.Tag
	}
	hit := substrate.Nearest(tag, tags, MatchThreshold, 1)
	if len(hit) == 0 {
		return 0, false
	}
	return m.entries[hit[0]].Val, true
}

// Admits lets unmatched tags through; matched tags pass only on odd values.
func (m *Membrane) Admits(tag substrate.Tag) bool {
	v, ok := m.Match(tag)
	if !ok {
		return true
	}
	return v%2 != 0
}

// Decay lowers every value by 2, dropping entries that were at 2 or below.
func (m *Membrane) Decay() {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Val <= 2 {
			continue
		}
		e.Val -= 2
		kept = append(kept, e)
	}
	m.entries = kept
}

func (m *Membrane) Len() int { return len(m.entries) }

func (m *Membrane) Clear() { m.entries = m.entries[:0] }

// Entries copies the entries in match order.
func (m *Membrane) Entries() []MembraneEntry { return append([]MembraneEntry(nil), m.entries...) }

func (m *Membrane) Restore(es []MembraneEntry) { m.entries = append(m.entries[:0], es...) }
