package messaging

import (
	"testing"

	"cellworld.sim/internal/sim/substrate"
)

type fakeHW struct {
	free     int
	launched []substrate.Tag
	regs     []substrate.Registers
}

func (f *fakeHW) SetProgram(substrate.Program) {}
func (f *fakeHW) Reset()                       {}
func (f *fakeHW) TryLaunchCore(tag substrate.Tag, _ int) bool {
	if f.free == 0 {
		return false
	}
	f.free--
	f.launched = append(f.launched, tag)
	return true
}
func (f *fakeHW) SetRegisters(r substrate.Registers) { f.regs = append(f.regs, r) }
func (f *fakeHW) Process(int, substrate.Peripheral)  {}
func (f *fakeHW) Match(substrate.Tag) []uint64       { return nil }
func (f *fakeHW) MatchRaw(substrate.Tag) []float64   { return nil }
func (f *fakeHW) NumBusyCores() int                  { return len(f.launched) }

func TestQueueMessages_InactiveInboxDeliversNothing(t *testing.T) {
	in := NewInbox(4)
	in.Push(Message{Tag: 1})
	in.Push(Message{Tag: 2})
	got := in.QueueMessages(false, &Membrane{})
	if len(got) != 0 {
		t.Fatalf("inactive inbox delivered %d messages", len(got))
	}
	if in.Len() != 0 {
		t.Fatalf("inbox should be emptied, has %d", in.Len())
	}
	hw := &fakeHW{free: 4}
	if l, p := Launch(got, hw); l != 0 || p != 0 {
		t.Fatalf("launched=%d purged=%d", l, p)
	}
}

func TestMembrane_AdmitRules(t *testing.T) {
	var m Membrane
	m.Put(0x0f, 3)
	m.Put(0xf000000000000000, 4)
	if !m.Admits(0x0f) {
		t.Fatalf("odd value should admit")
	}
	if m.Admits(0xf000000000000000) {
		t.Fatalf("even value should block")
	}
	if !m.Admits(0x00ff00ff00ff00ff) {
		t.Fatalf("no match should pass through")
	}

	m.Decay()
	if v, _ := m.Match(0x0f); v != 1 {
		t.Fatalf("decayed value %d", v)
	}
	if m.Len() != 2 {
		t.Fatalf("len %d", m.Len())
	}
	m.Decay()
	if m.Len() != 0 {
		t.Fatalf("entries at or below 2 should be deleted, len %d", m.Len())
	}
}

func TestQueueAndLaunch_PurgesAfterFirstFailure(t *testing.T) {
	in := NewInbox(8)
	tags := []substrate.Tag{0, 1, ^substrate.Tag(0), 2, 3}
	for i, tag := range tags {
		in.Push(Message{Tag: tag, Regs: substrate.Registers{float64(i)}})
	}
	var m Membrane
	m.Put(^substrate.Tag(0), 2)
	got := in.QueueMessages(true, &m)
	if len(got) != 4 {
		t.Fatalf("expected the blocked tag to be filtered, got %d", len(got))
	}
	hw := &fakeHW{free: 2}
	launched, purged := Launch(got, hw)
	if launched != 2 || purged != 2 {
		t.Fatalf("launched=%d purged=%d", launched, purged)
	}
	if hw.regs[1][0] != 1 || hw.launched[1] != 1 {
		t.Fatalf("registers follow launch order, got %v", hw.regs[1][0])
	}
}

func TestInbox_CapacityDrops(t *testing.T) {
	in := NewInbox(1)
	in.Push(Message{})
	if in.Push(Message{}) {
		t.Fatalf("push beyond capacity should fail")
	}
	if in.Dropped() != 1 || in.Dropped() != 0 {
		t.Fatalf("dropped counter")
	}
}
