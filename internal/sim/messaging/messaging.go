// Package messaging carries tagged register files between cardinals and cells.
package messaging

import "cellworld.sim/internal/sim/substrate"

type Message struct {
	Tag  substrate.Tag
	Regs substrate.Registers
}

// DefaultCapacity bounds an inbox; pushes beyond it are dropped.
const DefaultCapacity = 16

// Inbox is a bounded FIFO. It is not safe for concurrent use; the world
// arranges that each inbox has one writer per phase.
type Inbox struct {
	cap     int
	msgs    []Message
	dropped int
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Inbox{cap: capacity}
}

// Push appends m, reporting false when the inbox is full.
func (b *Inbox) Push(m Message) bool {
	if len(b.msgs) >= b.cap {
		b.dropped++
		return false
	}
	b.msgs = append(b.msgs, m)
	return true
}

// Pop removes the oldest message.
func (b *Inbox) Pop() (Message, bool) {
	if len(b.msgs) == 0 {
		return Message{}, false
	}
	m := b.msgs[0]
	b.msgs = b.msgs[1:]
	return m, true
}

func (b *Inbox) Len() int { return len(b.msgs) }

// Dropped returns overflow drops since the last call and resets the count.
func (b *Inbox) Dropped() int {
	n := b.dropped
	b.dropped = 0
	return n
}

func (b *Inbox) Clear() { b.msgs = b.msgs[:0] }

// Messages copies the queued messages in order.
func (b *Inbox) Messages() []Message { return append([]Message(nil), b.msgs...) }

// Drain moves every message into dst in order and empties the inbox.
func (b *Inbox) Drain(dst *Inbox) {
	for _, m := range b.msgs {
		dst.Push(m)
	}
	b.Clear()
}

// QueueMessages pops everything. When active, messages the membrane admits are
// returned in arrival order; otherwise they are discarded. The inbox is empty afterward.
func (b *Inbox) QueueMessages(active bool, m *Membrane) []Message {
	var out []Message
	if active {
		for _, msg := range b.msgs {
			if m == nil || m.Admits(msg.Tag) {
				out = append(out, msg)
			}
		}
	}
	b.Clear()
	return out
}

// Launch starts a core per admitted message until one fails to launch; the
// remainder is purged.
func Launch(admitted []Message, hw substrate.Hardware) (launched, purged int) {
	for i, msg := range admitted {
		if !hw.TryLaunchCore(msg.Tag, 1) {
			return launched, len(admitted) - i
		}
		hw.SetRegisters(msg.Regs)
		launched++
	}
	return launched, 0
}
