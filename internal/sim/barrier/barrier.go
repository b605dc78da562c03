// Package barrier is a reusable rendezvous for a fixed set of workers.
package barrier

import "sync"

// Barrier releases all parties once the last one arrives. The last arriver
// runs the optional action before anyone is released, so the action sees a
// quiescent world.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	gen     uint64
}

func New(parties int) *Barrier {
	if parties < 1 {
		parties = 1
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Barrier) Parties() int { return b.parties }

// Wait blocks until every party has called Wait for the current generation.
// It reports whether this caller was the one that ran action.
func (b *Barrier) Wait(action func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.gen
	b.waiting++
	if b.waiting == b.parties {
		if action != nil {
			action()
		}
		b.waiting = 0
		b.gen++
		b.cond.Broadcast()
		return true
	}
	for gen == b.gen {
		b.cond.Wait()
	}
	return false
}
