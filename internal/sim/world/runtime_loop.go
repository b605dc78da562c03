package world

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cellworld.sim/internal/sim/barrier"
)

// Run drives the world with one goroutine per partition until the run budget
// is spent, ctx is cancelled, or the gate says stop. Cancellation is observed
// only between ticks; an in-flight tick always completes.
func (w *World) Run(ctx context.Context) error {
	n := len(w.parts)
	start := barrier.New(n)
	published := barrier.New(n)
	serviced := barrier.New(n)
	resolved := barrier.New(n)

	w.startedAt = time.Now()
	w.runErr = nil
	// Written only by barrier leaders, read by everyone after release.
	running := false

	var g errgroup.Group
	for i, p := range w.parts {
		g.Go(func() error {
			w.logger.Printf("partition %d: start cells=[%d,%d) tick=%d", i, p.Lo, p.Hi, w.tick.Load())
			start.Wait(func() { running = w.keepRunning(ctx) })
			for running {
				w.publish(p)
				published.Wait(nil)
				w.services(p)
				serviced.Wait(nil)
				w.resolve(p)
				resolved.Wait(func() {
					if _, err := w.endTick(false); err != nil && w.runErr == nil {
						w.runErr = err
					}
					running = w.keepRunning(ctx)
				})
			}
			w.logger.Printf("partition %d: stop tick=%d", i, w.tick.Load())
			return w.runErr
		})
	}
	return g.Wait()
}

// StepOnce runs a single tick on the calling goroutine and returns the tick it
// ran with the digest of the resulting state.
func (w *World) StepOnce() (tick uint64, digest string) {
	tick = w.tick.Load()
	for _, p := range w.parts {
		w.publish(p)
	}
	for _, p := range w.parts {
		w.services(p)
	}
	for _, p := range w.parts {
		w.resolve(p)
	}
	digest, err := w.endTick(true)
	if err != nil {
		w.logger.Printf("tick %d: %v", tick, err)
	}
	return tick, digest
}

func (w *World) keepRunning(ctx context.Context) bool {
	ok := ctx.Err() == nil && w.runErr == nil
	if w.cfg.RunUpdates > 0 && w.tick.Load() >= w.cfg.RunUpdates {
		ok = false
	}
	if w.cfg.RunSeconds > 0 && time.Since(w.startedAt).Seconds() >= w.cfg.RunSeconds {
		ok = false
	}
	if w.gate != nil {
		return w.gate(ok)
	}
	return ok
}
