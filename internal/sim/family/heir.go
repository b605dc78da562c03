package family

// Heir tracks which directions inherit resources on death, each until an expiry tick.
type Heir struct {
	until [4]uint64
}

func (h *Heir) SetHeir(dir int, dur, now uint64) { h.until[dir] = now + dur }

// Heirs lists directions still designated at now.
func (h *Heir) Heirs(now uint64) []int {
	var out []int
	for d, u := range h.until {
		if now < u {
			out = append(out, d)
		}
	}
	return out
}

func (h *Heir) Clear() { h.until = [4]uint64{} }

// Until exposes the expiry ticks for snapshots.
func (h *Heir) Until() [4]uint64 { return h.until }

func (h *Heir) SetUntil(u [4]uint64) { h.until = u }

// Apoptosis is a latch set by the program and consumed by the apoptosis service.
type Apoptosis struct {
	marked bool
}

func (a *Apoptosis) MarkComplete() { a.marked = true }

func (a *Apoptosis) IsMarked() bool { return a.marked }

func (a *Apoptosis) Clear() { a.marked = false }
