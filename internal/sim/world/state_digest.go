package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Digest hashes the whole grid at the current tick boundary.
func (w *World) Digest() string { return w.stateDigest(w.tick.Load()) }

func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	for _, v := range []uint64{nowTick, uint64(w.topo.Width), uint64(w.topo.Height)} {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	for _, c := range w.cells {
		c.WriteDigest(h)
	}
	return hex.EncodeToString(h.Sum(nil))
}
