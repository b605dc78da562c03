package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"cellworld.sim/internal/sim/world"
)

// DefaultSegmentTicks is how many ticks one tick-log file covers.
const DefaultSegmentTicks = 10_000

// SegmentWriter appends JSON lines to zstd files keyed by tick range. A
// segment is named after its first tick, so names sort in tick order and
// a resumed run appends to the segment it left off in.
type SegmentWriter struct {
	baseDir string
	prefix  string
	span    uint64

	mu   sync.Mutex
	seg  uint64
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
	open bool
}

func NewSegmentWriter(baseDir, prefix string, span uint64) *SegmentWriter {
	if span == 0 {
		span = DefaultSegmentTicks
	}
	return &SegmentWriter{baseDir: baseDir, prefix: prefix, span: span}
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Append writes v as one line of the segment holding tick.
func (w *SegmentWriter) Append(tick uint64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seg := tick / w.span; !w.open || seg != w.seg {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *SegmentWriter) openLocked(seg uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(segmentPath(w.baseDir, w.prefix, seg*w.span), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.seg, w.open = f, enc, seg, true
	w.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *SegmentWriter) closeLocked() error {
	if !w.open {
		return nil
	}
	var err error
	if ferr := w.w.Flush(); ferr != nil {
		err = ferr
	}
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	_ = w.f.Close()
	w.f, w.enc, w.w, w.open = nil, nil, nil, false
	return err
}

func segmentPath(dir, prefix string, first uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%020d.jsonl.zst", prefix, first))
}

// TickLogger writes one JSONL entry per tick under <worldDir>/ticks.
type TickLogger struct{ w *SegmentWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: NewSegmentWriter(TickDir(worldDir), "ticks", DefaultSegmentTicks)}
}

func TickDir(worldDir string) string { return filepath.Join(worldDir, "ticks") }

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Append(v.Tick, v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }
