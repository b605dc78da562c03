package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"cellworld.sim/internal/sim/world"
)

// ReadTicks loads every tick entry under dir in segment order.
func ReadTicks(dir string) ([]world.TickLogEntry, error) { return ReadTicksFrom(dir, 0) }

// ReadTicksFrom loads the entries with Tick >= from. Segments that end
// before from are not opened.
func ReadTicksFrom(dir string, from uint64) ([]world.TickLogEntry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []world.TickLogEntry
	for i, path := range files {
		if i+1 < len(files) {
			if next, ok := segmentStart(files[i+1]); ok && next <= from {
				continue
			}
		}
		entries, err := readTickFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		for _, e := range entries {
			if e.Tick >= from {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// segmentStart parses the first tick out of a "<prefix>-<tick>.jsonl.zst" name.
func segmentStart(path string) (uint64, bool) {
	name := strings.TrimSuffix(filepath.Base(path), ".jsonl.zst")
	i := strings.LastIndexByte(name, '-')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(name[i+1:], 10, 64)
	return n, err == nil
}

func readTickFile(path string) ([]world.TickLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []world.TickLogEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e world.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
