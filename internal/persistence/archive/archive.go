// Package archive keeps milestone snapshots out of the rolling snapshot
// directory so pruning never removes them.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cellworld.sim/internal/persistence/snapshot"
)

type MilestoneMeta struct {
	Tick      uint64 `json:"tick"`
	RunID     string `json:"run_id"`
	WorldID   string `json:"world_id"`
	LiveCells int    `json:"live_cells"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveMilestone copies a snapshot into worldDir/archives/tick_<N>/ when its
// tick is a multiple of every. It reports whether it archived.
func ArchiveMilestone(worldDir, snapshotPath string, snap snapshot.SnapshotV1, every uint64) (archivedPath string, archived bool, err error) {
	if every == 0 || snap.Header.Tick == 0 || snap.Header.Tick%every != 0 {
		return "", false, nil
	}
	dir := filepath.Join(worldDir, "archives", fmt.Sprintf("tick_%010d", snap.Header.Tick))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	live := 0
	for _, c := range snap.Cells {
		if c.Alive {
			live++
		}
	}
	meta := MilestoneMeta{
		Tick:      snap.Header.Tick,
		RunID:     snap.Header.RunID,
		WorldID:   snap.Header.WorldID,
		LiveCells: live,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}
	return dst, true, nil
}

// PruneSnapshots deletes all but the newest keep "<tick>.snap.zst" files in dir.
func PruneSnapshots(dir string, keep int) (removed int, err error) {
	if keep <= 0 {
		return 0, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	type item struct {
		tick uint64
		name string
	}
	var snaps []item
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		snaps = append(snaps, item{tick, name})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].tick < snaps[j].tick })
	for len(snaps) > keep {
		if err := os.Remove(filepath.Join(dir, snaps[0].name)); err != nil {
			return removed, err
		}
		removed++
		snaps = snaps[1:]
	}
	return removed, nil
}

// Latest returns the newest snapshot in dir, or "" if there is none.
func Latest(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		name := e.Name()
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		if best == "" || tick > bestTick {
			best, bestTick = name, tick
		}
	}
	if best == "" {
		return "", nil
	}
	return filepath.Join(dir, best), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
