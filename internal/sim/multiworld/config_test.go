package multiworld

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_EmptyPathIsSingleTile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Tiles) != 1 || cfg.Tiles[0].ID != "main" {
		t.Fatalf("tiles: %+v", cfg.Tiles)
	}
}

func TestLoad_ParsesTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.yaml")
	src := `tiles:
  - id: west
    seed_offset: 1
    width: 8
  - id: east
    seed_offset: 2
    threads: 3
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []TileSpec{
		{ID: "west", SeedOffset: 1, Width: 8},
		{ID: "east", SeedOffset: 2, Threads: 3},
	}
	if diff := cmp.Diff(want, cfg.Tiles); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalize_StacksUIDRanges(t *testing.T) {
	cfg := Config{Tiles: []TileSpec{{Width: 4}, {ID: "b"}, {Height: 2}}}
	cfg.Normalize(5, 3)
	want := []TileSpec{
		{ID: "tile-0", Width: 4, Height: 3, UIDOffset: 0},
		{ID: "b", Width: 5, Height: 3, UIDOffset: 12},
		{ID: "tile-2", Width: 5, Height: 2, UIDOffset: 27},
	}
	if diff := cmp.Diff(want, cfg.Tiles); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if err := checkUIDRanges(cfg.Tiles); err != nil {
		t.Fatalf("stacked ranges overlap: %v", err)
	}
}

func TestNormalize_KeepsExplicitUIDOffsets(t *testing.T) {
	cfg := Config{Tiles: []TileSpec{{ID: "a"}, {ID: "b", UIDOffset: 5}}}
	cfg.Normalize(4, 4)
	if cfg.Tiles[0].UIDOffset != 0 || cfg.Tiles[1].UIDOffset != 5 {
		t.Fatalf("offsets: %+v", cfg.Tiles)
	}
	err := checkUIDRanges(cfg.Tiles)
	if err == nil || !strings.Contains(err.Error(), "overlapping") {
		t.Fatalf("want overlap error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty", Config{}, "must not be empty"},
		{"duplicate", Config{Tiles: []TileSpec{{ID: "a"}, {ID: " a "}}}, "duplicate"},
		{"size", Config{Tiles: []TileSpec{{Width: -1}}}, "size"},
		{"threads", Config{Tiles: []TileSpec{{Threads: -2}}}, "threads"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want %q, got %v", tc.want, err)
			}
		})
	}
}
