package multiworld

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is tiles.yaml: independent toroidal worlds advanced in lockstep.
type Config struct {
	Tiles []TileSpec `yaml:"tiles"`
}

// TileSpec overrides the base world config for one tile. Zero sizes and
// thread counts inherit the base.
type TileSpec struct {
	ID         string `yaml:"id"`
	SeedOffset uint64 `yaml:"seed_offset"`
	UIDOffset  uint64 `yaml:"uid_offset"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Threads    int    `yaml:"threads"`
}

func Load(path string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(path) == "" {
		return defaults(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("tiles.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("tiles.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{Tiles: []TileSpec{{ID: "main"}}}
}

// Normalize fills tile ids and, when every uid offset is zero, stacks the
// tiles' uid ranges end to end so lineage ids never collide across tiles.
func (c *Config) Normalize(baseWidth, baseHeight int) {
	if c == nil {
		return
	}
	stack := true
	for i := range c.Tiles {
		t := &c.Tiles[i]
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			t.ID = fmt.Sprintf("tile-%d", i)
		}
		if t.Width <= 0 {
			t.Width = baseWidth
		}
		if t.Height <= 0 {
			t.Height = baseHeight
		}
		if t.UIDOffset != 0 {
			stack = false
		}
	}
	if !stack {
		return
	}
	var next uint64
	for i := range c.Tiles {
		c.Tiles[i].UIDOffset = next
		next += uint64(c.Tiles[i].Width * c.Tiles[i].Height)
	}
}

// Validate checks ids and explicit sizes. Uid range overlap is checked by
// the manager once sizes are resolved against the base config.
func (c Config) Validate() error {
	if len(c.Tiles) == 0 {
		return fmt.Errorf("tiles must not be empty")
	}
	seen := map[string]bool{}
	for i, t := range c.Tiles {
		id := strings.TrimSpace(t.ID)
		if id != "" {
			if seen[id] {
				return fmt.Errorf("duplicate tile id: %s", id)
			}
			seen[id] = true
		}
		if t.Width < 0 || t.Height < 0 {
			return fmt.Errorf("tile %d size must be >= 0", i)
		}
		if t.Threads < 0 {
			return fmt.Errorf("tile %d threads must be >= 0", i)
		}
	}
	return nil
}

func checkUIDRanges(tiles []TileSpec) error {
	for i, a := range tiles {
		aEnd := a.UIDOffset + uint64(a.Width*a.Height)
		for _, b := range tiles[i+1:] {
			bEnd := b.UIDOffset + uint64(b.Width*b.Height)
			if a.UIDOffset < bEnd && b.UIDOffset < aEnd {
				return fmt.Errorf("tiles %s and %s have overlapping uid ranges", a.ID, b.ID)
			}
		}
	}
	return nil
}
