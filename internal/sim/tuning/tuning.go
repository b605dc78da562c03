package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/service"
	"cellworld.sim/internal/sim/substrate"
	"cellworld.sim/internal/sim/substrate/scripted"
	"cellworld.sim/internal/sim/substrate/starlark"
	"cellworld.sim/internal/sim/world"
)

var ErrInvalid = errors.New("tuning: invalid")

//go:embed schema.json
var schemaJSON []byte

type Tuning struct {
	World     World               `yaml:"world" json:"world"`
	Run       Run                 `yaml:"run" json:"run"`
	Cell      Cell                `yaml:"cell" json:"cell"`
	Mutation  Mutation            `yaml:"mutation" json:"mutation"`
	Services  service.Frequencies `yaml:"services" json:"services"`
	Substrate Substrate           `yaml:"substrate" json:"substrate"`
}

type World struct {
	ID               string  `yaml:"id" json:"id"`
	Width            int     `yaml:"width" json:"width"`
	Height           int     `yaml:"height" json:"height"`
	Threads          int     `yaml:"threads" json:"threads"`
	Seed             uint64  `yaml:"seed" json:"seed"`
	UIDOffset        uint64  `yaml:"uid_offset" json:"uid_offset"`
	InitialOccupancy float64 `yaml:"initial_occupancy" json:"initial_occupancy"`
	InitialBalance   float64 `yaml:"initial_balance" json:"initial_balance"`
}

type Run struct {
	Updates            uint64  `yaml:"updates" json:"updates"`
	Seconds            float64 `yaml:"seconds" json:"seconds"`
	SnapshotEveryTicks int     `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`
	StatsEveryTicks    int     `yaml:"stats_every_ticks" json:"stats_every_ticks"`
	ArchiveEveryTicks  int     `yaml:"archive_every_ticks" json:"archive_every_ticks"`
	KeepSnapshots      int     `yaml:"keep_snapshots" json:"keep_snapshots"`
}

type Cell struct {
	NLev                  int       `yaml:"nlev" json:"nlev"`
	HardwareSteps         int       `yaml:"hardware_steps" json:"hardware_steps"`
	InboxCapacity         int       `yaml:"inbox_capacity" json:"inbox_capacity"`
	RepThresh             float64   `yaml:"rep_thresh" json:"rep_thresh"`
	MaxEndowment          float64   `yaml:"max_endowment" json:"max_endowment"`
	HeirShare             float64   `yaml:"heir_share" json:"heir_share"`
	BaseHarvest           float64   `yaml:"base_harvest" json:"base_harvest"`
	CollectiveHarvestRate []float64 `yaml:"collective_harvest_rate" json:"collective_harvest_rate"`
	ResourceDecay         float64   `yaml:"resource_decay" json:"resource_decay"`
	StateDecay            float64   `yaml:"state_decay" json:"state_decay"`
	NoiseProb             float64   `yaml:"noise_prob" json:"noise_prob"`
	NoiseScale            float64   `yaml:"noise_scale" json:"noise_scale"`
	QuorumSeedProb        []float64 `yaml:"quorum_seed_prob" json:"quorum_seed_prob"`
	QuorumCap             []int     `yaml:"quorum_cap" json:"quorum_cap"`
	ExpLimit              []uint32  `yaml:"exp_limit" json:"exp_limit"`
	ExpGracePeriod        uint32    `yaml:"exp_grace_period" json:"exp_grace_period"`
	ChannelsVisible       bool      `yaml:"channels_visible" json:"channels_visible"`
	KillOnDebt            bool      `yaml:"kill_on_debt" json:"kill_on_debt"`
	DeathProb             float64   `yaml:"death_prob" json:"death_prob"`
	RunningLogDuration    uint64    `yaml:"running_log_duration" json:"running_log_duration"`
}

type Mutation struct {
	TagFlipProb float64 `yaml:"tag_flip_prob" json:"tag_flip_prob"`
}

type Substrate struct {
	Kind     string `yaml:"kind" json:"kind"`
	Script   string `yaml:"script" json:"script"`
	MaxCores int    `yaml:"max_cores" json:"max_cores"`
	MaxSteps uint64 `yaml:"max_steps" json:"max_steps"`
}

// Defaults is a small two-level world running the built-in scripted program.
func Defaults() Tuning {
	return Tuning{
		World: World{
			ID:               "main",
			Width:            32,
			Height:           32,
			Threads:          4,
			Seed:             1,
			InitialOccupancy: 0.5,
			InitialBalance:   5,
		},
		Run: Run{
			SnapshotEveryTicks: 1000,
			StatsEveryTicks:    16,
			KeepSnapshots:      5,
		},
		Cell: Cell{
			NLev:                  2,
			HardwareSteps:         2,
			InboxCapacity:         16,
			RepThresh:             4,
			HeirShare:             0.5,
			BaseHarvest:           0.1,
			CollectiveHarvestRate: []float64{0.01, 0.005},
			ResourceDecay:         0.995,
			StateDecay:            0.05,
			NoiseProb:             0.001,
			NoiseScale:            0.1,
			QuorumSeedProb:        []float64{0.01, 0.01},
			QuorumCap:             []int{16, 64},
			ExpLimit:              []uint32{256, 1024},
			ExpGracePeriod:        16,
			ChannelsVisible:       true,
			RunningLogDuration:    64,
		},
		Mutation:  Mutation{TagFlipProb: 0.002},
		Services:  service.DefaultFrequencies(),
		Substrate: Substrate{Kind: "scripted", MaxCores: 8},
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("tuning.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("tuning.schema.json")
	})
	return schema, schemaErr
}

// Load reads path over Defaults. Relative substrate script paths resolve
// against the file's directory.
func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	t, err := Parse(raw)
	if err != nil {
		return t, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if t.Substrate.Script != "" && !filepath.IsAbs(t.Substrate.Script) {
		t.Substrate.Script = filepath.Join(filepath.Dir(path), t.Substrate.Script)
	}
	return t, nil
}

// Parse validates raw YAML against the embedded schema, decodes it over
// Defaults, and checks cross-field constraints.
func Parse(raw []byte) (Tuning, error) {
	t := Defaults()

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return t, fmt.Errorf("yaml: %w", err)
	}
	if doc != nil {
		// Round-trip through JSON so the validator sees plain JSON values.
		b, err := json.Marshal(doc)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return t, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		s, err := compiledSchema()
		if err != nil {
			return t, fmt.Errorf("compile schema: %w", err)
		}
		if err := s.Validate(v); err != nil {
			return t, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate checks what the schema cannot express.
func (t Tuning) Validate() error {
	n := t.Cell.NLev
	perLevel := map[string]int{
		"collective_harvest_rate": len(t.Cell.CollectiveHarvestRate),
		"quorum_seed_prob":        len(t.Cell.QuorumSeedProb),
		"quorum_cap":              len(t.Cell.QuorumCap),
		"exp_limit":               len(t.Cell.ExpLimit),
	}
	for name, got := range perLevel {
		if got != 0 && got != n {
			return fmt.Errorf("%w: cell.%s has %d entries, nlev is %d", ErrInvalid, name, got, n)
		}
	}
	if t.Substrate.Kind == "starlark" && t.Substrate.Script == "" {
		return fmt.Errorf("%w: substrate.kind starlark needs substrate.script", ErrInvalid)
	}
	if t.World.Width <= 0 || t.World.Height <= 0 {
		return fmt.Errorf("%w: world %dx%d", ErrInvalid, t.World.Width, t.World.Height)
	}
	return nil
}

// WorldConfig converts the tuning into the world's constructor input.
func (t Tuning) WorldConfig() world.WorldConfig {
	c := t.Cell
	return world.WorldConfig{
		ID:                 t.World.ID,
		Width:              t.World.Width,
		Height:             t.World.Height,
		NThreads:           t.World.Threads,
		Seed:               t.World.Seed,
		UIDOffset:          t.World.UIDOffset,
		InitialOccupancy:   t.World.InitialOccupancy,
		InitialBalance:     t.World.InitialBalance,
		RunUpdates:         t.Run.Updates,
		RunSeconds:         t.Run.Seconds,
		SnapshotEveryTicks: t.Run.SnapshotEveryTicks,
		StatsEveryTicks:    t.Run.StatsEveryTicks,
		Params: cell.Params{
			NLev:                  c.NLev,
			HardwareSteps:         c.HardwareSteps,
			InboxCapacity:         c.InboxCapacity,
			RepThresh:             c.RepThresh,
			MaxEndowment:          c.MaxEndowment,
			HeirShare:             c.HeirShare,
			BaseHarvest:           c.BaseHarvest,
			CollectiveHarvestRate: append([]float64(nil), c.CollectiveHarvestRate...),
			ResourceDecay:         c.ResourceDecay,
			StateDecay:            c.StateDecay,
			NoiseProb:             c.NoiseProb,
			NoiseScale:            c.NoiseScale,
			QuorumSeedProb:        append([]float64(nil), c.QuorumSeedProb...),
			QuorumCap:             append([]int(nil), c.QuorumCap...),
			ExpLimit:              append([]uint32(nil), c.ExpLimit...),
			ExpGracePeriod:        c.ExpGracePeriod,
			ChannelsVisible:       c.ChannelsVisible,
			KillOnDebt:            c.KillOnDebt,
			DeathProb:             c.DeathProb,
			RunningLogDuration:    c.RunningLogDuration,
		},
		Frequencies: t.Services,
		Mutator:     genome.TagMutator{FlipProb: t.Mutation.TagFlipProb},
	}
}

// Factory builds the substrate the tuning names.
func (t Tuning) Factory() (substrate.Factory, error) {
	switch t.Substrate.Kind {
	case "", "scripted":
		return scripted.Factory{Template: scripted.Default(), MaxCores: t.Substrate.MaxCores}, nil
	case "starlark":
		prog, err := starlark.LoadFile(t.Substrate.Script)
		if err != nil {
			return nil, fmt.Errorf("substrate script: %w", err)
		}
		return starlark.Factory{Program: prog, MaxCores: t.Substrate.MaxCores, MaxSteps: t.Substrate.MaxSteps}, nil
	}
	return nil, fmt.Errorf("%w: unknown substrate kind %q", ErrInvalid, t.Substrate.Kind)
}
