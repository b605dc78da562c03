package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cellworld.sim/internal/sim/genome"
	"cellworld.sim/internal/sim/substrate/scripted"
	"cellworld.sim/internal/sim/substrate/starlark"
)

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	got, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(Defaults(), got); diff != "" {
		t.Fatalf("defaults changed (-want +got):\n%s", diff)
	}
}

func TestParse_OverridesOnlyNamedFields(t *testing.T) {
	raw := []byte(`
world:
  width: 10
  threads: 2
cell:
  nlev: 1
  collective_harvest_rate: [0.02]
  quorum_seed_prob: [0.5]
  quorum_cap: [4]
  exp_limit: [32]
services:
  apoptosis: 4
mutation:
  tag_flip_prob: 0.1
`)
	got, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Defaults()
	want.World.Width = 10
	want.World.Threads = 2
	want.Cell.NLev = 1
	want.Cell.CollectiveHarvestRate = []float64{0.02}
	want.Cell.QuorumSeedProb = []float64{0.5}
	want.Cell.QuorumCap = []int{4}
	want.Cell.ExpLimit = []uint32{32}
	want.Services.Apoptosis = 4
	want.Mutation.TagFlipProb = 0.1
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	wc := got.WorldConfig()
	if wc.Width != 10 || wc.Height != 32 || wc.Params.NLev != 1 {
		t.Fatalf("world config: %+v", wc)
	}
	if m, ok := wc.Mutator.(genome.TagMutator); !ok || m.FlipProb != 0.1 {
		t.Fatalf("mutator: %#v", wc.Mutator)
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown section": "weather: {rain: 1}\n",
		"unknown field":   "world: {depth: 3}\n",
		"negative width":  "world: {width: -1}\n",
		"probability":     "cell: {death_prob: 1.5}\n",
		"substrate kind":  "substrate: {kind: wasm}\n",
		"string for int":  "run: {updates: lots}\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw)); !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidate_PerLevelLengths(t *testing.T) {
	_, err := Parse([]byte("cell: {nlev: 3}\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("nlev 3 with two-level defaults: want ErrInvalid, got %v", err)
	}
}

func TestValidate_StarlarkNeedsScript(t *testing.T) {
	_, err := Parse([]byte("substrate: {kind: starlark}\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestLoad_ResolvesScriptRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	script := "def step(cell):\n    pass\n"
	if err := os.WriteFile(filepath.Join(dir, "prog.star"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := "substrate:\n  kind: starlark\n  script: prog.star\n  max_steps: 500\n"
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.Substrate.Script != filepath.Join(dir, "prog.star") {
		t.Fatalf("script path = %q", tu.Substrate.Script)
	}
	f, err := tu.Factory()
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	sf, ok := f.(starlark.Factory)
	if !ok || sf.MaxSteps != 500 || sf.Program == nil {
		t.Fatalf("factory: %#v", f)
	}
}

func TestFactory_DefaultIsScripted(t *testing.T) {
	f, err := Defaults().Factory()
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if _, ok := f.(scripted.Factory); !ok {
		t.Fatalf("factory: %T", f)
	}
}
