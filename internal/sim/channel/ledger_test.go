package channel

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func seeded(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, 7)) }

func TestCheckMatch_SymmetricAndAbsentFalse(t *testing.T) {
	a := New(3)
	b := New(3)
	if CheckMatch(a, b, 0) {
		t.Fatalf("absent ledgers must not match")
	}
	a.Init(seeded(1))
	if CheckMatch(a, b, 0) || CheckMatch(b, a, 0) {
		t.Fatalf("one absent side must not match")
	}
	b.Inherit(seeded(2), a.Snapshot(), 1)
	for lev := 0; lev < 3; lev++ {
		if CheckMatch(a, b, lev) != CheckMatch(b, a, lev) {
			t.Fatalf("asymmetric at level %d", lev)
		}
	}
	if CheckMatch(a, b, 0) {
		t.Fatalf("level 0 should be fresh after a level-1 birth")
	}
	if !CheckMatch(a, b, 1) || !CheckMatch(a, b, 2) {
		t.Fatalf("levels >= 1 should be inherited")
	}
	if CheckMatch(a, b, 5) {
		t.Fatalf("out-of-range level must not match")
	}
}

func TestInherit_DeterministicGivenRNG(t *testing.T) {
	parent := New(4)
	parent.Init(seeded(9))
	parent.AdvanceEpoch()
	snap := parent.Snapshot()

	x, y := New(4), New(4)
	x.Inherit(seeded(42), snap, 2)
	y.Inherit(seeded(42), snap, 2)
	if diff := cmp.Diff(x.Snapshot(), y.Snapshot()); diff != "" {
		t.Fatalf("same rng state should give same ledger (-x +y):\n%s", diff)
	}

	z := New(4)
	z.Inherit(seeded(43), snap, 2)
	for lev := 2; lev < 4; lev++ {
		zi, _ := z.ID(lev)
		xi, _ := x.ID(lev)
		if zi != xi {
			t.Fatalf("level %d must not depend on rng", lev)
		}
		if z.Generation(lev) != snap.Generations[lev]+1 {
			t.Fatalf("level %d generation: got %d", lev, z.Generation(lev))
		}
	}
	if x.Generation(0) != 0 || x.Epoch(0) != 0 {
		t.Fatalf("fresh level should reset counters")
	}
}

func TestIsExpired(t *testing.T) {
	l := New(2)
	l.Init(seeded(1))
	for i := 0; i < 5; i++ {
		l.AdvanceEpoch()
	}
	if got := l.IsExpired(0, 10); got != 0 {
		t.Fatalf("not yet expired, got %d", got)
	}
	if got := l.IsExpired(0, 3); got != 2 {
		t.Fatalf("expected 2 ticks over limit, got %d", got)
	}
	if got := l.IsExpired(0, 0); got != 0 {
		t.Fatalf("zero limit disables expiry, got %d", got)
	}
	l.Clear()
	if l.Present() || l.IsExpired(0, 3) != 0 {
		t.Fatalf("cleared ledger should be absent")
	}
}

func TestCodecs_RoundTripExact(t *testing.T) {
	l := New(3)
	l.Init(seeded(123))
	l.AdvanceEpoch()
	l.Inherit(seeded(5), l.Snapshot(), 1)
	want := l.Snapshot()

	bin, err := l.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal binary: %v", err)
	}
	var fromBin Ledger
	if err := fromBin.UnmarshalBinary(bin); err != nil {
		t.Fatalf("unmarshal binary: %v", err)
	}
	if diff := cmp.Diff(want, fromBin.Snapshot()); diff != "" {
		t.Fatalf("binary round trip (-want +got):\n%s", diff)
	}

	js, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	var fromJSON Ledger
	if err := json.Unmarshal(js, &fromJSON); err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}
	if diff := cmp.Diff(want, fromJSON.Snapshot()); diff != "" {
		t.Fatalf("json round trip (-want +got):\n%s", diff)
	}

	ym, err := yaml.Marshal(l)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	var fromYAML Ledger
	if err := yaml.Unmarshal(ym, &fromYAML); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	if diff := cmp.Diff(want, fromYAML.Snapshot()); diff != "" {
		t.Fatalf("yaml round trip (-want +got):\n%s", diff)
	}
}

func TestUnmarshalBinary_RejectsTruncated(t *testing.T) {
	l := New(2)
	l.Init(seeded(1))
	b, _ := l.MarshalBinary()
	var out Ledger
	if err := out.UnmarshalBinary(b[:len(b)-3]); err == nil {
		t.Fatalf("expected error on truncated input")
	}
}
