package genome

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestEventTags_ProAntiAreComplements(t *testing.T) {
	tags := RandomEventTags(rand.New(rand.NewPCG(3, 4)))
	for e := Event(0); e < NumEvents; e++ {
		if tags.Pro(e, 0) != tags[e] {
			t.Fatalf("%s level 0 should be the base tag", e)
		}
		if tags.Anti(e, 1) != ^tags.Pro(e, 1) {
			t.Fatalf("%s anti should complement pro", e)
		}
		if tags.Pick(e, 2, false) != tags.Anti(e, 2) {
			t.Fatalf("%s pick", e)
		}
	}
}

func TestEventTags_RoundTrip(t *testing.T) {
	want := RandomEventTags(rand.New(rand.NewPCG(1, 1)))

	b, _ := want.MarshalBinary()
	var got EventTags
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("binary: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("binary (-want +got):\n%s", diff)
	}

	js, _ := json.Marshal(want)
	got = EventTags{}
	if err := json.Unmarshal(js, &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("json (-want +got):\n%s", diff)
	}

	ym, _ := yaml.Marshal(want)
	got = EventTags{}
	if err := yaml.Unmarshal(ym, &got); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("yaml (-want +got):\n%s", diff)
	}

	if err := json.Unmarshal([]byte(`{"debt":"00"}`), &got); err == nil {
		t.Fatalf("expected error for incomplete tag set")
	}
}

func TestTagMutator(t *testing.T) {
	g := Genome{Tags: EventTags{}}
	TagMutator{FlipProb: 1}.Mutate(&g, rand.New(rand.NewPCG(1, 2)))
	var zero EventTags
	for e, tag := range g.Tags {
		if tag != ^zero[e] {
			t.Fatalf("flip prob 1 should invert every bit")
		}
	}
	g2 := Genome{}
	TagMutator{}.Mutate(&g2, rand.New(rand.NewPCG(1, 2)))
	if g2.Tags != (EventTags{}) {
		t.Fatalf("zero prob must not mutate")
	}
}
