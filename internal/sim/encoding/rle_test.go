package encoding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := []uint16{0, 0, 0, 5, 5, 7}
	for range 50 {
		in = append(in, 0xFFFF)
	}
	in = append(in, 0, 1, 1)

	out, err := DecodeRLE(EncodeRLE(in), len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("(-in +out):\n%s", diff)
	}
}

func TestRLE_EmptyGrid(t *testing.T) {
	if s := EncodeRLE(nil); s != "" {
		t.Fatalf("encode empty = %q", s)
	}
	out, err := DecodeRLE("", 0)
	if err != nil || len(out) != 0 {
		t.Fatalf("decode empty = %v, %v", out, err)
	}
}

func TestDecodeRLE_RejectsWrongSize(t *testing.T) {
	enc := EncodeRLE([]uint16{3, 3, 3, 4})
	if _, err := DecodeRLE(enc, 3); err == nil {
		t.Fatalf("want overflow error for short grid")
	}
	if _, err := DecodeRLE(enc, 10); err == nil {
		t.Fatalf("want error for long grid")
	}
	if _, err := DecodeRLE("!!", 1); err == nil {
		t.Fatalf("want base64 error")
	}
}

func TestQuantize(t *testing.T) {
	q, scale := Quantize([]float32{-1, 0, 2.5, 5, 10}, 11)
	want := []uint16{0, 0, 3, 5, 10}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if scale != 1 {
		t.Fatalf("scale = %v, want 1", scale)
	}

	q, scale = Quantize([]float32{-3, 0}, 256)
	if scale != 0 || q[0] != 0 || q[1] != 0 {
		t.Fatalf("all non-positive: %v scale %v", q, scale)
	}
}
