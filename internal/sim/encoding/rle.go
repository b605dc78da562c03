// Package encoding packs grid frames for observers.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// KinRLE names the run-length encoding below in observer messages.
const KinRLE = "RLE_UVARINT_B64"

// EncodeRLE writes (value, run) uvarint pairs over the cells in index order
// and returns them base64 encoded.
func EncodeRLE(vals []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		buf.Write(tmp[:n])
	}
	for i := 0; i < len(vals); {
		j := i + 1
		for j < len(vals) && vals[j] == vals[i] {
			j++
		}
		put(uint64(vals[i]))
		put(uint64(j - i))
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. The runs must cover exactly size cells.
func DecodeRLE(s string, size int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, size)
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFFFF {
			return nil, fmt.Errorf("value too large: %d", v)
		}
		if run == 0 || run > uint64(size-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, size)
		}
		for range run {
			out = append(out, uint16(v))
		}
	}
	if len(out) != size {
		return nil, fmt.Errorf("decoded %d cells, want %d", len(out), size)
	}
	return out, nil
}

// Quantize maps non-negative values onto 0..levels-1 relative to the
// largest value, so runs of similar balances compress. Negative values map
// to 0. It returns the scale needed to recover approximate values.
func Quantize(vals []float32, levels int) ([]uint16, float32) {
	if levels < 2 {
		levels = 2
	}
	if levels > 0x10000 {
		levels = 0x10000
	}
	var hi float32
	for _, v := range vals {
		hi = max(hi, v)
	}
	out := make([]uint16, len(vals))
	if hi <= 0 {
		return out, 0
	}
	top := float32(levels - 1)
	for i, v := range vals {
		if v <= 0 {
			continue
		}
		out[i] = uint16(v/hi*top + 0.5)
	}
	return out, hi / top
}
