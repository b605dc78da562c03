package quorum

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrCodec = errors.New("quorum: bad encoding")

// MarshalBinary writes one little-endian word per level.
func (b Bits) MarshalBinary() ([]byte, error) {
	out := make([]byte, 8*len(b))
	for i, w := range b {
		binary.LittleEndian.PutUint64(out[8*i:], w)
	}
	return out, nil
}

func (b *Bits) UnmarshalBinary(data []byte) error {
	if len(data)%8 != 0 {
		return fmt.Errorf("%w: length %d", ErrCodec, len(data))
	}
	out := make(Bits, len(data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(data[8*i:])
	}
	*b = out
	return nil
}

func (b Bits) words() []string {
	out := make([]string, len(b))
	for i, w := range b {
		out[i] = fmt.Sprintf("%016x", w)
	}
	return out
}

func (b *Bits) fromWords(ws []string) error {
	out := make(Bits, len(ws))
	for i, s := range ws {
		w, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: level %d %q", ErrCodec, i, s)
		}
		out[i] = w
	}
	*b = out
	return nil
}

// MarshalJSON emits hex words so 64-bit values survive JSON numbers.
func (b Bits) MarshalJSON() ([]byte, error) { return json.Marshal(b.words()) }

func (b *Bits) UnmarshalJSON(data []byte) error {
	var ws []string
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	return b.fromWords(ws)
}

func (b Bits) MarshalYAML() (any, error) { return b.words(), nil }

func (b *Bits) UnmarshalYAML(node *yaml.Node) error {
	var ws []string
	if err := node.Decode(&ws); err != nil {
		return err
	}
	return b.fromWords(ws)
}
