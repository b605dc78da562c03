package genome

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"cellworld.sim/internal/sim/substrate"
)

var ErrCodec = errors.New("genome: bad event tag encoding")

func (t EventTags) MarshalBinary() ([]byte, error) {
	out := make([]byte, 8*NumEvents)
	for i, tag := range t {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(tag))
	}
	return out, nil
}

func (t *EventTags) UnmarshalBinary(b []byte) error {
	if len(b) != 8*int(NumEvents) {
		return fmt.Errorf("%w: length %d", ErrCodec, len(b))
	}
	for i := range t {
		t[i] = substrate.Tag(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return nil
}

func (t EventTags) named() map[string]string {
	out := make(map[string]string, NumEvents)
	for i, tag := range t {
		out[Event(i).String()] = fmt.Sprintf("%016x", uint64(tag))
	}
	return out
}

func (t *EventTags) fromNamed(m map[string]string) error {
	var out EventTags
	for i := range out {
		name := Event(i).String()
		s, ok := m[name]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrCodec, name)
		}
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrCodec, name, s)
		}
		out[i] = substrate.Tag(v)
	}
	*t = out
	return nil
}

func (t EventTags) MarshalJSON() ([]byte, error) { return json.Marshal(t.named()) }

func (t *EventTags) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	return t.fromNamed(m)
}

func (t EventTags) MarshalYAML() (any, error) { return t.named(), nil }

func (t *EventTags) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return err
	}
	return t.fromNamed(m)
}
