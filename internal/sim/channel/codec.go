package channel

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

const codecVersion = 1

var ErrCodec = errors.New("channel: bad encoding")

// MarshalBinary encodes as: version, level count, present flag, then per level
// the id as 8 little-endian bytes followed by uvarint generation and epoch.
func (l *Ledger) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	buf.WriteByte(codecVersion)
	n := binary.PutUvarint(tmp[:], uint64(len(l.ids)))
	buf.Write(tmp[:n])
	if l.present {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	for i := range l.ids {
		var id [8]byte
		binary.LittleEndian.PutUint64(id[:], l.ids[i])
		buf.Write(id[:])
		n = binary.PutUvarint(tmp[:], uint64(l.gens[i]))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(l.epochs[i]))
		buf.Write(tmp[:n])
	}
	return buf.Bytes(), nil
}

func (l *Ledger) UnmarshalBinary(b []byte) error {
	r := bytes.NewReader(b)
	v, err := r.ReadByte()
	if err != nil || v != codecVersion {
		return fmt.Errorf("%w: version", ErrCodec)
	}
	nlev, err := binary.ReadUvarint(r)
	if err != nil || nlev > 1<<16 {
		return fmt.Errorf("%w: level count", ErrCodec)
	}
	present, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: present flag", ErrCodec)
	}
	out := New(int(nlev))
	out.present = present == 1
	for i := 0; i < int(nlev); i++ {
		var id [8]byte
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return fmt.Errorf("%w: id %d", ErrCodec, i)
		}
		out.ids[i] = binary.LittleEndian.Uint64(id[:])
		g, err := binary.ReadUvarint(r)
		if err != nil {
			return fmt.Errorf("%w: generation %d", ErrCodec, i)
		}
		e, err := binary.ReadUvarint(r)
		if err != nil {
			return fmt.Errorf("%w: epoch %d", ErrCodec, i)
		}
		out.gens[i], out.epochs[i] = uint32(g), uint32(e)
	}
	*l = *out
	return nil
}

// ledgerDoc is the human-readable form; ids are hex so they survive any JSON reader.
type ledgerDoc struct {
	Present bool         `json:"present" yaml:"present"`
	Levels  []levelEntry `json:"levels" yaml:"levels"`
}

type levelEntry struct {
	ID         string `json:"id" yaml:"id"`
	Generation uint32 `json:"generation" yaml:"generation"`
	Epoch      uint32 `json:"epoch" yaml:"epoch"`
}

func (l *Ledger) doc() ledgerDoc {
	d := ledgerDoc{Present: l.present, Levels: make([]levelEntry, len(l.ids))}
	for i := range l.ids {
		d.Levels[i] = levelEntry{
			ID:         fmt.Sprintf("%016x", l.ids[i]),
			Generation: l.gens[i],
			Epoch:      l.epochs[i],
		}
	}
	return d
}

func (l *Ledger) fromDoc(d ledgerDoc) error {
	out := New(len(d.Levels))
	out.present = d.Present
	for i, e := range d.Levels {
		id, err := strconv.ParseUint(e.ID, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: level %d id %q", ErrCodec, i, e.ID)
		}
		out.ids[i], out.gens[i], out.epochs[i] = id, e.Generation, e.Epoch
	}
	*l = *out
	return nil
}

func (l *Ledger) MarshalJSON() ([]byte, error) { return json.Marshal(l.doc()) }

func (l *Ledger) UnmarshalJSON(b []byte) error {
	var d ledgerDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	return l.fromDoc(d)
}

func (l *Ledger) MarshalYAML() (any, error) { return l.doc(), nil }

func (l *Ledger) UnmarshalYAML(node *yaml.Node) error {
	var d ledgerDoc
	if err := node.Decode(&d); err != nil {
		return err
	}
	return l.fromDoc(d)
}
