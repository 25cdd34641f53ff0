package entrycodec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RawType is the tag reserved for RawCodec.
const RawType uint8 = 0

// RawCodec is a minimal reference codec: a 4-byte big-endian length prefix
// followed by that many raw bytes. Entry payload schemas are a client
// concern; this gives tests and examples one concrete, self-delimiting
// codec to exercise the framing layer.
type RawCodec struct {
	Value []byte
}

// NewRawCodec is a Factory for RawCodec, ready to register on a Registry.
func NewRawCodec() Codec {
	return &RawCodec{}
}

func (c *RawCodec) Type() uint8 { return RawType }

func (c *RawCodec) Encode() ([]byte, error) {
	out := make([]byte, 4+len(c.Value))
	binary.BigEndian.PutUint32(out, uint32(len(c.Value)))
	copy(out[4:], c.Value)
	return out, nil
}

func (c *RawCodec) ReadPayload(r io.ReaderAt, offset int64) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.ReadAt(lenBuf[:], offset); err != nil {
		return nil, fmt.Errorf("entrycodec: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	raw := make([]byte, 4+int(n))
	copy(raw, lenBuf[:])
	if n > 0 {
		if _, err := r.ReadAt(raw[4:], offset+4); err != nil {
			return nil, fmt.Errorf("entrycodec: read payload body: %w", err)
		}
	}
	return raw, nil
}

func (c *RawCodec) Decode(raw []byte) error {
	if len(raw) < 4 {
		return fmt.Errorf("entrycodec: raw codec frame too short: %d bytes", len(raw))
	}
	n := binary.BigEndian.Uint32(raw)
	if len(raw) != 4+int(n) {
		return fmt.Errorf("entrycodec: raw codec length mismatch: header says %d, have %d", n, len(raw)-4)
	}
	c.Value = append([]byte(nil), raw[4:]...)
	return nil
}
