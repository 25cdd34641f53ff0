// Package segment implements the on-disk record framing used by a single
// segment file (`<segmentID>.wal`): appending framed records via the
// buffered writer, and decoding them back, sequentially or at random
// offsets. Each frame is a fixed binary.BigEndian header ahead of a
// variable body, CRC-32 IEEE validated on read.
package segment

import "encoding/binary"

// HeaderSize is the fixed frame header: Index(4) + Type(1) + CRC(4).
const HeaderSize = 9

type frameHeader struct {
	Index uint32
	Type  uint8
	CRC   uint32
}

func encodeHeader(h frameHeader) [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.BigEndian.PutUint32(b[0:4], h.Index)
	b[4] = h.Type
	binary.BigEndian.PutUint32(b[5:9], h.CRC)
	return b
}

func decodeHeader(b []byte) frameHeader {
	return frameHeader{
		Index: binary.BigEndian.Uint32(b[0:4]),
		Type:  b[4],
		CRC:   binary.BigEndian.Uint32(b[5:9]),
	}
}
