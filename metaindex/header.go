package metaindex

import "encoding/binary"

// Marker is the literal 4-byte value every valid index.META begins with.
const Marker = "META"

// HeaderSize is Marker(4) + Base(4) + Head(4) + Commit(4, signed) +
// CurrentSegment(4).
const HeaderSize = 20

// EntrySize is one array slot: SegmentID(4) + ByteOffset(4).
const EntrySize = 8

// CompactionBatchSize bounds how many entries compact/archive copy in one
// read/write pass, keeping peak memory bounded regardless of log size.
const CompactionBatchSize = 4096

type header struct {
	Base           uint32
	Head           uint32
	Commit         int64 // -1 when none; stored on disk as a signed int32
	CurrentSegment uint32
}

func (h header) encode() [HeaderSize]byte {
	var b [HeaderSize]byte
	copy(b[0:4], Marker)
	binary.BigEndian.PutUint32(b[4:8], h.Base)
	binary.BigEndian.PutUint32(b[8:12], h.Head)
	binary.BigEndian.PutUint32(b[12:16], uint32(int32(h.Commit)))
	binary.BigEndian.PutUint32(b[16:20], h.CurrentSegment)
	return b
}

func decodeHeader(b []byte) (header, error) {
	if string(b[0:4]) != Marker {
		return header{}, ErrInvalidMetaMarker
	}
	return header{
		Base:           binary.BigEndian.Uint32(b[4:8]),
		Head:           binary.BigEndian.Uint32(b[8:12]),
		Commit:         int64(int32(binary.BigEndian.Uint32(b[12:16]))),
		CurrentSegment: binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// localIndex converts a logical index into an array slot given base.
func localIndex(base, index uint32) uint32 { return index - base }
