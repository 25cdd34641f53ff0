package segment

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"waldb/entrycodec"
)

// ErrUnexpectedEOF is returned when a header read comes up short (1-8
// bytes read at what should be a frame boundary). Zero bytes read is a
// clean end of segment, not an error.
var ErrUnexpectedEOF = errors.New("segment: unexpected EOF reading frame header")

// ErrCorruptEntry is returned when a decoded payload's CRC does not match
// the header's recorded CRC.
var ErrCorruptEntry = errors.New("segment: CRC mismatch")

// ErrNoCurrentEntry is returned by Decode when called before a successful
// ReadNext.
var ErrNoCurrentEntry = errors.New("segment: no current entry")

// Reader performs sequential or random decoding of framed records from one
// segment file. ReadNext advances a cursor and stages the frame for Decode
// without validating its checksum, matching the scanning-fast-path
// contract; Decode (or ReadOffset for one-shot random reads) validates CRC.
type Reader struct {
	f        io.ReaderAt
	registry *entrycodec.Registry

	offset int64 // start of the next frame to read

	hasCurrent bool
	curOffset  int64
	curHeader  frameHeader
	curPayload []byte
	curCodec   entrycodec.Codec
}

// NewReader wraps f (opened for at least random reads) for sequential
// scanning starting at byte 0.
func NewReader(f io.ReaderAt, registry *entrycodec.Registry) *Reader {
	return &Reader{f: f, registry: registry}
}

// ReadNext advances the cursor by one frame. It returns false on a clean
// end-of-segment (zero bytes where a header was expected). A short header
// (1-8 bytes) is always ErrUnexpectedEOF; an unregistered type tag is
// entrycodec.ErrUnknownType.
func (r *Reader) ReadNext() (bool, error) {
	var headerBuf [HeaderSize]byte
	n, err := r.f.ReadAt(headerBuf[:], r.offset)
	if n == 0 && errors.Is(err, io.EOF) {
		r.hasCurrent = false
		return false, nil
	}
	if n < HeaderSize {
		r.hasCurrent = false
		return false, fmt.Errorf("%w: got %d of %d bytes", ErrUnexpectedEOF, n, HeaderSize)
	}

	header := decodeHeader(headerBuf[:])
	codec, err := r.registry.New(header.Type)
	if err != nil {
		r.hasCurrent = false
		return false, err
	}
	payload, err := codec.ReadPayload(r.f, r.offset+HeaderSize)
	if err != nil {
		r.hasCurrent = false
		return false, fmt.Errorf("segment: read payload at offset %d: %w", r.offset, err)
	}

	r.curOffset = r.offset
	r.curHeader = header
	r.curPayload = payload
	r.curCodec = codec
	r.hasCurrent = true
	r.offset += int64(HeaderSize + len(payload))
	return true, nil
}

// Decode validates the CRC of the last frame staged by ReadNext against the
// header's recorded CRC, then decodes the payload through its codec.
func (r *Reader) Decode() (Entry, error) {
	if !r.hasCurrent {
		return Entry{}, ErrNoCurrentEntry
	}
	if crc32.ChecksumIEEE(r.curPayload) != r.curHeader.CRC {
		return Entry{}, fmt.Errorf("%w: index %d", ErrCorruptEntry, r.curHeader.Index)
	}
	if err := r.curCodec.Decode(r.curPayload); err != nil {
		return Entry{}, fmt.Errorf("segment: decode index %d: %w", r.curHeader.Index, err)
	}
	return Entry{Index: r.curHeader.Index, Type: r.curHeader.Type, Codec: r.curCodec}, nil
}

// CurrentFrameLength returns the total on-disk size (header + payload) of
// the frame most recently staged by ReadNext.
func (r *Reader) CurrentFrameLength() int64 {
	if !r.hasCurrent {
		return 0
	}
	return int64(HeaderSize + len(r.curPayload))
}

// CurrentOffset returns the byte offset at which the frame most recently
// staged by ReadNext begins.
func (r *Reader) CurrentOffset() int64 {
	return r.curOffset
}

// SeekEnd advances through every remaining frame until clean EOF and
// returns the last successfully read Index. ok is false if no frame was
// ever read (empty segment).
func (r *Reader) SeekEnd() (lastIndex uint32, ok bool, err error) {
	for {
		more, err := r.ReadNext()
		if err != nil {
			return lastIndex, ok, err
		}
		if !more {
			return lastIndex, ok, nil
		}
		lastIndex = r.curHeader.Index
		ok = true
	}
}

// ReadOffset performs a one-shot random read at byteOffset: parses the
// header, consumes the payload, validates CRC, and decodes — all in one
// call, unlike the ReadNext/Decode two-step scanning path.
func ReadOffset(f io.ReaderAt, registry *entrycodec.Registry, byteOffset int64) (Entry, error) {
	r := &Reader{f: f, registry: registry, offset: byteOffset}
	more, err := r.ReadNext()
	if err != nil {
		return Entry{}, err
	}
	if !more {
		return Entry{}, fmt.Errorf("%w: nothing at offset %d", ErrUnexpectedEOF, byteOffset)
	}
	return r.Decode()
}

// FrameLengthAt returns the total on-disk length of the frame beginning at
// byteOffset, without decoding it. Used by startup's orphan-tail check to
// find the boundary just past the last meta-recorded record.
func FrameLengthAt(f *os.File, registry *entrycodec.Registry, byteOffset int64) (int64, error) {
	r := &Reader{f: f, registry: registry, offset: byteOffset}
	more, err := r.ReadNext()
	if err != nil {
		return 0, err
	}
	if !more {
		return 0, fmt.Errorf("%w: nothing at offset %d", ErrUnexpectedEOF, byteOffset)
	}
	return r.CurrentFrameLength(), nil
}
