package segment

import (
	"fmt"
	"os"

	"waldb/walio"
)

// Writer appends framed records to one segment file through a buffered
// writer. It must be driven by a single writer at a time; the coordinator's
// write lock provides that guarantee.
type Writer struct {
	bw   *walio.BufferedWriter
	size int64 // current file size: bytes present at open plus bytes appended since
}

// OpenWriter opens path for read-write append, creating it if absent, and
// wraps it in a Writer. If the file already has content (a segment
// recovered on init), size reflects that.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("segment: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: stat %s: %w", path, err)
	}
	return &Writer{bw: walio.NewBufferedWriter(f, walio.DefaultBufferSize), size: info.Size()}, nil
}

// Write emits the 9-byte frame header followed by payload and returns the
// byte offset at which the record begins (the segment's size before this
// call).
func (w *Writer) Write(index uint32, typ uint8, crc uint32, payload []byte) (int64, error) {
	priorSize := w.size
	header := encodeHeader(frameHeader{Index: index, Type: typ, CRC: crc})
	if _, err := w.bw.Write(header[:]); err != nil {
		return priorSize, fmt.Errorf("segment: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.bw.Write(payload); err != nil {
			return priorSize, fmt.Errorf("segment: write payload: %w", err)
		}
	}
	w.size += int64(HeaderSize + len(payload))
	return priorSize, nil
}

// Sync flushes and fsyncs the underlying buffered writer.
func (w *Writer) Sync() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("segment: sync: %w", err)
	}
	return nil
}

// Close syncs and releases the file handle.
func (w *Writer) Close() error {
	if err := w.bw.Close(); err != nil {
		return fmt.Errorf("segment: close: %w", err)
	}
	return nil
}

// Size returns the segment's current size in bytes: what the file held when
// opened plus every byte appended since (buffered or not), as adjusted by
// Truncate.
func (w *Writer) Size() int64 { return w.size }

// Truncate shrinks the segment file to size, discarding everything after
// it, and resets the running size counter. Used by truncate() and by the
// startup orphan-tail check.
func (w *Writer) Truncate(size int64) error {
	if err := w.bw.Truncate(size); err != nil {
		return fmt.Errorf("segment: truncate: %w", err)
	}
	w.size = size
	return nil
}

// File exposes the underlying *os.File for random reads against a segment
// that is also the currently open writer.
func (w *Writer) File() *os.File { return w.bw.File() }
