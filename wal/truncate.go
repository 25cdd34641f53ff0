package wal

import (
	"fmt"
	"os"

	"waldb/segment"
)

// Truncate drops every logical index at or after from. If from lives in
// the current segment, that segment's writer is truncated in place;
// otherwise every segment after from's segment is deleted and the
// coordinator's active writer moves back to from's segment.
func (w *WAL) Truncate(from uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	pos, err := w.meta.Position(from)
	if err != nil {
		return fmt.Errorf("wal: truncate: locate %d: %w", from, err)
	}

	if err := w.meta.Truncate(from); err != nil {
		return fmt.Errorf("wal: truncate meta: %w", err)
	}

	// Indices at or past from will be reassigned to new writes, which must
	// wait for their own fsync rather than match a pre-truncate sync round.
	w.syncMu.Lock()
	if w.lastFsyncedIndex > from {
		w.lastFsyncedIndex = from
	}
	w.syncMu.Unlock()

	if pos.SegmentID == w.currSegmentID {
		if err := w.seg.Truncate(int64(pos.ByteOffset)); err != nil {
			return fmt.Errorf("wal: truncate segment %d: %w", pos.SegmentID, err)
		}
		return nil
	}

	if w.seg != nil {
		if err := w.seg.Close(); err != nil {
			return fmt.Errorf("wal: close segment %d: %w", w.currSegmentID, err)
		}
	}
	for id := pos.SegmentID + 1; id <= w.currSegmentID; id++ {
		if err := os.Remove(w.segmentPath(id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("wal: remove segment %d: %w", id, err)
		}
	}
	w.currSegmentID = pos.SegmentID

	sw, err := segment.OpenWriter(w.segmentPath(pos.SegmentID))
	if err != nil {
		return err
	}
	if err := sw.Truncate(int64(pos.ByteOffset)); err != nil {
		sw.Close()
		return fmt.Errorf("wal: truncate segment %d: %w", pos.SegmentID, err)
	}
	w.seg = sw
	return nil
}
