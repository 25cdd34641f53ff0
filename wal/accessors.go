package wal

import "fmt"

// Commit marks index as durable-and-applied. Idempotent for index <= the
// current commit index.
func (w *WAL) Commit(index uint32) error {
	if err := w.meta.Commit(index); err != nil {
		return fmt.Errorf("wal: commit %d: %w", index, err)
	}
	return nil
}

// CommitUpTo commits every index in (CommitIndex, index] in order. It
// fails ErrAlreadyCommitted if index is already at or below the current
// commit index.
func (w *WAL) CommitUpTo(index uint32) error {
	current := w.meta.CommitIndex()
	if int64(index) <= current {
		return ErrAlreadyCommitted
	}
	for i := uint32(current + 1); i <= index; i++ {
		if err := w.Commit(i); err != nil {
			return err
		}
	}
	return nil
}

// CurrentSegmentID returns the greatest segment ID written to, lowered by
// Truncate to the segment holding the truncation point.
func (w *WAL) CurrentSegmentID() uint32 { return w.meta.CurrentSegment() }

// LastIndex returns the greatest assigned logical index. Callers must
// check NextIndex() == 0 first; LastIndex is undefined on an empty log.
func (w *WAL) LastIndex() uint32 { return w.meta.Head() - 1 }

// NextIndex returns the index the next Write will assign.
func (w *WAL) NextIndex() uint32 { return w.meta.Head() }

// CommitIndex returns the greatest committed logical index, -1 if none.
func (w *WAL) CommitIndex() int64 { return w.meta.CommitIndex() }

// IsCommitted reports whether index is at or below the current commit
// index.
func (w *WAL) IsCommitted(index uint32) bool {
	return int64(index) <= w.meta.CommitIndex()
}
