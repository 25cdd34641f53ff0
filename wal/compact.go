package wal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// checkCompactable evaluates whether Compact/Archive have work to do.
// Called with mu held.
func (w *WAL) checkCompactable() (ok bool, base, commitSeg, baseSeg uint32, err error) {
	commit := w.meta.CommitIndex()
	head := w.meta.Head()
	base = w.meta.Base()
	if commit == -1 || commit == int64(head)-1 {
		return false, 0, 0, 0, nil
	}
	if uint32(commit)-base < w.cfg.MinEntriesForCompaction {
		return false, 0, 0, 0, nil
	}

	commitPos, err := w.meta.Position(uint32(commit))
	if err != nil {
		return false, 0, 0, 0, fmt.Errorf("wal: locate commit index: %w", err)
	}
	basePos, err := w.meta.Position(base)
	if err != nil {
		return false, 0, 0, 0, fmt.Errorf("wal: locate base index: %w", err)
	}
	if commitPos.SegmentID == basePos.SegmentID {
		return false, 0, 0, 0, nil
	}
	if commitPos.SegmentID == 0 {
		return false, 0, 0, 0, nil
	}
	return true, base, commitPos.SegmentID, basePos.SegmentID, nil
}

// Compact removes the fully-committed segment prefix from the live
// directory. It returns false without error if the documented
// preconditions are not met, leaving the directory unchanged.
func (w *WAL) Compact() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, ErrClosed
	}

	ok, _, commitSeg, baseSeg, err := w.checkCompactable()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if w.seg != nil {
		if err := w.seg.Sync(); err != nil {
			return false, fmt.Errorf("wal: sync before compact: %w", err)
		}
	}
	if err := w.meta.Compact(); err != nil {
		return false, fmt.Errorf("wal: compact meta: %w", err)
	}
	for id := baseSeg; id < commitSeg; id++ {
		if err := os.Remove(w.segmentPath(id)); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("wal: remove compacted segment %d: %w", id, err)
		}
	}
	w.cfg.Metrics.CompactionCompleted()
	return true, nil
}

// Archive performs the same reorganization as Compact, but moves the
// dropped segment files into dir instead of deleting them, with a
// cross-device fallback of copy-then-unlink when a plain rename fails.
func (w *WAL) Archive(dir string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, ErrClosed
	}

	ok, _, commitSeg, baseSeg, err := w.checkCompactable()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if w.seg != nil {
		if err := w.seg.Sync(); err != nil {
			return false, fmt.Errorf("wal: sync before archive: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("wal: create archive directory: %w", err)
	}
	if err := w.meta.Archive(dir); err != nil {
		return false, fmt.Errorf("wal: archive meta: %w", err)
	}
	for id := baseSeg; id < commitSeg; id++ {
		if err := moveFile(w.segmentPath(id), filepath.Join(dir, fmt.Sprintf("%d.wal", id))); err != nil {
			return false, fmt.Errorf("wal: move segment %d to archive: %w", id, err)
		}
	}
	w.cfg.Metrics.ArchiveCompleted()
	return true, nil
}

// moveFile renames src to dst, falling back to copy-then-unlink when the
// rename fails across a filesystem boundary (EXDEV).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		in.Close()
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		in.Close()
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("fsync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	if err := in.Close(); err != nil {
		return fmt.Errorf("close source: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}
