package metaindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Compact replaces index.META so its array holds only indices
// [Commit+1, Head), i.e. Base becomes Commit+1. Implemented as copy-and-
// swap: a fully-formed replacement file is written and fsynced under a
// `.tmp` name, then atomically renamed over the live path — the live file
// is never edited in place, matching the crash-safety guarantee that any
// crash leaves either the old file or the fully-written new one.
func (m *Manager) Compact() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.flushLocked(); err != nil {
		return err
	}

	newBase := uint32(m.header.Commit + 1)
	newHeader := header{Base: newBase, Head: m.header.Head, Commit: m.header.Commit, CurrentSegment: m.header.CurrentSegment}

	tmpPath := m.path + ".tmp"
	if err := writeMetaFile(tmpPath, newHeader, m.f, m.header.Base); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("metaindex: rename compacted meta: %w", err)
	}
	if err := m.reopenLocked(); err != nil {
		return err
	}
	m.cache.Clear()
	return nil
}

// Archive performs the same rewrite as Compact, but first preserves the
// about-to-be-dropped committed prefix [Base, Commit] as a standalone
// index.META under dir. The archived copy is written and fsynced under
// dir before the live file is touched at all, so a crash never lands
// between a mutilated live file and a missing archive copy.
func (m *Manager) Archive(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.flushLocked(); err != nil {
		return err
	}

	commitSegment, err := m.segmentIDAtLocked(uint32(m.header.Commit))
	if err != nil {
		return fmt.Errorf("metaindex: locate commit segment: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metaindex: create archive dir: %w", err)
	}

	archHeader := header{
		Base:           m.header.Base,
		Head:           uint32(m.header.Commit + 1),
		Commit:         m.header.Commit,
		CurrentSegment: commitSegment,
	}
	archPath := filepath.Join(dir, "index.META")
	archTmp := archPath + ".tmp"
	if err := writeMetaFile(archTmp, archHeader, m.f, m.header.Base); err != nil {
		return err
	}
	if err := os.Rename(archTmp, archPath); err != nil {
		return fmt.Errorf("metaindex: rename archived meta: %w", err)
	}

	newBase := uint32(m.header.Commit + 1)
	liveHeader := header{Base: newBase, Head: m.header.Head, Commit: m.header.Commit, CurrentSegment: m.header.CurrentSegment}
	tmpPath := m.path + ".tmp"
	if err := writeMetaFile(tmpPath, liveHeader, m.f, m.header.Base); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("metaindex: rename post-archive live meta: %w", err)
	}
	if err := m.reopenLocked(); err != nil {
		return err
	}
	m.cache.Clear()
	return nil
}

// writeMetaFile builds a complete, fsynced index.META at path: header h
// followed by entries [h.Base, h.Head) copied from src, whose own array
// starts at logical index srcBase. Copies proceed in CompactionBatchSize
// chunks to bound peak memory regardless of log size.
func writeMetaFile(path string, h header, src *os.File, srcBase uint32) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("metaindex: create %s: %w", path, err)
	}
	defer f.Close()

	hb := h.encode()
	if _, err := f.WriteAt(hb[:], 0); err != nil {
		return fmt.Errorf("metaindex: write header to %s: %w", path, err)
	}

	total := h.Head - h.Base
	srcOffset := int64(HeaderSize) + int64(localIndex(srcBase, h.Base))*EntrySize
	dstOffset := int64(HeaderSize)
	buf := make([]byte, CompactionBatchSize*EntrySize)
	for total > 0 {
		n := total
		if n > CompactionBatchSize {
			n = CompactionBatchSize
		}
		chunk := buf[:int(n)*EntrySize]
		if _, err := src.ReadAt(chunk, srcOffset); err != nil {
			return fmt.Errorf("metaindex: read entries from source: %w", err)
		}
		if _, err := f.WriteAt(chunk, dstOffset); err != nil {
			return fmt.Errorf("metaindex: write entries to %s: %w", path, err)
		}
		srcOffset += int64(len(chunk))
		dstOffset += int64(len(chunk))
		total -= n
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("metaindex: fsync %s: %w", path, err)
	}
	return nil
}

func (m *Manager) segmentIDAtLocked(index uint32) (uint32, error) {
	offset := int64(HeaderSize) + int64(localIndex(m.header.Base, index))*EntrySize
	var buf [4]byte
	if _, err := m.f.ReadAt(buf[:], offset); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (m *Manager) reopenLocked() error {
	if err := m.f.Close(); err != nil {
		return fmt.Errorf("metaindex: close before reopen: %w", err)
	}
	f, err := os.OpenFile(m.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("metaindex: reopen: %w", err)
	}
	var buf [HeaderSize]byte
	if _, err := f.ReadAt(buf[:], 0); err != nil {
		f.Close()
		return fmt.Errorf("metaindex: read reopened header: %w", err)
	}
	h, err := decodeHeader(buf[:])
	if err != nil {
		f.Close()
		return err
	}
	m.f = f
	m.header = h
	return nil
}
