package wal

import (
	"os"
	"path/filepath"
	"testing"
)

func compactableConfig() Config {
	cfg := testConfig()
	cfg.MaxSegmentSize = 1 // force one entry per segment so base/commit land in different segments
	return cfg
}

func TestCompactPreconditionsNotMet(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, newTestRegistry(), compactableConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	for i := 0; i < 3; i++ {
		if _, err := w.Write(raw("v")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	// Nothing committed yet: Compact must be a documented no-op, not an error.
	ok, err := w.Compact()
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if ok {
		t.Fatalf("expected compact to report no work with nothing committed")
	}
}

func TestCompactRemovesCommittedPrefixSegments(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, newTestRegistry(), compactableConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if _, err := w.Write(raw("v")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := w.CommitUpTo(2); err != nil {
		t.Fatalf("commit: %v", err)
	}

	ok, err := w.Compact()
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if !ok {
		t.Fatalf("expected compact to do work")
	}

	if _, err := os.Stat(w.segmentPath(0)); !os.IsNotExist(err) {
		t.Fatalf("expected segment 0 to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(w.segmentPath(1)); !os.IsNotExist(err) {
		t.Fatalf("expected segment 1 to be removed, stat err = %v", err)
	}

	entry, err := w.GetEntry(4)
	if err != nil {
		t.Fatalf("get entry 4 after compact: %v", err)
	}
	if entry.Index != 4 {
		t.Fatalf("entry index: got %d, want 4", entry.Index)
	}
}

func TestArchiveMovesCommittedPrefixSegments(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, newTestRegistry(), compactableConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if _, err := w.Write(raw("v")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := w.CommitUpTo(2); err != nil {
		t.Fatalf("commit: %v", err)
	}

	archiveDir := filepath.Join(t.TempDir(), "archive")
	ok, err := w.Archive(archiveDir)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archive to do work")
	}

	if _, err := os.Stat(filepath.Join(archiveDir, "0.wal")); err != nil {
		t.Fatalf("expected archived segment 0: %v", err)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "1.wal")); err != nil {
		t.Fatalf("expected archived segment 1: %v", err)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "index.META")); err != nil {
		t.Fatalf("expected archived index.META: %v", err)
	}
	if _, err := os.Stat(w.segmentPath(0)); !os.IsNotExist(err) {
		t.Fatalf("expected live segment 0 removed after archive")
	}
}
