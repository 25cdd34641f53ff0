package wal

import (
	"os"
	"path/filepath"
	"testing"

	"waldb/entrycodec"
)

// TestOpenTrimsOrphanedSegmentTail simulates a crash between a segment
// write and its corresponding meta append: bytes land on disk past the
// last position the meta index actually recorded. Reopening the
// directory must discard those bytes before accepting any further
// writes.
func TestOpenTrimsOrphanedSegmentTail(t *testing.T) {
	dir := t.TempDir()
	reg := newTestRegistry()
	cfg := testConfig()

	w, err := Open(dir, reg, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := w.Write(raw("v")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segPath := filepath.Join(dir, "0.wal")
	info, err := os.Stat(segPath)
	if err != nil {
		t.Fatalf("stat segment: %v", err)
	}
	validSize := info.Size()

	// Simulate a crash mid-frame: bytes appended to the segment after the
	// last meta-recorded position, with no corresponding meta.Append.
	f, err := os.OpenFile(segPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open segment for corruption: %v", err)
	}
	if _, err := f.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("write orphan bytes: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close corrupted segment: %v", err)
	}
	info, err = os.Stat(segPath)
	if err != nil {
		t.Fatalf("stat corrupted segment: %v", err)
	}
	if info.Size() <= validSize {
		t.Fatalf("test setup failed to append orphan bytes")
	}

	w2, err := Open(dir, reg, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()

	info, err = os.Stat(segPath)
	if err != nil {
		t.Fatalf("stat segment after reopen: %v", err)
	}
	if info.Size() != validSize {
		t.Fatalf("orphan tail not trimmed on open: got size %d, want %d", info.Size(), validSize)
	}

	if w2.NextIndex() != 3 {
		t.Fatalf("NextIndex after trim: got %d, want 3", w2.NextIndex())
	}
	for i := 0; i < 3; i++ {
		if _, err := w2.GetEntry(uint32(i)); err != nil {
			t.Fatalf("get entry %d after trim: %v", i, err)
		}
	}

	idx, err := w2.Write(raw("resumed"))
	if err != nil {
		t.Fatalf("write after trim: %v", err)
	}
	if idx != 3 {
		t.Fatalf("index of write after trim: got %d, want 3", idx)
	}
	entry, err := w2.GetEntry(3)
	if err != nil {
		t.Fatalf("get entry 3: %v", err)
	}
	if got := entry.Codec.(*entrycodec.RawCodec).Value; string(got) != "resumed" {
		t.Fatalf("entry 3 value: got %q, want %q", got, "resumed")
	}
}
