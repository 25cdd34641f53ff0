package segment

import (
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"waldb/entrycodec"
)

func newRegistry() *entrycodec.Registry {
	reg := entrycodec.NewRegistry()
	reg.Register(entrycodec.RawType, entrycodec.NewRawCodec)
	return reg
}

func writeRaw(t *testing.T, w *Writer, index uint32, value string) int64 {
	t.Helper()
	c := &entrycodec.RawCodec{Value: []byte(value)}
	payload, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	crc := crc32.ChecksumIEEE(payload)
	off, err := w.Write(index, entrycodec.RawType, crc, payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return off
}

func TestWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}

	off0 := writeRaw(t, w, 0, "test")
	off1 := writeRaw(t, w, 1, "second")
	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if off0 != 0 {
		t.Fatalf("off0 = %d, want 0", off0)
	}
	wantOff1 := int64(HeaderSize + 4 + 4) // header + len-prefix + "test"
	if off1 != wantOff1 {
		t.Fatalf("off1 = %d, want %d", off1, wantOff1)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	reg := newRegistry()
	e0, err := ReadOffset(f, reg, off0)
	if err != nil {
		t.Fatalf("ReadOffset(0): %v", err)
	}
	if string(e0.Codec.(*entrycodec.RawCodec).Value) != "test" {
		t.Fatalf("entry 0 value = %q", e0.Codec.(*entrycodec.RawCodec).Value)
	}

	r := NewReader(f, reg)
	var lastIndex uint32
	count := 0
	for {
		more, err := r.ReadNext()
		if err != nil {
			t.Fatalf("ReadNext: %v", err)
		}
		if !more {
			break
		}
		entry, err := r.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		lastIndex = entry.Index
		count++
	}
	if count != 2 || lastIndex != 1 {
		t.Fatalf("count=%d lastIndex=%d", count, lastIndex)
	}
}

func TestReaderDetectsCorruptEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Write(0, entrycodec.RawType, 0xDEADBEEF, []byte{0, 0, 0, 4, 't', 'e', 's', 't'}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	r := NewReader(f, newRegistry())
	more, err := r.ReadNext()
	if err != nil || !more {
		t.Fatalf("ReadNext: more=%v err=%v", more, err)
	}
	if _, err := r.Decode(); err == nil {
		t.Fatal("expected CRC mismatch error")
	}
}

func TestReaderUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Write(0, 99, 0, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	r := NewReader(f, newRegistry())
	if _, err := r.ReadNext(); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestSeekEndEmptySegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	if _, err := OpenWriter(path); err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	r := NewReader(f, newRegistry())
	_, ok, err := r.SeekEnd()
	if err != nil {
		t.Fatalf("SeekEnd: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for empty segment")
	}
}

func TestWriterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.wal")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	writeRaw(t, w, 0, "test")
	off1 := writeRaw(t, w, 1, "second")
	if err := w.Truncate(off1); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if w.Size() != off1 {
		t.Fatalf("Size = %d, want %d", w.Size(), off1)
	}
	writeRaw(t, w, 1, "replacement")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	r := NewReader(f, newRegistry())
	lastIndex, ok, err := r.SeekEnd()
	if err != nil || !ok {
		t.Fatalf("SeekEnd: ok=%v err=%v", ok, err)
	}
	if lastIndex != 1 {
		t.Fatalf("lastIndex = %d, want 1", lastIndex)
	}
}
