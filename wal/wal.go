// Package wal is the coordinator: it owns one active segment writer, one
// meta index manager, and the write lock that serializes appends,
// rollovers, compaction, and archival, on top of a client-registered
// codec and a two-file (segment + meta) consistency model with a
// race-free durability driver.
package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"waldb/entrycodec"
	"waldb/metaindex"
	"waldb/segment"
)

// WAL is a coordinator over one directory. The zero value is not usable;
// construct with Open.
type WAL struct {
	dir      string
	registry *entrycodec.Registry
	cfg      Config

	mu            sync.Mutex
	meta          *metaindex.Manager
	seg           *segment.Writer
	currSegmentID uint32
	closed        bool

	syncMu           sync.Mutex
	syncCond         *sync.Cond
	syncOngoing      bool
	lastFsyncedIndex uint32
	lastFsyncErr     error
}

// Open initializes (or reopens) a WAL directory. registry must already
// carry every type tag the directory's segments may reference. Passing a
// zero-valued Config selects every documented default.
func Open(dir string, registry *entrycodec.Registry, cfg Config) (*WAL, error) {
	if registry == nil {
		return nil, fmt.Errorf("wal: registry must not be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: create directory: %w", err)
	}
	cfg = withDefaults(cfg)

	meta, err := metaindex.Open(dir, *cfg.Meta)
	if err != nil {
		return nil, fmt.Errorf("wal: open meta index: %w", err)
	}

	w := &WAL{dir: dir, registry: registry, cfg: cfg, meta: meta}
	w.syncCond = sync.NewCond(&w.syncMu)
	w.lastFsyncedIndex = meta.Head()

	segmentIDs, err := listSegmentIDs(dir)
	if err != nil {
		meta.Close()
		return nil, err
	}
	if len(segmentIDs) > 0 {
		highest := segmentIDs[len(segmentIDs)-1]
		w.currSegmentID = highest
		sw, err := segment.OpenWriter(w.segmentPath(highest))
		if err != nil {
			meta.Close()
			return nil, err
		}
		w.seg = sw
		if err := w.trimOrphanTail(); err != nil {
			sw.Close()
			meta.Close()
			return nil, err
		}
	}

	return w, nil
}

// trimOrphanTail discards bytes appended to the current segment past the
// last meta-recorded record (from a crash between segment.Write and
// meta.Append) instead of silently inheriting them.
func (w *WAL) trimOrphanTail() error {
	head := w.meta.Head()
	if head == 0 {
		return w.seg.Truncate(0)
	}
	lastIndex := head - 1
	pos, err := w.meta.Position(lastIndex)
	if err != nil {
		return fmt.Errorf("wal: locate last recorded entry on init: %w", err)
	}
	if pos.SegmentID != w.currSegmentID {
		// The last recorded entry lives in an earlier, already-closed
		// segment; the current segment has no meta-recorded entries at
		// all yet and any bytes in it are orphaned.
		return w.seg.Truncate(0)
	}
	frameLen, err := segment.FrameLengthAt(w.seg.File(), w.registry, int64(pos.ByteOffset))
	if err != nil {
		return fmt.Errorf("wal: measure last recorded frame on init: %w", err)
	}
	boundary := int64(pos.ByteOffset) + frameLen
	if boundary < w.seg.Size() {
		w.cfg.Logger.Log(LevelWarn, "trimming orphaned segment tail", "segment", w.currSegmentID, "boundary", boundary, "size", w.seg.Size())
		return w.seg.Truncate(boundary)
	}
	return nil
}

func listSegmentIDs(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("wal: list directory: %w", err)
	}
	var ids []uint32
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".wal") {
			continue
		}
		idStr := strings.TrimSuffix(name, ".wal")
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (w *WAL) segmentPath(id uint32) string {
	return filepath.Join(w.dir, fmt.Sprintf("%d.wal", id))
}

// Write encodes codec's current value, computes its CRC, appends the
// framed record under the write lock, and returns only after an fsync
// covering that record has completed.
func (w *WAL) Write(codec entrycodec.Codec) (uint32, error) {
	if codec == nil {
		return 0, fmt.Errorf("wal: codec must not be nil")
	}
	payload, err := codec.Encode()
	if err != nil {
		return 0, fmt.Errorf("wal: encode payload: %w", err)
	}
	crc := crc32Payload(payload)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0, ErrClosed
	}
	if w.seg == nil || w.seg.Size() >= w.cfg.MaxSegmentSize {
		if err := w.roll(); err != nil {
			w.mu.Unlock()
			return 0, err
		}
	}

	newIndex := w.meta.Head()
	byteOffset, err := w.seg.Write(newIndex, codec.Type(), crc, payload)
	if err != nil {
		w.mu.Unlock()
		return 0, fmt.Errorf("wal: segment write: %w", err)
	}
	if _, err := w.meta.Append(w.currSegmentID, uint32(byteOffset)); err != nil {
		w.mu.Unlock()
		return 0, fmt.Errorf("wal: meta append: %w", err)
	}
	w.mu.Unlock()

	if err := w.awaitDurable(newIndex); err != nil {
		return 0, err
	}
	w.cfg.Metrics.WriteCompleted()
	return newIndex, nil
}

// roll closes the current segment writer (if any) and opens the next one.
// Called with mu held.
func (w *WAL) roll() error {
	if w.seg != nil {
		if err := w.seg.Close(); err != nil {
			return fmt.Errorf("wal: close segment %d during roll: %w", w.currSegmentID, err)
		}
		w.currSegmentID++
	}
	sw, err := segment.OpenWriter(w.segmentPath(w.currSegmentID))
	if err != nil {
		return err
	}
	w.seg = sw
	w.cfg.Metrics.SegmentRolled()
	return nil
}

// Close marks the WAL closed, syncs and closes the current segment writer,
// and closes the meta manager. Idempotent.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.seg != nil {
		if err := w.seg.Close(); err != nil {
			return fmt.Errorf("wal: close segment: %w", err)
		}
	}
	if err := w.meta.Close(); err != nil {
		return fmt.Errorf("wal: close meta index: %w", err)
	}
	return nil
}
