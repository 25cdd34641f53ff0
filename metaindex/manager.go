// Package metaindex owns index.META: the fixed header plus dense array of
// (segmentID, byteOffset) entries mapping a logical WAL index to its
// on-disk location. Whole-file replacement (compact/archive) follows a
// write-fsync-rename pattern for crash safety.
package metaindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Position is the on-disk location of one logical index: which segment
// holds it and at what byte offset the frame begins.
type Position struct {
	SegmentID  uint32
	ByteOffset uint32
}

// Options configures a Manager's persistence mode, mirroring the
// `meta.*` constructor options in the coordinator's configuration table.
type Options struct {
	BufferingEnabled bool
	MaxBufferSize    int
	AutoSyncInterval time.Duration
}

// DefaultOptions matches the documented defaults: batched mode, a 1024
// entry buffer, and a 1 second auto-sync tick.
func DefaultOptions() Options {
	return Options{
		BufferingEnabled: true,
		MaxBufferSize:    1024,
		AutoSyncInterval: time.Second,
	}
}

// Manager owns index.META for the life of one opened WAL directory.
type Manager struct {
	mu   sync.Mutex
	dir  string
	path string
	f    *os.File
	opts Options

	header      header
	headerDirty bool

	pending          []Position
	pendingBaseIndex uint32

	cache *ristretto.Cache[uint32, Position]

	stopTicker chan struct{}
	tickerDone chan struct{}

	closed bool
}

// Open loads or creates dir/index.META. A stale dir/index.META.tmp left
// behind by a crashed compact/archive is removed first: it always
// represents an incomplete reorganization while the live file remains
// correct.
func Open(dir string, opts Options) (*Manager, error) {
	path := filepath.Join(dir, "index.META")
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); err == nil {
		if err := os.Remove(tmpPath); err != nil {
			return nil, fmt.Errorf("metaindex: remove stale tmp: %w", err)
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint32, Position]{
		NumCounters: 100_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("metaindex: new cache: %w", err)
	}

	m := &Manager{
		dir:   dir,
		path:  path,
		opts:  opts,
		cache: cache,
	}

	f, existed, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	m.f = f

	if existed {
		var buf [HeaderSize]byte
		if _, err := f.ReadAt(buf[:], 0); err != nil {
			return nil, fmt.Errorf("metaindex: read header: %w", err)
		}
		h, err := decodeHeader(buf[:])
		if err != nil {
			return nil, err
		}
		m.header = h
	} else {
		m.header = header{Base: 0, Head: 0, Commit: -1, CurrentSegment: 0}
		if err := m.writeHeaderDirect(); err != nil {
			return nil, err
		}
		if err := f.Sync(); err != nil {
			return nil, fmt.Errorf("metaindex: fsync new file: %w", err)
		}
	}

	if opts.BufferingEnabled && opts.AutoSyncInterval > 0 {
		m.stopTicker = make(chan struct{})
		m.tickerDone = make(chan struct{})
		go m.runTicker()
	}

	return m, nil
}

func openOrCreate(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("metaindex: open %s: %w", path, err)
	}
	f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("metaindex: create %s: %w", path, err)
	}
	return f, false, nil
}

func (m *Manager) runTicker() {
	defer close(m.tickerDone)
	t := time.NewTicker(m.opts.AutoSyncInterval)
	defer t.Stop()
	for {
		select {
		case <-m.stopTicker:
			return
		case <-t.C:
			m.mu.Lock()
			_ = m.flushLocked() // the error is dropped; unflushed state stays queued and is retried by the next flush
			m.mu.Unlock()
		}
	}
}

func (m *Manager) writeHeaderDirect() error {
	b := m.header.encode()
	if _, err := m.f.WriteAt(b[:], 0); err != nil {
		return fmt.Errorf("metaindex: write header: %w", err)
	}
	return nil
}

func (m *Manager) writeHeaderTailDirect() error {
	var tail [12]byte
	binary.BigEndian.PutUint32(tail[0:4], m.header.Head)
	binary.BigEndian.PutUint32(tail[4:8], uint32(int32(m.header.Commit)))
	binary.BigEndian.PutUint32(tail[8:12], m.header.CurrentSegment)
	if _, err := m.f.WriteAt(tail[:], 8); err != nil {
		return fmt.Errorf("metaindex: write header tail: %w", err)
	}
	return nil
}

// Append records that logical index Head now lives at (segmentID,
// byteOffset), returning the assigned index (Head prior to increment).
func (m *Manager) Append(segmentID, byteOffset uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if segmentID < m.header.CurrentSegment {
		return 0, fmt.Errorf("%w: got %d, current %d", ErrOutOfOrderSegment, segmentID, m.header.CurrentSegment)
	}

	assigned := m.header.Head
	pos := Position{SegmentID: segmentID, ByteOffset: byteOffset}

	if m.opts.BufferingEnabled {
		if len(m.pending) == 0 {
			m.pendingBaseIndex = assigned
		}
		m.pending = append(m.pending, pos)
	} else {
		offset := int64(HeaderSize) + int64(localIndex(m.header.Base, assigned))*EntrySize
		var buf [EntrySize]byte
		binary.BigEndian.PutUint32(buf[0:4], pos.SegmentID)
		binary.BigEndian.PutUint32(buf[4:8], pos.ByteOffset)
		if _, err := m.f.WriteAt(buf[:], offset); err != nil {
			return 0, fmt.Errorf("metaindex: write entry: %w", err)
		}
	}

	m.header.Head++
	if segmentID > m.header.CurrentSegment {
		m.header.CurrentSegment = segmentID
	}
	m.headerDirty = true

	if m.opts.BufferingEnabled {
		if len(m.pending) >= m.opts.MaxBufferSize {
			if err := m.flushLocked(); err != nil {
				return 0, err
			}
		}
	} else {
		if err := m.writeHeaderTailDirect(); err != nil {
			return 0, err
		}
		if err := m.f.Sync(); err != nil {
			return 0, fmt.Errorf("metaindex: fsync append: %w", err)
		}
		m.headerDirty = false
	}

	m.cache.Set(assigned, pos, 1)
	return assigned, nil
}

// Commit advances the commit index by one, to index. Calls with index <=
// the current commit index are a no-op (idempotent); any other index than
// the current commit index + 1 fails with ErrOutOfOrderCommit.
func (m *Manager) Commit(index uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if int64(index) <= m.header.Commit {
		return nil
	}
	if int64(index) != m.header.Commit+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrOutOfOrderCommit, m.header.Commit+1, index)
	}
	m.header.Commit = int64(index)
	m.headerDirty = true
	if !m.opts.BufferingEnabled {
		if err := m.writeHeaderTailDirect(); err != nil {
			return err
		}
		if err := m.f.Sync(); err != nil {
			return fmt.Errorf("metaindex: fsync commit: %w", err)
		}
		m.headerDirty = false
	}
	return nil
}

// CommitIndex returns the current commit index (-1 if none).
func (m *Manager) CommitIndex() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header.Commit
}

// Head returns one past the greatest assigned logical index.
func (m *Manager) Head() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header.Head
}

// Base returns the smallest logical index still tracked in the array.
func (m *Manager) Base() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header.Base
}

// CurrentSegment returns the greatest segment ID written to, lowered by
// Truncate to the segment holding the truncation point.
func (m *Manager) CurrentSegment() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header.CurrentSegment
}

// Position looks up the on-disk location of index, flushing pending writes
// first in batched mode so the read observes consistent state.
func (m *Manager) Position(index uint32) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Position{}, ErrClosed
	}
	if index < m.header.Base || index >= m.header.Head {
		return Position{}, fmt.Errorf("%w: index %d, range [%d, %d)", ErrOutOfBounds, index, m.header.Base, m.header.Head)
	}
	if m.opts.BufferingEnabled {
		if err := m.flushLocked(); err != nil {
			return Position{}, err
		}
	}
	if pos, ok := m.cache.Get(index); ok {
		return pos, nil
	}
	offset := int64(HeaderSize) + int64(localIndex(m.header.Base, index))*EntrySize
	var buf [EntrySize]byte
	if _, err := m.f.ReadAt(buf[:], offset); err != nil {
		return Position{}, fmt.Errorf("metaindex: read entry %d: %w", index, err)
	}
	pos := Position{
		SegmentID:  binary.BigEndian.Uint32(buf[0:4]),
		ByteOffset: binary.BigEndian.Uint32(buf[4:8]),
	}
	m.cache.Set(index, pos, 1)
	return pos, nil
}

// Truncate sets Head = from, discarding any not-yet-flushed pending
// entries at or past it, and sets CurrentSegment to the segment that held
// index from. The array tail past the new Head is left unused, not shrunk.
func (m *Manager) Truncate(from uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if from >= m.header.Head {
		return fmt.Errorf("%w: from %d, Head %d", ErrOutOfBounds, from, m.header.Head)
	}
	if int64(from) <= m.header.Commit {
		return fmt.Errorf("%w: from %d, Commit %d", ErrTruncateCommitted, from, m.header.Commit)
	}

	var fromSegment uint32
	if len(m.pending) > 0 && from >= m.pendingBaseIndex {
		fromSegment = m.pending[from-m.pendingBaseIndex].SegmentID
	} else {
		seg, err := m.segmentIDAtLocked(from)
		if err != nil {
			return fmt.Errorf("metaindex: read segment of %d: %w", from, err)
		}
		fromSegment = seg
	}

	if len(m.pending) > 0 {
		if from <= m.pendingBaseIndex {
			m.pending = nil
		} else {
			keep := from - m.pendingBaseIndex
			if int(keep) < len(m.pending) {
				m.pending = m.pending[:keep]
			}
		}
	}

	m.header.Head = from
	m.header.CurrentSegment = fromSegment
	m.headerDirty = false
	if err := m.writeHeaderTailDirect(); err != nil {
		return err
	}
	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("metaindex: fsync after truncate: %w", err)
	}
	m.cache.Clear()
	return nil
}

func (m *Manager) flushLocked() error {
	if !m.opts.BufferingEnabled {
		return nil
	}
	if len(m.pending) == 0 && !m.headerDirty {
		return nil
	}
	if len(m.pending) > 0 {
		buf := make([]byte, len(m.pending)*EntrySize)
		for i, e := range m.pending {
			binary.BigEndian.PutUint32(buf[i*EntrySize:], e.SegmentID)
			binary.BigEndian.PutUint32(buf[i*EntrySize+4:], e.ByteOffset)
		}
		startOffset := int64(HeaderSize) + int64(localIndex(m.header.Base, m.pendingBaseIndex))*EntrySize
		if _, err := m.f.WriteAt(buf, startOffset); err != nil {
			return fmt.Errorf("metaindex: flush entries: %w", err)
		}
		m.pending = m.pending[:0]
	}
	if err := m.writeHeaderTailDirect(); err != nil {
		return err
	}
	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("metaindex: fsync flush: %w", err)
	}
	m.headerDirty = false
	return nil
}

// Flush forces any batched, not-yet-persisted state to disk immediately.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

// Close stops the background flusher (if any), flushes, and closes the
// file. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	stopTicker, tickerDone := m.stopTicker, m.tickerDone
	m.mu.Unlock()

	if stopTicker != nil {
		close(stopTicker)
		<-tickerDone
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.flushLocked(); err != nil {
		_ = m.f.Close()
		return err
	}
	if err := m.f.Close(); err != nil {
		return fmt.Errorf("metaindex: close: %w", err)
	}
	m.cache.Close()
	return nil
}
