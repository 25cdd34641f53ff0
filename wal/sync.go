package wal

import (
	"fmt"
	"time"
)

// awaitDurable blocks until an fsync covering logical index has completed,
// or returns the error that fsync produced.
//
// A waiter-list-plus-flag design can resolve a waiter with a sync round
// that started before that waiter's write landed, if the round observed
// a stale write position. This uses a monotonically increasing
// lastFsyncedIndex cursor instead: because a sync round always reads Head
// under the same mutex that Write uses to append, any round that starts
// after a given Write released the lock is guaranteed to cover it, so
// there is no such window.
func (w *WAL) awaitDurable(index uint32) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	for {
		if w.lastFsyncErr != nil {
			return w.lastFsyncErr
		}
		if w.lastFsyncedIndex > index {
			return nil
		}
		if !w.syncOngoing {
			w.syncOngoing = true
			go w.runSync()
		}
		w.syncCond.Wait()
	}
}

func (w *WAL) runSync() {
	if w.cfg.SyncDelay > 0 {
		time.Sleep(w.cfg.SyncDelay)
	}

	w.mu.Lock()
	var err error
	var head uint32
	if w.seg != nil {
		err = w.seg.Sync()
	}
	head = w.meta.Head()
	w.mu.Unlock()

	if err == nil {
		w.cfg.Metrics.SyncCompleted()
	} else {
		err = fmt.Errorf("wal: sync: %w", err)
	}

	w.syncMu.Lock()
	w.syncOngoing = false
	if err != nil {
		w.lastFsyncErr = err
	} else if head > w.lastFsyncedIndex {
		w.lastFsyncedIndex = head
	}
	w.syncCond.Broadcast()
	w.syncMu.Unlock()
}
