package wal

import (
	"time"

	"waldb/metaindex"
)

// Config holds every constructor option. There is deliberately no
// env-var or CLI loading here — this is a linked-in library, not a
// standalone process — a host wires these fields directly or accepts
// DefaultConfig.
type Config struct {
	// MaxSegmentSize is the threshold at which a new segment file is
	// started on the next write. Default 10 MiB.
	MaxSegmentSize int64

	// MinEntriesForCompaction is the minimum Commit-Base required for
	// Compact/Archive to do work. Default 1000.
	MinEntriesForCompaction uint32

	// Meta configures the meta index manager's persistence mode. A nil
	// Meta selects DefaultOptions(); to request direct (unbuffered) mode
	// explicitly, set Meta to a non-nil *metaindex.Options with
	// BufferingEnabled: false — a value type here would make that
	// indistinguishable from "unset" since it's also the zero value.
	Meta *metaindex.Options

	// SyncDelay optionally defers a scheduled sync to let more writers
	// join the same fsync batch. Default 0 (sync as soon as scheduled).
	SyncDelay time.Duration

	// Logger receives structured diagnostic events. Default: no-op.
	Logger Logger

	// Metrics receives counters for writes, syncs, rolls, and
	// reorganizations. Default: no-op.
	Metrics Metrics
}

const defaultMaxSegmentSize = 10 * 1024 * 1024
const defaultMinEntriesForCompaction = 1000

// DefaultConfig returns the library's documented defaults.
func DefaultConfig() Config {
	d := metaindex.DefaultOptions()
	return Config{
		MaxSegmentSize:          defaultMaxSegmentSize,
		MinEntriesForCompaction: defaultMinEntriesForCompaction,
		Meta:                    &d,
		SyncDelay:               0,
		Logger:                  NoopLogger(),
		Metrics:                 NoopMetrics(),
	}
}

// withDefaults fills any zero-valued field of cfg with DefaultConfig's
// value, so callers may pass a partially-populated Config{}.
func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.MaxSegmentSize <= 0 {
		cfg.MaxSegmentSize = d.MaxSegmentSize
	}
	if cfg.MinEntriesForCompaction == 0 {
		cfg.MinEntriesForCompaction = d.MinEntriesForCompaction
	}
	if cfg.Meta == nil {
		cfg.Meta = d.Meta
	}
	if cfg.Logger == nil {
		cfg.Logger = d.Logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = d.Metrics
	}
	return cfg
}
