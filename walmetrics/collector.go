// Package walmetrics adapts github.com/prometheus/client_golang to
// wal.Metrics. Registering counters globally via promauto works for a
// single process-wide WAL but collides the moment two WAL instances
// share a process — exactly what an embeddable library must support.
// Collector instead takes a caller-supplied prometheus.Registerer, so
// each WAL instance gets its own metric family instances registered
// under whatever scope the host chooses.
package walmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"waldb/wal"
)

// Collector implements wal.Metrics against per-instance Prometheus
// collectors registered on reg.
type Collector struct {
	writes      prometheus.Counter
	syncs       prometheus.Counter
	rolls       prometheus.Counter
	compactions prometheus.Counter
	archives    prometheus.Counter
	recovered   prometheus.Counter
	dropped     prometheus.Counter
}

// New builds and registers a Collector's metrics on reg. namespace and
// subsystem scope the metric names (e.g. "myapp", "wal") so multiple WAL
// instances in one process can register distinct collectors by giving each
// a distinct subsystem or a wrapping prometheus.Registerer.
func New(reg prometheus.Registerer, namespace, subsystem string) (*Collector, error) {
	c := &Collector{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "writes_total",
			Help: "Total number of durable WAL writes.",
		}),
		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "syncs_total",
			Help: "Total number of segment fsync rounds.",
		}),
		rolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "segment_rolls_total",
			Help: "Total number of segment rollovers.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "compactions_total",
			Help: "Total number of successful compactions.",
		}),
		archives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "archives_total",
			Help: "Total number of successful archive operations.",
		}),
		recovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "recovered_entries_total",
			Help: "Total number of entries kept (committed) during recovery.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "dropped_entries_total",
			Help: "Total number of entries dropped (truncated) during recovery.",
		}),
	}
	for _, collector := range []prometheus.Collector{c.writes, c.syncs, c.rolls, c.compactions, c.archives, c.recovered, c.dropped} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) WriteCompleted()     { c.writes.Inc() }
func (c *Collector) SyncCompleted()      { c.syncs.Inc() }
func (c *Collector) SegmentRolled()      { c.rolls.Inc() }
func (c *Collector) CompactionCompleted() { c.compactions.Inc() }
func (c *Collector) ArchiveCompleted()    { c.archives.Inc() }

func (c *Collector) RecoveryCompleted(recovered, dropped int) {
	c.recovered.Add(float64(recovered))
	c.dropped.Add(float64(dropped))
}

var _ wal.Metrics = (*Collector)(nil)
