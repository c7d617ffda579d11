// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"errors"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

const pebbleMetricsInterval = 10 * time.Second

type PebbleConfig struct {
	Sync                  bool   `json:"sync"                  yaml:"sync"`
	CacheSize             int64  `json:"cacheSize"             yaml:"cacheSize"`
	MemTableSize          uint64 `json:"memTableSize"          yaml:"memTableSize"`
	MaxOpenFiles          int    `json:"maxOpenFiles"          yaml:"maxOpenFiles"`
	ConcurrentCompactions int    `json:"concurrentCompactions" yaml:"concurrentCompactions"`
}

func NewDefaultPebbleConfig() PebbleConfig {
	return PebbleConfig{
		Sync:                  true,
		CacheSize:             64 * units.MiB,
		MemTableSize:          16 * units.MiB,
		MaxOpenFiles:          1_024,
		ConcurrentCompactions: 1,
	}
}

type pebbleMetrics struct {
	stallLock  sync.Mutex
	stallStart time.Time
	writeStall metric.Averager
	getLatency metric.Averager

	l0Compactions     prometheus.Counter
	otherCompactions  prometheus.Counter
	activeCompactions prometheus.Gauge

	tombstoneCount    prometheus.Gauge
	obsoleteTableSize prometheus.Gauge
	obsoleteWALSize   prometheus.Gauge
}

func newPebbleMetrics(r prometheus.Registerer) (*pebbleMetrics, error) {
	writeStall, err := metric.NewAverager(
		"pebble_write_stall",
		"time spent waiting for disk write",
		r,
	)
	if err != nil {
		return nil, err
	}
	getLatency, err := metric.NewAverager(
		"pebble_read_latency",
		"time spent waiting for db get",
		r,
	)
	if err != nil {
		return nil, err
	}
	m := &pebbleMetrics{
		writeStall: writeStall,
		getLatency: getLatency,
		l0Compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pebble",
			Name:      "l0_compactions",
			Help:      "number of l0 compactions",
		}),
		otherCompactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pebble",
			Name:      "other_compactions",
			Help:      "number of l1+ compactions",
		}),
		activeCompactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "active_compactions",
			Help:      "number of active compactions",
		}),
		tombstoneCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "tombstone_count",
			Help:      "approximate count of internal tombstones",
		}),
		obsoleteTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "obsolete_table_size",
			Help:      "number of bytes present in tables no longer referenced by the db",
		}),
		obsoleteWALSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "obsolete_wal_size",
			Help:      "number of bytes present in WAL no longer needed by the db",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.l0Compactions),
		r.Register(m.otherCompactions),
		r.Register(m.activeCompactions),
		r.Register(m.tombstoneCount),
		r.Register(m.obsoleteTableSize),
		r.Register(m.obsoleteWALSize),
	)
	return m, errs.Err
}

// pebbleDB adapts a pebble database to [KeyValue].
type pebbleDB struct {
	db        *pebble.DB
	cache     *pebble.Cache
	writeOpts *pebble.WriteOptions

	metrics *pebbleMetrics
	closing chan struct{}
	done    sync.WaitGroup
}

// NewPebbleStore opens (or creates) a pebble database at [dir] and
// reports its metrics to [registerer].
func NewPebbleStore(dir string, cfg PebbleConfig, registerer prometheus.Registerer) (*Store, error) {
	m, err := newPebbleMetrics(registerer)
	if err != nil {
		return nil, err
	}
	p := &pebbleDB{
		cache:     pebble.NewCache(cfg.CacheSize),
		writeOpts: &pebble.WriteOptions{Sync: cfg.Sync},
		metrics:   m,
		closing:   make(chan struct{}),
	}
	opts := &pebble.Options{
		Cache:        p.cache,
		MemTableSize: cfg.MemTableSize,
		MaxOpenFiles: cfg.MaxOpenFiles,
		MaxConcurrentCompactions: func() int {
			return cfg.ConcurrentCompactions
		},
		EventListener: &pebble.EventListener{
			CompactionBegin: p.onCompactionBegin,
			CompactionEnd:   p.onCompactionEnd,
			WriteStallBegin: p.onWriteStallBegin,
			WriteStallEnd:   p.onWriteStallEnd,
		},
	}
	p.db, err = pebble.Open(dir, opts)
	if err != nil {
		p.cache.Unref()
		return nil, err
	}
	p.done.Add(1)
	go p.collectMetrics()
	return NewStore(p), nil
}

func (p *pebbleDB) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (p *pebbleDB) Get(key []byte) ([]byte, error) {
	start := time.Now()
	v, closer, err := p.db.Get(key)
	p.metrics.getLatency.Observe(float64(time.Since(start)))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, closer.Close()
}

func (p *pebbleDB) Put(key []byte, value []byte) error {
	return p.db.Set(key, value, p.writeOpts)
}

func (p *pebbleDB) Close() error {
	close(p.closing)
	p.done.Wait()
	err := p.db.Close()
	p.cache.Unref()
	return err
}

func (p *pebbleDB) onCompactionBegin(info pebble.CompactionInfo) {
	p.metrics.activeCompactions.Inc()
	if len(info.Input) > 0 && info.Input[0].Level == 0 {
		p.metrics.l0Compactions.Inc()
	} else {
		p.metrics.otherCompactions.Inc()
	}
}

func (p *pebbleDB) onCompactionEnd(pebble.CompactionInfo) {
	p.metrics.activeCompactions.Dec()
}

func (p *pebbleDB) onWriteStallBegin(pebble.WriteStallBeginInfo) {
	p.metrics.stallLock.Lock()
	p.metrics.stallStart = time.Now()
	p.metrics.stallLock.Unlock()
}

func (p *pebbleDB) onWriteStallEnd() {
	p.metrics.stallLock.Lock()
	start := p.metrics.stallStart
	p.metrics.stallLock.Unlock()
	p.metrics.writeStall.Observe(float64(time.Since(start)))
}

func (p *pebbleDB) collectMetrics() {
	defer p.done.Done()

	t := time.NewTicker(pebbleMetricsInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			metrics := p.db.Metrics()
			p.metrics.tombstoneCount.Set(float64(metrics.Keys.TombstoneCount))
			p.metrics.obsoleteTableSize.Set(float64(metrics.Table.ObsoleteSize))
			p.metrics.obsoleteWALSize.Set(float64(metrics.WAL.ObsoletePhysicalSize))
		case <-p.closing:
			return
		}
	}
}
