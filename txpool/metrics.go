// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "txpool"

type metrics struct {
	txsSubmitted    prometheus.Counter
	txsRequeued     prometheus.Counter
	applyErrors     prometheus.Counter
	requestsQueued  prometheus.Counter
	blocksBuilt     prometheus.Counter
	buildFailures   prometheus.Counter
	pendingRequests prometheus.Gauge
	pendingTxs      prometheus.Gauge
	buildDuration   prometheus.Histogram
	queueDuration   prometheus.Histogram
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		txsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_submitted",
			Help:      "number of transactions submitted",
		}),
		txsRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_requeued",
			Help:      "number of valid transactions returned to the pool because they did not fit in a block",
		}),
		applyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_errors",
			Help:      "number of transactions that failed to apply",
		}),
		requestsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_queued",
			Help:      "number of build requests queued",
		}),
		blocksBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_built",
			Help:      "number of blocks built and set as head",
		}),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_failures",
			Help:      "number of build requests that failed",
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "number of build requests waiting to be built",
		}),
		pendingTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_txs",
			Help:      "number of transactions not yet assigned to a build request",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "time spent building a single block",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		queueDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_duration_seconds",
			Help:      "time a build request waited before being built",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.txsSubmitted),
		r.Register(m.txsRequeued),
		r.Register(m.applyErrors),
		r.Register(m.requestsQueued),
		r.Register(m.blocksBuilt),
		r.Register(m.buildFailures),
		r.Register(m.pendingRequests),
		r.Register(m.pendingTxs),
		r.Register(m.buildDuration),
		r.Register(m.queueDuration),
	)
	return m, errs.Err
}
