// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ava-labs/hypersim/blockchain"
	"github.com/ava-labs/hypersim/event"
	"github.com/ava-labs/hypersim/internal/builder"
	"github.com/ava-labs/hypersim/internal/list"

	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	ApplyExtrinsicErrorEvent = "TxPool::ApplyExtrinsicError"
	NewHeadEvent             = "TxPool::NewHead"
)

// ApplyError is published when a transaction fails to apply during block
// assembly. The transaction is dropped.
type ApplyError struct {
	Tx  []byte
	Err error
}

// TxPool accumulates submitted work and turns it into blocks, one build at
// a time, in the order builds were requested.
type TxPool struct {
	config    Config
	log       logging.Logger
	tracer    trace.Tracer
	metrics   *metrics
	chain     Chain
	inherents InherentProvider
	assemble  AssembleFunc
	trigger   builder.Builder

	applyErrors *event.Dispatcher[ApplyError]
	newHeads    *event.Dispatcher[*blockchain.Block]
	notifier    *notifier

	// buildCtx is handed to collaborators and cancelled on shutdown.
	buildCtx    context.Context
	cancelBuild context.CancelFunc
	loopDone    sync.WaitGroup

	// [lock] guards everything below. A drain of [pending] and the push of
	// the request holding it happen under a single acquisition, so the
	// order of requests matches the order work was drained in.
	lock     sync.Mutex
	pending  *pendingWork
	requests list.List[*request]
	started  bool
	building bool
	closed   bool
	nextID   uint64
}

func New(
	config Config,
	log logging.Logger,
	tracer trace.Tracer,
	registerer prometheus.Registerer,
	chain Chain,
	inherents InherentProvider,
	assemble AssembleFunc,
) (*TxPool, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	buildCtx, cancelBuild := context.WithCancel(context.Background())
	p := &TxPool{
		config:      config,
		log:         log,
		tracer:      tracer,
		metrics:     m,
		chain:       chain,
		inherents:   inherents,
		assemble:    assemble,
		applyErrors: event.NewDispatcher[ApplyError](ApplyExtrinsicErrorEvent),
		newHeads:    event.NewDispatcher[*blockchain.Block](NewHeadEvent),
		buildCtx:    buildCtx,
		cancelBuild: cancelBuild,
		pending:     newPendingWork(),
	}
	switch config.Mode {
	case Batch:
		p.trigger = builder.NewBatch(p.triggerBuild, log, config.BatchQuietWindow, config.BatchMaxWait)
	case Instant:
		p.trigger = builder.NewInstant(p.triggerBuild, log)
	case Manual:
		p.trigger = builder.NewManual(log)
	default:
		cancelBuild()
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, config.Mode)
	}
	p.notifier = newNotifier()
	return p, nil
}

func (p *TxPool) Mode() Mode {
	return p.config.Mode
}

// Start begins dispatching the trigger policy.
func (p *TxPool) Start() {
	p.lock.Lock()
	if p.started || p.closed {
		p.lock.Unlock()
		return
	}
	p.started = true
	p.lock.Unlock()

	p.trigger.Start()
	p.log.Info("started txpool", zap.Stringer("mode", p.config.Mode))
}

// ApplyErrors is the channel transactions that fail to apply are
// reported on. Subscribers are called off the build loop, one event at a
// time, in the order events happened.
func (p *TxPool) ApplyErrors() *event.Dispatcher[ApplyError] {
	return p.applyErrors
}

// NewHeads is notified with every block the pool sets as head.
func (p *TxPool) NewHeads() *event.Dispatcher[*blockchain.Block] {
	return p.newHeads
}

func (p *TxPool) SubmitTransaction(ctx context.Context, tx []byte) error {
	_, span := p.tracer.Start(ctx, "TxPool.SubmitTransaction")
	defer span.End()

	if err := p.mutate(func(pending *pendingWork) {
		pending.addTransaction(tx)
	}); err != nil {
		return err
	}
	p.metrics.txsSubmitted.Inc()
	p.trigger.Queue(ctx)
	return nil
}

func (p *TxPool) SubmitUpward(ctx context.Context, origin uint32, msgs [][]byte) error {
	_, span := p.tracer.Start(ctx, "TxPool.SubmitUpward")
	defer span.End()

	if err := p.mutate(func(pending *pendingWork) {
		pending.addUpward(origin, msgs)
	}); err != nil {
		return err
	}
	p.trigger.Queue(ctx)
	return nil
}

func (p *TxPool) SubmitDownward(ctx context.Context, msgs []blockchain.DownwardMessage) error {
	_, span := p.tracer.Start(ctx, "TxPool.SubmitDownward")
	defer span.End()

	if err := p.mutate(func(pending *pendingWork) {
		pending.addDownward(msgs)
	}); err != nil {
		return err
	}
	p.trigger.Queue(ctx)
	return nil
}

func (p *TxPool) SubmitHorizontal(ctx context.Context, origin uint32, msgs []blockchain.HorizontalMessage) error {
	_, span := p.tracer.Start(ctx, "TxPool.SubmitHorizontal")
	defer span.End()

	if err := p.mutate(func(pending *pendingWork) {
		pending.addHorizontal(origin, msgs)
	}); err != nil {
		return err
	}
	p.trigger.Queue(ctx)
	return nil
}

func (p *TxPool) mutate(f func(*pendingWork)) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		return ErrClosed
	}
	f(p.pending)
	p.metrics.pendingTxs.Set(float64(len(p.pending.transactions)))
	return nil
}

// PendingTransactions returns the transactions not yet assigned to a build
// request, in the order they will be built.
func (p *TxPool) PendingTransactions() [][]byte {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.pending.pendingTransactions()
}

// BuildBlock builds a block from the pending work, replacing any part
// provided in [overrides], and waits until that block is the head.
//
// If this takes all of the pending work, a build the trigger policy was
// waiting to fire is dropped.
func (p *TxPool) BuildBlock(ctx context.Context, overrides *Overrides) error {
	ctx, span := p.tracer.Start(ctx, "TxPool.BuildBlock")
	defer span.End()

	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return ErrClosed
	}
	req := p.enqueueLocked(p.pending.resolve(overrides))
	if p.pending.empty() {
		p.trigger.Cancel()
	}
	p.lock.Unlock()

	p.maybeRun()
	return req.completion.Wait(ctx)
}

// BuildBlockWithParams builds a block from exactly [params] and waits
// until that block is the head. The pending work is left untouched.
func (p *TxPool) BuildBlockWithParams(ctx context.Context, params BuildParams) error {
	ctx, span := p.tracer.Start(ctx, "TxPool.BuildBlockWithParams")
	defer span.End()

	req, err := p.enqueue(params)
	if err != nil {
		return err
	}
	return req.completion.Wait(ctx)
}

// PendingCount returns the number of queued build requests. If there are
// any, it first waits for the most recently queued one to complete, so a
// return means everything requested so far has been built.
func (p *TxPool) PendingCount(ctx context.Context) (int, error) {
	p.lock.Lock()
	count := p.requests.Size()
	last := p.requests.Last()
	p.lock.Unlock()

	if last == nil {
		return 0, nil
	}
	return count, last.Value().completion.Wait(ctx)
}

// triggerBuild is called by the trigger policy. It drains the pending work
// into a new request without waiting for it to be built.
func (p *TxPool) triggerBuild(context.Context) error {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return ErrClosed
	}
	p.enqueueLocked(p.pending.drainAll())
	p.lock.Unlock()

	p.maybeRun()
	return nil
}

func (p *TxPool) enqueue(params BuildParams) (*request, error) {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return nil, ErrClosed
	}
	req := p.enqueueLocked(params)
	p.lock.Unlock()

	p.maybeRun()
	return req, nil
}

func (p *TxPool) enqueueLocked(params BuildParams) *request {
	req := &request{
		id:         p.nextID,
		params:     params,
		completion: newCompletion(),
		enqueued:   time.Now(),
	}
	p.nextID++
	p.requests.PushBack(req)

	p.metrics.requestsQueued.Inc()
	p.metrics.pendingRequests.Set(float64(p.requests.Size()))
	p.metrics.pendingTxs.Set(float64(len(p.pending.transactions)))
	p.log.Debug("queued build request",
		zap.Uint64("id", req.id),
		zap.Int("txs", len(params.Transactions)),
		zap.Int("queued", p.requests.Size()),
	)
	return req
}

// maybeRun starts the build loop unless it is already running or there is
// nothing to build. While a loop is running, new requests are picked up by
// that loop.
func (p *TxPool) maybeRun() {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.building || p.closed || p.requests.Size() == 0 {
		return
	}
	p.building = true
	p.loopDone.Add(1)
	go p.run()
}

func (p *TxPool) run() {
	defer p.loopDone.Done()

	for {
		p.lock.Lock()
		head := p.requests.First()
		p.lock.Unlock()
		if head == nil {
			p.log.Fatal("build loop started without a queued request")
			panic(errNoPendingWork)
		}

		p.process(head)

		p.lock.Lock()
		closed := p.closed
		if closed || p.requests.Size() == 0 {
			p.building = false
			p.lock.Unlock()
			if closed {
				p.dropQueued()
			}
			return
		}
		p.lock.Unlock()
	}
}

// dropQueued resolves every request still queued with [ErrClosed].
func (p *TxPool) dropQueued() int {
	p.lock.Lock()
	remaining := p.requests.Values()
	p.requests = list.List[*request]{}
	p.metrics.pendingRequests.Set(0)
	p.lock.Unlock()

	for _, req := range remaining {
		req.completion.resolve(ErrClosed)
	}
	return len(remaining)
}

// process builds the request at the head of the queue, removes it, and
// resolves its completion.
func (p *TxPool) process(elem *list.Element[*request]) {
	req := elem.Value()
	start := time.Now()
	p.metrics.queueDuration.Observe(start.Sub(req.enqueued).Seconds())

	ctx, span := p.tracer.Start(p.buildCtx, "TxPool.build",
		oteltrace.WithAttributes(
			attribute.Int64("request", int64(req.id)),
			attribute.Int("txs", len(req.params.Transactions)),
			attribute.Int("downwardMessages", len(req.params.DownwardMessages)),
		),
	)
	defer span.End()

	blk, err := p.build(ctx, req.params)

	p.lock.Lock()
	p.requests.Remove(elem)
	p.metrics.pendingRequests.Set(float64(p.requests.Size()))
	p.lock.Unlock()

	if err != nil {
		span.RecordError(err)
		p.metrics.buildFailures.Inc()
		p.log.Error("unable to build block",
			zap.Uint64("id", req.id),
			zap.Error(err),
		)
		req.completion.resolve(fmt.Errorf("%w: %w", ErrBuildFailed, err))
		return
	}

	p.metrics.blocksBuilt.Inc()
	p.metrics.buildDuration.Observe(time.Since(start).Seconds())
	p.log.Info("built block",
		zap.Uint64("id", req.id),
		zap.Stringer("hash", blk.Hash()),
		zap.Uint64("height", blk.Number),
		zap.Int("txs", len(blk.Extrinsics)),
		zap.Duration("t", time.Since(start)),
	)
	p.publish(func() {
		if err := p.newHeads.Publish(ctx, blk); err != nil {
			p.log.Warn("new head subscriber failed", zap.Error(err))
		}
	})
	req.completion.resolve(nil)
}

func (p *TxPool) build(ctx context.Context, params BuildParams) (*blockchain.Block, error) {
	if err := p.chain.AwaitReady(ctx); err != nil {
		return nil, fmt.Errorf("chain not ready: %w", err)
	}

	head := p.chain.Head()
	inherents, err := p.inherents.CreateInherents(ctx, head, params)
	if err != nil {
		return nil, fmt.Errorf("unable to create inherents: %w", err)
	}
	blk, notIncluded, err := p.assemble(
		ctx,
		head,
		inherents,
		params.Transactions,
		params.UpwardMessages,
		func(tx []byte, err error) {
			p.onApplyError(ctx, tx, err)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("unable to assemble block: %w", err)
	}

	if len(notIncluded) > 0 {
		p.lock.Lock()
		p.pending.requeue(notIncluded)
		p.metrics.pendingTxs.Set(float64(len(p.pending.transactions)))
		p.lock.Unlock()
		p.metrics.txsRequeued.Add(float64(len(notIncluded)))
	}

	if err := p.chain.SetHead(ctx, blk); err != nil {
		return nil, fmt.Errorf("unable to set head: %w", err)
	}
	return blk, nil
}

func (p *TxPool) onApplyError(ctx context.Context, tx []byte, err error) {
	p.metrics.applyErrors.Inc()
	p.log.Debug("transaction failed to apply",
		zap.Stringer("tx", blockchain.HashExtrinsic(tx)),
		zap.Error(err),
	)
	e := ApplyError{Tx: tx, Err: err}
	p.publish(func() {
		if err := p.applyErrors.Publish(ctx, e); err != nil {
			p.log.Warn("apply error subscriber failed", zap.Error(err))
		}
	})
}

func (p *TxPool) publish(f func()) {
	if !p.notifier.push(f) {
		p.log.Debug("dropped event after shutdown")
	}
}

// Shutdown stops the trigger policy and the build loop. Requests that
// were not built are resolved with [ErrClosed].
//
// If [ctx] is done first, the build loop resolves what is left when its
// current build returns, and Shutdown may be called again to wait for it.
func (p *TxPool) Shutdown(ctx context.Context) error {
	p.lock.Lock()
	first := !p.closed
	p.closed = true
	started := p.started
	p.lock.Unlock()

	if first {
		if started {
			p.trigger.Done()
		}
		p.cancelBuild()
	}

	loopDone := make(chan struct{})
	go func() {
		p.loopDone.Wait()
		close(loopDone)
	}()
	select {
	case <-loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	dropped := p.dropQueued()
	if err := p.notifier.close(ctx); err != nil {
		return err
	}
	p.log.Info("stopped txpool", zap.Int("dropped", dropped))
	return errors.Join(p.applyErrors.Close(), p.newHeads.Close())
}
