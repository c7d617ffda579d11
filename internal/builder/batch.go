// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"context"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/timer"
	"go.uber.org/zap"
)

const (
	DefaultQuietWindow = 100 * time.Millisecond
	DefaultMaxWait     = time.Second
)

var _ Builder = (*Batch)(nil)

// Batch coalesces bursts of submitted work into a single build.
//
// A build fires once no work has been queued for [quietWindow], or
// [maxWait] after the first work of the burst was queued, whichever
// comes first.
type Batch struct {
	build         BuildFunc
	logger        logging.Logger
	quietWindow   time.Duration
	maxWait       time.Duration
	cancelCtxFunc context.CancelFunc

	timer *timer.Timer

	lock     sync.Mutex
	waiting  bool
	deadline time.Time
}

func NewBatch(build BuildFunc, logger logging.Logger, quietWindow, maxWait time.Duration) *Batch {
	cancelCtx, cancelCtxFunc := context.WithCancel(context.Background())
	b := &Batch{
		build:         build,
		logger:        logger,
		quietWindow:   quietWindow,
		maxWait:       max(maxWait, quietWindow),
		cancelCtxFunc: cancelCtxFunc,
	}
	b.timer = timer.NewTimer(func() {
		b.handleTimerNotify(cancelCtx)
	})
	return b
}

func (b *Batch) Start() {
	go b.timer.Dispatch() // this blocks
}

func (b *Batch) handleTimerNotify(ctx context.Context) {
	b.lock.Lock()
	b.waiting = false
	b.lock.Unlock()

	if err := b.build(ctx); err != nil {
		b.logger.Warn("unable to build", zap.Error(err))
		return
	}
	b.logger.Debug("trigger to notify")
}

// nextWait returns how long to wait before building if work is queued
// at [now].
func (b *Batch) nextWait(now time.Time) time.Duration {
	if !b.waiting {
		b.waiting = true
		b.deadline = now.Add(b.maxWait)
	}
	remaining := b.deadline.Sub(now)
	if remaining < b.quietWindow {
		return max(remaining, 0)
	}
	return b.quietWindow
}

func (b *Batch) Queue(context.Context) {
	b.lock.Lock()
	defer b.lock.Unlock()

	wait := b.nextWait(time.Now())
	b.timer.SetTimeoutIn(wait)
	b.logger.Debug("waiting to notify to build", zap.Duration("t", wait))
}

// Cancel abandons the current burst without building.
func (b *Batch) Cancel() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.waiting {
		return
	}
	b.waiting = false
	b.timer.Cancel()
	b.logger.Debug("cancelled pending build")
}

func (b *Batch) Done() {
	b.cancelCtxFunc()
	b.timer.Stop()
}
