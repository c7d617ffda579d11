// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lifecycle

import (
	"context"
	"sync"
)

type Ready interface {
	Ready() bool
}

// ChanReady implements the Ready interface with a channel that
// can be marked ready by the caller.
//
// Any number of goroutines may block in [ChanReady.AwaitReady] until
// [ChanReady.MarkReady] is called.
type ChanReady struct {
	readyOnce sync.Once
	ready     chan struct{}
}

func NewChanReady() *ChanReady {
	return &ChanReady{ready: make(chan struct{})}
}

func (c *ChanReady) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// AwaitReady blocks until [c] is marked ready or [ctx] is done.
func (c *ChanReady) AwaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChanReady) MarkReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}
