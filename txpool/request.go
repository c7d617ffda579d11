// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"sync"
	"time"
)

// completion is resolved exactly once with the outcome of a build.
// Waiting on a resolved completion returns the same outcome immediately.
type completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// resolve returns false if [c] was already resolved, in which case [err]
// is discarded.
func (c *completion) resolve(err error) bool {
	resolved := false
	c.once.Do(func() {
		c.err = err
		close(c.done)
		resolved = true
	})
	return resolved
}

// Wait blocks until [c] is resolved or [ctx] is done. Giving up on the
// wait does not cancel the build.
func (c *completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	default:
	}

	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// request is a build that has been asked for but not committed yet.
type request struct {
	id         uint64
	params     BuildParams
	completion *completion
	enqueued   time.Time
}
