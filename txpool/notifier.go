// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"sync"

	"github.com/ava-labs/hypersim/internal/list"
)

// notifier delivers events on its own goroutine, in the order they were
// pushed. Pushing never blocks, so a slow or re-entrant subscriber cannot
// stall the build loop.
type notifier struct {
	lock   sync.Mutex
	queue  list.List[func()]
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newNotifier() *notifier {
	n := &notifier{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go n.run()
	return n
}

// push returns false once [n] is closed, in which case [f] is dropped.
func (n *notifier) push(f func()) bool {
	n.lock.Lock()
	if n.closed {
		n.lock.Unlock()
		return false
	}
	n.queue.PushBack(f)
	n.lock.Unlock()

	n.signal()
	return true
}

func (n *notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) run() {
	defer close(n.done)

	for {
		n.lock.Lock()
		f, ok := n.queue.PopFront()
		closed := n.closed
		n.lock.Unlock()

		switch {
		case ok:
			f()
		case closed:
			return
		default:
			<-n.wake
		}
	}
}

// close stops accepting events and waits until everything already pushed
// has been delivered.
func (n *notifier) close(ctx context.Context) error {
	n.lock.Lock()
	n.closed = true
	n.lock.Unlock()
	n.signal()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
