// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package event

import (
	"context"
	"errors"
	"sync"
)

var _ Subscription[struct{}] = (*SubscriptionFunc[struct{}])(nil)

// Subscription defines how to consume events
type Subscription[T any] interface {
	// Accept returns fatal errors
	Accept(ctx context.Context, t T) error
	// Close returns fatal errors
	Close() error
}

type SubscriptionFunc[T any] struct {
	AcceptF func(ctx context.Context, t T) error
}

func (s SubscriptionFunc[T]) Accept(ctx context.Context, t T) error {
	return s.AcceptF(ctx, t)
}

func (SubscriptionFunc[_]) Close() error {
	return nil
}

func NotifyAll[T any](ctx context.Context, e T, subs ...Subscription[T]) error {
	var errs []error
	for _, sub := range subs {
		if err := sub.Accept(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher fans a named event out to a dynamic set of subscribers.
//
// Publishers never learn how many subscribers exist, and a Dispatcher
// with no subscribers silently drops events.
type Dispatcher[T any] struct {
	name string

	lock   sync.RWMutex
	nextID uint64
	subs   map[uint64]Subscription[T]
}

func NewDispatcher[T any](name string) *Dispatcher[T] {
	return &Dispatcher[T]{
		name: name,
		subs: make(map[uint64]Subscription[T]),
	}
}

func (d *Dispatcher[T]) Name() string {
	return d.name
}

// Subscribe registers [sub] and returns a function that removes it and
// closes it. The returned function is safe to call more than once.
func (d *Dispatcher[T]) Subscribe(sub Subscription[T]) func() error {
	d.lock.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = sub
	d.lock.Unlock()

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			d.lock.Lock()
			delete(d.subs, id)
			d.lock.Unlock()
			err = sub.Close()
		})
		return err
	}
}

// SubscribeFunc is a shorthand for subscribing a plain callback.
func (d *Dispatcher[T]) SubscribeFunc(f func(ctx context.Context, t T) error) func() error {
	return d.Subscribe(SubscriptionFunc[T]{AcceptF: f})
}

func (d *Dispatcher[T]) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return len(d.subs)
}

// Publish delivers [t] to every current subscriber and returns the joined
// subscriber errors.
func (d *Dispatcher[T]) Publish(ctx context.Context, t T) error {
	d.lock.RLock()
	subs := make([]Subscription[T], 0, len(d.subs))
	for _, sub := range d.subs {
		subs = append(subs, sub)
	}
	d.lock.RUnlock()

	return NotifyAll(ctx, t, subs...)
}

// Close removes and closes every subscriber.
func (d *Dispatcher[T]) Close() error {
	d.lock.Lock()
	subs := d.subs
	d.subs = make(map[uint64]Subscription[T])
	d.lock.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
