// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package list

// List implements a double-linked list. It offers
// similar functionality as container/list but uses
// generics.
//
// This data structure backs the FIFO of build requests, which
// needs O(1) access to both ends and removal of an element
// that was observed earlier without holding a lock in between.
//
// The zero value is an empty list ready to use.
type List[T any] struct {
	root Element[T]
	size int
}

type Element[T any] struct {
	prev *Element[T]
	next *Element[T]
	list *List[T]

	value T
}

func (e *Element[T]) Next() *Element[T] {
	n := e.next
	if e.list == nil || n == &e.list.root {
		return nil
	}
	return n
}

func (e *Element[T]) Value() T {
	return e.value
}

func (l *List[T]) First() *Element[T] {
	if l.size == 0 {
		return nil
	}
	return l.root.next
}

func (l *List[T]) Last() *Element[T] {
	if l.size == 0 {
		return nil
	}
	return l.root.prev
}

func (l *List[T]) PushBack(v T) *Element[T] {
	if l.root.next == nil {
		l.init()
	}
	return l.insertValueAfter(v, l.root.prev)
}

// PopFront removes and returns the first value, if any.
func (l *List[T]) PopFront() (T, bool) {
	first := l.First()
	if first == nil {
		var empty T
		return empty, false
	}
	return l.Remove(first), true
}

func (l *List[T]) Remove(e *Element[T]) T {
	if e.list == l {
		l.remove(e)
	}
	return e.value
}

func (l *List[T]) Size() int {
	return l.size
}

// Values returns the values of [l] from front to back.
func (l *List[T]) Values() []T {
	values := make([]T, 0, l.size)
	for e := l.First(); e != nil; e = e.Next() {
		values = append(values, e.value)
	}
	return values
}

func (l *List[T]) init() {
	l.root = Element[T]{}
	l.root.next = &l.root
	l.root.prev = &l.root
}

func (l *List[T]) insertAfter(e *Element[T], at *Element[T]) *Element[T] {
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
	e.list = l
	l.size++
	return e
}

func (l *List[T]) insertValueAfter(v T, at *Element[T]) *Element[T] {
	e := Element[T]{value: v}
	return l.insertAfter(&e, at)
}

func (l *List[T]) remove(e *Element[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	e.list = nil
	l.size--
}
