// Package cq implements a simple concurrent queue.
package cq

import (
	"errors"
	"sync"
)

// Flush calls every function in queue in order and returns the errors
// they returned joined together.
func Flush(queue []func() error) error {
	var errs []error
	for _, ev := range queue {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Queue collects values sent to it until they are retrieved as a batch.
type Queue[T any] struct {
	done  chan struct{}
	close sync.Once

	add chan T
	get chan []T
}

func New[T any]() *Queue[T] {
	q := Queue[T]{
		done: make(chan struct{}),
		add:  make(chan T),
		get:  make(chan []T),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Anything still in it is discarded.
func (q *Queue[T]) Stop() {
	q.close.Do(func() {
		close(q.done)
	})
}

// Done is closed when the queue is stopped.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

func (q *Queue[T]) Add() chan<- T {
	return q.add
}

// Push adds v to the queue. It reports false without adding v if the
// queue has been stopped.
func (q *Queue[T]) Push(v T) bool {
	select {
	case <-q.done:
		return false
	case q.add <- v:
		return true
	}
}

func (q *Queue[T]) Get() <-chan []T {
	return q.get
}

// TryGet returns everything in the queue without blocking.
func (q *Queue[T]) TryGet() []T {
	select {
	case s := <-q.get:
		return s
	default:
		return nil
	}
}

func (q *Queue[T]) run() {
	var s []T
	var get chan []T

	for {
		select {
		case <-q.done:
			return

		case v := <-q.add:
			s = append(s, v)
			get = q.get

		case get <- s:
			s = nil
			get = nil
		}
	}
}
