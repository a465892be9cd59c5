// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package serialqueue

import (
	"context"
	"errors"
	"sync"

	"github.com/matt-FFFFFF/puff/internal/ctxlog"
)

var (
	// ErrClosed is returned when work is submitted to a queue that has been closed.
	ErrClosed = errors.New("serial queue is closed")
	// ErrCalledOnQueue is returned when a blocking call is made from a task running on the queue itself.
	ErrCalledOnQueue = errors.New("blocking call made from the serial queue")
)

type queueKey struct{}

// Task is a unit of work run on the queue goroutine.
// The context passed to the task identifies the queue, see OnQueue.
type Task = func(ctx context.Context)

// Queue runs submitted tasks one at a time, in submission order, on a single goroutine.
// Submission never blocks: pending tasks are held in an unbounded FIFO.
type Queue struct {
	label   string
	ctx     context.Context
	mu      sync.Mutex
	pending []Task
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New creates a queue and starts its goroutine.
// The logger carried by ctx is used for the queue's own diagnostics.
// Cancelling ctx does not stop the queue, call Close for that.
func New(ctx context.Context, label string) *Queue {
	q := &Queue{
		label: label,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	q.ctx = context.WithValue(context.WithoutCancel(ctx), queueKey{}, q)

	go q.loop()

	return q
}

// Label returns the label given to the queue.
func (q *Queue) Label() string {
	return q.label
}

// Async appends task to the queue. It returns false if the queue is closed,
// in which case the task is dropped.
func (q *Queue) Async(task Task) bool {
	if task == nil {
		return true
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		ctxlog.Debug(q.ctx, "serialqueue", "detail", "task dropped, queue closed", "queue", q.label)

		return false
	}

	q.pending = append(q.pending, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return true
}

// Sync submits task and waits until it has run or ctx is done.
// Calling Sync from a task already running on this queue would deadlock,
// so it returns ErrCalledOnQueue instead when ctx identifies this queue.
func (q *Queue) Sync(ctx context.Context, task Task) error {
	if q.OnQueue(ctx) {
		return ErrCalledOnQueue
	}

	finished := make(chan struct{})

	ok := q.Async(func(qctx context.Context) {
		defer close(finished)

		if task != nil {
			task(qctx)
		}
	})
	if !ok {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnQueue reports whether ctx is the context of a task running on this queue.
func (q *Queue) OnQueue(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	owner, ok := ctx.Value(queueKey{}).(*Queue)

	return ok && owner == q
}

// Close stops accepting new tasks, runs the ones already pending and waits for the
// queue goroutine to exit. It must not be called from a task on the same queue.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()

		select {
		case q.wake <- struct{}{}:
		default:
		}

		<-q.done
	})
}

// Done returns a channel that is closed once the queue goroutine has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) loop() {
	defer close(q.done)

	for {
		task, ok := q.next()
		if !ok {
			return
		}

		task(q.ctx)
	}
}

// next blocks until a task is available. It returns false once the queue is closed and drained.
func (q *Queue) next() (Task, bool) {
	for {
		q.mu.Lock()

		if len(q.pending) > 0 {
			task := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()

			return task, true
		}

		if q.closed {
			q.mu.Unlock()
			return nil, false
		}

		q.mu.Unlock()
		<-q.wake
	}
}
