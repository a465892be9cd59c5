// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/matt-FFFFFF/puff/internal/notify"
	"github.com/matt-FFFFFF/puff/internal/photo"
	"github.com/matt-FFFFFF/puff/internal/serialqueue"
	"github.com/matt-FFFFFF/puff/internal/store"
)

// ErrTimeout is reported by Download when the batch did not settle in time.
var ErrTimeout = errors.New("batch did not complete before the timeout")

// Completion is called exactly once per batch, on the coordinator's queue,
// with the last error observed by any job or nil.
type Completion func(ctx context.Context, err error)

// Coordinator downloads batches of photos into a store.
type Coordinator struct {
	store       *store.Store[photo.Photo]
	fetcher     photo.Fetcher
	queue       *serialqueue.Queue
	announcer   notify.Announcer
	reporter    Reporter
	policy      CancelPolicy
	cancelFrom  int
	parallelism int
	timeout     time.Duration

	mu   sync.Mutex
	live map[uuid.UUID]*Batch
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy sets the cancellation policy and the first job index it is offered.
func WithPolicy(policy CancelPolicy, from int) Option {
	return func(c *Coordinator) {
		if policy != nil {
			c.policy = policy
		}

		c.cancelFrom = max(from, 0)
	}
}

// WithParallelism bounds the number of fetches running at once.
// Values below one mean runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(c *Coordinator) {
		c.parallelism = n
	}
}

// WithTimeout bounds how long Download waits. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// WithAnnouncer sets where notify.TopicContentUpdated is announced when a job finishes.
func WithAnnouncer(a notify.Announcer) Option {
	return func(c *Coordinator) {
		if a != nil {
			c.announcer = a
		}
	}
}

// WithReporter sets a reporter for job lifecycle events.
func WithReporter(r Reporter) Option {
	return func(c *Coordinator) {
		c.reporter = r
	}
}

// New creates a coordinator that fetches with fetcher, appends successful
// results to st and delivers callbacks and events on queue.
// By default no job is cancelled.
func New(st *store.Store[photo.Photo], fetcher photo.Fetcher, queue *serialqueue.Queue, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      st,
		fetcher:    fetcher,
		queue:      queue,
		announcer:  notify.Discard,
		policy:     NoCancel(),
		cancelFrom: DefaultCancelFrom,
		live:       make(map[uuid.UUID]*Batch),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.parallelism < 1 {
		c.parallelism = runtime.NumCPU()
	}

	return c
}

// Start runs a batch over addresses and returns immediately.
//
// Every address becomes a job. All jobs are entered into the batch's join group
// up front, then queued for dispatch in creation order. The cancellation policy
// is then offered the jobs from the configured index onward; a job that is
// still pending when offered is cancelled and left on its behalf. Because
// dispatch runs concurrently with this step, which jobs are still pending is
// not deterministic.
//
// completion is called exactly once on the coordinator's queue once every job
// has finished or been cancelled.
func (c *Coordinator) Start(ctx context.Context, addresses []string, completion Completion) *Batch {
	b := c.dispatch(ctx, addresses)

	b.group.Notify(c.queue, func(qctx context.Context, err error) {
		b.finish(qctx, err)

		if completion != nil {
			completion(qctx, err)
		}
	})

	return b
}

// Download runs a batch over addresses and blocks until it has settled, ctx is
// done or the configured timeout elapses. In the last two cases the returned
// result carries ErrTimeout, jobs that are still running carry on and pending
// ones can still be cancelled with CancelPending.
//
// Download must not be called from a task on the coordinator's queue: results
// are reported through that queue, so it returns serialqueue.ErrCalledOnQueue
// when ctx identifies it.
func (c *Coordinator) Download(ctx context.Context, addresses []string) Result {
	if c.queue.OnQueue(ctx) {
		return Result{Err: serialqueue.ErrCalledOnQueue}
	}

	b := c.dispatch(ctx, addresses)

	wctx := ctx

	if c.timeout > 0 {
		var cancel context.CancelFunc

		wctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The group is only waited on here; finish is queued by hand.
	if !b.Wait(wctx) {
		res := b.Result()
		res.Err = errors.Join(
			fmt.Errorf("%w: %d of %d jobs outstanding", ErrTimeout, b.group.Outstanding(), len(addresses)),
			wctx.Err(),
		)

		ctxlog.Logger(ctx).Warn("batch timed out", "batchID", b.id.String(), "outstanding", b.group.Outstanding())

		// The batch stays live, and cancellable, until its last job leaves.
		go func() {
			b.Wait(context.WithoutCancel(ctx))
			c.queue.Async(func(qctx context.Context) {
				b.finish(qctx, res.Err)
			})
		}()

		return res
	}

	res := b.Result()

	c.queue.Async(func(qctx context.Context) {
		b.finish(qctx, res.Err)
	})

	return res
}

// CancelPending cancels every job that has not started yet, in every batch
// that has not settled, and returns how many were cancelled.
func (c *Coordinator) CancelPending() int {
	c.mu.Lock()
	batches := make([]*Batch, 0, len(c.live))

	for _, b := range c.live {
		batches = append(batches, b)
	}
	c.mu.Unlock()

	n := 0
	for _, b := range batches {
		n += b.CancelPending()
	}

	return n
}

// dispatch builds the jobs of a batch, queues them and applies the cancellation policy.
func (c *Coordinator) dispatch(ctx context.Context, addresses []string) *Batch {
	b := newBatch(ctx, c, len(addresses))

	logger := ctxlog.Logger(ctx).With("batchID", b.id.String())
	logger.Info("starting batch", "jobs", len(addresses), "parallelism", c.parallelism, "cancelFrom", c.cancelFrom)

	for i, address := range addresses {
		j := b.add(i, address)

		b.report(Event{JobID: j.ID(), Index: i, Address: address, Type: EventScheduled})

		c.queue.Async(func(context.Context) {
			b.launch(j)
		})
	}

	// The job list is complete from here on.
	c.mu.Lock()
	c.live[b.id] = b
	c.mu.Unlock()

	for i := c.cancelFrom; i < len(b.jobs); i++ {
		if !c.policy.ShouldCancel(i) {
			continue
		}

		if !b.Cancel(i) {
			logger.Debug("job already started, not cancelled", "index", i)
		}
	}

	return b
}
