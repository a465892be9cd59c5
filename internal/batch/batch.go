// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/matt-FFFFFF/puff/internal/job"
	"github.com/matt-FFFFFF/puff/internal/joingroup"
	"github.com/matt-FFFFFF/puff/internal/notify"
	"github.com/matt-FFFFFF/puff/internal/photo"
	"golang.org/x/sync/errgroup"
)

// Batch is one run of the coordinator over a list of addresses.
type Batch struct {
	id      uuid.UUID
	ctx     context.Context
	c       *Coordinator
	logger  *slog.Logger
	group   *joingroup.Group
	jobs    []*job.Job[photo.Photo]
	workers *errgroup.Group
	limit   int

	mu        sync.Mutex
	ready     []*job.Job[photo.Photo] // launched, waiting for a worker
	running   int                     // workers draining ready
	photos    []photo.Photo
	completed int
	failed    int
	cancelled int
}

func newBatch(ctx context.Context, c *Coordinator, size int) *Batch {
	b := &Batch{
		id:      uuid.New(),
		ctx:     ctx,
		c:       c,
		group:   joingroup.New(),
		jobs:    make([]*job.Job[photo.Photo], 0, size),
		workers: &errgroup.Group{},
		limit:   c.parallelism,
	}
	b.logger = ctxlog.Logger(ctx).With("batchID", b.id.String())

	return b
}

// ID returns the identity of the batch.
func (b *Batch) ID() uuid.UUID {
	return b.id
}

// Len returns the number of jobs in the batch.
func (b *Batch) Len() int {
	return len(b.jobs)
}

// States returns the current state of every job, in creation order.
func (b *Batch) States() []job.State {
	states := make([]job.State, len(b.jobs))
	for i, j := range b.jobs {
		states[i] = j.State()
	}

	return states
}

// Outstanding returns how many jobs have neither finished nor been cancelled.
func (b *Batch) Outstanding() int {
	return b.group.Outstanding()
}

// Wait blocks until every job has finished or been cancelled, or ctx is done.
// It returns true if the batch settled. It must not be called from the
// coordinator's queue.
func (b *Batch) Wait(ctx context.Context) bool {
	return b.group.Wait(ctx)
}

// Cancel cancels the job at index if it has not started yet, and leaves the
// join group on its behalf. It returns false if the job was already running,
// finished or cancelled, in which case nothing is left.
func (b *Batch) Cancel(index int) bool {
	if index < 0 || index >= len(b.jobs) {
		return false
	}

	j := b.jobs[index]
	if !j.Cancel() {
		return false
	}

	b.mu.Lock()
	b.cancelled++
	b.mu.Unlock()

	b.logger.Debug("job cancelled", "index", index, "jobID", j.ID().String())
	b.report(Event{JobID: j.ID(), Index: index, Address: j.Label(), Type: EventCancelled})

	// The cancelled job will never run, so it will never leave on its own.
	b.group.Leave()

	return true
}

// CancelPending cancels every job of the batch that has not started yet and
// returns how many were cancelled.
func (b *Batch) CancelPending() int {
	n := 0

	for i := range b.jobs {
		if b.Cancel(i) {
			n++
		}
	}

	return n
}

// Result returns a snapshot of the batch's outcome so far.
func (b *Batch) Result() Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Result{
		Photos:    slices.Clone(b.photos),
		Err:       b.group.Err(),
		AllErrors: b.group.Errors(),
		Scheduled: len(b.jobs),
		Completed: b.completed,
		Failed:    b.failed,
		Cancelled: b.cancelled,
		Settled:   b.group.Outstanding() == 0,
	}
}

// add creates the job for address and enters it into the join group.
func (b *Batch) add(index int, address string) *job.Job[photo.Photo] {
	var j *job.Job[photo.Photo]

	j = job.New(index, address, func(ctx context.Context) (photo.Photo, error) {
		b.report(Event{JobID: j.ID(), Index: index, Address: address, Type: EventRunning})
		return b.c.fetcher.Fetch(ctx, address)
	}, b.complete)

	b.group.Enter()
	b.jobs = append(b.jobs, j)

	return j
}

// launch hands a job to the worker pool. It runs on the coordinator's queue
// and never waits for a free worker: the job joins the ready list, still
// pending and cancellable, and a worker is started if fewer than limit run.
func (b *Batch) launch(j *job.Job[photo.Photo]) {
	if j.State() == job.StateCancelled {
		return
	}

	b.mu.Lock()
	b.ready = append(b.ready, j)

	if b.running >= b.limit {
		b.mu.Unlock()
		return
	}

	b.running++
	b.mu.Unlock()

	b.workers.Go(b.work)
}

// work runs ready jobs in launch order until none are left.
func (b *Batch) work() error {
	for {
		b.mu.Lock()
		if len(b.ready) == 0 {
			b.running--
			b.mu.Unlock()

			return nil
		}

		j := b.ready[0]
		b.ready[0] = nil
		b.ready = b.ready[1:]
		b.mu.Unlock()

		// A job cancelled while it was ready is skipped.
		j.Run(b.ctx)
	}
}

// complete is the sink of every job of the batch.
func (b *Batch) complete(out job.Outcome[photo.Photo]) {
	logger := b.logger.With("index", out.Index, "address", out.Label)

	if out.Err != nil {
		logger.Warn("job failed", "error", out.Err)

		b.group.Record(out.Err)

		b.mu.Lock()
		b.failed++
		b.mu.Unlock()

		b.report(Event{JobID: out.JobID, Index: out.Index, Address: out.Label, Type: EventFailed, Err: out.Err})
	} else {
		logger.Debug("job completed", "photoID", out.Value.ID.String())

		b.c.store.Append(out.Value)

		b.mu.Lock()
		b.photos = append(b.photos, out.Value)
		b.completed++
		b.mu.Unlock()

		b.report(Event{JobID: out.JobID, Index: out.Index, Address: out.Label, Type: EventCompleted, Photo: out.Value})
	}

	b.c.announcer.Announce(notify.TopicContentUpdated)
	b.group.Leave()
}

// finish forgets the batch and reports its end with err. It runs on the
// coordinator's queue.
func (b *Batch) finish(ctx context.Context, err error) {
	b.c.mu.Lock()
	delete(b.c.live, b.id)
	b.c.mu.Unlock()

	res := b.Result()

	ctxlog.Logger(ctx).Info("batch completed",
		"batchID", b.id.String(),
		"completed", res.Completed,
		"failed", res.Failed,
		"cancelled", res.Cancelled,
		"error", err)

	if b.c.reporter != nil {
		b.c.reporter.Report(Event{
			BatchID:   b.id,
			Index:     -1,
			Type:      EventBatchCompleted,
			Err:       err,
			Timestamp: time.Now(),
		})
	}
}

// report delivers ev to the reporter on the coordinator's queue.
func (b *Batch) report(ev Event) {
	if b.c.reporter == nil {
		return
	}

	ev.BatchID = b.id
	ev.Timestamp = time.Now()

	b.c.queue.Async(func(context.Context) {
		b.c.reporter.Report(ev)
	})
}
