// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/puff/internal/job"
	"github.com/matt-FFFFFF/puff/internal/notify"
	"github.com/matt-FFFFFF/puff/internal/photo"
	"github.com/matt-FFFFFF/puff/internal/serialqueue"
	"github.com/matt-FFFFFF/puff/internal/store"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errBoom = errors.New("boom")

func addresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://example.com/%d.png", i)
	}

	return out
}

func okFetcher() photo.FetcherFunc {
	return func(_ context.Context, address string) (photo.Photo, error) {
		return photo.Photo{ID: uuid.New(), Address: address}, nil
	}
}

// blockQueue occupies the queue until the returned channel is closed, so that
// no job is dispatched in the meantime.
func blockQueue(q *serialqueue.Queue) chan struct{} {
	release := make(chan struct{})
	q.Async(func(context.Context) { <-release })

	return release
}

// startAndWait starts a batch and waits for its completion callback.
func startAndWait(t *testing.T, c *Coordinator, addrs []string, before func(*Batch)) (*Batch, error) {
	t.Helper()

	done := make(chan error, 2)
	b := c.Start(context.Background(), addrs, func(ctx context.Context, err error) {
		assert.True(t, c.queue.OnQueue(ctx), "completion should run on the queue")
		done <- err
	})

	if before != nil {
		before(b)
	}

	select {
	case err := <-done:
		select {
		case <-done:
			t.Fatal("completion fired more than once")
		case <-time.After(20 * time.Millisecond):
		}

		return b, err
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}

	return b, nil
}

func TestCoordinator_AllJobsSucceed(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q)

	b, err := startAndWait(t, c, addresses(9), nil)
	require.NoError(t, err)

	assert.Equal(t, 9, st.Len())

	res := b.Result()
	assert.Equal(t, 9, res.Scheduled)
	assert.Equal(t, 9, res.Completed)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Cancelled)
	assert.True(t, res.Settled)
	assert.Len(t, res.Photos, 9)
	assert.NoError(t, res.AllErrors)

	for _, s := range b.States() {
		assert.Equal(t, job.StateCompleted, s)
	}
}

func TestCoordinator_FailedFetchIsReported(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	addrs := addresses(9)
	bad := addrs[4]

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(ctx context.Context, address string) (photo.Photo, error) {
		if address == bad {
			return photo.Photo{}, errBoom
		}

		return okFetcher()(ctx, address)
	}), q)

	b, err := startAndWait(t, c, addrs, nil)
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, 8, st.Len())

	for _, p := range st.Snapshot() {
		assert.NotEqual(t, bad, p.Address)
	}

	res := b.Result()
	assert.Equal(t, 8, res.Completed)
	assert.Equal(t, 1, res.Failed)
	assert.ErrorIs(t, res.Err, errBoom)
	assert.True(t, res.HasError())
}

func TestCoordinator_LastErrorWinsAndAllAreKept(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	errOne := errors.New("one")
	errTwo := errors.New("two")

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(_ context.Context, address string) (photo.Photo, error) {
		switch address {
		case "one":
			return photo.Photo{}, errOne
		case "two":
			return photo.Photo{}, errTwo
		default:
			return photo.Photo{ID: uuid.New(), Address: address}, nil
		}
	}), q)

	b, err := startAndWait(t, c, []string{"one", "ok", "two"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errOne) || errors.Is(err, errTwo), "callback error should be one of the job errors")

	res := b.Result()
	assert.ErrorIs(t, res.AllErrors, errOne)
	assert.ErrorIs(t, res.AllErrors, errTwo)
	assert.Equal(t, 1, st.Len())
}

func TestCoordinator_CancelAllWhileQueueBlocked(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	release := blockQueue(q)

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q, WithPolicy(CancelAll(), DefaultCancelFrom))

	b, err := startAndWait(t, c, addresses(9), func(*Batch) { close(release) })
	require.NoError(t, err)

	assert.Equal(t, 3, st.Len())

	res := b.Result()
	assert.Equal(t, 3, res.Completed)
	assert.Equal(t, 6, res.Cancelled)

	states := b.States()
	for i, s := range states {
		if i < DefaultCancelFrom {
			assert.Equal(t, job.StateCompleted, s, "job %d", i)
			continue
		}

		assert.Equal(t, job.StateCancelled, s, "job %d", i)
	}
}

func TestCoordinator_RandomPolicyIsStubbable(t *testing.T) {
	defer goleak.VerifyNone(t)

	flip := false
	stubs := gostub.Stub(&RandomBool, func() bool {
		flip = !flip
		return flip
	})
	defer stubs.Reset()

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	release := blockQueue(q)

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q, WithPolicy(RandomCancel(), DefaultCancelFrom))

	b, err := startAndWait(t, c, addresses(9), func(*Batch) { close(release) })
	require.NoError(t, err)

	// The coin alternates starting with true: 3, 5 and 7 are cancelled.
	states := b.States()
	for _, i := range []int{3, 5, 7} {
		assert.Equal(t, job.StateCancelled, states[i], "job %d", i)
	}

	assert.Equal(t, 6, st.Len())
	assert.Equal(t, 3, b.Result().Cancelled)
}

func TestCoordinator_RandomCancelAccounting(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	for range 25 {
		st := store.New[photo.Photo](nil)
		c := New(st, okFetcher(), q, WithPolicy(RandomCancel(), DefaultCancelFrom), WithParallelism(4))

		b, err := startAndWait(t, c, addresses(9), nil)
		require.NoError(t, err)

		res := b.Result()
		assert.Equal(t, 9, res.Completed+res.Cancelled, "every job is either completed or cancelled")
		assert.GreaterOrEqual(t, res.Completed, DefaultCancelFrom)
		assert.Equal(t, res.Completed, st.Len())
		assert.Zero(t, b.Outstanding())
	}
}

func TestBatch_CancelTwiceLeavesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	release := blockQueue(q)

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q)

	b, err := startAndWait(t, c, addresses(9), func(b *Batch) {
		assert.True(t, b.Cancel(5))
		assert.False(t, b.Cancel(5), "second cancel must not succeed")
		assert.False(t, b.Cancel(-1))
		assert.False(t, b.Cancel(9))
		assert.Equal(t, 8, b.Outstanding())
		close(release)
	})
	require.NoError(t, err)

	res := b.Result()
	assert.Equal(t, 8, res.Completed)
	assert.Equal(t, 1, res.Cancelled)
	assert.Equal(t, 8, st.Len())
}

func TestBatch_CancelRunningJobFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(_ context.Context, address string) (photo.Photo, error) {
		close(started)
		<-release

		return photo.Photo{ID: uuid.New(), Address: address}, nil
	}), q)

	b, err := startAndWait(t, c, addresses(1), func(b *Batch) {
		<-started
		assert.Equal(t, job.StateRunning, b.States()[0])
		assert.False(t, b.Cancel(0), "a running job cannot be cancelled")
		assert.Equal(t, 1, b.Outstanding())
		close(release)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, st.Len())
	assert.Zero(t, b.Result().Cancelled)
}

func TestCoordinator_PanickingFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(ctx context.Context, address string) (photo.Photo, error) {
		if address == "https://example.com/1.png" {
			panic("kaboom")
		}

		return okFetcher()(ctx, address)
	}), q)

	b, err := startAndWait(t, c, addresses(3), nil)

	var pe *job.ErrWorkPanic
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "kaboom")

	assert.Equal(t, 2, st.Len())
	assert.Equal(t, 1, b.Result().Failed)
}

func TestCoordinator_EmptyBatchCompletesImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q, WithPolicy(CancelAll(), 0))

	b, err := startAndWait(t, c, nil, nil)
	require.NoError(t, err)

	assert.Zero(t, b.Len())
	assert.True(t, b.Result().Settled)
	assert.Zero(t, st.Len())
}

func TestCoordinator_ParallelismIsBounded(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	var running, maxSeen atomic.Int32

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(ctx context.Context, address string) (photo.Photo, error) {
		n := running.Add(1)
		defer running.Add(-1)

		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}

		time.Sleep(5 * time.Millisecond)

		return okFetcher()(ctx, address)
	}), q, WithParallelism(2))

	_, err := startAndWait(t, c, addresses(12), nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
	assert.Equal(t, 12, st.Len())
}

func TestCoordinator_Download(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q, WithTimeout(5*time.Second))

	res := c.Download(context.Background(), addresses(9))
	require.NoError(t, res.Err)

	assert.True(t, res.Settled)
	assert.Equal(t, 9, res.Completed)
	assert.Len(t, res.Photos, 9)
	assert.Equal(t, 9, st.Len())
}

func TestCoordinator_DownloadTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	release := make(chan struct{})

	var finished sync.WaitGroup

	finished.Add(2)

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(_ context.Context, address string) (photo.Photo, error) {
		defer finished.Done()
		<-release

		return photo.Photo{ID: uuid.New(), Address: address}, nil
	}), q, WithTimeout(20*time.Millisecond))

	res := c.Download(context.Background(), addresses(2))
	close(release)

	require.ErrorIs(t, res.Err, ErrTimeout)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.False(t, res.Settled)
	assert.Zero(t, res.Completed)

	finished.Wait()
}

func TestCoordinator_DownloadOnQueueIsRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q)

	var res Result

	require.NoError(t, q.Sync(context.Background(), func(ctx context.Context) {
		res = c.Download(ctx, addresses(3))
	}))

	require.ErrorIs(t, res.Err, serialqueue.ErrCalledOnQueue)
	assert.Zero(t, res.Scheduled)
	assert.Zero(t, st.Len())
}

func TestCoordinator_Announcements(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	center := notify.NewCenter(q)

	var added, updated int

	center.Subscribe(notify.TopicContentAdded, notify.ListenerFunc(func(context.Context, notify.Topic) { added++ }))
	center.Subscribe(notify.TopicContentUpdated, notify.ListenerFunc(func(context.Context, notify.Topic) { updated++ }))

	addrs := addresses(9)
	st := store.New[photo.Photo](center)
	c := New(st, photo.FetcherFunc(func(ctx context.Context, address string) (photo.Photo, error) {
		if address == addrs[0] {
			return photo.Photo{}, errBoom
		}

		return okFetcher()(ctx, address)
	}), q, WithAnnouncer(center))

	counts := make(chan [2]int, 1)

	c.Start(context.Background(), addrs, func(context.Context, error) {
		// Announcements are queued before the last leave, so they are delivered
		// before the completion callback.
		counts <- [2]int{added, updated}
	})

	select {
	case got := <-counts:
		assert.Equal(t, 8, got[0], "content added once per stored photo")
		assert.Equal(t, 9, got[1], "content updated once per finished job")
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}
}

func TestCoordinator_EventsAreReportedInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	release := blockQueue(q)

	var events []Event

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q,
		WithPolicy(CancelIndices(4), DefaultCancelFrom),
		WithReporter(ReporterFunc(func(ev Event) { events = append(events, ev) })),
	)

	got := make(chan []Event, 1)

	b := c.Start(context.Background(), addresses(6), func(context.Context, error) {
		got <- append([]Event(nil), events...)
	})
	close(release)

	var evs []Event

	select {
	case evs = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}

	require.NotEmpty(t, evs)

	last := evs[len(evs)-1]
	assert.Equal(t, EventBatchCompleted, last.Type)
	assert.Equal(t, b.ID(), last.BatchID)
	assert.Equal(t, -1, last.Index)

	perJob := map[int][]EventType{}

	for _, ev := range evs[:len(evs)-1] {
		assert.Equal(t, b.ID(), ev.BatchID)
		assert.False(t, ev.Timestamp.IsZero())
		perJob[ev.Index] = append(perJob[ev.Index], ev.Type)
	}

	for i := range 6 {
		if i == 4 {
			assert.Equal(t, []EventType{EventScheduled, EventCancelled}, perJob[i], "job %d", i)
			continue
		}

		assert.Equal(t, []EventType{EventScheduled, EventRunning, EventCompleted}, perJob[i], "job %d", i)
	}
}

func TestNew_Defaults(t *testing.T) {
	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	c := New(store.New[photo.Photo](nil), okFetcher(), q, WithParallelism(0), WithPolicy(nil, -1))

	assert.GreaterOrEqual(t, c.parallelism, 1)
	assert.NotNil(t, c.policy)
	assert.Zero(t, c.cancelFrom)
	assert.Equal(t, notify.Discard, c.announcer)
}

func TestCoordinator_CancelPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	release := blockQueue(q)

	st := store.New[photo.Photo](nil)
	c := New(st, okFetcher(), q)

	b, err := startAndWait(t, c, addresses(5), func(b *Batch) {
		assert.Equal(t, 5, c.CancelPending())
		assert.Zero(t, c.CancelPending(), "nothing is left to cancel")
		assert.Zero(t, b.Outstanding())
		close(release)
	})
	require.NoError(t, err)

	assert.Equal(t, 5, b.Result().Cancelled)
	assert.Zero(t, st.Len())

	// Settled batches are forgotten once their completion has run.
	require.NoError(t, q.Sync(context.Background(), func(context.Context) {}))

	c.mu.Lock()
	assert.Empty(t, c.live)
	c.mu.Unlock()
}

func TestCoordinator_QueueRunsWhileWorkersAreBusy(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(ctx context.Context, address string) (photo.Photo, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release

		return okFetcher()(ctx, address)
	}), q, WithParallelism(1))

	done := make(chan error, 1)
	b := c.Start(context.Background(), addresses(3), func(_ context.Context, err error) { done <- err })

	<-entered

	// Every job has been launched; the queue must still be free.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, q.Sync(ctx, func(context.Context) {}), "queue blocked while a fetch was running")

	assert.Equal(t, []job.State{job.StateRunning, job.StatePending, job.StatePending}, b.States())
	assert.True(t, b.Cancel(2), "a job waiting for a worker is still pending")

	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}

	res := b.Result()
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, 1, res.Cancelled)
	assert.Equal(t, []job.State{job.StateCompleted, job.StateCompleted, job.StateCancelled}, b.States())
}

func TestCoordinator_DownloadTimeoutKeepsBatchCancellable(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	defer q.Close()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	var fetched atomic.Int32

	st := store.New[photo.Photo](nil)
	c := New(st, photo.FetcherFunc(func(ctx context.Context, address string) (photo.Photo, error) {
		fetched.Add(1)
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release

		return okFetcher()(ctx, address)
	}), q, WithParallelism(1), WithTimeout(20*time.Millisecond))

	res := c.Download(context.Background(), addresses(3))
	require.ErrorIs(t, res.Err, ErrTimeout)

	<-entered

	assert.Equal(t, 2, c.CancelPending(), "pending jobs of a timed out batch can still be cancelled")

	close(release)

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()

		return len(c.live) == 0
	}, 5*time.Second, 5*time.Millisecond, "batch is forgotten once its last job has left")

	assert.Equal(t, int32(1), fetched.Load())
	assert.Equal(t, 1, st.Len())
}
