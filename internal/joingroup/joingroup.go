// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package joingroup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
)

// InvariantError describes a broken enter/leave accounting contract.
// It is only ever raised with panic.
type InvariantError struct {
	Op     string
	Detail string
}

// Error implements the error interface for InvariantError.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("join group invariant violated on %s: %s", e.Op, e.Detail)
}

// Executor runs a callback on some delivery context.
// *serialqueue.Queue satisfies this interface.
type Executor interface {
	Async(task func(ctx context.Context)) bool
}

// Callback is invoked once the outstanding count drops to zero, with the last
// recorded error or nil.
type Callback func(ctx context.Context, err error)

type registration struct {
	exec  Executor
	fn    Callback
	fired atomic.Bool
}

// Group is a counting rendezvous. Enter registers a unit of work, Leave reports
// it done. When the count returns to zero every callback registered with Notify
// is delivered exactly once and Wait returns.
//
// A Group also aggregates the errors recorded by its units of work: the last
// one wins for the callback, all of them are kept for diagnostics.
type Group struct {
	mu       sync.Mutex
	count    int
	drained  chan struct{}
	waiters  []*registration
	last     error
	all      *multierror.Error
	entered  int
	finished int
}

// New creates an empty group. An empty group counts as drained.
func New() *Group {
	return &Group{}
}

// Enter increments the outstanding count.
// It must be called before the unit of work it accounts for is scheduled.
func (g *Group) Enter() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.count == 0 {
		g.drained = make(chan struct{})
	}

	g.count++
	g.entered++
}

// Leave decrements the outstanding count. When the count reaches zero the
// registered callbacks are delivered and cleared.
// Leaving a group with nothing outstanding panics with an *InvariantError.
func (g *Group) Leave() {
	g.mu.Lock()

	if g.count == 0 {
		g.mu.Unlock()
		panic(&InvariantError{Op: "leave", Detail: "outstanding count would become negative"})
	}

	g.count--
	g.finished++

	if g.count > 0 {
		g.mu.Unlock()
		return
	}

	close(g.drained)

	waiters := g.waiters
	g.waiters = nil
	err := g.last
	g.mu.Unlock()

	for _, w := range waiters {
		deliver(w, err)
	}
}

// Notify registers fn to be delivered on exec when the outstanding count reaches
// zero. If the group is already drained, fn is delivered right away.
func (g *Group) Notify(exec Executor, fn Callback) {
	if fn == nil {
		return
	}

	r := &registration{exec: exec, fn: fn}

	g.mu.Lock()

	if g.count > 0 {
		g.waiters = append(g.waiters, r)
		g.mu.Unlock()

		return
	}

	err := g.last
	g.mu.Unlock()

	deliver(r, err)
}

// Wait blocks until the outstanding count reaches zero or ctx is done.
// It returns true if the group drained.
// Waiting from the delivery context that a Notify callback of this group is
// bound to, while that callback is what would unblock the work, deadlocks.
func (g *Group) Wait(ctx context.Context) bool {
	g.mu.Lock()

	if g.count == 0 {
		g.mu.Unlock()
		return true
	}

	drained := g.drained
	g.mu.Unlock()

	select {
	case <-drained:
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitTimeout is like Wait with a timeout. A timeout of zero or less waits forever.
// Returning false does not stop outstanding work.
func (g *Group) WaitTimeout(timeout time.Duration) bool {
	ctx := context.Background()

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return g.Wait(ctx)
}

// Record stores err as the most recent error. Nil errors are ignored.
// Concurrent calls are last-write-wins.
func (g *Group) Record(err error) {
	if err == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.last = err
	g.all = multierror.Append(g.all, err)
}

// Err returns the most recently recorded error.
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.last
}

// Errors returns every recorded error, or nil if none were recorded.
func (g *Group) Errors() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.all.ErrorOrNil()
}

// Outstanding returns the current outstanding count.
func (g *Group) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.count
}

// Stats returns how many units have entered and left the group over its lifetime.
func (g *Group) Stats() (entered, left int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.entered, g.finished
}

func deliver(r *registration, err error) {
	if !r.fired.CompareAndSwap(false, true) {
		panic(&InvariantError{Op: "notify", Detail: "completion callback delivered more than once"})
	}

	call := func(ctx context.Context) { r.fn(ctx, err) }

	// A closed or missing delivery context still gets the callback, on its own goroutine.
	if r.exec == nil || !r.exec.Async(call) {
		go call(context.Background())
	}
}
