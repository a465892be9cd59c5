// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrNoWork is reported when a job was created without a work function.
	ErrNoWork = errors.New("job has no work function")
)

// ErrWorkPanic is reported when the work function of a job panics.
// It is constructed with the value that caused the panic.
type ErrWorkPanic struct {
	v any
}

// Error implements the error interface for ErrWorkPanic.
func (e *ErrWorkPanic) Error() string {
	prefix := "job work panic:"

	switch x := e.v.(type) {
	case string:
		return fmt.Sprintf("%s %s", prefix, x)
	case error:
		return fmt.Sprintf("%s %s", prefix, x.Error())
	default:
		return fmt.Sprintf("%s %v", prefix, x)
	}
}

// Unwrap returns the panic value if it was an error.
func (e *ErrWorkPanic) Unwrap() error {
	if err, ok := e.v.(error); ok {
		return err
	}

	return nil
}

// State is the lifecycle state of a job.
type State int32

const (
	// StatePending is the state of a job that has not started and can still be cancelled.
	StatePending State = iota
	// StateRunning is the state of a job whose work is executing.
	StateRunning
	// StateCompleted is the state of a job whose work has returned.
	StateCompleted
	// StateCancelled is the state of a job that was cancelled before it started.
	StateCancelled
)

// String implements the Stringer interface for State.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Work produces the value of a job.
type Work[T any] func(ctx context.Context) (T, error)

// Outcome is what a job reports once its work has returned.
type Outcome[T any] struct {
	JobID uuid.UUID
	Index int
	Label string
	Value T
	Err   error
}

// Sink receives the outcome of a job. It is called on the goroutine that ran the job.
type Sink[T any] func(Outcome[T])

// Job is a unit of deferred work that can be cancelled until it starts.
type Job[T any] struct {
	id    uuid.UUID
	index int
	label string
	state atomic.Int32
	work  Work[T]
	sink  Sink[T]
}

// New creates a pending job. index and label identify the job to the sink.
func New[T any](index int, label string, work Work[T], sink Sink[T]) *Job[T] {
	return &Job[T]{
		id:    uuid.New(),
		index: index,
		label: label,
		work:  work,
		sink:  sink,
	}
}

// ID returns the unique identity of the job.
func (j *Job[T]) ID() uuid.UUID {
	return j.id
}

// Index returns the creation index of the job.
func (j *Job[T]) Index() int {
	return j.index
}

// Label returns the label of the job.
func (j *Job[T]) Label() string {
	return j.label
}

// State returns the current state of the job.
func (j *Job[T]) State() State {
	return State(j.state.Load())
}

// Cancel moves a pending job to cancelled. It returns true only for the call that
// made the transition. A job that is running, completed or already cancelled is
// left untouched and false is returned.
func (j *Job[T]) Cancel() bool {
	return j.state.CompareAndSwap(int32(StatePending), int32(StateCancelled))
}

// Run executes the work of a pending job and reports its outcome to the sink.
// If the job has been cancelled, or has already been started, Run does nothing
// and returns false.
func (j *Job[T]) Run(ctx context.Context) bool {
	if !j.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return false
	}

	out := Outcome[T]{
		JobID: j.id,
		Index: j.index,
		Label: j.label,
	}
	out.Value, out.Err = j.execute(ctx)

	j.state.Store(int32(StateCompleted))

	if j.sink != nil {
		j.sink(out)
	}

	return true
}

// execute runs the work function, converting a panic into an error.
func (j *Job[T]) execute(ctx context.Context) (v T, err error) {
	if j.work == nil {
		return v, ErrNoWork
	}

	defer func() {
		if r := recover(); r != nil {
			var zero T

			v = zero
			err = &ErrWorkPanic{v: r}
		}
	}()

	return j.work(ctx)
}
