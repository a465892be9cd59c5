// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/puff/internal/batch"
)

// RunFunc runs a batch, reporting its events to reporter, and returns its result.
type RunFunc func(ctx context.Context, reporter batch.Reporter) batch.Result

// Runner manages the TUI application and batch event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
	mutex    sync.Mutex
}

// Reporter implements batch.Reporter and forwards events to the TUI.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a new TUI batch reporter.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{
		program: program,
	}
}

// Report implements batch.Reporter.
func (tr *Reporter) Report(event batch.Event) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if tr.closed || tr.program == nil {
		return
	}

	tr.program.Send(EventMsg{Event: event})
}

// Close stops forwarding events.
func (tr *Reporter) Close() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	tr.closed = true
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	autoQuit bool
	program  []tea.ProgramOption
}

// WithAutoQuit exits the TUI as soon as the batch has settled instead of
// waiting for the user to quit.
func WithAutoQuit() RunnerOption {
	return func(o *runnerOptions) {
		o.autoQuit = true
	}
}

// WithProgramOptions passes options to the bubbletea program.
func WithProgramOptions(opts ...tea.ProgramOption) RunnerOption {
	return func(o *runnerOptions) {
		o.program = append(o.program, opts...)
	}
}

// NewRunner creates a new TUI runner.
func NewRunner(ctx context.Context, title string, opts ...RunnerOption) *Runner {
	o := &runnerOptions{
		program: []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)},
	}

	for _, opt := range opts {
		opt(o)
	}

	model := NewModel(ctx, title)
	model.autoQuit = o.autoQuit
	program := tea.NewProgram(model, o.program...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
	}
}

// Reporter returns the batch reporter for this TUI runner.
func (r *Runner) Reporter() batch.Reporter {
	return r.reporter
}

// Model returns the model rendered by the runner.
func (r *Runner) Model() *Model {
	return r.model
}

// Run starts the TUI and runs the batch with event reporting.
// The result of the batch is returned with any error from the TUI itself.
func (r *Runner) Run(ctx context.Context, run RunFunc) (batch.Result, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	resultChan := make(chan batch.Result, 1)

	go func() {
		resultChan <- run(ctx, r.reporter)
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	select {
	case result := <-resultChan:
		r.program.Send(BatchDoneMsg{Result: result})

		err := <-tuiDone

		r.reporter.Close()

		return result, err

	case err := <-tuiDone:
		// The user quit before the batch settled.
		r.reporter.Close()

		select {
		case result := <-resultChan:
			return result, err
		case <-ctx.Done():
			return batch.Result{Err: ctx.Err()}, err
		}

	case <-ctx.Done():
		r.reporter.Close()
		r.program.Quit()

		<-tuiDone

		select {
		case result := <-resultChan:
			return result, nil
		default:
			return batch.Result{Err: ctx.Err()}, nil
		}
	}
}
