// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/puff/internal/batch"
)

// JobStatus represents the current state of a job in the TUI.
type JobStatus int

const (
	StatusPending JobStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusCancelled
)

// String returns a string representation of the job status.
func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// JobRow is the display state of one job.
type JobRow struct {
	Index     int
	Address   string
	Status    JobStatus
	StartTime *time.Time
	EndTime   *time.Time
	Detail    string // Description of the downloaded photo
	ErrorMsg  string
	mutex     sync.RWMutex
}

// NewJobRow creates a pending row.
func NewJobRow(index int, address string) *JobRow {
	return &JobRow{
		Index:   index,
		Address: address,
		Status:  StatusPending,
	}
}

// UpdateStatus safely updates the job status, recording start and end times.
func (jr *JobRow) UpdateStatus(status JobStatus, at time.Time) {
	jr.mutex.Lock()
	defer jr.mutex.Unlock()

	jr.Status = status

	switch status {
	case StatusRunning:
		if jr.StartTime == nil {
			jr.StartTime = &at
		}
	case StatusSuccess, StatusFailed, StatusCancelled:
		if jr.EndTime == nil {
			jr.EndTime = &at
		}
	}
}

// UpdateDetail safely sets the photo description.
func (jr *JobRow) UpdateDetail(detail string) {
	jr.mutex.Lock()
	defer jr.mutex.Unlock()

	jr.Detail = detail
}

// UpdateError safely updates the error message.
func (jr *JobRow) UpdateError(err string) {
	jr.mutex.Lock()
	defer jr.mutex.Unlock()

	jr.ErrorMsg = err
}

// GetDisplayInfo safely retrieves display information.
func (jr *JobRow) GetDisplayInfo() (JobStatus, string, string, string, *time.Time, *time.Time) {
	jr.mutex.RLock()
	defer jr.mutex.RUnlock()

	return jr.Status, jr.Address, jr.Detail, jr.ErrorMsg, jr.StartTime, jr.EndTime
}

// Counts is a tally of rows by status.
type Counts struct {
	Pending   int
	Running   int
	Success   int
	Failed    int
	Cancelled int
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	title     string
	rows      []*JobRow
	rowMap    map[int]*JobRow // Maps job index to its row
	width     int
	height    int
	quitting  bool
	completed bool          // Set once the batch result has arrived
	result    *batch.Result // Final result of the batch
	batchErr  error         // Error carried by the batch-completed event
	autoQuit  bool
	mutex     sync.RWMutex

	spinner  spinner.Model
	viewport viewport.Model

	// Style definitions
	styles *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title     lipgloss.Style
	Pending   lipgloss.Style
	Running   lipgloss.Style
	Success   lipgloss.Style
	Failed    lipgloss.Style
	Cancelled lipgloss.Style
	Output    lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
	Status    lipgloss.Style
	Border    lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Cancelled: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Strikethrough(true),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("8")).
			Padding(0, 1),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a new TUI model.
func NewModel(ctx context.Context, title string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	styles := NewStyles()
	s.Style = styles.Running

	return &Model{
		ctx:      ctx,
		title:    title,
		rowMap:   make(map[int]*JobRow),
		spinner:  s,
		viewport: viewport.New(defaultViewportWidth, defaultViewportHeight),
		styles:   styles,
	}
}

// Rows returns the rows in creation order.
func (m *Model) Rows() []*JobRow {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return slices.Clone(m.rows)
}

// Counts returns how many rows are in each status.
func (m *Model) Counts() Counts {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var c Counts

	for _, r := range m.rows {
		status, _, _, _, _, _ := r.GetDisplayInfo()

		switch status {
		case StatusPending:
			c.Pending++
		case StatusRunning:
			c.Running++
		case StatusSuccess:
			c.Success++
		case StatusFailed:
			c.Failed++
		case StatusCancelled:
			c.Cancelled++
		}
	}

	return c
}

// getOrCreateRow returns the row for a job index, creating it if needed.
// Rows are kept sorted by index.
func (m *Model) getOrCreateRow(index int, address string) *JobRow {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if row, exists := m.rowMap[index]; exists {
		return row
	}

	row := NewJobRow(index, address)
	m.rowMap[index] = row

	pos, _ := slices.BinarySearchFunc(m.rows, index, func(r *JobRow, i int) int {
		return r.Index - i
	})
	m.rows = slices.Insert(m.rows, pos, row)

	return row
}

// processEvent applies a batch event to the model.
func (m *Model) processEvent(event batch.Event) {
	if event.Type == batch.EventBatchCompleted {
		m.mutex.Lock()
		m.batchErr = event.Err
		m.mutex.Unlock()

		return
	}

	row := m.getOrCreateRow(event.Index, event.Address)

	switch event.Type {
	case batch.EventScheduled:
		// Rows start pending.
	case batch.EventRunning:
		row.UpdateStatus(StatusRunning, event.Timestamp)
	case batch.EventCompleted:
		row.UpdateStatus(StatusSuccess, event.Timestamp)
		row.UpdateDetail(event.Photo.String())
	case batch.EventFailed:
		row.UpdateStatus(StatusFailed, event.Timestamp)

		if event.Err != nil {
			row.UpdateError(event.Err.Error())
		}
	case batch.EventCancelled:
		row.UpdateStatus(StatusCancelled, event.Timestamp)
	}
}
