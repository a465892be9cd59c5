// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/puff/internal/batch"
)

const (
	defaultViewportWidth        = 80
	defaultViewportHeight       = 20
	minViewportWidth            = 40
	reservedLines               = 8 // title, border, status bar and help
	minStatusBarAvailableHeight = 10
	jobDurationRounding         = 100 * time.Millisecond
	ellipsis                    = "..."
)

// EventMsg wraps a batch event for the tea framework.
type EventMsg struct {
	Event batch.Event
}

// BatchDoneMsg indicates that the batch has settled.
type BatchDoneMsg struct {
	Result batch.Result
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		m.mutex.Unlock()

		return m, cmd

	case spinner.TickMsg:
		var tick tea.Cmd

		m.spinner, tick = m.spinner.Update(msg)

		return m, tea.Batch(cmd, tick)

	case EventMsg:
		m.processEvent(msg.Event)
		return m, cmd

	case BatchDoneMsg:
		m.mutex.Lock()
		m.completed = true
		res := msg.Result
		m.result = &res
		autoQuit := m.autoQuit
		m.mutex.Unlock()

		if autoQuit {
			m.quitting = true
			return m, tea.Quit
		}

		return m, cmd
	}

	return m, cmd
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	// All other keys (scrolling) are handled by viewport
	return m, nil
}

// updateViewportSize fits the viewport to the window. Callers hold the mutex.
func (m *Model) updateViewportSize() {
	m.viewport.Width = max(m.width-2, minViewportWidth) //nolint:mnd // border
	m.viewport.Height = max(m.height-reservedLines, 1)
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var content strings.Builder

	for _, row := range m.Rows() {
		m.renderRow(&content, row)
	}

	m.mutex.RLock()
	completed, result, batchErr := m.completed, m.result, m.batchErr
	m.mutex.RUnlock()

	if completed {
		content.WriteString("\n")

		switch {
		case result != nil && result.Err != nil:
			content.WriteString(m.styles.Failed.Render("⚠️  Batch completed with errors: " + result.Err.Error()))
		case batchErr != nil:
			content.WriteString(m.styles.Failed.Render("⚠️  Batch completed with errors: " + batchErr.Error()))
		default:
			content.WriteString(m.styles.Success.Render("✅ Batch completed successfully"))
		}

		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("📷 puff: " + m.title))
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))

	if m.height == 0 || m.height > minStatusBarAvailableHeight {
		view.WriteString("\n\n")
		view.WriteString(m.renderStatusBar())
		view.WriteString("\n")

		helpText := "↑/↓ or j/k to scroll, PgUp/PgDn for pages, 'q' to quit"
		if completed {
			helpText = "↑/↓ or j/k to scroll, 'q' to quit and return to terminal"
		}

		view.WriteString(m.styles.Help.Render(helpText))
	}

	return view.String()
}

// renderStatusBar renders the tally of job states.
func (m *Model) renderStatusBar() string {
	c := m.Counts()

	return m.styles.Status.Render(fmt.Sprintf(
		"pending %d · running %d · done %d · failed %d · cancelled %d",
		c.Pending, c.Running, c.Success, c.Failed, c.Cancelled,
	))
}

// renderRow renders a single job row.
func (m *Model) renderRow(b *strings.Builder, row *JobRow) {
	status, address, detail, errorMsg, startTime, endTime := row.GetDisplayInfo()

	var (
		statusIcon  string
		styledLabel string
	)

	label := fmt.Sprintf("#%d %s", row.Index, address)

	switch status {
	case StatusPending:
		statusIcon = "⏳"
		styledLabel = m.styles.Pending.Render(label)
	case StatusRunning:
		statusIcon = m.spinner.View()
		styledLabel = m.styles.Running.Render(label)
	case StatusSuccess:
		statusIcon = "✅"
		styledLabel = m.styles.Success.Render(label)
	case StatusFailed:
		statusIcon = "❌"
		styledLabel = m.styles.Failed.Render(label)
	case StatusCancelled:
		statusIcon = "🚫"
		styledLabel = m.styles.Cancelled.Render(label)
	default:
		statusIcon = "❓"
		styledLabel = m.styles.Pending.Render(label)
	}

	leftSide := fmt.Sprintf("%s %s", statusIcon, styledLabel)

	if startTime != nil {
		elapsed := time.Since(*startTime)
		if endTime != nil {
			elapsed = endTime.Sub(*startTime)
		}

		leftSide += m.styles.Output.Render(fmt.Sprintf(" (%v)", elapsed.Round(jobDurationRounding)))
	}

	var rightSide string

	switch {
	case status == StatusFailed && errorMsg != "":
		rightSide = m.styles.Error.Render("Error: " + errorMsg)
	case status == StatusSuccess && detail != "":
		rightSide = m.styles.Output.Render(detail)
	}

	availableWidth := max(m.viewport.Width-2, minViewportWidth) //nolint:mnd // padding
	leftWidth := availableWidth / 2                              //nolint:mnd
	rightWidth := availableWidth - leftWidth

	leftSide = truncate(leftSide, leftWidth)
	rightSide = truncate(rightSide, rightWidth)

	b.WriteString(leftSide)
	b.WriteString(strings.Repeat(" ", max(leftWidth-lipgloss.Width(leftSide), 1)))
	b.WriteString(rightSide)
	b.WriteString("\n")
}

// truncate shortens s to width visible cells.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}

	if width <= len(ellipsis) {
		return lipgloss.NewStyle().MaxWidth(width).Render(s)
	}

	return lipgloss.NewStyle().MaxWidth(width-len(ellipsis)).Render(s) + ellipsis
}
