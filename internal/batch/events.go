// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/puff/internal/photo"
)

// EventType represents what happened to a job or batch.
type EventType int

const (
	// EventScheduled indicates a job has been created and queued for dispatch.
	EventScheduled EventType = iota
	// EventRunning indicates a job has started fetching.
	EventRunning
	// EventCompleted indicates a job produced a photo.
	EventCompleted
	// EventFailed indicates a job finished with an error.
	EventFailed
	// EventCancelled indicates a job was cancelled before it started.
	EventCancelled
	// EventBatchCompleted indicates every job of the batch is accounted for.
	EventBatchCompleted
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventScheduled:
		return "scheduled"
	case EventRunning:
		return "running"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	case EventBatchCompleted:
		return "batch-completed"
	default:
		return "unknown"
	}
}

// Event is a lifecycle update for one job of a batch, or for the batch itself.
type Event struct {
	BatchID   uuid.UUID
	JobID     uuid.UUID // Zero for EventBatchCompleted
	Index     int       // Creation index of the job, -1 for EventBatchCompleted
	Address   string
	Type      EventType
	Err       error       // For EventFailed, and the aggregated error for EventBatchCompleted
	Photo     photo.Photo // For EventCompleted
	Timestamp time.Time
}

// Reporter receives batch events. Events are delivered on the coordinator's
// serial queue, so implementations should return quickly.
type Reporter interface {
	Report(event Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(event Event)

// Report implements Reporter.
func (f ReporterFunc) Report(event Event) {
	f(event)
}
