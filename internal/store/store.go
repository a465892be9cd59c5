// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package store provides an ordered, append-only collection that is safe for
// concurrent use. Readers get independent snapshots. Appends are serialized and
// never interleave with a read.
package store

import (
	"slices"
	"sync"

	"github.com/matt-FFFFFF/puff/internal/notify"
)

// Store holds an ordered sequence of items.
// The zero value is not usable, create one with New.
type Store[T any] struct {
	mu        sync.RWMutex
	items     []T
	announcer notify.Announcer
}

// New creates an empty store. After every committed append the store announces
// notify.TopicContentAdded on announcer. A nil announcer discards announcements.
func New[T any](announcer notify.Announcer) *Store[T] {
	if announcer == nil {
		announcer = notify.Discard
	}

	return &Store[T]{
		announcer: announcer,
	}
}

// Snapshot returns a copy of the current sequence in insertion order.
// It only waits for an append that is already in progress.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.items)
}

// Append adds item to the end of the sequence and then announces the change.
// The announcement is delivered asynchronously.
func (s *Store[T]) Append(item T) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.announcer.Announce(notify.TopicContentAdded)
}

// Len returns the number of items currently held.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}
