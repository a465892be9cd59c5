// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdstate holds process-wide state shared between main and the subcommands.
// The signal watchdog is started by main before any subcommand runs, so the
// handlers it calls have to be registered through global state.
package cmdstate

import (
	"maps"
	"slices"
	"sync"
)

var (
	mu       sync.Mutex
	handlers = map[uint64]func(){}
	nextID   uint64
)

// OnInterrupt registers fn to be called on the first termination signal.
// The returned function removes the registration.
func OnInterrupt(fn func()) func() {
	mu.Lock()
	defer mu.Unlock()

	id := nextID
	nextID++
	handlers[id] = fn

	return func() {
		mu.Lock()
		defer mu.Unlock()
		delete(handlers, id)
	}
}

// Interrupt calls every registered handler, in registration order.
func Interrupt() {
	mu.Lock()
	ids := slices.Sorted(maps.Keys(handlers))
	fns := make([]func(), 0, len(ids))

	for _, id := range ids {
		fns = append(fns, handlers[id])
	}
	mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
