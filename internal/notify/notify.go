// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/matt-FFFFFF/puff/internal/serialqueue"
)

// Topic names an announcement.
type Topic string

const (
	// TopicContentAdded is announced after an item has been appended to a store.
	TopicContentAdded Topic = "content-added"
	// TopicContentUpdated is announced when a download has finished, successfully or not.
	TopicContentUpdated Topic = "content-updated"
)

// String implements the Stringer interface for Topic.
func (t Topic) String() string {
	return string(t)
}

// Announcer publishes topics. Implementations must not block and cannot fail.
type Announcer interface {
	Announce(topic Topic)
}

// Listener receives announcements. It is always called on the delivery queue.
type Listener interface {
	OnAnnounce(ctx context.Context, topic Topic)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, topic Topic)

// OnAnnounce implements Listener.
func (f ListenerFunc) OnAnnounce(ctx context.Context, topic Topic) {
	f(ctx, topic)
}

// Discard is an Announcer that drops every announcement.
var Discard Announcer = discard{}

type discard struct{}

func (discard) Announce(Topic) {}

// Center delivers announcements to subscribed listeners on a serial queue.
// Listeners of a topic are called in subscription order.
type Center struct {
	queue *serialqueue.Queue
	mu    sync.RWMutex
	subs  map[Topic]map[uint64]Listener
	next  uint64
}

// NewCenter creates a Center that delivers on queue.
func NewCenter(queue *serialqueue.Queue) *Center {
	return &Center{
		queue: queue,
		subs:  make(map[Topic]map[uint64]Listener),
	}
}

// Subscribe registers l for topic. The returned function removes the subscription.
func (c *Center) Subscribe(topic Topic, l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.next
	c.next++

	if c.subs[topic] == nil {
		c.subs[topic] = make(map[uint64]Listener)
	}

	c.subs[topic][id] = l

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[topic], id)
	}
}

// Announce implements Announcer. Listeners registered when the announcement is
// delivered receive it.
func (c *Center) Announce(topic Topic) {
	c.queue.Async(func(ctx context.Context) {
		listeners := c.listeners(topic)

		ctxlog.Debug(ctx, "notify", "detail", "delivering announcement", "topic", topic.String(), "listeners", len(listeners))

		for _, l := range listeners {
			l.OnAnnounce(ctx, topic)
		}
	})
}

func (c *Center) listeners(topic Topic) []Listener {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(c.subs[topic]))
	out := make([]Listener, 0, len(ids))

	for _, id := range ids {
		out = append(out, c.subs[topic][id])
	}

	return out
}
