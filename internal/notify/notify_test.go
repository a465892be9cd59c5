// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"testing"

	"github.com/matt-FFFFFF/puff/internal/serialqueue"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestTopic_String(t *testing.T) {
	assert.Equal(t, "content-added", TopicContentAdded.String())
	assert.Equal(t, "content-updated", TopicContentUpdated.String())
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard.Announce(TopicContentAdded)
}

func TestCenter_DeliversOnQueueInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	c := NewCenter(q)

	var got []string

	c.Subscribe(TopicContentAdded, ListenerFunc(func(ctx context.Context, topic Topic) {
		assert.True(t, q.OnQueue(ctx), "listener should run on the delivery queue")
		got = append(got, "first:"+topic.String())
	}))
	c.Subscribe(TopicContentAdded, ListenerFunc(func(_ context.Context, topic Topic) {
		got = append(got, "second:"+topic.String())
	}))
	c.Subscribe(TopicContentUpdated, ListenerFunc(func(_ context.Context, topic Topic) {
		got = append(got, "updated:"+topic.String())
	}))

	c.Announce(TopicContentAdded)
	c.Announce(TopicContentUpdated)
	q.Close()

	assert.Equal(t, []string{
		"first:content-added",
		"second:content-added",
		"updated:content-updated",
	}, got)
}

func TestCenter_Unsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	c := NewCenter(q)

	calls := 0
	cancel := c.Subscribe(TopicContentAdded, ListenerFunc(func(context.Context, Topic) {
		calls++
	}))

	c.Announce(TopicContentAdded)
	_ = q.Sync(context.Background(), func(context.Context) {})

	cancel()
	c.Announce(TopicContentAdded)
	q.Close()

	assert.Equal(t, 1, calls)
}

func TestCenter_AnnounceWithoutListeners(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := serialqueue.New(context.Background(), "main")
	c := NewCenter(q)

	c.Announce(TopicContentUpdated)
	q.Close()
}
