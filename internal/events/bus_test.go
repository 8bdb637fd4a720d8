// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		typ     string
		want    bool
	}{
		{"*", "sandbox.ready", true},
		{"sandbox.ready", "sandbox.ready", true},
		{"sandbox.*", "sandbox.ready", true},
		{"sandbox.*", "sandbox", false},
		{"tab.*", "sandbox.ready", false},
		{"*.ready", "sandbox.ready", true},
		{"*.ready", "sandbox.state", false},
		{"tree.*", "tree.created", true},
		{"tree", "tree.created", false},
		{"", "tree.created", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.pattern, tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.typ))
		})
	}
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("sandbox.*"))
	assert.Error(t, ValidatePattern(""))
	assert.Error(t, ValidatePattern("sandbox..ready"))
	assert.Error(t, ValidatePattern("sand*.ready"))
}

func TestBus_PublishStampsEvents(t *testing.T) {
	bus := NewBus(Config{})
	defer bus.Close()
	bus.SetSession("s1")

	var got Event
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) { got = e })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: SandboxReady}))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, "s1", got.Session)
	assert.False(t, got.Time.IsZero())
}

func TestBus_PatternSubscriptions(t *testing.T) {
	bus := NewBus(Config{})
	defer bus.Close()

	var sandbox, tabs int32
	_, err := bus.Subscribe("sandbox.*", func(ctx context.Context, e Event) { atomic.AddInt32(&sandbox, 1) })
	require.NoError(t, err)
	_, err = bus.Subscribe("tab.*", func(ctx context.Context, e Event) { atomic.AddInt32(&tabs, 1) })
	require.NoError(t, err)

	ctx := context.Background()
	bus.Publish(ctx, Event{Type: SandboxState})
	bus.Publish(ctx, Event{Type: SandboxReady})
	bus.Publish(ctx, Event{Type: TabOpened})

	assert.Equal(t, int32(2), sandbox)
	assert.Equal(t, int32(1), tabs)
}

func TestBus_Async(t *testing.T) {
	bus := NewBus(Config{})
	defer bus.Close()

	received := make(chan Event, 1)
	_, err := bus.SubscribeAsync(TreeCreated, func(ctx context.Context, e Event) { received <- e }, 10)
	require.NoError(t, err)

	bus.Publish(context.Background(), Event{Type: TreeCreated, Payload: map[string]interface{}{"path": "src"}})
	select {
	case e := <-received:
		assert.Equal(t, "src", e.Payload["path"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(Config{})
	defer bus.Close()

	var calls int32
	id, err := bus.Subscribe("*", func(ctx context.Context, e Event) { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)
	require.NoError(t, bus.Unsubscribe(id))
	assert.ErrorIs(t, bus.Unsubscribe(id), ErrSubscriptionNotFound)

	bus.Publish(context.Background(), Event{Type: TabOpened})
	assert.Equal(t, int32(0), calls)
}

func TestBus_HandlerPanicRecovered(t *testing.T) {
	bus := NewBus(Config{})
	defer bus.Close()

	var after int32
	bus.Subscribe("*", func(ctx context.Context, e Event) { panic("boom") })
	bus.Subscribe("*", func(ctx context.Context, e Event) { atomic.AddInt32(&after, 1) })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: TabOpened})
	})
	assert.Equal(t, int32(1), after)
}

func TestBus_History(t *testing.T) {
	bus := NewBus(Config{HistorySize: 3})
	defer bus.Close()
	ctx := context.Background()

	bus.Publish(ctx, Event{Type: TreeCreated})
	bus.Publish(ctx, Event{Type: TabOpened})
	bus.Publish(ctx, Event{Type: TreeDeleted, Session: "other"})
	bus.Publish(ctx, Event{Type: SandboxReady})

	all := bus.History(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, TabOpened, all[0].Type)

	trees := bus.History(Filter{Types: []string{"tree.*"}})
	require.Len(t, trees, 1)
	assert.Equal(t, TreeDeleted, trees[0].Type)

	assert.Len(t, bus.History(Filter{After: 3}), 1)
	assert.Len(t, bus.History(Filter{Session: "other"}), 1)
	last := bus.History(Filter{Limit: 1})
	require.Len(t, last, 1)
	assert.Equal(t, SandboxReady, last[0].Type)
	assert.Equal(t, int64(4), bus.Sequence())
}

func TestBus_Closed(t *testing.T) {
	bus := NewBus(Config{})
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), Event{Type: TabOpened}), ErrBusClosed)
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}
