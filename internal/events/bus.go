// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusClosed is returned when operating on a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown ID.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

const defaultAsyncBuffer = 100

// Config configures a Bus.
type Config struct {
	HistorySize int
}

type subscription struct {
	pattern string
	handler Handler
	ch      chan Event // nil for synchronous subscriptions
	stop    chan struct{}
}

// Bus is an in-memory event bus with pattern subscriptions and a bounded
// history.
type Bus struct {
	mu      sync.RWMutex
	subs    map[SubscriptionID]*subscription
	nextID  SubscriptionID
	seq     int64
	session string
	closed  bool
	history *history
	wg      sync.WaitGroup
}

// NewBus creates a bus.
func NewBus(cfg Config) *Bus {
	return &Bus{
		subs:    make(map[SubscriptionID]*subscription),
		history: newHistory(cfg.HistorySize),
	}
}

// SetSession sets the session stamped on events that carry none.
func (b *Bus) SetSession(session string) {
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
}

// Publish stamps e and delivers it to every matching subscriber.
// Synchronous handlers run on the caller's goroutine.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.seq++
	e.Seq = b.seq
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Session == "" {
		e.Session = b.session
	}
	b.history.add(e)
	var matched []*subscription
	for _, s := range b.subs {
		if Match(s.pattern, e.Type) {
			matched = append(matched, s)
		}
	}
	b.mu.Unlock()

	for _, s := range matched {
		if s.ch != nil {
			select {
			case s.ch <- e:
			default:
				log.Printf("EventBus: dropped %s, subscriber buffer full", e.Type)
			}
			continue
		}
		deliver(ctx, s.handler, e)
	}
	return nil
}

func deliver(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("EventBus: handler panic for %s: %v", e.Type, r)
		}
	}()
	h(ctx, e)
}

func (b *Bus) add(pattern string, s *subscription) (SubscriptionID, error) {
	if err := ValidatePattern(pattern); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrBusClosed
	}
	b.nextID++
	s.pattern = pattern
	b.subs[b.nextID] = s
	return b.nextID, nil
}

// Subscribe registers a synchronous handler for events matching pattern.
func (b *Bus) Subscribe(pattern string, h Handler) (SubscriptionID, error) {
	return b.add(pattern, &subscription{handler: h})
}

// SubscribeAsync registers a handler run on its own goroutine. Events are
// dropped when more than buffer are pending.
func (b *Bus) SubscribeAsync(pattern string, h Handler, buffer int) (SubscriptionID, error) {
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}
	s := &subscription{handler: h, ch: make(chan Event, buffer), stop: make(chan struct{})}
	id, err := b.add(pattern, s)
	if err != nil {
		return 0, err
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-s.stop:
				return
			case e := <-s.ch:
				deliver(context.Background(), h, e)
			}
		}
	}()
	return id, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if !ok {
		return ErrSubscriptionNotFound
	}
	if s.stop != nil {
		close(s.stop)
	}
	return nil
}

// History returns past events matching f, oldest first.
func (b *Bus) History(f Filter) []Event {
	return b.history.query(f)
}

// Sequence returns the sequence number of the last published event.
func (b *Bus) Sequence() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Close stops async subscribers. Later publishes fail with ErrBusClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[SubscriptionID]*subscription)
	b.mu.Unlock()

	for _, s := range subs {
		if s.stop != nil {
			close(s.stop)
		}
	}
	b.wg.Wait()
	return nil
}
