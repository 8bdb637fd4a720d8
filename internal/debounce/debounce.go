// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package debounce runs keyed trailing-edge delayed tasks.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is used when a non-positive delay is configured.
const DefaultDelay = 2 * time.Second

type pending struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer schedules at most one pending task per key. Scheduling a key
// again cancels the previous task and restarts the delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	gen     uint64
	pending map[string]pending
	stopped bool
}

// New creates a debouncer with the given delay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]pending),
	}
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delay
}

// Schedule arranges for fn to run after the delay unless key is scheduled
// again or cancelled first.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending[key] = pending{
		gen: gen,
		timer: time.AfterFunc(d.delay, func() {
			d.mu.Lock()
			// A timer that already fired cannot be stopped; the generation
			// check drops it when it has been superseded.
			k, ok := d.keyFor(gen)
			if !ok {
				d.mu.Unlock()
				return
			}
			delete(d.pending, k)
			d.mu.Unlock()
			fn()
		}),
	}
}

// keyFor finds the key currently holding generation gen. Must hold d.mu.
func (d *Debouncer) keyFor(gen uint64) (string, bool) {
	for k, p := range d.pending {
		if p.gen == gen {
			return k, true
		}
	}
	return "", false
}

// Cancel drops the pending task for key. It reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	return ok
}

// Rekey moves a pending task from oldKey to newKey, keeping its deadline.
// The task function itself is not changed.
func (d *Debouncer) Rekey(oldKey, newKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[oldKey]
	if !ok || oldKey == newKey {
		return
	}
	delete(d.pending, oldKey)
	if prev, exists := d.pending[newKey]; exists {
		prev.timer.Stop()
	}
	d.pending[newKey] = p
}

// Pending reports whether a task is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Len returns the number of pending tasks.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending task. Later calls to Schedule are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.stopped = true
}
