// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import "sync"

const defaultHistorySize = 1000

// history keeps the most recent events in publish order.
type history struct {
	mu     sync.RWMutex
	events []Event
	max    int
}

func newHistory(max int) *history {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &history{max: max}
}

func (h *history) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	if over := len(h.events) - h.max; over > 0 {
		// Copy so the dropped prefix can be collected.
		h.events = append([]Event(nil), h.events[over:]...)
	}
}

func (h *history) query(f Filter) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, 0)
	for _, e := range h.events {
		if e.Seq <= f.After {
			continue
		}
		if f.Session != "" && e.Session != f.Session {
			continue
		}
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if !matchAny(f.Types, e.Type) {
			continue
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}
