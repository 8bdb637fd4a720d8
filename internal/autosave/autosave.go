// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package autosave periodically saves the project while editor tabs are dirty.
package autosave

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval is the autosave period when none is configured.
const DefaultInterval = 30 * time.Second

// DirtyChecker reports unsaved edits.
type DirtyChecker interface {
	HasDirty() bool
}

// Saver performs the save.
type Saver interface {
	Save(ctx context.Context) (time.Time, error)
}

// Scheduler runs a save on a fixed interval when something is dirty.
type Scheduler struct {
	interval time.Duration
	dirty    DirtyChecker
	saver    Saver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	saves  int
}

// New creates a scheduler. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, dirty DirtyChecker, saver Saver) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval, dirty: dirty, saver: saver}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start begins ticking until ctx is cancelled or Stop is called.
// Calling Start twice has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one check. It reports whether a save ran successfully.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.dirty.HasDirty() {
		return false
	}
	if _, err := s.saver.Save(ctx); err != nil {
		log.Printf("AutoSave: save failed: %v", err)
		return false
	}
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return true
}

// Saves returns the number of successful automatic saves.
func (s *Scheduler) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Stop halts the scheduler and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
