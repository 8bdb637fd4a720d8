// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package project tracks workspace projects and their save state. Nothing
// is persisted beyond the process lifetime.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoProject is returned by Save when no project is current.
	ErrNoProject = errors.New("no current project")
)

// NotFoundError is returned for an unknown project ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project not found: %s", e.ID)
}

// Project describes a workspace project.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ActiveFile string    `json:"active_file,omitempty"`
}

// SaveState reports the save indicator shown to the user.
type SaveState struct {
	Saving    bool       `json:"saving"`
	LastSaved *time.Time `json:"last_saved,omitempty"`
}

// SavedFunc is called after every successful save.
type SavedFunc func(p Project, at time.Time)

// Store holds projects in memory.
type Store struct {
	mu        sync.Mutex
	projects  []*Project
	current   string
	saving    bool
	lastSaved time.Time
	delay     time.Duration
	onSaved   []SavedFunc
}

// NewStore creates a store. Save takes delay to complete, simulating a
// persistence round trip.
func NewStore(delay time.Duration) *Store {
	return &Store{delay: delay}
}

// OnSaved registers fn to run after each save.
func (s *Store) OnSaved(fn SavedFunc) {
	s.mu.Lock()
	s.onSaved = append(s.onSaved, fn)
	s.mu.Unlock()
}

// Create adds a project and makes it current.
func (s *Store) Create(name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("project name is required")
	}
	now := time.Now()
	p := &Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.projects = append(s.projects, p)
	s.current = p.ID
	s.mu.Unlock()
	return *p, nil
}

func (s *Store) find(id string) (int, *Project) {
	for i, p := range s.projects {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// Load makes the project with id current.
func (s *Store) Load(id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, p := s.find(id)
	if p == nil {
		return Project{}, &NotFoundError{ID: id}
	}
	s.current = id
	return *p, nil
}

// Delete removes a project. Deleting the current project leaves none current.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, p := s.find(id)
	if p == nil {
		return &NotFoundError{ID: id}
	}
	s.projects = append(s.projects[:i], s.projects[i+1:]...)
	if s.current == id {
		s.current = ""
	}
	return nil
}

// List returns every project in creation order.
func (s *Store) List() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = *p
	}
	return out
}

// Current returns the current project.
func (s *Store) Current() (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, p := s.find(s.current)
	if p == nil {
		return Project{}, false
	}
	return *p, true
}

// SetActiveFile records the focused file of the current project.
func (s *Store) SetActiveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, p := s.find(s.current); p != nil {
		p.ActiveFile = path
	}
}

// State returns the save indicator.
func (s *Store) State() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SaveState{Saving: s.saving}
	if !s.lastSaved.IsZero() {
		t := s.lastSaved
		st.LastSaved = &t
	}
	return st
}

// Save saves the current project. The only durable effect is the in-memory
// last-saved timestamp.
func (s *Store) Save(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	_, p := s.find(s.current)
	if p == nil {
		s.mu.Unlock()
		return time.Time{}, ErrNoProject
	}
	s.saving = true
	s.mu.Unlock()

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.mu.Lock()
			s.saving = false
			s.mu.Unlock()
			return time.Time{}, ctx.Err()
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.saving = false
	s.lastSaved = now
	p.UpdatedAt = now
	snap := *p
	hooks := append([]SavedFunc(nil), s.onSaved...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(snap, now)
	}
	return now, nil
}
