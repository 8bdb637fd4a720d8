// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package editor manages open editor tabs and their dirty state.
package editor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wingedpig/arbor/internal/debounce"
	"github.com/wingedpig/arbor/internal/filetree"
)

// DefaultDebounce is the delay after the last edit before a tab is marked clean.
const DefaultDebounce = 2000 * time.Millisecond

// Tab is a snapshot of an open editor tab.
type Tab struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Dirty   bool   `json:"is_dirty"`
	Active  bool   `json:"active"`
}

// Tree is the subset of the file tree the manager writes through to.
type Tree interface {
	Find(path string) filetree.Entry
	SetContent(path, content string) error
}

// WriteThrougher receives single-file content changes for the sandbox.
type WriteThrougher interface {
	WriteThrough(path, content string)
}

// Listener is notified of tab state changes. It is called without the
// manager lock held.
type Listener func(event string, tab Tab)

// Tab events passed to a Listener.
const (
	EventOpened    = "tab.opened"
	EventUpdated   = "tab.updated"
	EventClean     = "tab.clean"
	EventClosed    = "tab.closed"
	EventSaved     = "tab.saved"
	EventActivated = "tab.activated"
)

// NotFoundError is returned for operations on a path with no open tab.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no open tab for %q", e.Path)
}

type tab struct {
	path    string
	name    string
	content string
	dirty   bool
}

// Manager owns the set of open tabs. It is safe for concurrent use.
type Manager struct {
	// editMu serializes content edits so the buffer, the tree and the
	// sandbox see them in the same order. It is taken before mu.
	editMu sync.Mutex

	mu       sync.Mutex
	tabs     []*tab
	active   string
	tree     Tree
	sync     WriteThrougher
	clean    *debounce.Debouncer
	listener Listener
}

// Config configures a Manager.
type Config struct {
	Debounce time.Duration
}

// NewManager creates a manager writing through to tree.
func NewManager(tree Tree, cfg Config) *Manager {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Manager{
		tree:  tree,
		clean: debounce.New(cfg.Debounce),
	}
}

// SetWriteThrough sets the sandbox propagation target.
func (m *Manager) SetWriteThrough(w WriteThrougher) {
	m.mu.Lock()
	m.sync = w
	m.mu.Unlock()
}

// SetListener sets the tab event listener.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

// Close cancels all pending clean transitions.
func (m *Manager) Close() {
	m.clean.Stop()
}

func (m *Manager) find(path string) (int, *tab) {
	for i, t := range m.tabs {
		if t.path == path {
			return i, t
		}
	}
	return -1, nil
}

func (m *Manager) snapshot(t *tab) Tab {
	return Tab{
		Path:    t.path,
		Name:    t.name,
		Content: t.content,
		Dirty:   t.dirty,
		Active:  t.path == m.active,
	}
}

func (m *Manager) emit(event string, t Tab) {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()
	if l != nil {
		l(event, t)
	}
}

// OpenFile focuses the tab for path, creating it with content when absent.
func (m *Manager) OpenFile(path, name, content string) Tab {
	path = filetree.Clean(path)
	m.mu.Lock()
	_, t := m.find(path)
	created := t == nil
	if created {
		t = &tab{path: path, name: name, content: content}
		m.tabs = append(m.tabs, t)
	}
	m.active = path
	snap := m.snapshot(t)
	m.mu.Unlock()

	if created {
		m.emit(EventOpened, snap)
	} else {
		m.emit(EventActivated, snap)
	}
	return snap
}

// Open opens the file at path, seeding the buffer from the tree.
func (m *Manager) Open(path string) (Tab, error) {
	path = filetree.Clean(path)
	e := m.tree.Find(path)
	if e == nil {
		return Tab{}, &filetree.NotFoundError{Path: path}
	}
	f, ok := e.(*filetree.File)
	if !ok {
		return Tab{}, &filetree.InvalidPathError{Path: path, Reason: "not a file"}
	}
	content, _ := f.Content()
	return m.OpenFile(path, f.Name(), content), nil
}

// UpdateContent replaces the buffer of the tab for path and marks it dirty.
// The content is also written to the tree and propagated to the sandbox,
// and the clean timer for the tab is restarted.
func (m *Manager) UpdateContent(path, content string) error {
	path = filetree.Clean(path)
	m.editMu.Lock()
	defer m.editMu.Unlock()

	m.mu.Lock()
	_, t := m.find(path)
	if t == nil {
		m.mu.Unlock()
		return &NotFoundError{Path: path}
	}
	t.content = content
	t.dirty = true
	snap := m.snapshot(t)
	w := m.sync
	m.clean.Schedule(path, func() { m.markClean(t) })
	m.mu.Unlock()

	if err := m.tree.SetContent(path, content); err != nil {
		// The file may have been deleted while its tab stayed open. The
		// buffer keeps the edit; the sandbox keeps mirroring the tree.
		log.Printf("Editor: tree write for %s failed: %v", path, err)
	} else if w != nil {
		w.WriteThrough(path, content)
	}
	m.emit(EventUpdated, snap)
	return nil
}

// markClean clears the dirty flag of t if it is still open.
func (m *Manager) markClean(t *tab) {
	m.mu.Lock()
	if _, cur := m.find(t.path); cur != t || !t.dirty {
		m.mu.Unlock()
		return
	}
	t.dirty = false
	snap := m.snapshot(t)
	m.mu.Unlock()
	m.emit(EventClean, snap)
}

// MarkTabClean clears the dirty flag of the tab for path without touching
// its content.
func (m *Manager) MarkTabClean(path string) error {
	path = filetree.Clean(path)
	m.mu.Lock()
	_, t := m.find(path)
	m.mu.Unlock()
	if t == nil {
		return &NotFoundError{Path: path}
	}
	m.markClean(t)
	return nil
}

// CloseTab removes the tab for path and cancels its pending clean timer.
// When the active tab is closed, the last remaining tab becomes active.
func (m *Manager) CloseTab(path string) error {
	path = filetree.Clean(path)
	m.mu.Lock()
	i, t := m.find(path)
	if t == nil {
		m.mu.Unlock()
		return &NotFoundError{Path: path}
	}
	m.clean.Cancel(path)
	snap := m.snapshot(t)
	m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
	if m.active == path {
		m.active = ""
		if n := len(m.tabs); n > 0 {
			m.active = m.tabs[n-1].path
		}
	}
	m.mu.Unlock()

	m.emit(EventClosed, snap)
	return nil
}

// CloseActive closes the active tab. It reports whether a tab was closed.
func (m *Manager) CloseActive() bool {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active == "" {
		return false
	}
	return m.CloseTab(active) == nil
}

// SetActive focuses the tab for path.
func (m *Manager) SetActive(path string) error {
	path = filetree.Clean(path)
	m.mu.Lock()
	_, t := m.find(path)
	if t == nil {
		m.mu.Unlock()
		return &NotFoundError{Path: path}
	}
	m.active = path
	snap := m.snapshot(t)
	m.mu.Unlock()

	m.emit(EventActivated, snap)
	return nil
}

// Active returns the active tab path, or "" when no tab is open.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Tabs returns snapshots of every open tab in open order.
func (m *Manager) Tabs() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = m.snapshot(t)
	}
	return out
}

// Tab returns the tab for path.
func (m *Manager) Tab(path string) (Tab, bool) {
	path = filetree.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, t := m.find(path)
	if t == nil {
		return Tab{}, false
	}
	return m.snapshot(t), true
}

// HasDirty reports whether any open tab is dirty.
func (m *Manager) HasDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tabs {
		if t.dirty {
			return true
		}
	}
	return false
}

// MarkAllSaved clears every dirty flag after a durable save and cancels the
// pending clean timers. It returns the number of tabs that were dirty.
func (m *Manager) MarkAllSaved() int {
	m.mu.Lock()
	var saved []Tab
	for _, t := range m.tabs {
		if t.dirty {
			m.clean.Cancel(t.path)
			t.dirty = false
			saved = append(saved, m.snapshot(t))
		}
	}
	m.mu.Unlock()

	for _, s := range saved {
		m.emit(EventSaved, s)
	}
	return len(saved)
}

// TreeChanged keeps tab paths in step with renames in the tree. Tabs of
// deleted files stay open. It never calls back into the tree.
func (m *Manager) TreeChanged(mut filetree.Mutation) {
	if mut.Op != filetree.OpRename {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tabs {
		var newPath string
		switch {
		case t.path == mut.OldPath:
			newPath = mut.Path
		case filetree.IsAncestor(mut.OldPath, t.path):
			newPath = mut.Path + t.path[len(mut.OldPath):]
		default:
			continue
		}
		m.clean.Rekey(t.path, newPath)
		if m.active == t.path {
			m.active = newPath
		}
		t.path = newPath
		_, t.name = filetree.Split(newPath)
	}
}
