// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher reports filesystem changes made inside a local sandbox
// directory, such as lockfiles and build output written by the dev server.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wingedpig/arbor/internal/debounce"
	"github.com/wingedpig/arbor/internal/events"
)

// DefaultDebounce coalesces bursts of events for one path.
const DefaultDebounce = 100 * time.Millisecond

var defaultIgnore = []string{"node_modules", ".git"}

// Change is a debounced filesystem change. Path is relative to the root and
// slash-separated.
type Change struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

// Config configures a Watcher.
type Config struct {
	Debounce time.Duration
	// Ignore lists directory names that are never descended into.
	Ignore []string
}

// Watcher recursively watches a directory tree.
type Watcher struct {
	root   string
	bus    events.Publisher
	ignore map[string]bool

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	dirs     map[string]bool
	last     map[string]fsnotify.Op
	debounce *debounce.Debouncer
	onChange []func(Change)
	closed   bool
	closeCh  chan struct{}
	wg       sync.WaitGroup
}

// New starts watching root. bus may be nil.
func New(root string, bus events.Publisher, cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Ignore == nil {
		cfg.Ignore = defaultIgnore
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		bus:      bus,
		ignore:   make(map[string]bool),
		fsw:      fsw,
		dirs:     make(map[string]bool),
		last:     make(map[string]fsnotify.Op),
		debounce: debounce.New(cfg.Debounce),
		closeCh:  make(chan struct{}),
	}
	for _, name := range cfg.Ignore {
		w.ignore[name] = true
	}
	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

// OnChange registers fn to receive every debounced change.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Watching returns the watched directories relative to the root.
func (w *Watcher) Watching() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, w.rel(d))
	}
	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debounce.Stop()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) rel(abs string) string {
	r, err := filepath.Rel(w.root, abs)
	if err != nil || r == "." {
		return ""
	}
	return filepath.ToSlash(r)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignore[d.Name()] {
			return filepath.SkipDir
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.dirs[path] {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.dirs[path] = true
		return nil
	})
}

func (w *Watcher) dropTree(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			_ = w.fsw.Remove(d)
			delete(w.dirs, d)
		}
	}
}

func (w *Watcher) ignored(path string) bool {
	for _, seg := range strings.Split(w.rel(path), "/") {
		if w.ignore[seg] {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod fires on every exec of a binary and carries no content change.
	if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				log.Printf("Watcher: %v", err)
			}
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.dropTree(event.Name)
	}

	rel := w.rel(event.Name)
	if rel == "" {
		return
	}
	w.mu.Lock()
	w.last[rel] |= event.Op
	w.mu.Unlock()
	w.debounce.Schedule(rel, func() { w.emit(rel) })
}

func (w *Watcher) emit(rel string) {
	w.mu.Lock()
	op := w.last[rel]
	delete(w.last, rel)
	hooks := append([]func(Change){}, w.onChange...)
	w.mu.Unlock()

	c := Change{Path: rel, Op: opName(op)}
	for _, fn := range hooks {
		fn(c)
	}
	if w.bus != nil {
		_ = w.bus.Publish(context.Background(), events.Event{
			Type: events.FSChanged,
			Payload: map[string]interface{}{
				"path": c.Path,
				"op":   c.Op,
			},
		})
	}
}

// opName collapses the ops seen during a debounce window into one verb.
func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return "remove"
	case op.Has(fsnotify.Create):
		return "create"
	default:
		return "write"
	}
}
