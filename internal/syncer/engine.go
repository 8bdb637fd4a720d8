// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package syncer mirrors the project tree into a sandbox.
package syncer

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/wingedpig/arbor/internal/filetree"
	"github.com/wingedpig/arbor/internal/sandbox"
)

const opTimeout = 30 * time.Second

// Source provides tree snapshots for bootstrap.
type Source interface {
	Snapshot() *filetree.Dir
}

// Reporter receives the outcome of every sandbox call.
type Reporter interface {
	SyncOp(op string, d time.Duration, err error)
	SyncSkipped(op string)
}

// BootstrapMode records how the last bootstrap materialized the tree.
type BootstrapMode string

const (
	ModeMount      BootstrapMode = "mount"
	ModeSequential BootstrapMode = "sequential"
)

// Stats summarizes engine activity.
type Stats struct {
	Attached      bool          `json:"attached"`
	Pending       int           `json:"pending"`
	Writes        int64         `json:"writes"`
	Skipped       int64         `json:"skipped"`
	Errors        int64         `json:"errors"`
	LastError     string        `json:"last_error,omitempty"`
	LastBootstrap BootstrapMode `json:"last_bootstrap,omitempty"`
}

type opKind int

const (
	opBootstrap opKind = iota
	opWrite
	opMkdir
	opRename
	opRemove
	opFlush
)

type op struct {
	kind    opKind
	path    string
	oldPath string
	content string
	done    chan error
}

// Engine applies tree changes to the attached sandbox from a single worker
// goroutine, in the order they were submitted.
type Engine struct {
	src      Source
	reporter Reporter

	mu      sync.Mutex
	sb      sandbox.Sandbox
	queue   []op
	digests map[string]uint64
	stats   Stats
	closed  bool

	wake    chan struct{}
	stopped chan struct{}
}

// New creates an engine reading snapshots from src and starts its worker.
func New(src Source) *Engine {
	e := &Engine{
		src:     src,
		digests: make(map[string]uint64),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

// SetReporter sets the reporter for sandbox call outcomes.
func (e *Engine) SetReporter(r Reporter) {
	e.mu.Lock()
	e.reporter = r
	e.mu.Unlock()
}

// Attach directs future operations at sb.
func (e *Engine) Attach(sb sandbox.Sandbox) {
	e.mu.Lock()
	e.sb = sb
	e.digests = make(map[string]uint64)
	e.stats.Attached = sb != nil
	e.mu.Unlock()
}

// Detach stops propagation. Operations queued afterwards are dropped until
// the next Attach.
func (e *Engine) Detach() {
	e.Attach(nil)
}

func (e *Engine) enqueue(o op) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, o)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// submit enqueues o and waits for its result.
func (e *Engine) submit(ctx context.Context, o op) error {
	o.done = make(chan error, 1)
	if !e.enqueue(o) {
		return errors.New("sync engine closed")
	}
	select {
	case err := <-o.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bootstrap materializes the current tree in the attached sandbox. The
// snapshot is taken once every previously queued operation has run. Bulk
// mount is tried first; when it is unsupported or fails, directories and
// files are created one at a time in pre-order.
func (e *Engine) Bootstrap(ctx context.Context) error {
	return e.submit(ctx, op{kind: opBootstrap})
}

// WriteThrough queues a content write for path. Failures are logged and
// never returned.
func (e *Engine) WriteThrough(path, content string) {
	e.enqueue(op{kind: opWrite, path: path, content: content})
}

// Flush waits until every operation queued before the call has run.
func (e *Engine) Flush(ctx context.Context) error {
	return e.submit(ctx, op{kind: opFlush})
}

// TreeChanged mirrors structural tree mutations. It only enqueues.
func (e *Engine) TreeChanged(m filetree.Mutation) {
	switch m.Op {
	case filetree.OpCreate:
		if m.Kind == filetree.KindDir {
			e.enqueue(op{kind: opMkdir, path: m.Path})
		} else {
			e.enqueue(op{kind: opWrite, path: m.Path, content: m.Content})
		}
	case filetree.OpWrite:
		e.enqueue(op{kind: opWrite, path: m.Path, content: m.Content})
	case filetree.OpRename:
		e.enqueue(op{kind: opRename, path: m.Path, oldPath: m.OldPath})
	case filetree.OpDelete:
		e.enqueue(op{kind: opRemove, path: m.Path})
	}
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Pending = len(e.queue)
	return s
}

// Close drains the queue and stops the worker.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	<-e.stopped
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			<-e.wake
			continue
		}
		o := e.queue[0]
		e.queue = e.queue[1:]
		sb := e.sb
		e.mu.Unlock()

		err := e.apply(sb, o)
		if o.done != nil {
			o.done <- err
		}
	}
}

func (e *Engine) apply(sb sandbox.Sandbox, o op) error {
	if o.kind == opFlush {
		return nil
	}
	if sb == nil {
		if o.kind == opBootstrap {
			return &SyncError{Op: "bootstrap", Err: errors.New("no sandbox attached")}
		}
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch o.kind {
	case opBootstrap:
		return e.bootstrap(ctx, sb)
	case opWrite:
		e.write(ctx, sb, o.path, o.content)
	case opMkdir:
		e.call("mkdir", o.path, func() error { return sb.Mkdir(ctx, o.path, true) })
	case opRename:
		if e.call("rename", o.path, func() error { return sb.Rename(ctx, o.oldPath, o.path) }) {
			e.moveDigests(o.oldPath, o.path)
		}
	case opRemove:
		if e.call("remove", o.path, func() error { return sb.Remove(ctx, o.path) }) {
			e.dropDigests(o.path)
		}
	}
	return nil
}

// call runs fn, reports and logs its outcome. It returns true on success.
func (e *Engine) call(name, path string, fn func() error) bool {
	start := time.Now()
	err := fn()
	e.mu.Lock()
	r := e.reporter
	if err != nil {
		e.stats.Errors++
		e.stats.LastError = (&SyncError{Op: name, Path: path, Err: err}).Error()
	} else if name == "write" {
		e.stats.Writes++
	}
	e.mu.Unlock()
	if r != nil {
		r.SyncOp(name, time.Since(start), err)
	}
	if err != nil {
		log.Printf("Sync: %v", &SyncError{Op: name, Path: path, Err: err})
		return false
	}
	return true
}

func (e *Engine) write(ctx context.Context, sb sandbox.Sandbox, path, content string) {
	sum := xxh3.HashString(content)
	e.mu.Lock()
	prev, seen := e.digests[path]
	r := e.reporter
	if seen && prev == sum {
		e.stats.Skipped++
		e.mu.Unlock()
		if r != nil {
			r.SyncSkipped("write")
		}
		return
	}
	e.mu.Unlock()

	if e.call("write", path, func() error { return sb.WriteFile(ctx, path, content) }) {
		e.mu.Lock()
		e.digests[path] = sum
		e.mu.Unlock()
	}
}

func (e *Engine) bootstrap(ctx context.Context, sb sandbox.Sandbox) error {
	snap := e.src.Snapshot()
	m := BuildManifest(snap)

	mode := ModeMount
	err := sb.Mount(ctx, m)
	if err != nil {
		if !errors.Is(err, sandbox.ErrMountUnsupported) {
			log.Printf("Sync: bulk mount failed, falling back to sequential: %v", err)
		}
		mode = ModeSequential
		err = e.sequential(ctx, sb, snap)
	}

	e.mu.Lock()
	r := e.reporter
	if err == nil {
		e.stats.LastBootstrap = mode
		e.digests = make(map[string]uint64, len(m))
		for p, entry := range m {
			if !entry.IsDir() {
				e.digests[p] = xxh3.HashString(entry.File.Contents)
			}
		}
	} else {
		e.stats.Errors++
		e.stats.LastError = err.Error()
	}
	e.mu.Unlock()
	if r != nil {
		r.SyncOp("bootstrap", 0, err)
	}
	if err != nil {
		return err
	}
	log.Printf("Sync: bootstrapped %d entries (%s)", len(m), mode)
	return nil
}

// sequential creates each directory before any of its children and writes
// each file after its parent exists.
func (e *Engine) sequential(ctx context.Context, sb sandbox.Sandbox, root *filetree.Dir) error {
	return filetree.Walk(root, func(entry filetree.Entry) error {
		if entry.Path() == "" {
			return nil
		}
		var err error
		switch v := entry.(type) {
		case *filetree.Dir:
			err = sb.Mkdir(ctx, v.Path(), false)
		case *filetree.File:
			content, _ := v.Content()
			err = sb.WriteFile(ctx, v.Path(), content)
		}
		if err != nil {
			return &SyncError{Op: "bootstrap", Path: entry.Path(), Err: err}
		}
		return nil
	})
}

func (e *Engine) moveDigests(oldPath, newPath string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	moved := make(map[string]uint64)
	for p, sum := range e.digests {
		switch {
		case p == oldPath:
			moved[newPath] = sum
		case strings.HasPrefix(p, oldPath+"/"):
			moved[newPath+p[len(oldPath):]] = sum
		default:
			continue
		}
		delete(e.digests, p)
	}
	for p, sum := range moved {
		e.digests[p] = sum
	}
}

func (e *Engine) dropDigests(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for p := range e.digests {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(e.digests, p)
		}
	}
}
