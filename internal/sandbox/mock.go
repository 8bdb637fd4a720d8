// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MockRuntime is a mock implementation of Runtime for testing.
type MockRuntime struct {
	mu sync.Mutex

	// BootError is returned from Boot when set.
	BootError error

	// Sandboxes lists every sandbox booted so far.
	Sandboxes []*MockSandbox

	// Configure, when set, is applied to each new sandbox before it is
	// returned from Boot.
	Configure func(*MockSandbox)
}

// NewMockRuntime creates a new mock runtime.
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{}
}

// Name returns the runtime identifier.
func (r *MockRuntime) Name() string { return "mock" }

// Boot returns a new MockSandbox.
func (r *MockRuntime) Boot(ctx context.Context) (Sandbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BootError != nil {
		return nil, r.BootError
	}
	s := NewMockSandbox(fmt.Sprintf("mock-%d", len(r.Sandboxes)+1))
	if r.Configure != nil {
		r.Configure(s)
	}
	r.Sandboxes = append(r.Sandboxes, s)
	return s, nil
}

// Last returns the most recently booted sandbox, or nil.
func (r *MockRuntime) Last() *MockSandbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sandboxes) == 0 {
		return nil
	}
	return r.Sandboxes[len(r.Sandboxes)-1]
}

// BootCount returns the number of successful boots.
func (r *MockRuntime) BootCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Sandboxes)
}

// MockCall represents a recorded method call.
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockScript describes how a spawned mock process behaves.
type MockScript struct {
	Output   string
	ExitCode int
	// Block keeps the process running until it is killed or Exit is called.
	Block bool
}

// MockSandbox is an in-memory sandbox that enforces parent-before-child
// ordering like a real filesystem.
type MockSandbox struct {
	mu sync.Mutex

	id    string
	Files map[string]string
	Dirs  map[string]bool

	// MountSupported makes Mount succeed instead of returning
	// ErrMountUnsupported.
	MountSupported bool

	// Errors allows injecting errors for specific operations.
	Errors map[string]error

	// Scripts maps a command line ("npm install") to process behaviour.
	Scripts map[string]MockScript

	// CallLog records all method calls for verification.
	CallLog []MockCall

	Processes []*MockProcess
	handlers  []ReadyHandler
	closed    bool
}

// NewMockSandbox creates an empty mock sandbox.
func NewMockSandbox(id string) *MockSandbox {
	return &MockSandbox{
		id:             id,
		Files:          make(map[string]string),
		Dirs:           map[string]bool{"": true},
		MountSupported: true,
		Errors:         make(map[string]error),
		Scripts:        make(map[string]MockScript),
	}
}

func (s *MockSandbox) record(method string, args ...interface{}) {
	s.CallLog = append(s.CallLog, MockCall{Method: method, Args: args})
}

func (s *MockSandbox) parentExists(p string) bool {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return true
	}
	return s.Dirs[p[:i]]
}

// SetError sets an error to be returned for a specific operation.
func (s *MockSandbox) SetError(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors[operation] = err
}

// SetScript sets the behaviour of processes spawned with the given command line.
func (s *MockSandbox) SetScript(line string, script MockScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scripts[line] = script
}

// GetCalls returns all recorded calls.
func (s *MockSandbox) GetCalls() []MockCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]MockCall, len(s.CallLog))
	copy(calls, s.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method.
func (s *MockSandbox) GetCallsFor(method string) []MockCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var calls []MockCall
	for _, c := range s.CallLog {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// File returns the content of a file and whether it exists.
func (s *MockSandbox) File(p string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Files[p]
	return c, ok
}

// HasDir reports whether a directory exists.
func (s *MockSandbox) HasDir(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Dirs[p]
}

// Paths returns every file and directory path, sorted.
func (s *MockSandbox) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for d := range s.Dirs {
		if d != "" {
			out = append(out, d)
		}
	}
	for f := range s.Files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ID returns the sandbox identifier.
func (s *MockSandbox) ID() string { return s.id }

// Mount loads the manifest when MountSupported is set.
func (s *MockSandbox) Mount(ctx context.Context, m Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Mount", m)

	if err, ok := s.Errors["Mount"]; ok {
		return err
	}
	if !s.MountSupported {
		return ErrMountUnsupported
	}
	for p, e := range m {
		if e.IsDir() {
			s.Dirs[p] = true
		} else {
			s.Files[p] = e.File.Contents
		}
	}
	return nil
}

// Mkdir creates a directory.
func (s *MockSandbox) Mkdir(ctx context.Context, p string, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Mkdir", p, recursive)

	if err, ok := s.Errors["Mkdir"]; ok {
		return err
	}
	if recursive {
		parts := strings.Split(p, "/")
		for i := range parts {
			s.Dirs[strings.Join(parts[:i+1], "/")] = true
		}
		return nil
	}
	if !s.parentExists(p) {
		return &PathNotFoundError{Path: p}
	}
	s.Dirs[p] = true
	return nil
}

// WriteFile writes a file whose parent must exist.
func (s *MockSandbox) WriteFile(ctx context.Context, p, contents string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("WriteFile", p, contents)

	if err, ok := s.Errors["WriteFile"]; ok {
		return err
	}
	if !s.parentExists(p) {
		return &PathNotFoundError{Path: p}
	}
	s.Files[p] = contents
	return nil
}

// Remove deletes a path and its descendants.
func (s *MockSandbox) Remove(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Remove", p)

	if err, ok := s.Errors["Remove"]; ok {
		return err
	}
	for d := range s.Dirs {
		if d == p || strings.HasPrefix(d, p+"/") {
			delete(s.Dirs, d)
		}
	}
	for f := range s.Files {
		if f == p || strings.HasPrefix(f, p+"/") {
			delete(s.Files, f)
		}
	}
	return nil
}

// Rename moves a path and its descendants.
func (s *MockSandbox) Rename(ctx context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Rename", oldPath, newPath)

	if err, ok := s.Errors["Rename"]; ok {
		return err
	}
	_, isFile := s.Files[oldPath]
	if !isFile && !s.Dirs[oldPath] {
		return &PathNotFoundError{Path: oldPath}
	}
	if !s.parentExists(newPath) {
		return &PathNotFoundError{Path: newPath}
	}
	move := func(p string) (string, bool) {
		if p == oldPath {
			return newPath, true
		}
		if strings.HasPrefix(p, oldPath+"/") {
			return newPath + p[len(oldPath):], true
		}
		return "", false
	}
	dirs := make(map[string]bool, len(s.Dirs))
	for d := range s.Dirs {
		if np, ok := move(d); ok {
			dirs[np] = true
		} else {
			dirs[d] = true
		}
	}
	files := make(map[string]string, len(s.Files))
	for f, c := range s.Files {
		if np, ok := move(f); ok {
			files[np] = c
		} else {
			files[f] = c
		}
	}
	s.Dirs, s.Files = dirs, files
	return nil
}

// Spawn starts a scripted process.
func (s *MockSandbox) Spawn(ctx context.Context, command string, args ...string) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := strings.Join(append([]string{command}, args...), " ")
	s.record("Spawn", line)

	if err, ok := s.Errors["Spawn"]; ok {
		return nil, err
	}
	if s.closed {
		return nil, ErrClosed
	}
	p := newMockProcess(len(s.Processes)+1, line, s.Scripts[line])
	s.Processes = append(s.Processes, p)
	return p, nil
}

// Serve spawns a scripted process. Readiness is driven by FireServerReady.
func (s *MockSandbox) Serve(ctx context.Context, command string, args ...string) (Process, error) {
	return s.Spawn(ctx, command, args...)
}

// SpawnCount returns how many processes were spawned for line.
func (s *MockSandbox) SpawnCount(line string) int {
	n := 0
	for _, c := range s.GetCallsFor("Spawn") {
		if c.Args[0] == line {
			n++
		}
	}
	return n
}

// Process returns the most recent process spawned for line, or nil.
func (s *MockSandbox) Process(line string) *MockProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Processes) - 1; i >= 0; i-- {
		if s.Processes[i].Line == line {
			return s.Processes[i]
		}
	}
	return nil
}

// OnServerReady registers h.
func (s *MockSandbox) OnServerReady(h ReadyHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// FireServerReady invokes every registered ready handler.
func (s *MockSandbox) FireServerReady(port int, url string) {
	s.mu.Lock()
	handlers := append([]ReadyHandler(nil), s.handlers...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(port, url)
	}
}

// Close marks the sandbox closed and kills running processes.
func (s *MockSandbox) Close() error {
	s.mu.Lock()
	s.record("Close")
	s.closed = true
	procs := append([]*MockProcess(nil), s.Processes...)
	s.mu.Unlock()
	for _, p := range procs {
		p.Kill()
	}
	return nil
}

// Closed reports whether Close was called.
func (s *MockSandbox) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockProcess is a scripted process.
type MockProcess struct {
	Line string
	pid  int
	out  io.Reader
	done chan struct{}
	once sync.Once
	code int
}

func newMockProcess(pid int, line string, script MockScript) *MockProcess {
	p := &MockProcess{
		Line: line,
		pid:  pid,
		out:  strings.NewReader(script.Output),
		done: make(chan struct{}),
	}
	if !script.Block {
		p.Exit(script.ExitCode)
	}
	return p
}

// Exit ends the process with code. Later calls are ignored.
func (p *MockProcess) Exit(code int) {
	p.once.Do(func() {
		p.code = code
		close(p.done)
	})
}

// Exited reports whether the process has ended.
func (p *MockProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *MockProcess) Output() io.Reader { return p.out }

func (p *MockProcess) Wait() (int, error) {
	<-p.done
	return p.code, nil
}

func (p *MockProcess) Kill() error {
	p.Exit(-1)
	return nil
}

func (p *MockProcess) Pid() int { return p.pid }
