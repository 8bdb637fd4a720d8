// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sync/errgroup"
)

const (
	mountConcurrency = 8
	killGracePeriod  = 3 * time.Second
)

// LocalRuntime boots sandboxes as directories on the host. Processes run
// under a pseudo-terminal with the sandbox directory as working directory.
type LocalRuntime struct {
	// BaseDir holds sandbox directories; os.TempDir() when empty.
	BaseDir string
	// ReadyPort is probed for server-ready detection; 0 disables probing.
	ReadyPort     int
	ProbeInterval time.Duration
	// Env is appended to the host environment of spawned processes.
	Env []string
	// Keep leaves the sandbox directory in place on Close.
	Keep bool
}

// Name returns the runtime identifier.
func (r *LocalRuntime) Name() string { return "local" }

// Boot creates a fresh sandbox directory.
func (r *LocalRuntime) Boot(ctx context.Context) (Sandbox, error) {
	base := r.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("creating sandbox base dir: %w", err)
	}
	id := uuid.New().String()
	root, err := os.MkdirTemp(base, "arbor-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("creating sandbox dir: %w", err)
	}
	env := append(os.Environ(), r.Env...)
	if r.ReadyPort > 0 {
		env = append(env, "PORT="+strconv.Itoa(r.ReadyPort))
	}
	return &LocalSandbox{
		id:    id,
		root:  root,
		env:   env,
		keep:  r.Keep,
		ready: newReadyNotifier("127.0.0.1", r.ReadyPort, r.ProbeInterval),
		procs: make(map[int]*localProcess),
	}, nil
}

// LocalSandbox is a sandbox rooted in a host directory.
type LocalSandbox struct {
	id    string
	root  string
	env   []string
	keep  bool
	ready *readyNotifier

	mu     sync.Mutex
	procs  map[int]*localProcess
	closed bool
}

// ID returns the sandbox identifier.
func (s *LocalSandbox) ID() string { return s.id }

// Root returns the host directory backing the sandbox.
func (s *LocalSandbox) Root() string { return s.root }

func (s *LocalSandbox) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// resolve maps a sandbox path to a host path confined to the root.
func (s *LocalSandbox) resolve(path string) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	p, err := securejoin.SecureJoin(s.root, filepath.FromSlash(path))
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", path, err)
	}
	return p, nil
}

func (s *LocalSandbox) checkParent(path, hostPath string) error {
	info, err := os.Stat(filepath.Dir(hostPath))
	if err != nil || !info.IsDir() {
		return &PathNotFoundError{Path: path}
	}
	return nil
}

// Mount creates every manifest directory, then writes the files concurrently.
func (s *LocalSandbox) Mount(ctx context.Context, m Manifest) error {
	paths := m.SortedPaths()
	for _, p := range paths {
		if m[p].IsDir() {
			if err := s.Mkdir(ctx, p, true); err != nil {
				return err
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(mountConcurrency)
	for _, p := range paths {
		e := m[p]
		if e.IsDir() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hostPath, err := s.resolve(p)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(hostPath), 0755); err != nil {
				return err
			}
			return os.WriteFile(hostPath, []byte(e.File.Contents), 0644)
		})
	}
	return g.Wait()
}

// Mkdir creates a directory. Without recursive, the parent must exist.
func (s *LocalSandbox) Mkdir(ctx context.Context, path string, recursive bool) error {
	hostPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if recursive {
		return os.MkdirAll(hostPath, 0755)
	}
	if err := s.checkParent(path, hostPath); err != nil {
		return err
	}
	if err := os.Mkdir(hostPath, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

// WriteFile writes contents to path. The parent directory must exist.
func (s *LocalSandbox) WriteFile(ctx context.Context, path, contents string) error {
	hostPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := s.checkParent(path, hostPath); err != nil {
		return err
	}
	return os.WriteFile(hostPath, []byte(contents), 0644)
}

// Remove deletes path and everything below it.
func (s *LocalSandbox) Remove(ctx context.Context, path string) error {
	hostPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if hostPath == s.root {
		return fmt.Errorf("refusing to remove sandbox root")
	}
	return os.RemoveAll(hostPath)
}

// Rename moves oldPath to newPath.
func (s *LocalSandbox) Rename(ctx context.Context, oldPath, newPath string) error {
	src, err := s.resolve(oldPath)
	if err != nil {
		return err
	}
	dst, err := s.resolve(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return &PathNotFoundError{Path: oldPath}
	}
	if err := s.checkParent(newPath, dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// Spawn starts command under a pseudo-terminal in the sandbox root.
func (s *LocalSandbox) Spawn(ctx context.Context, command string, args ...string) (Process, error) {
	p, err := s.spawn(ctx, command, args)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Serve starts command like Spawn and probes the ready port while it runs.
func (s *LocalSandbox) Serve(ctx context.Context, command string, args ...string) (Process, error) {
	busy := s.ready.occupied()
	p, err := s.spawn(ctx, command, args)
	if err != nil {
		return nil, err
	}
	go s.ready.watch(p.done, busy)
	return p, nil
}

func (s *LocalSandbox) spawn(ctx context.Context, command string, args []string) (*localProcess, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = s.root
	cmd.Env = s.env

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("spawning %s: %w", command, err)
	}
	p := &localProcess{
		cmd:  cmd,
		pty:  f,
		done: make(chan struct{}),
	}
	go p.wait()

	s.mu.Lock()
	s.procs[cmd.Process.Pid] = p
	s.mu.Unlock()
	go func() {
		<-p.done
		s.mu.Lock()
		delete(s.procs, cmd.Process.Pid)
		s.mu.Unlock()
	}()

	return p, nil
}

// OnServerReady registers h for server-ready events.
func (s *LocalSandbox) OnServerReady(h ReadyHandler) {
	s.ready.add(h)
}

// Close kills remaining processes and removes the sandbox directory.
func (s *LocalSandbox) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	procs := make([]*localProcess, 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	s.ready.close()
	for _, p := range procs {
		if err := p.Kill(); err != nil {
			log.Printf("Sandbox: killing pid %d: %v", p.Pid(), err)
		}
	}
	if s.keep {
		return nil
	}
	return os.RemoveAll(s.root)
}

type localProcess struct {
	cmd  *exec.Cmd
	pty  *os.File
	done chan struct{}
	code int
	err  error
}

func (p *localProcess) wait() {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		p.code = 0
	case errors.As(err, &exitErr):
		p.code = exitErr.ExitCode()
	default:
		p.code = -1
		p.err = err
	}
	close(p.done)
}

func (p *localProcess) Output() io.Reader { return ptyReader{p.pty} }

func (p *localProcess) Wait() (int, error) {
	<-p.done
	return p.code, p.err
}

func (p *localProcess) Pid() int { return p.cmd.Process.Pid }

// Kill sends SIGTERM to the process group and every descendant, escalating
// to SIGKILL after a grace period.
func (p *localProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	pid := p.Pid()
	targets := descendants(pid)
	syscall.Kill(-pid, syscall.SIGTERM)
	for _, c := range targets {
		syscall.Kill(c, syscall.SIGTERM)
	}

	select {
	case <-p.done:
	case <-time.After(killGracePeriod):
		syscall.Kill(-pid, syscall.SIGKILL)
		for _, c := range targets {
			syscall.Kill(c, syscall.SIGKILL)
		}
		<-p.done
	}
	return nil
}

// descendants returns the pids of every process below pid. Dev servers
// often start their own process groups, so signalling the group is not
// enough.
func descendants(pid int) []int {
	procs, err := ps.Processes()
	if err != nil {
		return nil
	}
	children := make(map[int][]int)
	for _, pr := range procs {
		children[pr.PPid()] = append(children[pr.PPid()], pr.Pid())
	}
	var out []int
	queue := []int{pid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// ptyReader maps the EIO a pty master returns after the child exits to EOF.
type ptyReader struct {
	f *os.File
}

func (r ptyReader) Read(b []byte) (int, error) {
	n, err := r.f.Read(b)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && errors.Is(pathErr.Err, syscall.EIO) {
			err = io.EOF
		}
		if err == io.EOF || errors.Is(err, fs.ErrClosed) {
			r.f.Close()
			return n, io.EOF
		}
	}
	return n, err
}
