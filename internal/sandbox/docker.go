// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"
)

const defaultWorkdir = "/workspace"

// DockerRuntime boots sandboxes as containers using docker or podman.
// Containers have no bulk mount primitive, so files are created one by one.
type DockerRuntime struct {
	// Command is the container CLI, "docker" or "podman".
	Command string
	Image   string
	Workdir string
	// ReadyPort is published to the host and probed for readiness.
	ReadyPort     int
	ProbeInterval time.Duration
	Env           []string
}

// NewDockerRuntime detects an available container CLI.
func NewDockerRuntime(image string) (*DockerRuntime, error) {
	for _, c := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(c); err == nil {
			return &DockerRuntime{Command: c, Image: image, Workdir: defaultWorkdir}, nil
		}
	}
	return nil, fmt.Errorf("neither podman nor docker found in PATH")
}

// Name returns the runtime identifier.
func (r *DockerRuntime) Name() string { return r.Command }

func (r *DockerRuntime) workdir() string {
	if r.Workdir == "" {
		return defaultWorkdir
	}
	return r.Workdir
}

// Boot starts a long-lived container for the session.
func (r *DockerRuntime) Boot(ctx context.Context) (Sandbox, error) {
	id := uuid.New().String()
	name := "arbor-" + id[:12]
	args := []string{"run", "-d", "--rm", "--name", name, "-w", r.workdir()}
	if r.ReadyPort > 0 {
		port := strconv.Itoa(r.ReadyPort)
		args = append(args, "-p", "127.0.0.1:"+port+":"+port, "-e", "PORT="+port)
	}
	for _, e := range r.Env {
		args = append(args, "-e", e)
	}
	args = append(args, r.Image, "sleep", "infinity")

	s := &DockerSandbox{
		id:      id,
		command: r.Command,
		name:    name,
		workdir: r.workdir(),
		ready:   newReadyNotifier("127.0.0.1", r.ReadyPort, r.ProbeInterval),
	}
	if _, err := s.run(ctx, nil, args...); err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx, nil, "mkdir", "-p", s.workdir); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// DockerSandbox is a sandbox backed by a running container.
type DockerSandbox struct {
	id      string
	command string
	name    string
	workdir string
	ready   *readyNotifier

	mu     sync.Mutex
	closed bool
}

// ID returns the sandbox identifier.
func (s *DockerSandbox) ID() string { return s.id }

func (s *DockerSandbox) run(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, s.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s failed: %s: %w", s.command, args[0], strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

func (s *DockerSandbox) exec(ctx context.Context, stdin io.Reader, argv ...string) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	args := []string{"exec"}
	if stdin != nil {
		args = append(args, "-i")
	}
	args = append(args, "-w", s.workdir, s.name)
	return s.run(ctx, stdin, append(args, argv...)...)
}

// sh runs a shell script in the container. Paths are passed as positional
// arguments so no quoting of user input is needed inside script.
func (s *DockerSandbox) sh(ctx context.Context, stdin io.Reader, script string, args ...string) (string, error) {
	argv := append([]string{"sh", "-c", script, "sh"}, args...)
	return s.exec(ctx, stdin, argv...)
}

func (s *DockerSandbox) target(p string) string {
	return path.Join(s.workdir, path.Clean("/"+p))
}

// Mount is not supported by containers.
func (s *DockerSandbox) Mount(ctx context.Context, m Manifest) error {
	return ErrMountUnsupported
}

// Mkdir creates a directory in the container.
func (s *DockerSandbox) Mkdir(ctx context.Context, p string, recursive bool) error {
	if recursive {
		_, err := s.exec(ctx, nil, "mkdir", "-p", s.target(p))
		return err
	}
	_, err := s.sh(ctx, nil, `[ -d "$(dirname "$1")" ] || exit 3; mkdir "$1" 2>/dev/null || [ -d "$1" ]`, s.target(p))
	return s.mapMissing(p, err)
}

// WriteFile writes contents to a file whose parent must already exist.
func (s *DockerSandbox) WriteFile(ctx context.Context, p, contents string) error {
	_, err := s.sh(ctx, strings.NewReader(contents), `[ -d "$(dirname "$1")" ] || exit 3; cat > "$1"`, s.target(p))
	return s.mapMissing(p, err)
}

// Remove deletes a path recursively.
func (s *DockerSandbox) Remove(ctx context.Context, p string) error {
	t := s.target(p)
	if t == s.workdir {
		return fmt.Errorf("refusing to remove sandbox root")
	}
	_, err := s.exec(ctx, nil, "rm", "-rf", t)
	return err
}

// Rename moves a path inside the container.
func (s *DockerSandbox) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := s.sh(ctx, nil, `[ -e "$1" ] && [ -d "$(dirname "$2")" ] || exit 3; mv "$1" "$2"`, s.target(oldPath), s.target(newPath))
	return s.mapMissing(newPath, err)
}

func (s *DockerSandbox) mapMissing(p string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 3 {
		return &PathNotFoundError{Path: p}
	}
	return err
}

// Spawn runs command in the container working directory.
func (s *DockerSandbox) Spawn(ctx context.Context, command string, args ...string) (Process, error) {
	p, err := s.spawn(ctx, command, args)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Serve runs command like Spawn and probes the published ready port while it
// runs.
func (s *DockerSandbox) Serve(ctx context.Context, command string, args ...string) (Process, error) {
	busy := s.ready.occupied()
	p, err := s.spawn(ctx, command, args)
	if err != nil {
		return nil, err
	}
	go s.ready.watch(p.done, busy)
	return p, nil
}

func (s *DockerSandbox) spawn(ctx context.Context, command string, args []string) (*dockerProcess, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	line := shellquote.Join(append([]string{command}, args...)...)
	cmd := exec.CommandContext(ctx, s.command, "exec", "-w", s.workdir, s.name, "sh", "-c", line)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("spawning %s: %w", command, err)
	}
	p := &dockerProcess{cmd: cmd, out: pr, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			p.code = exitErr.ExitCode()
		default:
			p.code, p.err = -1, err
		}
		pw.Close()
		close(p.done)
	}()
	return p, nil
}

// OnServerReady registers h for server-ready events.
func (s *DockerSandbox) OnServerReady(h ReadyHandler) {
	s.ready.add(h)
}

// Close removes the container.
func (s *DockerSandbox) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.ready.close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := s.run(ctx, nil, "rm", "-f", s.name)
	return err
}

type dockerProcess struct {
	cmd  *exec.Cmd
	out  io.Reader
	done chan struct{}
	code int
	err  error
}

func (p *dockerProcess) Output() io.Reader { return p.out }

func (p *dockerProcess) Wait() (int, error) {
	<-p.done
	return p.code, p.err
}

func (p *dockerProcess) Pid() int { return p.cmd.Process.Pid }

// Kill terminates the exec session. Processes it started inside the
// container are removed with the container on Close.
func (p *dockerProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	<-p.done
	return nil
}
