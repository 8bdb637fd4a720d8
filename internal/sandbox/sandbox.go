// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sandbox defines the runtime that project files are mirrored into
// and processes are run in, along with its backends.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMountUnsupported is returned by backends without a bulk mount primitive.
	ErrMountUnsupported = errors.New("bulk mount not supported")

	// ErrClosed is returned for operations on a closed sandbox.
	ErrClosed = errors.New("sandbox closed")
)

// PathNotFoundError is returned when a filesystem call targets a path whose
// parent directory does not exist in the sandbox.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("sandbox path not found: %q", e.Path)
}

// ReadyHandler is called when the sandbox detects a server accepting
// connections. The url may carry terminal escape sequences.
type ReadyHandler func(port int, url string)

// Process is a process spawned inside a sandbox.
type Process interface {
	// Output is the combined stdout and stderr stream. It returns io.EOF
	// once the process has exited and all output has been read.
	Output() io.Reader
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	// Kill terminates the process and its children.
	Kill() error
	Pid() int
}

// Sandbox is a single isolated runtime instance. Paths are relative to the
// sandbox root, "/"-separated, with no leading slash.
type Sandbox interface {
	ID() string
	// Mount materializes a whole manifest in one call.
	Mount(ctx context.Context, m Manifest) error
	Mkdir(ctx context.Context, path string, recursive bool) error
	WriteFile(ctx context.Context, path, contents string) error
	Remove(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Spawn(ctx context.Context, command string, args ...string) (Process, error)
	// Serve spawns a long-running server. While it runs the sandbox probes
	// its ready port and fires the server-ready handlers once it opens.
	Serve(ctx context.Context, command string, args ...string) (Process, error)
	// OnServerReady registers h for server-ready events.
	OnServerReady(h ReadyHandler)
	Close() error
}

// Runtime boots sandboxes.
type Runtime interface {
	Name() string
	Boot(ctx context.Context) (Sandbox, error)
}
