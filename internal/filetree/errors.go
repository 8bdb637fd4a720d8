// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filetree

import (
	"errors"
	"fmt"
)

// SkipDir is returned from a Walk callback to skip a directory's children.
var SkipDir = errors.New("skip this directory")

// NotFoundError is returned when a path does not resolve to an entry.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path not found: %q", e.Path)
}

// ConflictError is returned when a sibling with the same name already exists.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entry already exists: %q", e.Path)
}

// InvalidNameError is returned for names that cannot be used as a path segment.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

// InvalidPathError is returned for structurally impossible operations, such
// as moving a directory beneath itself.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
