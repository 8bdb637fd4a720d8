// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filetree

import "strings"

// Join appends name to parent. The root path is "".
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Split returns the parent path and final name of p.
func Split(p string) (parent, name string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// Clean trims leading and trailing slashes and collapses repeated ones.
// It does not resolve "." or "..".
func Clean(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// IsAncestor reports whether ancestor is a strict prefix directory of p.
func IsAncestor(ancestor, p string) bool {
	if ancestor == "" {
		return p != ""
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// ValidateName checks that name is usable as a single path segment.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &InvalidNameError{Name: name, Reason: "name is empty"}
	case name == "." || name == "..":
		return &InvalidNameError{Name: name, Reason: "reserved name"}
	case strings.Contains(name, "/"):
		return &InvalidNameError{Name: name, Reason: "name contains '/'"}
	case strings.ContainsRune(name, 0):
		return &InvalidNameError{Name: name, Reason: "name contains NUL"}
	}
	return nil
}

func segments(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
