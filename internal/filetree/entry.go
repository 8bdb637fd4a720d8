// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package filetree holds the canonical in-memory project tree.
package filetree

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// ParseKind parses "file" or "directory" ("dir" is accepted too).
func ParseKind(s string) (Kind, error) {
	switch s {
	case "file":
		return KindFile, nil
	case "directory", "dir":
		return KindDir, nil
	default:
		return KindFile, fmt.Errorf("unknown entry kind %q", s)
	}
}

// Entry is a node in the tree. The only implementations are *File and *Dir.
type Entry interface {
	Name() string
	Path() string
	Kind() Kind
	clone() Entry
	setPath(path string)
}

// File is a leaf entry holding text content.
type File struct {
	name    string
	path    string
	content string
	loaded  bool
}

// NewFile returns a file entry with loaded content.
func NewFile(name, content string) *File {
	return &File{name: name, path: name, content: content, loaded: true}
}

func (f *File) Name() string { return f.name }
func (f *File) Path() string { return f.path }
func (f *File) Kind() Kind   { return KindFile }

// Content returns the file content and whether it has been loaded.
func (f *File) Content() (string, bool) {
	return f.content, f.loaded
}

func (f *File) clone() Entry {
	c := *f
	return &c
}

func (f *File) setPath(path string) { f.path = path }

// MarshalJSON renders the file; content is omitted when not loaded.
func (f *File) MarshalJSON() ([]byte, error) {
	var content *string
	if f.loaded {
		c := f.content
		content = &c
	}
	return json.Marshal(struct {
		Name    string  `json:"name"`
		Kind    Kind    `json:"kind"`
		Path    string  `json:"path"`
		Content *string `json:"content,omitempty"`
	}{f.name, KindFile, f.path, content})
}

// Dir is a directory entry with ordered children.
// Children are kept sorted: directories first, then files, each by name.
type Dir struct {
	name     string
	path     string
	children []Entry
}

// NewDir returns an empty directory entry.
func NewDir(name string) *Dir {
	return &Dir{name: name, path: name, children: []Entry{}}
}

func (d *Dir) Name() string { return d.name }
func (d *Dir) Path() string { return d.path }
func (d *Dir) Kind() Kind   { return KindDir }

// Children returns a copy of the child list.
func (d *Dir) Children() []Entry {
	out := make([]Entry, len(d.children))
	copy(out, d.children)
	return out
}

// Len returns the number of direct children.
func (d *Dir) Len() int { return len(d.children) }

// Child returns the direct child with the given name, or nil.
func (d *Dir) Child(name string) Entry {
	if i := d.index(name); i >= 0 {
		return d.children[i]
	}
	return nil
}

func (d *Dir) index(name string) int {
	for i, c := range d.children {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

func (d *Dir) insert(e Entry) {
	d.children = append(d.children, e)
	sort.SliceStable(d.children, func(i, j int) bool {
		a, b := d.children[i], d.children[j]
		if a.Kind() != b.Kind() {
			return a.Kind() == KindDir
		}
		return a.Name() < b.Name()
	})
}

func (d *Dir) remove(name string) Entry {
	i := d.index(name)
	if i < 0 {
		return nil
	}
	e := d.children[i]
	d.children = append(d.children[:i], d.children[i+1:]...)
	return e
}

func (d *Dir) clone() Entry {
	c := &Dir{name: d.name, path: d.path, children: make([]Entry, len(d.children))}
	for i, child := range d.children {
		c.children[i] = child.clone()
	}
	return c
}

// setPath recomputes the path of the directory and every descendant.
func (d *Dir) setPath(path string) {
	d.path = path
	for _, c := range d.children {
		c.setPath(Join(path, c.Name()))
	}
}

// MarshalJSON renders the directory with its children.
func (d *Dir) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string  `json:"name"`
		Kind     Kind    `json:"kind"`
		Path     string  `json:"path"`
		Children []Entry `json:"children"`
	}{d.name, KindDir, d.path, d.children})
}

// Walk visits e and its descendants in pre-order. Returning SkipDir from fn
// for a directory skips its children.
func Walk(e Entry, fn func(Entry) error) error {
	if err := fn(e); err != nil {
		if err == SkipDir {
			return nil
		}
		return err
	}
	if d, ok := e.(*Dir); ok {
		for _, c := range d.children {
			if err := Walk(c, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Equal reports whether two entries have the same paths, kinds and file
// contents throughout their subtrees.
func Equal(a, b Entry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() || a.Path() != b.Path() || a.Name() != b.Name() {
		return false
	}
	switch av := a.(type) {
	case *File:
		bv := b.(*File)
		return av.content == bv.content
	case *Dir:
		bv := b.(*Dir)
		if len(av.children) != len(bv.children) {
			return false
		}
		for i := range av.children {
			if !Equal(av.children[i], bv.children[i]) {
				return false
			}
		}
	}
	return true
}
