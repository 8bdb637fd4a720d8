// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filetree

import (
	"sync"
)

// Op identifies a tree mutation.
type Op string

const (
	OpCreate Op = "create"
	OpRename Op = "rename"
	OpDelete Op = "delete"
	OpWrite  Op = "write"
)

// Mutation describes a single committed change to the tree.
type Mutation struct {
	Op      Op
	Path    string
	OldPath string // set for OpRename
	Kind    Kind
	Content string // set for OpWrite and file OpCreate
	Version uint64
	// Entry is a detached copy of the affected subtree after the change.
	// It is nil for OpDelete.
	Entry Entry
}

// Observer receives mutations while the tree lock is held. Implementations
// must not call back into the tree and should only enqueue work.
type Observer interface {
	TreeChanged(m Mutation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(m Mutation)

// TreeChanged calls f(m).
func (f ObserverFunc) TreeChanged(m Mutation) { f(m) }

// Tree is the canonical project tree. All methods are safe for concurrent use.
type Tree struct {
	mu        sync.RWMutex
	root      *Dir
	version   uint64
	observers map[int]Observer
	nextObs   int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		root:      &Dir{children: []Entry{}},
		observers: make(map[int]Observer),
	}
}

// Observe registers o for all future mutations. The returned function
// unregisters it.
func (t *Tree) Observe(o Observer) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = o
	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Version returns a counter incremented by every mutation.
func (t *Tree) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// notify must be called with t.mu held for writing.
func (t *Tree) notify(m Mutation) {
	t.version++
	m.Version = t.version
	for _, o := range t.observers {
		o.TreeChanged(m)
	}
}

// lookup resolves p to a live entry. Must hold t.mu.
func (t *Tree) lookup(p string) Entry {
	var cur Entry = t.root
	for _, seg := range segments(p) {
		d, ok := cur.(*Dir)
		if !ok {
			return nil
		}
		cur = d.Child(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (t *Tree) lookupDir(p string) (*Dir, error) {
	e := t.lookup(p)
	if e == nil {
		return nil, &NotFoundError{Path: p}
	}
	d, ok := e.(*Dir)
	if !ok {
		return nil, &NotFoundError{Path: p}
	}
	return d, nil
}

// Find returns a detached copy of the entry at p, or nil. The root is "".
func (t *Tree) Find(p string) Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := t.lookup(Clean(p))
	if e == nil {
		return nil
	}
	return e.clone()
}

// Snapshot returns a deep copy of the whole tree.
func (t *Tree) Snapshot() *Dir {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.clone().(*Dir)
}

// Create adds an empty file or directory named name under parentPath.
func (t *Tree) Create(parentPath, name string, kind Kind) (Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	parentPath = Clean(parentPath)

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, err := t.lookupDir(parentPath)
	if err != nil {
		return nil, err
	}
	p := Join(parentPath, name)
	if parent.Child(name) != nil {
		return nil, &ConflictError{Path: p}
	}

	var e Entry
	if kind == KindDir {
		e = &Dir{name: name, path: p, children: []Entry{}}
	} else {
		e = &File{name: name, path: p, loaded: true}
	}
	parent.insert(e)
	t.notify(Mutation{Op: OpCreate, Path: p, Kind: kind, Entry: e.clone()})
	return e.clone(), nil
}

// MkdirAll creates p and any missing parents. Existing directories are left
// alone; a file anywhere along p is a ConflictError.
func (t *Tree) MkdirAll(p string) error {
	p = Clean(p)
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.root
	for _, seg := range segments(p) {
		if err := ValidateName(seg); err != nil {
			return err
		}
		next := cur.Child(seg)
		switch n := next.(type) {
		case nil:
			d := &Dir{name: seg, path: Join(cur.path, seg), children: []Entry{}}
			cur.insert(d)
			t.notify(Mutation{Op: OpCreate, Path: d.path, Kind: KindDir, Entry: d.clone()})
			cur = d
		case *Dir:
			cur = n
		default:
			return &ConflictError{Path: next.Path()}
		}
	}
	return nil
}

// WriteFile sets the content of the file at p, creating it (and missing
// parent directories) when absent.
func (t *Tree) WriteFile(p, content string) error {
	p = Clean(p)
	parent, name := Split(p)
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := t.MkdirAll(parent); err != nil {
		return err
	}
	if _, err := t.Create(parent, name, KindFile); err != nil && !IsConflict(err) {
		return err
	}
	return t.SetContent(p, content)
}

// SetContent replaces the content of an existing file.
func (t *Tree) SetContent(p, content string) error {
	p = Clean(p)
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(p)
	if e == nil {
		return &NotFoundError{Path: p}
	}
	f, ok := e.(*File)
	if !ok {
		return &InvalidPathError{Path: p, Reason: "not a file"}
	}
	f.content = content
	f.loaded = true
	t.notify(Mutation{Op: OpWrite, Path: p, Kind: KindFile, Content: content, Entry: f.clone()})
	return nil
}

// Rename moves the entry at oldPath to newPath. The parent of newPath must
// already exist. Descendant paths are recomputed.
func (t *Tree) Rename(oldPath, newPath string) error {
	oldPath, newPath = Clean(oldPath), Clean(newPath)
	if oldPath == "" {
		return &InvalidPathError{Path: oldPath, Reason: "cannot rename the root"}
	}
	newParent, newName := Split(newPath)
	if err := ValidateName(newName); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(oldPath)
	if e == nil {
		return &NotFoundError{Path: oldPath}
	}
	if oldPath == newPath {
		return nil
	}
	if e.Kind() == KindDir && IsAncestor(oldPath, newPath) {
		return &InvalidPathError{Path: newPath, Reason: "cannot move a directory into itself"}
	}
	dst, err := t.lookupDir(newParent)
	if err != nil {
		return err
	}
	if dst.Child(newName) != nil {
		return &ConflictError{Path: newPath}
	}

	oldParent, oldName := Split(oldPath)
	src, _ := t.lookupDir(oldParent)
	src.remove(oldName)

	switch n := e.(type) {
	case *File:
		n.name = newName
	case *Dir:
		n.name = newName
	}
	e.setPath(newPath)
	dst.insert(e)

	t.notify(Mutation{Op: OpRename, Path: newPath, OldPath: oldPath, Kind: e.Kind(), Entry: e.clone()})
	return nil
}

// Delete removes the entry at p and its subtree.
func (t *Tree) Delete(p string) error {
	p = Clean(p)
	if p == "" {
		return &InvalidPathError{Path: p, Reason: "cannot delete the root"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(p)
	if e == nil {
		return &NotFoundError{Path: p}
	}
	parent, name := Split(p)
	d, _ := t.lookupDir(parent)
	d.remove(name)
	t.notify(Mutation{Op: OpDelete, Path: p, Kind: e.Kind()})
	return nil
}
