// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"fmt"

	"github.com/wingedpig/arbor/internal/filetree"
	"github.com/wingedpig/arbor/internal/sandbox"
)

// BuildManifest flattens a tree snapshot into a mount manifest. The root
// itself has no entry.
func BuildManifest(root *filetree.Dir) sandbox.Manifest {
	m := make(sandbox.Manifest)
	filetree.Walk(root, func(e filetree.Entry) error {
		if e.Path() == "" {
			return nil
		}
		switch v := e.(type) {
		case *filetree.Dir:
			m[v.Path()] = sandbox.DirEntry()
		case *filetree.File:
			content, _ := v.Content()
			m[v.Path()] = sandbox.FileEntry(content)
		}
		return nil
	})
	return m
}

// TreeFromManifest rebuilds a tree from a manifest. Parents are created
// before children regardless of whether their own entries are present.
func TreeFromManifest(m sandbox.Manifest) (*filetree.Tree, error) {
	t := filetree.New()
	for _, p := range m.SortedPaths() {
		e := m[p]
		if p == "" || p[0] == '/' || p[len(p)-1] == '/' {
			return nil, fmt.Errorf("invalid manifest key %q", p)
		}
		if e.IsDir() {
			if err := t.MkdirAll(p); err != nil {
				return nil, err
			}
			continue
		}
		if e.File == nil {
			return nil, fmt.Errorf("manifest entry %q has no kind", p)
		}
		if err := t.WriteFile(p, e.File.Contents); err != nil {
			return nil, err
		}
	}
	return t, nil
}
