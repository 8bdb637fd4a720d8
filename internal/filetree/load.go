// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filetree

import (
	"fmt"
	"io/fs"
	"unicode/utf8"
)

// skipDirs are never loaded from disk.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// LoadDir seeds t from fsys. Binary files are skipped.
func LoadDir(t *Tree, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return t.MkdirAll(p)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		if !utf8.Valid(data) {
			return nil
		}
		return t.WriteFile(p, string(data))
	})
}

// Paths returns every entry path under root in pre-order, excluding root.
func Paths(root Entry) []string {
	var out []string
	Walk(root, func(e Entry) error {
		if e != root {
			out = append(out, e.Path())
		}
		return nil
	})
	return out
}
