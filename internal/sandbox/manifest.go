// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"sort"
	"strings"
)

// FileContents is the payload of a file manifest entry.
type FileContents struct {
	Contents string `json:"contents"`
}

// DirectoryMarker is the payload of a directory manifest entry.
type DirectoryMarker struct{}

// ManifestEntry is either a file or a directory. Exactly one field is set.
type ManifestEntry struct {
	File      *FileContents    `json:"file,omitempty"`
	Directory *DirectoryMarker `json:"directory,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e ManifestEntry) IsDir() bool { return e.Directory != nil }

// FileEntry returns a file manifest entry.
func FileEntry(contents string) ManifestEntry {
	return ManifestEntry{File: &FileContents{Contents: contents}}
}

// DirEntry returns a directory manifest entry.
func DirEntry() ManifestEntry {
	return ManifestEntry{Directory: &DirectoryMarker{}}
}

// Manifest maps full paths to entries. Keys never begin or end with "/" and
// every intermediate directory has its own entry.
type Manifest map[string]ManifestEntry

// SortedPaths returns the manifest keys ordered so that every directory
// precedes its descendants.
func (m Manifest) SortedPaths() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "/"), strings.Count(keys[j], "/")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Files returns the number of file entries.
func (m Manifest) Files() int {
	n := 0
	for _, e := range m {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
