// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// Entry is a file or directory in the project tree.
type Entry struct {
	Name string `json:"name"`
	// Kind is "file" or "directory".
	Kind string `json:"kind"`
	Path string `json:"path"`
	// Content is nil for directories and for files whose content was not
	// loaded.
	Content  *string `json:"content,omitempty"`
	Children []Entry `json:"children,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Kind == "directory" }

// Walk visits e and its descendants in pre-order.
func (e Entry) Walk(fn func(Entry)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Tree is a snapshot of the project tree.
type Tree struct {
	Version uint64 `json:"version"`
	Root    Entry  `json:"root"`
}

// ManifestEntry is one entry of a mount manifest. Exactly one field is set.
type ManifestEntry struct {
	Directory *struct{} `json:"directory,omitempty"`
	File      *struct {
		Contents string `json:"contents"`
	} `json:"file,omitempty"`
}

// Manifest maps tree paths to entries.
type Manifest map[string]ManifestEntry

// Tab is an open editor tab.
type Tab struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Dirty   bool   `json:"is_dirty"`
	Active  bool   `json:"active"`
}

// Tabs lists open tabs in display order.
type Tabs struct {
	Active string `json:"active"`
	Tabs   []Tab  `json:"tabs"`
}

// SyncStats reports the sync engine counters.
type SyncStats struct {
	Attached      bool   `json:"attached"`
	Pending       int    `json:"pending"`
	Writes        int64  `json:"writes"`
	Skipped       int64  `json:"skipped"`
	Errors        int64  `json:"errors"`
	LastError     string `json:"last_error,omitempty"`
	LastBootstrap string `json:"last_bootstrap,omitempty"`
}

// SandboxStatus is the sandbox session state.
type SandboxStatus struct {
	// State is one of idle, booting, syncing, installing, starting, ready
	// or failed.
	State       string     `json:"state"`
	Backend     string     `json:"backend"`
	Session     string     `json:"session,omitempty"`
	URL         string     `json:"url,omitempty"`
	Port        int        `json:"port,omitempty"`
	Error       string     `json:"error,omitempty"`
	InstallExit *int       `json:"install_exit,omitempty"`
	LaunchedAt  *time.Time `json:"launched_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Sync        SyncStats  `json:"sync"`
}

// Ready reports whether the dev server is up.
func (s SandboxStatus) Ready() bool { return s.State == "ready" }

// TerminalLine is one line of sandbox process output.
type TerminalLine struct {
	Seq    int64     `json:"seq"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// TerminalOutput is a page of terminal lines.
type TerminalOutput struct {
	Lines []TerminalLine `json:"lines"`
	// Sequence is the newest line number; pass it as since to page forward.
	Sequence int64 `json:"sequence"`
}

// Project is a workspace project.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ActiveFile string    `json:"active_file,omitempty"`
}

// SaveState reports project save progress.
type SaveState struct {
	Saving    bool       `json:"saving"`
	LastSaved *time.Time `json:"last_saved,omitempty"`
}

// Projects lists projects.
type Projects struct {
	Projects []Project `json:"projects"`
	Current  string    `json:"current,omitempty"`
	Save     SaveState `json:"save"`
}

// Workspace is the UI layout state.
type Workspace struct {
	// Panel is "chat", "preview" or "none".
	Panel      string    `json:"panel"`
	Active     string    `json:"active"`
	Tabs       []Tab     `json:"tabs"`
	Dirty      bool      `json:"dirty"`
	Project    *Project  `json:"project,omitempty"`
	Save       SaveState `json:"save"`
	Sandbox    string    `json:"sandbox"`
	PreviewURL string    `json:"preview_url,omitempty"`
}

// ShortcutResult describes what a keyboard shortcut did.
type ShortcutResult struct {
	// Action is "save", "close_tab", "toggle_chat" or "none".
	Action string `json:"action"`
	Panel  string `json:"panel"`
	Closed bool   `json:"closed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Event is a workspace event.
type Event struct {
	ID      string                 `json:"id"`
	Seq     int64                  `json:"seq"`
	Type    string                 `json:"type"`
	Time    time.Time              `json:"time"`
	Session string                 `json:"session,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
