// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus for arbor.
package events

import (
	"context"
	"time"
)

// Event is an immutable record of something that happened in the workspace.
type Event struct {
	ID      string                 `json:"id"`
	Seq     int64                  `json:"seq"`
	Type    string                 `json:"type"`
	Time    time.Time              `json:"time"`
	Session string                 `json:"session,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Handler processes a delivered event.
type Handler func(ctx context.Context, e Event)

// SubscriptionID identifies a subscription.
type SubscriptionID uint64

// Filter selects events from history.
type Filter struct {
	Types   []string // patterns, see Match
	Session string
	After   int64 // only events with Seq > After
	Since   time.Time
	Limit   int // newest Limit events
}

// Publisher is the narrow interface components publish through.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Event types.
const (
	TreeCreated = "tree.created"
	TreeRenamed = "tree.renamed"
	TreeDeleted = "tree.deleted"
	TreeWritten = "tree.written"

	TabOpened    = "tab.opened"
	TabUpdated   = "tab.updated"
	TabClean     = "tab.clean"
	TabClosed    = "tab.closed"
	TabSaved     = "tab.saved"
	TabActivated = "tab.activated"

	SandboxState  = "sandbox.state"
	SandboxReady  = "sandbox.ready"
	SandboxFailed = "sandbox.failed"
	SandboxExited = "sandbox.exited"

	SyncFailed = "sync.failed"

	FSChanged = "fs.changed"

	ProjectCreated = "project.created"
	ProjectSaved   = "project.saved"
	ProjectDeleted = "project.deleted"

	WorkspacePanel = "workspace.panel"
)
