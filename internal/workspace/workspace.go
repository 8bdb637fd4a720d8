// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package workspace holds the layout state of the IDE and dispatches the
// global keyboard shortcuts.
package workspace

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wingedpig/arbor/internal/events"
)

// Panel is the mode of the side panel.
type Panel string

const (
	PanelNone    Panel = ""
	PanelChat    Panel = "chat"
	PanelPreview Panel = "preview"
)

// ParsePanel accepts "chat", "preview", or "none"/"" for the closed panel.
func ParsePanel(s string) (Panel, bool) {
	switch strings.ToLower(s) {
	case "", "none":
		return PanelNone, true
	case "chat":
		return PanelChat, true
	case "preview":
		return PanelPreview, true
	}
	return PanelNone, false
}

// Action names the outcome of a dispatched shortcut.
type Action string

const (
	ActionNone       Action = "none"
	ActionSave       Action = "save"
	ActionCloseTab   Action = "close_tab"
	ActionToggleChat Action = "toggle_chat"
)

// Saver saves the current project.
type Saver interface {
	Save(ctx context.Context) (time.Time, error)
}

// TabCloser closes the focused tab, reporting whether one was open.
type TabCloser interface {
	CloseActive() bool
}

// Result reports what a shortcut did.
type Result struct {
	Action Action `json:"action"`
	Panel  Panel  `json:"panel"`
	Closed bool   `json:"closed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Workspace owns the panel state.
type Workspace struct {
	mu    sync.Mutex
	panel Panel

	saver  Saver
	tabs   TabCloser
	events events.Publisher
}

// New creates a workspace. bus may be nil.
func New(saver Saver, tabs TabCloser, bus events.Publisher) *Workspace {
	return &Workspace{saver: saver, tabs: tabs, events: bus}
}

// Panel returns the open panel.
func (w *Workspace) Panel() Panel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.panel
}

// TogglePanel opens p, or closes the panel when p is already open.
func (w *Workspace) TogglePanel(p Panel) Panel {
	w.mu.Lock()
	if w.panel == p {
		w.panel = PanelNone
	} else {
		w.panel = p
	}
	now := w.panel
	w.mu.Unlock()
	w.publish(now)
	return now
}

// SetPanel opens p unconditionally. PanelNone closes the panel.
func (w *Workspace) SetPanel(p Panel) {
	w.mu.Lock()
	changed := w.panel != p
	w.panel = p
	w.mu.Unlock()
	if changed {
		w.publish(p)
	}
}

func (w *Workspace) publish(p Panel) {
	if w.events == nil {
		return
	}
	mode := string(p)
	if p == PanelNone {
		mode = "none"
	}
	_ = w.events.Publish(context.Background(), events.Event{
		Type:    events.WorkspacePanel,
		Payload: map[string]interface{}{"panel": mode},
	})
}

// Dispatch runs the action bound to sc. Chords that require the command
// modifier are ignored without it.
func (w *Workspace) Dispatch(ctx context.Context, sc Shortcut) Result {
	if !sc.Primary() || sc.Alt {
		return Result{Action: ActionNone, Panel: w.Panel()}
	}
	key := strings.ToLower(sc.Key)
	switch {
	case key == "s" && !sc.Shift:
		res := Result{Action: ActionSave}
		if _, err := w.saver.Save(ctx); err != nil {
			log.Printf("Workspace: save failed: %v", err)
			res.Error = err.Error()
		}
		res.Panel = w.Panel()
		return res
	case key == "w" && !sc.Shift:
		closed := w.tabs.CloseActive()
		return Result{Action: ActionCloseTab, Closed: closed, Panel: w.Panel()}
	case key == "c" && sc.Shift:
		return Result{Action: ActionToggleChat, Panel: w.TogglePanel(PanelChat)}
	}
	return Result{Action: ActionNone, Panel: w.Panel()}
}
