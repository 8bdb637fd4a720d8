// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
)

// WorkspaceClient provides access to the workspace layout.
type WorkspaceClient struct {
	c *Client
}

// Get returns the panel, tabs, save and sandbox state in one call.
func (w *WorkspaceClient) Get(ctx context.Context) (*Workspace, error) {
	data, err := w.c.get(ctx, "/api/v1/workspace")
	if err != nil {
		return nil, err
	}
	var ws Workspace
	if err := decodeInto(data, &ws, "workspace"); err != nil {
		return nil, err
	}
	return &ws, nil
}

// Shortcut dispatches a keyboard shortcut such as "ctrl+s" or
// "cmd+shift+c".
func (w *WorkspaceClient) Shortcut(ctx context.Context, shortcut string) (*ShortcutResult, error) {
	data, err := w.c.postJSON(ctx, "/api/v1/shortcuts", map[string]string{"shortcut": shortcut})
	if err != nil {
		return nil, err
	}
	var res ShortcutResult
	if err := decodeInto(data, &res, "shortcut result"); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetPanel opens a panel ("chat" or "preview") or closes it with "none".
func (w *WorkspaceClient) SetPanel(ctx context.Context, panel string) (string, error) {
	return w.panel(ctx, panel, false)
}

// TogglePanel closes panel if it is open and opens it otherwise.
func (w *WorkspaceClient) TogglePanel(ctx context.Context, panel string) (string, error) {
	return w.panel(ctx, panel, true)
}

func (w *WorkspaceClient) panel(ctx context.Context, panel string, toggle bool) (string, error) {
	data, err := w.c.putJSON(ctx, "/api/v1/workspace/panel", map[string]interface{}{
		"panel":  panel,
		"toggle": toggle,
	})
	if err != nil {
		return "", err
	}
	var res struct {
		Panel string `json:"panel"`
	}
	if err := decodeInto(data, &res, "panel"); err != nil {
		return "", err
	}
	return res.Panel, nil
}
