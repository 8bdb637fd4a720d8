// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
)

// TabClient provides access to editor tabs.
type TabClient struct {
	c *Client
}

// List returns open tabs in display order.
func (t *TabClient) List(ctx context.Context) (*Tabs, error) {
	data, err := t.c.get(ctx, "/api/v1/tabs")
	if err != nil {
		return nil, err
	}
	var tabs Tabs
	if err := decodeInto(data, &tabs, "tabs"); err != nil {
		return nil, err
	}
	return &tabs, nil
}

// Open opens or focuses the tab for a tree file.
func (t *TabClient) Open(ctx context.Context, path string) (*Tab, error) {
	data, err := t.c.postJSON(ctx, "/api/v1/tabs", map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	return decodeTab(data)
}

// Update replaces a tab's content. The tree is updated immediately and the
// tab stays dirty until the next save.
func (t *TabClient) Update(ctx context.Context, path, content string) (*Tab, error) {
	data, err := t.c.putJSON(ctx, "/api/v1/tabs/"+escapePath(path), map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	return decodeTab(data)
}

// Close closes a tab and returns the remaining tabs.
func (t *TabClient) Close(ctx context.Context, path string) (*Tabs, error) {
	data, err := t.c.delete(ctx, "/api/v1/tabs/"+escapePath(path))
	if err != nil {
		return nil, err
	}
	var tabs Tabs
	if err := decodeInto(data, &tabs, "tabs"); err != nil {
		return nil, err
	}
	return &tabs, nil
}

// Activate focuses a tab.
func (t *TabClient) Activate(ctx context.Context, path string) (*Tab, error) {
	data, err := t.c.post(ctx, "/api/v1/tabs/"+escapePath(path)+"/activate")
	if err != nil {
		return nil, err
	}
	return decodeTab(data)
}

func decodeTab(data []byte) (*Tab, error) {
	var tab Tab
	if err := decodeInto(data, &tab, "tab"); err != nil {
		return nil, err
	}
	return &tab, nil
}
