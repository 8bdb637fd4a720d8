// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
)

// TreeClient provides access to the project tree.
//
// Access this client through [Client.Tree]:
//
//	tree, err := client.Tree.Get(ctx)
type TreeClient struct {
	c *Client
}

// CreateRequest creates a file or directory.
type CreateRequest struct {
	// Parent is the directory to create in; "" is the root.
	Parent string `json:"parent"`
	Name   string `json:"name"`
	// Kind is "file" or "directory".
	Kind string `json:"kind"`
}

// Get returns the whole tree.
func (t *TreeClient) Get(ctx context.Context) (*Tree, error) {
	data, err := t.c.get(ctx, "/api/v1/tree")
	if err != nil {
		return nil, err
	}
	var tree Tree
	if err := decodeInto(data, &tree, "tree"); err != nil {
		return nil, err
	}
	return &tree, nil
}

// Manifest returns the tree as a mount manifest.
func (t *TreeClient) Manifest(ctx context.Context) (Manifest, error) {
	data, err := t.c.get(ctx, "/api/v1/tree/manifest")
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := decodeInto(data, &m, "manifest"); err != nil {
		return nil, err
	}
	return m, nil
}

// Create adds an empty file or directory. It fails with a CONFLICT error
// when the name is taken.
func (t *TreeClient) Create(ctx context.Context, req CreateRequest) (*Entry, error) {
	data, err := t.c.postJSON(ctx, "/api/v1/tree", req)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := decodeInto(data, &e, "entry"); err != nil {
		return nil, err
	}
	return &e, nil
}

// Rename moves an entry and its subtree.
func (t *TreeClient) Rename(ctx context.Context, from, to string) (*Entry, error) {
	data, err := t.c.postJSON(ctx, "/api/v1/tree/rename", map[string]string{"from": from, "to": to})
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := decodeInto(data, &e, "entry"); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes an entry and its subtree.
func (t *TreeClient) Delete(ctx context.Context, path string) error {
	_, err := t.c.delete(ctx, "/api/v1/tree/"+escapePath(path)+"?confirm=true")
	return err
}

// File returns one entry, with content for files.
func (t *TreeClient) File(ctx context.Context, path string) (*Entry, error) {
	data, err := t.c.get(ctx, "/api/v1/files/"+escapePath(path))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := decodeInto(data, &e, "entry"); err != nil {
		return nil, err
	}
	return &e, nil
}
