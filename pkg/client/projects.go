// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
)

// ProjectClient provides access to projects.
type ProjectClient struct {
	c *Client
}

// List returns all projects with the current one and the save state.
func (p *ProjectClient) List(ctx context.Context) (*Projects, error) {
	data, err := p.c.get(ctx, "/api/v1/projects")
	if err != nil {
		return nil, err
	}
	var list Projects
	if err := decodeInto(data, &list, "projects"); err != nil {
		return nil, err
	}
	return &list, nil
}

// Create adds a project and makes it current.
func (p *ProjectClient) Create(ctx context.Context, name string) (*Project, error) {
	data, err := p.c.postJSON(ctx, "/api/v1/projects", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	return decodeProject(data)
}

// Load makes a project current.
func (p *ProjectClient) Load(ctx context.Context, id string) (*Project, error) {
	data, err := p.c.post(ctx, "/api/v1/projects/"+url.PathEscape(id)+"/load")
	if err != nil {
		return nil, err
	}
	return decodeProject(data)
}

// Save saves the current project and marks every tab clean.
func (p *ProjectClient) Save(ctx context.Context) (*SaveState, error) {
	data, err := p.c.post(ctx, "/api/v1/projects/save")
	if err != nil {
		return nil, err
	}
	var st SaveState
	if err := decodeInto(data, &st, "save state"); err != nil {
		return nil, err
	}
	return &st, nil
}

// Delete removes a project.
func (p *ProjectClient) Delete(ctx context.Context, id string) error {
	_, err := p.c.delete(ctx, "/api/v1/projects/"+url.PathEscape(id))
	return err
}

func decodeProject(data []byte) (*Project, error) {
	var proj Project
	if err := decodeInto(data, &proj, "project"); err != nil {
		return nil, err
	}
	return &proj, nil
}
