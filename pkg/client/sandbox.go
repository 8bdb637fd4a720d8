// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// SandboxClient controls the sandbox session.
//
// Access this client through [Client.Sandbox]:
//
//	status, err := client.Sandbox.Launch(ctx)
//	status, err = client.Sandbox.WaitReady(ctx, time.Second)
type SandboxClient struct {
	c *Client
}

// Status returns the current session state.
func (s *SandboxClient) Status(ctx context.Context) (*SandboxStatus, error) {
	data, err := s.c.get(ctx, "/api/v1/sandbox")
	if err != nil {
		return nil, err
	}
	return decodeStatus(data)
}

// Launch boots a sandbox. It returns as soon as booting has started; the
// session then moves through syncing, installing and starting on its own.
func (s *SandboxClient) Launch(ctx context.Context) (*SandboxStatus, error) {
	data, err := s.c.post(ctx, "/api/v1/sandbox/launch")
	if err != nil {
		return nil, err
	}
	return decodeStatus(data)
}

// Teardown stops the session and disposes the sandbox.
func (s *SandboxClient) Teardown(ctx context.Context) (*SandboxStatus, error) {
	data, err := s.c.post(ctx, "/api/v1/sandbox/teardown")
	if err != nil {
		return nil, err
	}
	return decodeStatus(data)
}

// Resync re-materializes the whole tree in the running sandbox.
func (s *SandboxClient) Resync(ctx context.Context) (*SyncStats, error) {
	data, err := s.c.post(ctx, "/api/v1/sandbox/resync")
	if err != nil {
		return nil, err
	}
	var stats SyncStats
	if err := decodeInto(data, &stats, "sync stats"); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Terminal returns output lines after since (0 for the whole buffer),
// at most limit of them when limit > 0.
func (s *SandboxClient) Terminal(ctx context.Context, since int64, limit int) (*TerminalOutput, error) {
	params := url.Values{}
	if since > 0 {
		params.Set("since", fmt.Sprintf("%d", since))
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/sandbox/terminal"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	data, err := s.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out TerminalOutput
	if err := decodeInto(data, &out, "terminal output"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearTerminal drops the buffered terminal output.
func (s *SandboxClient) ClearTerminal(ctx context.Context) error {
	_, err := s.c.delete(ctx, "/api/v1/sandbox/terminal")
	return err
}

// WaitReady polls until the dev server is ready. It fails as soon as the
// session fails or returns to idle.
func (s *SandboxClient) WaitReady(ctx context.Context, interval time.Duration) (*SandboxStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := s.Status(ctx)
		if err != nil {
			return nil, err
		}
		switch st.State {
		case "ready":
			return st, nil
		case "failed":
			return st, fmt.Errorf("sandbox failed: %s", st.Error)
		case "idle":
			return st, fmt.Errorf("sandbox is not running")
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func decodeStatus(data []byte) (*SandboxStatus, error) {
	var st SandboxStatus
	if err := decodeInto(data, &st, "sandbox status"); err != nil {
		return nil, err
	}
	return &st, nil
}
