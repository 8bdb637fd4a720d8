// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the arbor API.
//
// arbor is a browser-facing coding workspace server: it holds the project
// tree and editor tabs in memory and mirrors them into a sandbox that runs
// the project's dev server.
//
// # Getting Started
//
//	c := client.New("http://localhost:4800")
//
//	// Read the project tree
//	tree, err := c.Tree.Get(ctx)
//
//	// Open a tab and edit it
//	tab, err := c.Tabs.Open(ctx, "src/index.js")
//	tab, err = c.Tabs.Update(ctx, "src/index.js", "console.log(2)")
//
//	// Boot the sandbox
//	status, err := c.Sandbox.Launch(ctx)
//
// # API Versioning
//
// The server uses date-based API versions sent in the Arbor-Version header.
// By default the client uses the latest version:
//
//	c := client.New("http://localhost:4800", client.WithVersion("2026-10-19"))
//
// # Error Handling
//
// API errors are returned as *APIError values:
//
//	_, err := c.Tabs.Open(ctx, "missing.js")
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == "NOT_FOUND" {
//	    ...
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an arbor API client.
//
// A Client provides access to the API through resource-specific sub-clients.
// Use [New] to create a Client instance.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client

	// Tree provides access to the project tree.
	Tree *TreeClient

	// Tabs provides access to editor tabs.
	Tabs *TabClient

	// Sandbox controls the sandbox session and its terminal output.
	Sandbox *SandboxClient

	// Projects provides access to projects and saving.
	Projects *ProjectClient

	// Workspace provides access to panel state and keyboard shortcuts.
	Workspace *WorkspaceClient

	// Events provides access to the event history.
	Events *EventClient
}

// Option configures a [Client]. Options are passed to [New] to customize
// client behavior.
type Option func(*Client)

// New creates a new arbor API client with the given base URL and options.
//
// The baseURL should be the root URL of the server (e.g., "http://localhost:4800").
// Any trailing slash is automatically removed.
//
// By default, the client uses:
//   - The latest API version ([LatestVersion])
//   - A 30-second HTTP timeout
//
// Use options like [WithVersion], [WithTimeout], or [WithHTTPClient] to customize.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: LatestVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Initialize service clients
	c.Tree = &TreeClient{c: c}
	c.Tabs = &TabClient{c: c}
	c.Sandbox = &SandboxClient{c: c}
	c.Projects = &ProjectClient{c: c}
	c.Workspace = &WorkspaceClient{c: c}
	c.Events = &EventClient{c: c}

	return c
}

// WithVersion sets the API version to use for all requests.
//
// Versions are dates (e.g., "2026-10-19"). See [LatestVersion].
func WithVersion(v string) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client for making requests.
//
// This is useful for advanced configurations like custom TLS settings,
// proxy configuration, or request tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests.
//
// The default timeout is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Version returns the API version being used.
func (c *Client) Version() string {
	return c.version
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// APIError represents an error response from the arbor API.
//
// Error codes:
//   - "NOT_FOUND": the path, tab or project does not exist
//   - "BAD_REQUEST": the request was malformed or a name was invalid
//   - "CONFLICT": the entry already exists or the sandbox state forbids it
//   - "SANDBOX_ERROR": the sandbox failed
//   - "INTERNAL_ERROR": an unexpected server error occurred
type APIError struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details contains additional error information, if available.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// get performs a GET request to the given path.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// post performs a POST request to the given path with no body.
func (c *Client) post(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

// postJSON performs a POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

// putJSON performs a PUT request with a JSON body.
func (c *Client) putJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(data))
}

// delete performs a DELETE request to the given path.
func (c *Client) delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// do performs an HTTP request and parses the response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set(VersionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// parseResponse reads and parses an API response.
func (c *Client) parseResponse(resp *http.Response) (json.RawMessage, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Try to parse as standard envelope
	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		// If we can't parse it and status is bad, return error
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		// Return raw body for non-envelope responses
		return respBody, nil
	}

	// Check for error in envelope
	if apiResp.Error != nil {
		return nil, apiResp.Error
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{Message: fmt.Sprintf("request failed with status %d", resp.StatusCode)}
	}

	return apiResp.Data, nil
}

// escapePath escapes each segment of a tree path for use in a URL.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// decodeInto unmarshals data into v, naming what in the error.
func decodeInto(data json.RawMessage, v interface{}, what string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return nil
}
