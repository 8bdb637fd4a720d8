// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// EventClient provides access to the event history.
//
// Events record tree mutations, tab changes, sandbox transitions and
// project saves.
//
// Access this client through [Client.Events]:
//
//	events, err := client.Events.List(ctx, &client.ListOptions{Types: []string{"sandbox.*"}})
type EventClient struct {
	c *Client
}

// ListOptions configures event listing.
type ListOptions struct {
	// Limit is the maximum number of events to return, newest kept.
	Limit int

	// Types filters by type pattern (e.g., "tree.*", "sandbox.ready").
	Types []string

	// After returns only events with a larger sequence number.
	After int64

	// Since filters to events at or after this time.
	Since time.Time
}

// List returns events from the history, oldest first.
func (e *EventClient) List(ctx context.Context, opts *ListOptions) ([]Event, error) {
	path := "/api/v1/events"

	if opts != nil {
		params := url.Values{}
		if opts.Limit > 0 {
			params.Set("limit", fmt.Sprintf("%d", opts.Limit))
		}
		for _, t := range opts.Types {
			params.Add("type", t)
		}
		if opts.After > 0 {
			params.Set("after", fmt.Sprintf("%d", opts.After))
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}

	data, err := e.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var events []Event
	if err := decodeInto(data, &events, "events"); err != nil {
		return nil, err
	}

	return events, nil
}
