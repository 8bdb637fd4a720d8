// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package version implements date-based API versioning. Clients pin a
// version with the Arbor-Version header; without it the latest is used.
// A breaking change adds a new version constant, moves LatestVersion, and
// registers a Transformer that renders new responses in the old shape.
package version

import "context"

const (
	// Version20261019 is the initial API version.
	Version20261019 = "2026-10-19"
)

// LatestVersion is the current default API version.
var LatestVersion = Version20261019

// Header is the HTTP header used to specify the API version.
const Header = "Arbor-Version"

type contextKey string

const versionKey contextKey = "api-version"

// FromContext returns the API version from the context, or LatestVersion.
func FromContext(ctx context.Context) string {
	v, ok := ctx.Value(versionKey).(string)
	if !ok || v == "" {
		return LatestVersion
	}
	return v
}

// WithContext returns a new context with the API version set.
func WithContext(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey, version)
}
