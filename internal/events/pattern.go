// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"strings"
)

// Match reports whether eventType matches pattern. Patterns are
// dot-separated; a "*" segment matches exactly one segment, except as the
// final segment where it matches one or more. A bare "*" matches everything.
func Match(pattern, eventType string) bool {
	if pattern == "" || eventType == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	ps := strings.Split(pattern, ".")
	ts := strings.Split(eventType, ".")
	for i, p := range ps {
		if i >= len(ts) {
			return false
		}
		if p == "*" {
			if i == len(ps)-1 {
				return true
			}
			continue
		}
		if p != ts[i] {
			return false
		}
	}
	return len(ps) == len(ts)
}

// ValidatePattern rejects patterns that can never match.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	for _, seg := range strings.Split(pattern, ".") {
		if seg == "" {
			return fmt.Errorf("pattern %q has an empty segment", pattern)
		}
		if seg != "*" && strings.Contains(seg, "*") {
			return fmt.Errorf("pattern %q: wildcards must be a whole segment", pattern)
		}
	}
	return nil
}

func matchAny(patterns []string, eventType string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if Match(p, eventType) {
			return true
		}
	}
	return false
}
