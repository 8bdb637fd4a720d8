// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"strings"
)

// Shortcut is a key chord. Ctrl and Meta are interchangeable for dispatch,
// so Ctrl+S on Linux and Cmd+S on macOS behave the same.
type Shortcut struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
}

// ParseShortcut parses chords like "ctrl+s", "Cmd+Shift+C" or "meta+w".
func ParseShortcut(s string) (Shortcut, error) {
	var sc Shortcut
	parts := strings.Split(strings.TrimSpace(s), "+")
	for i, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if i == len(parts)-1 {
			if p == "" {
				return Shortcut{}, fmt.Errorf("shortcut %q has no key", s)
			}
			sc.Key = p
			break
		}
		switch p {
		case "ctrl", "control":
			sc.Ctrl = true
		case "cmd", "meta", "command", "super":
			sc.Meta = true
		case "shift":
			sc.Shift = true
		case "alt", "option", "opt":
			sc.Alt = true
		default:
			return Shortcut{}, fmt.Errorf("unknown modifier %q in %q", p, s)
		}
	}
	return sc, nil
}

// Primary reports whether the platform command modifier is held.
func (s Shortcut) Primary() bool { return s.Ctrl || s.Meta }

// String renders the chord in canonical form.
func (s Shortcut) String() string {
	var b strings.Builder
	if s.Ctrl {
		b.WriteString("ctrl+")
	}
	if s.Meta {
		b.WriteString("meta+")
	}
	if s.Alt {
		b.WriteString("alt+")
	}
	if s.Shift {
		b.WriteString("shift+")
	}
	b.WriteString(strings.ToLower(s.Key))
	return b.String()
}
