// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "regexp"

var ansiPattern = regexp.MustCompile(`\x1B\[[0-9;]*[mK]`)

// StripANSI removes color and erase-line escape sequences from s.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
