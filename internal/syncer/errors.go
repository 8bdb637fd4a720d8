// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncer

import "fmt"

// SyncError is a failed sandbox filesystem call.
type SyncError struct {
	Op   string
	Path string
	Err  error
}

func (e *SyncError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
