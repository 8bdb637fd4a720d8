// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"errors"
	"fmt"
)

// State is a sandbox session lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateBooting    State = "booting"
	StateSyncing    State = "syncing"
	StateInstalling State = "installing"
	StateStarting   State = "starting"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

var (
	// ErrIllegalTransition is returned for a state change the lifecycle
	// does not allow.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrAlreadyLaunched is returned by Launch when a session exists.
	ErrAlreadyLaunched = errors.New("sandbox session already launched")
)

// transitions lists the allowed successors of each state. Returning to
// Idle is a teardown, not a transition, and is always possible.
var transitions = map[State][]State{
	StateIdle:       {StateBooting},
	StateBooting:    {StateSyncing, StateFailed},
	StateSyncing:    {StateInstalling, StateFailed},
	StateInstalling: {StateStarting, StateFailed},
	StateStarting:   {StateReady, StateFailed},
	StateReady:      {StateFailed},
	StateFailed:     {},
}

// ValidateTransition returns ErrIllegalTransition unless from may move to to.
func ValidateTransition(from, to State) error {
	for _, s := range transitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// Active reports whether s is part of a running session.
func (s State) Active() bool {
	return s != StateIdle && s != StateFailed
}

// InstallPolicy controls what a failed dependency install does.
type InstallPolicy string

const (
	// InstallContinue logs the failure and still starts the dev server.
	InstallContinue InstallPolicy = "continue"
	// InstallFail moves the session to Failed.
	InstallFail InstallPolicy = "fail"
)

// LaunchError is a failure to boot, sync, install or start.
type LaunchError struct {
	Stage    string
	ExitCode int
	Err      error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("launch failed during %s: exit code %d", e.Stage, e.ExitCode)
	}
	return fmt.Sprintf("launch failed during %s: %v", e.Stage, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
