// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateRequired(cfg, errs)
	v.validateServer(cfg, errs)
	v.validateSandbox(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateRequired(cfg *Config, errs *ValidationError) {
	if cfg.Version == "" {
		errs.Add("version", "is required")
	}
	if cfg.Project.Name == "" {
		errs.Add("project.name", "is required")
	}
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535")
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
	if cfg.Server.TLSTailscale && cfg.Server.TLSCert != "" {
		errs.Add("server.tls_tailscale", "cannot be combined with tls_cert")
	}
}

func (v *Validator) validateSandbox(cfg *Config, errs *ValidationError) {
	sb := cfg.Sandbox
	switch sb.Backend {
	case "", "local", "docker":
	default:
		errs.Add("sandbox.backend", fmt.Sprintf("invalid backend '%s', must be one of: local, docker", sb.Backend))
	}
	if sb.Backend == "docker" && sb.Image == "" {
		errs.Add("sandbox.image", "is required for the docker backend")
	}

	switch sb.InstallFailure {
	case "", "continue", "fail":
	default:
		errs.Add("sandbox.install_failure", fmt.Sprintf("invalid policy '%s', must be one of: continue, fail", sb.InstallFailure))
	}

	if sb.InstallCommand != nil {
		if _, err := commandArgs(sb.InstallCommand); err != nil {
			errs.Add("sandbox.install_command", fmt.Sprintf("invalid command: %s", err))
		}
	}
	if sb.DevCommand != nil {
		args, err := commandArgs(sb.DevCommand)
		if err != nil {
			errs.Add("sandbox.dev_command", fmt.Sprintf("invalid command: %s", err))
		} else if len(args) == 0 {
			errs.Add("sandbox.dev_command", "must not be empty")
		}
	}

	if sb.DevPort < 0 || sb.DevPort > 65535 {
		errs.Add("sandbox.dev_port", "must be between 0 and 65535")
	}
	for i, kv := range sb.Env {
		if !strings.Contains(kv, "=") {
			errs.Add(fmt.Sprintf("sandbox.env[%d]", i), "must be KEY=VALUE")
		}
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"sandbox.ready_probe_interval", cfg.Sandbox.ReadyProbeInterval},
		{"editor.debounce", cfg.Editor.Debounce},
		{"autosave.interval", cfg.AutoSave.Interval},
		{"watch.debounce", cfg.Watch.Debounce},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed < 0 {
			errs.Add(d.field, "must be positive")
		}
	}
}
