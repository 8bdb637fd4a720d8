// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and template expansion.
package config

import (
	"time"

	"github.com/kballard/go-shellquote"
)

// Config is the root configuration structure for arbor.
type Config struct {
	Version  string         `json:"version"`
	Project  ProjectConfig  `json:"project"`
	Server   ServerConfig   `json:"server"`
	Sandbox  SandboxConfig  `json:"sandbox"`
	Editor   EditorConfig   `json:"editor"`
	AutoSave AutoSaveConfig `json:"autosave"`
	Events   EventsConfig   `json:"events"`
	Watch    WatchConfig    `json:"watch"`
	Preview  PreviewConfig  `json:"preview"`
	Terminal TerminalConfig `json:"terminal"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Dir is the on-disk project loaded into the tree at startup. Empty
	// starts with an empty tree.
	Dir string `json:"dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	TLSCert      string `json:"tls_cert"`      // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey       string `json:"tls_key"`       // Path to TLS private key file
	TLSTailscale bool   `json:"tls_tailscale"` // Fetch certificates from the local tailscaled
}

// SandboxConfig configures the sandbox backend and the commands run in it.
type SandboxConfig struct {
	Backend            string      `json:"backend"` // "local" or "docker"
	RootDir            string      `json:"root_dir"`
	Image              string      `json:"image"`
	Keep               bool        `json:"keep"`
	InstallCommand     interface{} `json:"install_command"` // string or []string
	DevCommand         interface{} `json:"dev_command"`     // string or []string
	InstallFailure     string      `json:"install_failure"` // "continue" or "fail"
	DevPort            int         `json:"dev_port"`
	ReadyProbeInterval string      `json:"ready_probe_interval"`
	Env                []string    `json:"env"`
	AutoLaunch         bool        `json:"auto_launch"`
}

// EditorConfig configures the editor session manager.
type EditorConfig struct {
	Debounce string `json:"debounce"`
}

// AutoSaveConfig configures periodic saves.
type AutoSaveConfig struct {
	Enabled  *bool  `json:"enabled"`
	Interval string `json:"interval"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event history retention.
type EventHistoryConfig struct {
	MaxEvents int `json:"max_events"`
}

// WatchConfig configures the sandbox filesystem watcher.
type WatchConfig struct {
	Enabled  bool     `json:"enabled"`
	Debounce string   `json:"debounce"`
	Ignore   []string `json:"ignore"`
}

// PreviewConfig configures the dev server reverse proxy.
type PreviewConfig struct {
	Enabled *bool `json:"enabled"`
}

// TerminalConfig configures the captured sandbox output.
type TerminalConfig struct {
	BufferSize int `json:"buffer_size"`
}

// ParseDuration parses a duration string, returning a default if empty.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// IsEnabled reports whether autosave runs. Defaults to true.
func (a *AutoSaveConfig) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

// IsEnabled reports whether the preview proxy is mounted. Defaults to true.
func (p *PreviewConfig) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// GetInstallCommand returns the install command as argv.
func (s *SandboxConfig) GetInstallCommand() []string {
	cmd, _ := commandArgs(s.InstallCommand)
	return cmd
}

// GetDevCommand returns the dev server command as argv.
func (s *SandboxConfig) GetDevCommand() []string {
	cmd, _ := commandArgs(s.DevCommand)
	return cmd
}

// commandArgs converts a string or array command to argv. Strings are split
// with shell quoting rules.
func commandArgs(v interface{}) ([]string, error) {
	switch cmd := v.(type) {
	case nil:
		return nil, nil
	case string:
		return shellquote.Split(cmd)
	case []interface{}:
		result := make([]string, 0, len(cmd))
		for _, v := range cmd {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		if len(result) == 0 {
			return nil, nil
		}
		return result, nil
	case []string:
		return cmd, nil
	default:
		return nil, nil
	}
}
