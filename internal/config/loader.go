// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes HJSON (or plain JSON) configuration bytes.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Round trip through JSON so struct tags drive decoding.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{Version: "1", Project: ProjectConfig{Name: "arbor"}}
	ApplyDefaults(cfg)
	return cfg
}

// FindConfig searches dir for arbor.hjson, then arbor.json.
func (l *Loader) FindConfig(dir string) (string, error) {
	for _, name := range []string{"arbor.hjson", "arbor.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("config file not found (looked for arbor.hjson, arbor.json)")
}

// ApplyDefaults sets default values for missing config fields.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4800
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Sandbox defaults
	if cfg.Sandbox.Backend == "" {
		cfg.Sandbox.Backend = "local"
	}
	if cfg.Sandbox.Image == "" {
		cfg.Sandbox.Image = "node:20-alpine"
	}
	if cfg.Sandbox.InstallCommand == nil {
		cfg.Sandbox.InstallCommand = "npm install"
	}
	if cfg.Sandbox.DevCommand == nil {
		cfg.Sandbox.DevCommand = "npm run dev"
	}
	if cfg.Sandbox.InstallFailure == "" {
		cfg.Sandbox.InstallFailure = "continue"
	}
	if cfg.Sandbox.DevPort == 0 {
		cfg.Sandbox.DevPort = 3000
	}
	if cfg.Sandbox.ReadyProbeInterval == "" {
		cfg.Sandbox.ReadyProbeInterval = "250ms"
	}

	if cfg.Editor.Debounce == "" {
		cfg.Editor.Debounce = "2s"
	}
	if cfg.AutoSave.Interval == "" {
		cfg.AutoSave.Interval = "30s"
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}

	// Watch defaults
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "100ms"
	}

	if cfg.Terminal.BufferSize == 0 {
		cfg.Terminal.BufferSize = 5000
	}
}
