// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/arbor/internal/config"
)

func TestGenerateConfig_ParsesAndValidates(t *testing.T) {
	out := generateConfig(initAnswers{
		ProjectName:    `my "app"`,
		Port:           5000,
		Backend:        "docker",
		InstallCommand: "pnpm install --frozen-lockfile",
		DevCommand:     "pnpm dev --host 0.0.0.0",
		DevPort:        5173,
	})

	cfg, err := config.Parse([]byte(out))
	require.NoError(t, err)
	config.ApplyDefaults(cfg)
	require.NoError(t, config.NewValidator().Validate(cfg))

	assert.Equal(t, `my "app"`, cfg.Project.Name)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "docker", cfg.Sandbox.Backend)
	assert.Equal(t, []string{"pnpm", "install", "--frozen-lockfile"}, cfg.Sandbox.GetInstallCommand())
	assert.Equal(t, []string{"pnpm", "dev", "--host", "0.0.0.0"}, cfg.Sandbox.GetDevCommand())
	assert.Equal(t, 5173, cfg.Sandbox.DevPort)
	assert.True(t, cfg.AutoSave.IsEnabled())
	assert.False(t, cfg.Watch.Enabled)
}

func TestEscapeHJSONValue(t *testing.T) {
	assert.Equal(t, `a\\b\"c`, escapeHJSONValue(`a\b"c`))
}
