// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateExpander_Expand(t *testing.T) {
	e := NewTemplateExpander()
	ctx := &TemplateContext{
		Project: ProjectTemplateData{Name: "My App", Slug: "my-app"},
		Sandbox: SandboxTemplateData{Backend: "local", Port: 5173},
	}

	tests := []struct {
		in   string
		want string
	}{
		{"npm run dev", "npm run dev"},
		{"vite --port {{.Sandbox.Port}}", "vite --port 5173"},
		{"/tmp/{{.Project.Slug}}", "/tmp/my-app"},
		{"{{.Project.Name | slugify | upper}}", "MY-APP"},
		{`{{default "x" ""}}`, "x"},
	}
	for _, tt := range tests {
		got, err := e.Expand(tt.in, ctx)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := e.Expand("{{.Nope}}", ctx)
	assert.Error(t, err)
	_, err = e.Expand("{{", ctx)
	assert.Error(t, err)
}

func TestTemplateExpander_ExpandConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Project.Name = "Todo App"
	cfg.Sandbox.DevCommand = []interface{}{"vite", "--port", "{{.Sandbox.Port}}"}
	cfg.Sandbox.RootDir = "/tmp/{{.Project.Slug}}"
	cfg.Sandbox.Env = []string{"APP={{.Project.Slug}}"}

	out, err := NewTemplateExpander().ExpandConfig(cfg, NewTemplateContext(cfg))
	require.NoError(t, err)
	assert.Equal(t, []string{"vite", "--port", "3000"}, out.Sandbox.GetDevCommand())
	assert.Equal(t, "/tmp/todo-app", out.Sandbox.RootDir)
	assert.Equal(t, []string{"APP=todo-app"}, out.Sandbox.Env)
	assert.Equal(t, "/tmp/{{.Project.Slug}}", cfg.Sandbox.RootDir, "original untouched")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "feature-my-branch", Slugify("feature/My_Branch"))
	assert.Equal(t, "a-b", Slugify("--a...b--"))
	assert.Equal(t, "", Slugify("!!!"))
}
