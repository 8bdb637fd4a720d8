// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// TemplateContext is the data available to config templates, for example
// `dev_command: "npm run dev -- --port {{.Sandbox.Port}}"`.
type TemplateContext struct {
	Project ProjectTemplateData
	Sandbox SandboxTemplateData
}

// ProjectTemplateData provides project data for templates.
type ProjectTemplateData struct {
	Name string
	Slug string
}

// SandboxTemplateData provides sandbox data for templates.
type SandboxTemplateData struct {
	Backend string
	Port    int
}

// NewTemplateContext builds the template data for cfg.
func NewTemplateContext(cfg *Config) *TemplateContext {
	return &TemplateContext{
		Project: ProjectTemplateData{Name: cfg.Project.Name, Slug: Slugify(cfg.Project.Name)},
		Sandbox: SandboxTemplateData{Backend: cfg.Sandbox.Backend, Port: cfg.Sandbox.DevPort},
	}
}

// TemplateExpander handles Go text/template variable expansion in config values.
type TemplateExpander struct {
	funcMap template.FuncMap
}

// NewTemplateExpander creates a new template expander with built-in functions.
func NewTemplateExpander() *TemplateExpander {
	return &TemplateExpander{
		funcMap: template.FuncMap{
			"slugify": Slugify,
			"replace": Replace,
			"upper":   strings.ToUpper,
			"lower":   strings.ToLower,
			"default": Default,
		},
	}
}

// Expand expands template variables in a string value.
func (e *TemplateExpander) Expand(value string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("").Funcs(e.funcMap).Option("missingkey=error").Parse(value)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExpandConfig returns a copy of cfg with sandbox values expanded.
func (e *TemplateExpander) ExpandConfig(cfg *Config, ctx *TemplateContext) (*Config, error) {
	expanded := *cfg
	sb := &expanded.Sandbox
	var err error

	if sb.RootDir, err = e.Expand(sb.RootDir, ctx); err != nil {
		return nil, fmt.Errorf("sandbox.root_dir: %w", err)
	}
	if sb.Image, err = e.Expand(sb.Image, ctx); err != nil {
		return nil, fmt.Errorf("sandbox.image: %w", err)
	}
	if sb.InstallCommand, err = e.expandCommand(sb.InstallCommand, ctx); err != nil {
		return nil, fmt.Errorf("sandbox.install_command: %w", err)
	}
	if sb.DevCommand, err = e.expandCommand(sb.DevCommand, ctx); err != nil {
		return nil, fmt.Errorf("sandbox.dev_command: %w", err)
	}
	if len(sb.Env) > 0 {
		env := make([]string, len(sb.Env))
		for i, kv := range sb.Env {
			if env[i], err = e.Expand(kv, ctx); err != nil {
				return nil, fmt.Errorf("sandbox.env[%d]: %w", i, err)
			}
		}
		sb.Env = env
	}
	return &expanded, nil
}

func (e *TemplateExpander) expandCommand(cmd interface{}, ctx *TemplateContext) (interface{}, error) {
	switch c := cmd.(type) {
	case string:
		return e.Expand(c, ctx)
	case []interface{}:
		out := make([]interface{}, len(c))
		for i, v := range c {
			s, ok := v.(string)
			if !ok {
				out[i] = v
				continue
			}
			x, err := e.Expand(s, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	default:
		return cmd, nil
	}
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-friendly slug.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("/", "-", "_", "-", ".", "-", " ", "-").Replace(s)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Replace replaces all occurrences of old with new in s.
func Replace(old, new, s string) string {
	return strings.ReplaceAll(s, old, new)
}

// Default returns the value if non-empty, otherwise the default.
func Default(defaultVal, value string) string {
	if value == "" {
		return defaultVal
	}
	return value
}
