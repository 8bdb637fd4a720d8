// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const configFile = "arbor.hjson"

var initYes bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an arbor.hjson in the current directory",
	Long: `Create a new arbor.hjson configuration file in the current directory.

The command asks for the project name, server port, sandbox backend and the
install and dev commands. Press Enter to accept the default shown in
[brackets], or pass --yes to accept every default.

After running init:
  1. Review and edit arbor.hjson as needed
  2. Run: arbor
  3. Open: http://localhost:4800`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept all defaults without prompting")
}

type initAnswers struct {
	ProjectName    string
	Port           int
	Backend        string
	InstallCommand string
	DevCommand     string
	DevPort        int
}

func runInit(in io.Reader, out io.Writer) error {
	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	answers := initAnswers{
		ProjectName:    filepath.Base(cwd),
		Port:           4800,
		Backend:        "local",
		InstallCommand: "npm install",
		DevCommand:     "npm run dev",
		DevPort:        3000,
	}

	if !initYes {
		reader := bufio.NewReader(in)

		fmt.Fprintln(out, "arbor Configuration Setup")
		fmt.Fprintln(out, "=========================")
		fmt.Fprintln(out)

		answers.ProjectName = prompt(reader, out, "Project name", answers.ProjectName)
		answers.Port = promptInt(reader, out, "Server port", answers.Port)
		answers.Backend = prompt(reader, out, "Sandbox backend (local or docker)", answers.Backend)
		answers.InstallCommand = prompt(reader, out, "Install command", answers.InstallCommand)
		answers.DevCommand = prompt(reader, out, "Dev server command", answers.DevCommand)
		answers.DevPort = promptInt(reader, out, "Dev server port", answers.DevPort)
	}

	if err := os.WriteFile(configFile, []byte(generateConfig(answers)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created %s\n", configFile)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Review and edit arbor.hjson as needed")
	fmt.Fprintln(out, "  2. Run: arbor")
	fmt.Fprintln(out, "  3. Open: http://localhost:"+strconv.Itoa(answers.Port))
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, out io.Writer, question string, defaultVal int) int {
	s := prompt(reader, out, question, strconv.Itoa(defaultVal))
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(a initAnswers) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // arbor Configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).
  //
  // Template variables available in sandbox settings:
  //   {{.Project.Name}}    - Project name
  //   {{.Project.Slug}}    - Project name, lowercased with dashes
  //   {{.Sandbox.Backend}} - Sandbox backend
  //   {{.Sandbox.Port}}    - Dev server port
  version: "1"

  project: {
    name: "`)
	sb.WriteString(escapeHJSONValue(a.ProjectName))
	sb.WriteString(`"

    // Directory loaded into the project tree at startup
    dir: "."
  }

  // ---------------------------------------------------------------------------
  // Server Settings
  // ---------------------------------------------------------------------------
  server: {
    // Host to bind to (use "0.0.0.0" to allow remote access)
    host: "127.0.0.1"
    port: `)
	sb.WriteString(strconv.Itoa(a.Port))
	sb.WriteString(`

    // For HTTPS, set paths to your certificates:
    // tls_cert: "~/.arbor/cert.pem"
    // tls_key: "~/.arbor/key.pem"
    // or serve this machine's Tailscale certificate:
    // tls_tailscale: true
  }

  // ---------------------------------------------------------------------------
  // Sandbox
  // ---------------------------------------------------------------------------
  sandbox: {
    // "local" runs in a temp directory on this machine, "docker" in a container
    backend: "`)
	sb.WriteString(escapeHJSONValue(a.Backend))
	sb.WriteString(`"
    // image: "node:20-alpine"

    install_command: "`)
	sb.WriteString(escapeHJSONValue(a.InstallCommand))
	sb.WriteString(`"
    dev_command: "`)
	sb.WriteString(escapeHJSONValue(a.DevCommand))
	sb.WriteString(`"

    // "continue" starts the dev server even when install fails, "fail" stops
    install_failure: "continue"
    dev_port: `)
	sb.WriteString(strconv.Itoa(a.DevPort))
	sb.WriteString(`

    // Boot the sandbox as soon as the server starts
    auto_launch: false
  }

  // Tabs are marked clean this long after the last edit
  editor: {
    debounce: "2s"
  }

  autosave: {
    enabled: true
    interval: "30s"
  }

  // Watch the local sandbox directory and publish fs.changed events
  watch: {
    enabled: false
    debounce: "100ms"
    ignore: ["node_modules", ".git"]
  }

  // Proxy /preview/ to the dev server
  preview: {
    enabled: true
  }
}
`)
	return sb.String()
}
