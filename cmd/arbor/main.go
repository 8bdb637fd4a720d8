// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command arbor runs the workspace server and talks to a running one.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/wingedpig/arbor/internal/app"
)

var (
	version = "0.1"
)

var (
	configPath string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Browser-facing coding workspace server",
	Long: `arbor keeps a project tree, editor tabs and a sandboxed runtime in sync,
installs dependencies in the sandbox and runs the project's dev server.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveFlags struct {
	host  string
	port  int
	debug bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the arbor server (default)",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the arbor version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arbor %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: auto-detect arbor.hjson)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultURL(), "arbor server URL for client commands (env ARBOR_URL)")

	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveFlags.host, "host", "", "HTTP server host (overrides config)")
		cmd.Flags().IntVar(&serveFlags.port, "port", 0, "HTTP server port (overrides config)")
		cmd.Flags().BoolVar(&serveFlags.debug, "debug", false, "Enable debug mode")
	}

	rootCmd.AddCommand(serveCmd, versionCmd, initCmd, treeCmd, statusCmd)
}

func defaultURL() string {
	if u := os.Getenv("ARBOR_URL"); u != "" {
		return u
	}
	return "http://127.0.0.1:4800"
}

func runServe(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		log.Printf("Using config: %s", configPath)
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       serveFlags.host,
		Port:       serveFlags.port,
		Debug:      serveFlags.debug,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
