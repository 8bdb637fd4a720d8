// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wingedpig/arbor/pkg/client"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the project tree of a running server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c := client.New(serverURL)
		if len(args) == 1 {
			e, err := c.Tree.File(ctx, args[0])
			if err != nil {
				return err
			}
			if e.Content != nil {
				fmt.Fprint(cmd.OutOrStdout(), *e.Content)
				return nil
			}
			printTree(cmd.OutOrStdout(), *e)
			return nil
		}

		tree, err := c.Tree.Get(ctx)
		if err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), tree.Root)
		return nil
	},
}

var statusWait bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workspace and sandbox state of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout := 10 * time.Second
		if statusWait {
			timeout = 10 * time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		c := client.New(serverURL)
		if statusWait {
			if _, err := c.Sandbox.WaitReady(ctx, 500*time.Millisecond); err != nil {
				return err
			}
		}
		ws, err := c.Workspace.Get(ctx)
		if err != nil {
			return err
		}
		st, err := c.Sandbox.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), ws, st)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusWait, "wait", false, "Wait until the dev server is ready")
}

// printTree writes an indented listing, directories with a trailing slash.
func printTree(w io.Writer, root client.Entry) {
	var walk func(e client.Entry, depth int)
	walk = func(e client.Entry, depth int) {
		for _, c := range e.Children {
			name := c.Name
			if c.IsDir() {
				name += "/"
			}
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
			walk(c, depth+1)
		}
	}
	if root.Path != "" {
		fmt.Fprintf(w, "%s/\n", root.Path)
		walk(root, 1)
		return
	}
	walk(root, 0)
}

func printStatus(w io.Writer, ws *client.Workspace, st *client.SandboxStatus) {
	if ws.Project != nil {
		fmt.Fprintf(w, "Project:  %s (%s)\n", ws.Project.Name, ws.Project.ID)
	}
	saved := "never"
	if ws.Save.LastSaved != nil {
		saved = ws.Save.LastSaved.Local().Format(time.Kitchen)
	}
	if ws.Save.Saving {
		saved = "saving..."
	}
	fmt.Fprintf(w, "Saved:    %s\n", saved)
	fmt.Fprintf(w, "Panel:    %s\n", ws.Panel)

	fmt.Fprintf(w, "Tabs:     %d", len(ws.Tabs))
	if ws.Dirty {
		fmt.Fprint(w, " (unsaved changes)")
	}
	fmt.Fprintln(w)
	for _, t := range ws.Tabs {
		marker := " "
		if t.Active {
			marker = ">"
		}
		dirty := ""
		if t.Dirty {
			dirty = " *"
		}
		fmt.Fprintf(w, "  %s %s%s\n", marker, t.Path, dirty)
	}

	fmt.Fprintf(w, "Sandbox:  %s (%s)\n", st.State, st.Backend)
	if st.URL != "" {
		fmt.Fprintf(w, "URL:      %s\n", st.URL)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", st.Error)
	}
	fmt.Fprintf(w, "Sync:     %d writes, %d skipped, %d errors\n", st.Sync.Writes, st.Sync.Skipped, st.Sync.Errors)
}
