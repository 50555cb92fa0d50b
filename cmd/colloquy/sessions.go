// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/archive"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/render"
)

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect archived sessions",
		Long:  "sessions reads the archive selected by archive.driver and archive.path.",
	}
	cmd.AddCommand(newSessionsListCmd(opts), newSessionsShowCmd(opts))
	return cmd
}

func newSessionsListCmd(opts *rootOptions) *cobra.Command {
	var (
		state string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := archive.Filter{State: core.State(strings.ToUpper(state)), Limit: limit}
			return withApp(cmd, opts, func(a *app) error {
				list, err := a.archive.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if a.format == render.FormatJSON {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Sessions(list))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only sessions in this state (DONE, ERROR)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list (0 for all)")
	return cmd
}

func newSessionsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s, err := a.archive.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render.Session(cmd.OutOrStdout(), s, a.format)
			})
		},
	}
}
