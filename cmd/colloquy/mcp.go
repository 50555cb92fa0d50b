// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the collaboration tools over MCP stdio",
		Long: "mcp speaks the Model Context Protocol on stdin and stdout, exposing the " +
			"collaborate and list_personas tools. Logs go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				return a.mcpServer().ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func (a *app) mcpServer() *mcp.Server {
	return mcp.NewServer(serviceName, version, a.orch,
		mcp.WithArchive(a.archive),
		mcp.WithLogger(a.log),
	)
}
