// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/collab"
	"github.com/jllopis/colloquy/pkg/render"
	"github.com/jllopis/colloquy/pkg/scenario"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var scenarioName string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Run one collaboration session",
		Example: `  colloquy ask "How do movie characters develop through their conversations?"
  colloquy ask --scenario emotional-expression
  colloquy ask -o json --set generation.mode=live "What makes a good movie dialogue?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if scenarioName != "" {
				if query != "" {
					return invalidArgument("--scenario", "a scenario and a question cannot be combined")
				}
				sc, ok := scenario.Find(scenarioName)
				if !ok {
					return notFound("scenario", scenarioName)
				}
				query = sc.Query
			}
			if query == "" {
				return invalidArgument("question", "a question or --scenario is required")
			}

			return withApp(cmd, opts, func(a *app) error {
				s, err := a.orch.Run(cmd.Context(), query)
				a.save(cmd.Context(), collab.Result{Query: query, Session: s, Err: err})
				if s != nil {
					if rerr := render.Session(cmd.OutOrStdout(), s, a.format); rerr != nil {
						return rerr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&scenarioName, "scenario", "s", "", "run a built-in scenario by slug or name")
	return cmd
}
