// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/render"
	"github.com/jllopis/colloquy/pkg/scenario"
)

func newPersonasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "personas",
		Aliases: []string{"agents"},
		Short:   "List the participants in speaking order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if a.format == render.FormatJSON {
					return writeJSON(cmd.OutOrStdout(), a.registry.Participants())
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), render.Personas(a.registry))
				return err
			})
		},
	}
}

func newScenariosCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in collaboration scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			list := scenario.Builtin()
			if format == render.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Scenarios(list))
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
