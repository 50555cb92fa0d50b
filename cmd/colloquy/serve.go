// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  "serve exposes /chat, /agents, /scenarios, /sessions, /collaboration-stats and /health until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				srv := server.New(a.orch,
					server.WithArchive(a.archive),
					server.WithHealth(a.healthProvider()),
					server.WithLogger(a.log),
					server.WithVersion(version),
				)
				return srv.ListenAndServe(cmd.Context(), addr, a.cfg.Server.ShutdownTimeout)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func (a *app) healthProvider() core.HealthCheckProvider {
	hp := core.NewDefaultHealthCheckProvider(0)
	hp.RegisterChecker("registry", server.RegistryChecker(a.registry))
	if live, ok := a.generator.(*generate.Live); ok {
		hp.RegisterChecker("generator", server.BreakerChecker(live.Breaker()))
	} else {
		hp.RegisterChecker("generator", core.NewSimpleHealthChecker(core.HealthHealthy, "mock generator"))
	}
	hp.RegisterChecker("archive", server.ArchiveChecker(a.archive))
	return hp
}
