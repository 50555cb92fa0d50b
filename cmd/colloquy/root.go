// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jllopis/colloquy/pkg/archive"
	"github.com/jllopis/colloquy/pkg/collab"
	"github.com/jllopis/colloquy/pkg/config"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/llm"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/render"
	"github.com/jllopis/colloquy/pkg/telemetry"
)

const serviceName = "colloquy"

type rootOptions struct {
	configPath string
	profile    string
	overrides  []string
	logLevel   string
	format     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Multi-persona collaboration over movie dialogue",
		Long: "colloquy runs a fixed panel of personas over a question. Each persona speaks in turn, " +
			"cites the movie dialogue behind its answer and writes to a shared memory; a moderator closes the session.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.profile, "profile", "", "config profile merged over the config file")
	flags.StringArrayVar(&opts.overrides, "set", nil, "override a config key (key=value), repeatable")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&opts.format, "format", "o", string(render.FormatAuto), "output format: auto, markdown, json")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAskCmd(opts),
		newBatchCmd(opts),
		newMCPCmd(opts),
		newPersonasCmd(opts),
		newScenariosCmd(opts),
		newServeCmd(opts),
		newSessionsCmd(opts),
	)
	return rootCmd
}

// app holds everything a command needs, built once from the configuration.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	format    render.Format
	registry  *persona.Registry
	generator generate.Generator
	orch      *collab.Orchestrator
	archive   archive.Store
	shutdown  telemetry.ShutdownFunc
}

// withApp builds the application for one command run and releases it after fn
// returns.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func newApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}

	overrides := append([]string(nil), opts.overrides...)
	if opts.logLevel != "" {
		overrides = append(overrides, "log.level="+opts.logLevel)
	}
	cfg, err := config.LoadWithOptions(config.Options{
		Path:      opts.configPath,
		Profile:   opts.profile,
		Overrides: overrides,
	})
	if err != nil {
		return nil, err
	}

	log := telemetry.ConfigureSlog(logOut, cfg.Log.Level, cfg.Log.Format)

	tcfg := cfg.TelemetryConfig()
	tcfg.Writer = logOut
	shutdown, err := telemetry.InitWithConfig(serviceName, version, tcfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, format: format, shutdown: shutdown}

	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	reg := persona.Default()
	if path := a.cfg.Personas.Path; path != "" {
		loaded, err := persona.LoadFile(path)
		if err != nil {
			return err
		}
		reg = loaded
	}
	a.registry = reg

	gcfg := a.cfg.GenerateConfig()
	var provider llm.Provider
	if gcfg.Mode == generate.ModeLive {
		lopts := a.cfg.LLMOptions()
		lopts.Logger = a.log
		p, err := llm.New(ctx, lopts)
		if err != nil {
			return cliConfigError(err, "llm.provider")
		}
		provider = p
	}
	gen, err := generate.New(gcfg, provider)
	if err != nil {
		return err
	}
	a.generator = gen

	metrics, err := telemetry.NewCollabMetrics()
	if err != nil {
		return err
	}
	orch, err := collab.New(reg, gen,
		collab.WithLogger(a.log),
		collab.WithRetry(a.cfg.RetryConfig()),
		collab.WithSamples(a.cfg.Generation.Samples),
		collab.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	a.orch = orch

	store, err := archive.Open(a.cfg.Archive.Driver, a.cfg.Archive.Path)
	if err != nil {
		return err
	}
	a.archive = store
	return nil
}

func (a *app) close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Warn("archive.close.failed", slog.String("error", err.Error()))
		}
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("telemetry.shutdown.failed", slog.String("error", err.Error()))
		}
	}
}

// save archives a finished session. Archive failures never fail the command.
func (a *app) save(ctx context.Context, results ...collab.Result) {
	for _, r := range results {
		if r.Session == nil {
			continue
		}
		if err := a.archive.Save(context.WithoutCancel(ctx), r.Session); err != nil {
			a.log.Warn("archive.save.failed",
				slog.String("session_id", r.Session.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// wantsJSON reports whether errors should be printed as JSON.
func wantsJSON(cmd *cobra.Command) bool {
	f := cmd.PersistentFlags().Lookup("format")
	return f != nil && f.Value.String() == string(render.FormatJSON)
}
