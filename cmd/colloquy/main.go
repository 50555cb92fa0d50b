// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the Colloquy CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(root.ErrOrStderr(), err, wantsJSON(root))
		stop()
		os.Exit(1)
	}
}
