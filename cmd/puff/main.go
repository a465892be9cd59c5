// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the puff command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/puff"
	"github.com/matt-FFFFFF/puff/cmd/puff/cmdstate"
	"github.com/matt-FFFFFF/puff/cmd/puff/config"
	"github.com/matt-FFFFFF/puff/cmd/puff/download"
	"github.com/matt-FFFFFF/puff/cmd/puff/show"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/matt-FFFFFF/puff/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		config.ConfigCmd,
		download.DownloadCmd,
		show.ShowCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "puff",
	Description: `Puff downloads batches of photos concurrently.
Every photo is a cancellable job; a join group tracks the batch and reports
once every job has either finished or been cancelled.`,
	Usage:     "puff download -f batch.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, func(os.Signal) { cmdstate.Interrupt() }, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", puff.Version, puff.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Debug("command completed successfully")
}
