// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdflags contains the flags shared by the commands that resolve a
// batch definition, and the logic that applies them.
package cmdflags

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/puff/internal/config"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

// Flag names.
const (
	FileFlag         = "file"
	ParallelismFlag  = "parallelism"
	CancelPolicyFlag = "cancel-policy"
	CancelFromFlag   = "cancel-from"
	RepeatFlag       = "repeat"
	TimeoutFlag      = "timeout"
	DestFlag         = "dest"
)

// ErrResolveConfig is returned when the batch definition cannot be resolved.
var ErrResolveConfig = errors.New("failed to resolve batch definition")

// ConfigFlags returns the flags that select and override a batch definition.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FileFlag,
			Aliases: []string{"f"},
			Usage: "Specify the URL of the YAML batch definition. " +
				"Supports Hashicorp's go-getter syntax for fetching files from various sources. " +
				"Defaults to the built-in batch.",
			OnlyOnce: true,
		},
		&cli.IntFlag{
			Name:    ParallelismFlag,
			Aliases: []string{"p"},
			Usage: "Set the maximum number of concurrent downloads. " +
				"Defaults to the number of CPU cores available.",
		},
		&cli.StringFlag{
			Name:  CancelPolicyFlag,
			Usage: "Cancel policy applied to the trailing jobs: none, random or all",
		},
		&cli.IntFlag{
			Name:  CancelFromFlag,
			Usage: "Index of the first job offered for cancellation",
		},
		&cli.IntFlag{
			Name:  RepeatFlag,
			Usage: "Number of times the address list is repeated",
		},
		&cli.DurationFlag{
			Name:  TimeoutFlag,
			Usage: "Maximum time to wait for a synchronous download, 0 waits forever",
		},
		&cli.StringFlag{
			Name:      DestFlag,
			Usage:     "Directory photos are downloaded to. Defaults to a new temporary directory",
			TakesFile: true,
		},
	}
}

// ResolveConfig loads the batch definition named by the file flag, or the
// built-in one, applies any flag overrides and validates the result.
func ResolveConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	cfg := config.Default()

	if url := cmd.String(FileFlag); url != "" {
		logger.Debug("loading batch definition", "url", url)

		var err error

		cfg, err = config.Load(ctx, url)
		if err != nil {
			return nil, errors.Join(ErrResolveConfig, err)
		}
	}

	if cmd.IsSet(ParallelismFlag) {
		cfg.Parallelism = cmd.Int(ParallelismFlag)
	}

	if cmd.IsSet(CancelPolicyFlag) {
		cfg.Cancel.Policy = cmd.String(CancelPolicyFlag)
	}

	if cmd.IsSet(CancelFromFlag) {
		cfg.Cancel.From = cmd.Int(CancelFromFlag)
	}

	if cmd.IsSet(RepeatFlag) {
		cfg.Repeat = cmd.Int(RepeatFlag)
	}

	if cmd.IsSet(TimeoutFlag) {
		cfg.Timeout = cmd.Duration(TimeoutFlag).String()
		if cmd.Duration(TimeoutFlag) == 0 {
			cfg.Timeout = ""
		}
	}

	if cmd.IsSet(DestFlag) {
		cfg.Dest = cmd.String(DestFlag)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(ErrResolveConfig, err)
	}

	return cfg, nil
}
