// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config contains the command that prints an example batch definition.
package config

import (
	"context"
	"io"

	"github.com/matt-FFFFFF/puff/internal/batch"
	"github.com/matt-FFFFFF/puff/internal/config"
	"github.com/urfave/cli/v3"
)

// ConfigCmd is the command that documents the batch definition format.
var ConfigCmd = &cli.Command{
	Name:   "config",
	Usage:  "Get info on the batch definition format",
	Action: actionFunc,
	Commands: []*cli.Command{
		{
			Name:   "policies",
			Usage:  "List the cancel policies",
			Action: policiesFunc,
		},
	},
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	_, err := io.WriteString(cmd.Root().Writer, config.Example)
	return err //nolint:wrapcheck
}

func policiesFunc(_ context.Context, cmd *cli.Command) error {
	policies := []struct{ name, usage string }{
		{batch.PolicyNone, "never cancel"},
		{batch.PolicyRandom, "flip a coin for every job offered"},
		{batch.PolicyAll, "try to cancel every job offered"},
	}

	for _, p := range policies {
		if _, err := io.WriteString(cmd.Root().Writer, "- "+p.name+": "+p.usage+"\n"); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return nil
}
