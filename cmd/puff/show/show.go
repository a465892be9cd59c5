// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show contains the command that prints a resolved batch definition.
package show

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/puff/cmd/puff/cmdflags"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	addressesFlag = "addresses"
	indent        = 2
)

var (
	// ErrEncode is returned when the definition cannot be encoded.
	ErrEncode = errors.New("failed to encode batch definition")
	// ErrWrite is returned when the output cannot be written.
	ErrWrite = errors.New("failed to write output")
)

// ShowCmd is the command that prints the batch definition a download would run.
var ShowCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show the resolved batch definition",
		Description: `Show the batch definition that the download command would run with the same flags,
after defaults and overrides have been applied.`,
		Flags: append(cmdflags.ConfigFlags(),
			&cli.BoolFlag{
				Name:  addressesFlag,
				Usage: "Include the expanded address list, one entry per job",
			},
		),
		Action: actionFunc,
	}
}

type resolved struct {
	Definition any      `json:"definition"`
	Jobs       int      `json:"jobs"`
	Addresses  []string `json:"addresses,omitempty"`
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg, err := cmdflags.ResolveConfig(ctx, cmd)
	if err != nil {
		ctxlog.Logger(ctx).Error(err.Error())
		return cli.Exit("", 1)
	}

	out := resolved{
		Definition: cfg,
		Jobs:       len(cfg.Expanded()),
	}

	if cmd.Bool(addressesFlag) {
		out.Addresses = cfg.Expanded()
	}

	// colorjson formats generic values only.
	raw, err := json.Marshal(out)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return errors.Join(ErrEncode, err)
	}

	f := colorjson.NewFormatter()
	f.Indent = indent
	f.DisabledColor = cmd.Root().Writer != os.Stdout || !term.IsTerminal(int(os.Stdout.Fd()))

	b, err := f.Marshal(obj)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}

	if _, err := cmd.Root().Writer.Write(append(b, '\n')); err != nil {
		return errors.Join(ErrWrite, err)
	}

	return nil
}
