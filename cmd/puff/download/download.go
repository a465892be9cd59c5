// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package download contains the command that downloads a batch of photos.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/puff/cmd/puff/cmdflags"
	"github.com/matt-FFFFFF/puff/cmd/puff/cmdstate"
	"github.com/matt-FFFFFF/puff/internal/batch"
	"github.com/matt-FFFFFF/puff/internal/config"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/matt-FFFFFF/puff/internal/notify"
	"github.com/matt-FFFFFF/puff/internal/photo"
	"github.com/matt-FFFFFF/puff/internal/serialqueue"
	"github.com/matt-FFFFFF/puff/internal/store"
	"github.com/matt-FFFFFF/puff/internal/tui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	tuiFlag    = "tui"
	asyncFlag  = "async"
	cliExitStr = ""
)

var (
	// ErrCreateDest is returned when the download directory cannot be created.
	ErrCreateDest = errors.New("failed to create download directory")
	// ErrBatchFailed is returned when at least one job of the batch failed.
	ErrBatchFailed = errors.New("batch completed with errors")
)

// FetcherFactory creates the fetcher used by the command.
var FetcherFactory = func(dest string) photo.Fetcher {
	return photo.NewGetterFetcher(dest)
}

// DownloadCmd is the command that downloads a batch of photos.
var DownloadCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download a batch of photos concurrently",
		Description: `Download every address of a batch definition concurrently.

Each address becomes a job. Jobs from the cancel-from index onward are offered to
the cancel policy, and a job that has not started when it is offered is cancelled.
Which jobs that is depends on timing and is expected to vary between runs.

The first interrupt signal cancels every job that has not started yet,
a second one stops the process.

Batch definition URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.
`,
		Flags: append(cmdflags.ConfigFlags(),
			&cli.BoolFlag{
				Name:        tuiFlag,
				Aliases:     []string{"t", "interactive"},
				Usage:       "Run with interactive Terminal User Interface (TUI) showing real-time progress",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name: asyncFlag,
				Usage: "Start the batch and wait for its completion callback " +
					"instead of waiting for the batch to settle",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
		),
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running download command")

	cfg, err := cmdflags.ResolveConfig(ctx, cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	dest, err := destination(cfg)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	logger.Info("downloading photos", "name", cfg.Name, "jobs", len(cfg.Expanded()), "dest", dest)

	d, err := newDownloader(ctx, cfg, FetcherFactory(dest))
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}
	defer d.close()

	async := cmd.Bool(asyncFlag)

	var res batch.Result

	switch cmd.Bool(tuiFlag) && term.IsTerminal(int(os.Stdout.Fd())) {
	case true:
		logger.Info("Starting interactive TUI mode...")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		runner := tui.NewRunner(tuiCtx, cfg.Name)

		var tuiErr error

		res, tuiErr = runner.Run(tuiCtx, func(ctx context.Context, rep batch.Reporter) batch.Result {
			return d.run(ctx, rep, async)
		})

		buf.WriteTo(cmd.Root().Writer) //nolint:errcheck

		if tuiErr != nil {
			logger.Error(fmt.Sprintf("TUI execution error: %s", tuiErr.Error()), "error", tuiErr.Error())
		}
	default:
		if cmd.Bool(tuiFlag) {
			logger.Warn("stdout is not a terminal, running without the TUI")
		}

		res = d.run(ctx, nil, async)
	}

	if err := res.Write(cmd.Root().Writer); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	logger.Info("store contents", "photos", d.store.Len())

	if res.HasError() {
		logger.Error(ErrBatchFailed.Error(), "error", res.Err)
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// destination returns the download directory of cfg, creating a temporary one if none is set.
func destination(cfg *config.Config) (string, error) {
	if cfg.Dest != "" {
		if err := os.MkdirAll(cfg.Dest, 0o755); err != nil { //nolint:mnd
			return "", errors.Join(ErrCreateDest, err)
		}

		return cfg.Dest, nil
	}

	dir, err := os.MkdirTemp("", "puff-photos-*")
	if err != nil {
		return "", errors.Join(ErrCreateDest, err)
	}

	return dir, nil
}

// downloader composes the pieces a batch runs on.
type downloader struct {
	cfg     *config.Config
	queue   *serialqueue.Queue
	center  *notify.Center
	store   *store.Store[photo.Photo]
	fetcher photo.Fetcher
	opts    []batch.Option
	cleanup []func()
}

func newDownloader(ctx context.Context, cfg *config.Config, fetcher photo.Fetcher) (*downloader, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	queue := serialqueue.New(ctx, "main")
	center := notify.NewCenter(queue)
	st := store.New[photo.Photo](center)

	d := &downloader{
		cfg:     cfg,
		queue:   queue,
		center:  center,
		store:   st,
		fetcher: fetcher,
		opts: []batch.Option{
			batch.WithPolicy(policy, cfg.Cancel.From),
			batch.WithParallelism(cfg.Parallelism),
			batch.WithTimeout(timeout),
			batch.WithAnnouncer(center),
		},
	}

	d.cleanup = append(d.cleanup,
		center.Subscribe(notify.TopicContentAdded, notify.ListenerFunc(func(ctx context.Context, _ notify.Topic) {
			ctxlog.Debug(ctx, "store updated", "photos", st.Len())
		})),
	)

	return d, nil
}

// run runs one batch and returns its result. With async set the batch is
// started and the result is taken in its completion callback.
func (d *downloader) run(ctx context.Context, reporter batch.Reporter, async bool) batch.Result {
	opts := d.opts
	if reporter != nil {
		opts = append(opts[:len(opts):len(opts)], batch.WithReporter(reporter))
	}

	c := batch.New(d.store, d.fetcher, d.queue, opts...)

	removeInterrupt := cmdstate.OnInterrupt(func() {
		n := c.CancelPending()
		ctxlog.Warn(ctx, "interrupted, cancelled pending downloads", "cancelled", n)
	})
	defer removeInterrupt()

	addresses := d.cfg.Expanded()

	if !async {
		return c.Download(ctx, addresses)
	}

	done := make(chan batch.Result, 1)

	var b *batch.Batch

	started := make(chan struct{})
	b = c.Start(ctx, addresses, func(_ context.Context, _ error) {
		<-started
		done <- b.Result()
	})
	close(started)

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		res := b.Result()
		res.Err = errors.Join(res.Err, ctx.Err())

		return res
	}
}

// close stops the queue after delivering everything already queued.
func (d *downloader) close() {
	for _, fn := range d.cleanup {
		fn()
	}

	d.queue.Close()
}
