// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/puff/internal/ctxlog"
)

// Watch monitors the signal channel and handles signals.
// The first signal of a given type calls first, if it is not nil.
// The second signal of the same type closes sigCh and cancels the context.
// Watch returns when sigCh is closed or ctx is done.
func Watch(ctx context.Context, sigCh chan os.Signal, first func(os.Signal), cancel context.CancelFunc) {
	sigMap := make(map[os.Signal]struct{})

	for {
		var (
			sig os.Signal
			ok  bool
		)

		select {
		case <-ctx.Done():
			return
		case sig, ok = <-sigCh:
			if !ok {
				return
			}
		}

		if _, seen := sigMap[sig]; seen {
			ctxlog.Logger(ctx).Warn("watchdog", "detail", "received second signal of type, forcefully terminating", "signal", sig.String())
			Stop(sigCh)
			close(sigCh)
			cancel()

			return
		}

		ctxlog.Logger(ctx).Info("watchdog", "detail", "received first signal of type, stopping pending work", "signal", sig.String())

		sigMap[sig] = struct{}{}

		if first != nil {
			first(sig)
		}
	}
}
