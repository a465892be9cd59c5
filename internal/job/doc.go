// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package job provides a cancellable unit of deferred work.
//
// A Job moves from pending to running to completed, or from pending to
// cancelled. Cancel and Run race on a single compare-and-swap of the state,
// so exactly one of them wins: either the work runs and Cancel returns false,
// or Cancel returns true and a later Run does nothing.
package job
