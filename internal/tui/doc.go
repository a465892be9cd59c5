// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a real-time Terminal User Interface (TUI) for monitoring
// a batch of photo downloads. It displays one row per job with a status
// indicator, the elapsed time and the downloaded photo or the error.
//
// The TUI receives batch events through a Reporter that forwards them to the
// bubbletea program, so the coordinator never waits on rendering.
package tui
