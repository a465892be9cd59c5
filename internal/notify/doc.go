// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package notify provides fire-and-forget announcements of store changes.
// Announcements are delivered to listeners on a serialqueue.Queue so that
// presentation code observes them in a stable order.
package notify
