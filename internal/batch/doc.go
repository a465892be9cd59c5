// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package batch coordinates a batch of independent, cancellable photo downloads.
//
// A Coordinator turns each address into a job.Job, accounts for every job in a
// joingroup.Group and hands the jobs to a bounded worker pool through a single
// serial queue, so dispatch order equals creation order. Successful jobs append
// their photo to a store.Store. Failures are recorded on the group; only the
// last one is handed to the completion callback.
//
// A trailing range of jobs can be offered to a CancelPolicy. Offering a job for
// cancellation races with its dispatch; the outcome of that race is not
// controlled, only the accounting is: every job leaves the group exactly once,
// either when it finishes or, if it was cancelled before starting, through a
// compensating leave issued by the canceller.
package batch
