// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package joingroup provides a counting rendezvous for a batch of asynchronous work.
//
// Every Enter must be balanced by exactly one Leave, whether the unit of work
// completed or was cancelled before it ran. A cancelled unit never leaves on its
// own, so whoever cancelled it has to issue the Leave on its behalf.
// An unbalanced Leave panics: it means the accounting is broken.
//
// Completion can be observed asynchronously with Notify, or synchronously with
// Wait / WaitTimeout.
package joingroup
