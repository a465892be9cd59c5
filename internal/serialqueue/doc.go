// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package serialqueue provides a single goroutine delivery context.
// Tasks submitted to a Queue run one after the other in submission order,
// which makes it the place where externally observed callbacks and
// notifications are funnelled so their ordering is stable.
package serialqueue
