// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterrupt(t *testing.T) {
	var calls []string

	removeA := OnInterrupt(func() { calls = append(calls, "a") })
	removeB := OnInterrupt(func() { calls = append(calls, "b") })

	Interrupt()
	assert.Equal(t, []string{"a", "b"}, calls)

	removeA()
	Interrupt()
	assert.Equal(t, []string{"a", "b", "b"}, calls)

	removeB()
	removeB()
	Interrupt()
	assert.Len(t, calls, 3)
}
