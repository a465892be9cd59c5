// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// DefaultCancelFrom is the first job index the cancellation policy is offered.
// The first three jobs of a batch are never offered for cancellation.
const DefaultCancelFrom = 3

// Names accepted by ParsePolicy.
const (
	PolicyNone   = "none"
	PolicyRandom = "random"
	PolicyAll    = "all"
)

// ErrUnknownPolicy is returned by ParsePolicy for an unrecognised name.
var ErrUnknownPolicy = errors.New("unknown cancel policy")

// CancelPolicy decides, independently for each job in the cancellable range,
// whether the coordinator should try to cancel it.
type CancelPolicy interface {
	ShouldCancel(index int) bool
}

// PolicyFunc adapts a function to the CancelPolicy interface.
type PolicyFunc func(index int) bool

// ShouldCancel implements CancelPolicy.
func (f PolicyFunc) ShouldCancel(index int) bool {
	return f(index)
}

// RandomBool is the coin flip used by RandomCancel.
var RandomBool = func() bool {
	return rand.IntN(2) == 1 //nolint:gosec
}

// NoCancel never cancels.
func NoCancel() CancelPolicy {
	return PolicyFunc(func(int) bool { return false })
}

// CancelAll tries to cancel every job it is offered.
func CancelAll() CancelPolicy {
	return PolicyFunc(func(int) bool { return true })
}

// RandomCancel flips a coin for every job it is offered.
func RandomCancel() CancelPolicy {
	return PolicyFunc(func(int) bool { return RandomBool() })
}

// CancelIndices tries to cancel only the listed job indices.
func CancelIndices(indices ...int) CancelPolicy {
	set := slices.Clone(indices)

	return PolicyFunc(func(i int) bool { return slices.Contains(set, i) })
}

// ParsePolicy returns the policy for one of the PolicyNone, PolicyRandom or
// PolicyAll names. The empty string means PolicyNone.
func ParsePolicy(name string) (CancelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyNone:
		return NoCancel(), nil
	case PolicyRandom:
		return RandomCancel(), nil
	case PolicyAll:
		return CancelAll(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
