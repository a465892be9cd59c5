// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/matt-FFFFFF/puff/internal/photo"
)

// Result is the outcome of a batch.
type Result struct {
	Photos    []photo.Photo // Photos produced by this batch, in completion order
	Err       error         // The last error observed, or nil
	AllErrors error         // Every error observed, or nil
	Scheduled int           // Number of jobs created
	Completed int           // Jobs that produced a photo
	Failed    int           // Jobs that returned an error
	Cancelled int           // Jobs cancelled before they started
	Settled   bool          // Every job is accounted for
}

// HasError returns true if the batch reported an error.
func (r Result) HasError() bool {
	return r.Err != nil
}

// Write writes a human readable summary of the result to w.
func (r Result) Write(w io.Writer) error {
	sb := strings.Builder{}

	fmt.Fprintf(&sb, "Batch: %d scheduled, %d completed, %d failed, %d cancelled\n",
		r.Scheduled, r.Completed, r.Failed, r.Cancelled)

	for _, p := range r.Photos {
		fmt.Fprintf(&sb, "  %s\n", p.String())
	}

	if r.Err != nil {
		fmt.Fprintf(&sb, "Error: %s\n", r.Err.Error())
	}

	_, err := io.WriteString(w, sb.String())

	return err //nolint:wrapcheck
}
