// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/puff/internal/photo"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	stubs := gostub.StubFunc(&RandomBool, true)
	defer stubs.Reset()

	tests := []struct {
		name   string
		input  string
		cancel bool
		err    error
	}{
		{name: "empty means none", input: "", cancel: false},
		{name: "none", input: "none", cancel: false},
		{name: "random", input: "random", cancel: true},
		{name: "all with spaces and case", input: " ALL ", cancel: true},
		{name: "unknown", input: "some", err: ErrUnknownPolicy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePolicy(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				assert.Nil(t, p)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.cancel, p.ShouldCancel(3))
		})
	}
}

func TestRandomCancel_UsesCoin(t *testing.T) {
	calls := 0
	stubs := gostub.Stub(&RandomBool, func() bool {
		calls++
		return calls%3 == 0
	})
	defer stubs.Reset()

	p := RandomCancel()

	got := make([]bool, 0, 6)
	for i := range 6 {
		got = append(got, p.ShouldCancel(i))
	}

	assert.Equal(t, []bool{false, false, true, false, false, true}, got)
	assert.Equal(t, 6, calls)
}

func TestCancelIndices(t *testing.T) {
	idx := []int{3, 7}
	p := CancelIndices(idx...)
	idx[0] = 4

	assert.True(t, p.ShouldCancel(3), "policy must not alias the caller's slice")
	assert.True(t, p.ShouldCancel(7))
	assert.False(t, p.ShouldCancel(4))
	assert.False(t, NoCancel().ShouldCancel(3))
	assert.True(t, CancelAll().ShouldCancel(100))
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "scheduled", EventScheduled.String())
	assert.Equal(t, "running", EventRunning.String())
	assert.Equal(t, "completed", EventCompleted.String())
	assert.Equal(t, "failed", EventFailed.String())
	assert.Equal(t, "cancelled", EventCancelled.String())
	assert.Equal(t, "batch-completed", EventBatchCompleted.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestResult_Write(t *testing.T) {
	res := Result{
		Photos: []photo.Photo{
			{ID: uuid.New(), Address: "https://example.com/a.png", ContentType: "image/png", Width: 2, Height: 3, Size: 10},
		},
		Err:       errors.New("boom"),
		Scheduled: 3,
		Completed: 1,
		Failed:    1,
		Cancelled: 1,
	}

	var buf bytes.Buffer

	require.NoError(t, res.Write(&buf))

	out := buf.String()
	assert.Contains(t, out, "3 scheduled, 1 completed, 1 failed, 1 cancelled")
	assert.Contains(t, out, "https://example.com/a.png (image/png 2x3, 10 bytes)")
	assert.Contains(t, out, "Error: boom")
}
