// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model_test contains unit tests for the data models defined in the
// model package. This file exercises the synthesis-job state machine,
// in particular the monotonic status guarantee: terminal states are sticky.
package model_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
	"github.com/zeebo/assert"
)

// TestNewSynthesisJob verifies that a freshly created job starts Pending
// with a non-empty local id and no result locator.
func TestNewSynthesisJob(t *testing.T) {
	job := model.NewSynthesisJob(model.JobKindVideo)

	assert.Equal(t, model.JobKindVideo, job.Kind)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.True(t, len(job.Id) > 0)
	assert.Equal(t, "", job.ResultLocator)
}

// TestJobStatusIsTerminal checks the terminal classification for every
// status value the poller can observe.
func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, model.JobStatusPending.IsTerminal())
	assert.False(t, model.JobStatusRunning.IsTerminal())
	assert.True(t, model.JobStatusCompleted.IsTerminal())
	assert.True(t, model.JobStatusFailed.IsTerminal())
	assert.True(t, model.JobStatusTimedOut.IsTerminal())
}

// TestJobTransitionMonotonic verifies that once a job reaches a terminal
// status no further transition is applied, including attempts to complete
// an already failed job.
func TestJobTransitionMonotonic(t *testing.T) {
	job := model.NewSynthesisJob(model.JobKindNarration)

	assert.True(t, job.Transition(model.JobStatusRunning))
	assert.True(t, job.Transition(model.JobStatusFailed))

	// Terminal now; every further transition must be rejected.
	assert.False(t, job.Transition(model.JobStatusRunning))
	assert.False(t, job.Complete("gs://artifacts/late.mp4"))
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "", job.ResultLocator)
}

// TestJobComplete verifies that the result locator is recorded together
// with the Completed status and never before it.
func TestJobComplete(t *testing.T) {
	job := model.NewSynthesisJob(model.JobKindVideo)

	assert.True(t, job.Complete("gs://artifacts/run-1/video.mp4"))
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, "gs://artifacts/run-1/video.mp4", job.ResultLocator)
}
