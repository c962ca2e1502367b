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

// Package model defines the core data structures for the application.
// This file holds the synthesis-job state machine. A SynthesisJob tracks one
// long-running external generation request (video or narration) from
// submission to a terminal status. Jobs are owned exclusively by the
// orchestrator run that created them and are never shared across runs, so
// they carry no locking.
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies which external service a synthesis job belongs to.
type JobKind string

const (
	JobKindVideo     JobKind = "video"
	JobKindNarration JobKind = "narration"
)

// JobStatus is the lifecycle state of a synthesis job. Statuses advance
// monotonically: once a job reaches Completed, Failed, or TimedOut it never
// changes again.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusTimedOut  JobStatus = "TIMED_OUT"
)

// IsTerminal reports whether the status is final. Pollers stop as soon as a
// terminal status is observed.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusTimedOut:
		return true
	default:
		return false
	}
}

// SynthesisJob records the local view of one external generation job.
type SynthesisJob struct {
	Id            string    `json:"id"`              // Run-local job id.
	Kind          JobKind   `json:"kind"`            // Video or Narration.
	ExternalJobId string    `json:"external_job_id"` // Provider-issued id used for status checks.
	Status        JobStatus `json:"status"`          // Current lifecycle state, monotonic.
	ResultLocator string    `json:"result_locator"`  // Storage locator the provider writes the output to; only trusted once Completed.
	SubmittedAt   time.Time `json:"submitted_at"`    // When the job was accepted by the provider.
	LastPolledAt  time.Time `json:"last_polled_at"`  // When the provider was last asked for status.
}

// NewSynthesisJob creates a job in the Pending state with a fresh local id.
func NewSynthesisJob(kind JobKind) *SynthesisJob {
	return &SynthesisJob{
		Id:     uuid.NewString(),
		Kind:   kind,
		Status: JobStatusPending,
	}
}

// Transition advances the job to the next status and reports whether the
// transition was applied. Terminal states are sticky: any attempt to move a
// Completed, Failed, or TimedOut job is ignored.
func (j *SynthesisJob) Transition(next JobStatus) bool {
	if j.Status.IsTerminal() {
		return false
	}
	j.Status = next
	return true
}

// Complete marks the job Completed and records where the provider wrote its
// output. The locator is only ever set alongside the Completed status.
func (j *SynthesisJob) Complete(resultLocator string) bool {
	if !j.Transition(JobStatusCompleted) {
		return false
	}
	j.ResultLocator = resultLocator
	return true
}
