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

// Package resilience provides the reusable fault-tolerance primitives shared
// by every external-call adapter. This file implements the generic
// "submit then poll until terminal or timeout" primitive used for both
// synthesis jobs.
//
// Timing contract: the first status check happens immediately, then the
// poller sleeps Interval between checks. TimedOut is reported exactly when
// the elapsed time reaches MaxWait without a terminal status, and never
// later than MaxWait plus one Interval. The loop holds no timers once Poll
// returns, on any path.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// StatusCheck asks the external service for the current status of a job.
type StatusCheck func(ctx context.Context) (model.JobStatus, error)

// AsyncJobPoller drives a StatusCheck to a terminal status under a bounded
// wait. A single transient check error is absorbed by the Retry policy
// before the failure is treated as hard.
type AsyncJobPoller struct {
	Interval time.Duration // Sleep between consecutive status checks.
	MaxWait  time.Duration // Total wait budget before declaring TimedOut.
	Retry    RetryPolicy   // Applied to each individual status check.
}

// Poll repeatedly invokes check until it observes a terminal status, the
// wait budget lapses, or the context is canceled. On timeout it returns
// model.JobStatusTimedOut with a nil error; a hard check failure is returned
// as model.JobStatusFailed with the underlying error.
func (p AsyncJobPoller) Poll(ctx context.Context, jobID string, check StatusCheck) (model.JobStatus, error) {
	deadline := time.Now().Add(p.MaxWait)

	for {
		status, err := p.checkOnce(ctx, check)
		if err != nil {
			return model.JobStatusFailed, fmt.Errorf("status check for job %s: %w", jobID, err)
		}
		if status.IsTerminal() {
			return status, nil
		}
		if !time.Now().Before(deadline) {
			return model.JobStatusTimedOut, nil
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.JobStatusFailed, ctx.Err()
		case <-timer.C:
		}
	}
}

// checkOnce performs one status check under the retry policy so that a
// transient provider hiccup does not abort the whole wait.
func (p AsyncJobPoller) checkOnce(ctx context.Context, check StatusCheck) (model.JobStatus, error) {
	var status model.JobStatus
	err := p.Retry.Execute(ctx, func(ctx context.Context) error {
		s, err := check(ctx)
		if err != nil {
			return err
		}
		status = s
		return nil
	})
	return status, err
}
