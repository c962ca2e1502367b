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

package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/resilience"
)

// SynthesisClient drives one external synthesis service through the full
// resilience stack: each provider call runs inside the circuit breaker,
// the breaker-guarded call runs inside the retry policy, and completion is
// awaited through the bounded poller. A breaker-open rejection is never
// retried (the breaker exists to stop traffic, retrying would defeat it),
// and neither is an InvalidInput classification.
type SynthesisClient struct {
	service  string
	kind     model.JobKind
	provider Provider
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryPolicy
	poller   resilience.AsyncJobPoller
}

// ClientSettings carries the per-service resilience budgets.
type ClientSettings struct {
	MaxAttempts  int           // Retry attempts per provider call.
	BaseDelay    time.Duration // First retry backoff.
	PollInterval time.Duration // Delay between status checks.
	MaxWait      time.Duration // Total polling budget before timing out.
}

// newSynthesisClient wires a provider into the resilience stack. The retry
// predicate declines breaker rejections and invalid-input failures; those
// propagate on the first occurrence.
func newSynthesisClient(service string, kind model.JobKind, provider Provider, breaker *resilience.CircuitBreaker, settings ClientSettings) *SynthesisClient {
	retry := resilience.NewRetryPolicy(settings.MaxAttempts, settings.BaseDelay, func(err error) bool {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return false
		}
		return IsRetryable(err)
	})
	return &SynthesisClient{
		service:  service,
		kind:     kind,
		provider: provider,
		breaker:  breaker,
		retry:    retry,
		poller: resilience.AsyncJobPoller{
			Interval: settings.PollInterval,
			MaxWait:  settings.MaxWait,
			Retry:    retry,
		},
	}
}

// NewVideoSynthesisClient creates the client for the video generation
// service.
func NewVideoSynthesisClient(provider Provider, breaker *resilience.CircuitBreaker, settings ClientSettings) *SynthesisClient {
	return newSynthesisClient("video-synthesis", model.JobKindVideo, provider, breaker, settings)
}

// NewNarrationSynthesisClient creates the client for the narration audio
// service.
func NewNarrationSynthesisClient(provider Provider, breaker *resilience.CircuitBreaker, settings ClientSettings) *SynthesisClient {
	return newSynthesisClient("narration-synthesis", model.JobKindNarration, provider, breaker, settings)
}

// Service returns the breaker key this client reports under.
func (c *SynthesisClient) Service() string { return c.service }

// Submit starts a generation job at the provider and returns the local job
// record tracking it. The provider call is retried within the configured
// budget; an open circuit or an invalid request fails on the first attempt.
//
// Inputs:
//   - ctx: the request context, honored across retries.
//   - params: the prompt, script, and voice material for the provider.
//
// Outputs:
//   - *model.SynthesisJob: the tracked job in the RUNNING state.
//   - error: the final classified failure when submission never succeeded.
func (c *SynthesisClient) Submit(ctx context.Context, params SubmitParams) (*model.SynthesisJob, error) {
	var handle JobHandle
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.breaker.Call(c.service, func() error {
			h, err := c.provider.Submit(ctx, params)
			if err != nil {
				return err
			}
			handle = h
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s submit failed: %w", c.service, err)
	}

	job := model.NewSynthesisJob(c.kind)
	job.ExternalJobId = handle.ExternalJobId
	job.ResultLocator = handle.OutputLocator
	job.SubmittedAt = time.Now()
	job.Transition(model.JobStatusRunning)
	slog.InfoContext(ctx, "synthesis job submitted",
		"service", c.service,
		"job_id", job.Id,
		"external_job_id", handle.ExternalJobId)
	return job, nil
}

// CheckStatus performs a single breaker-guarded status lookup and applies
// the observed state to the job record.
func (c *SynthesisClient) CheckStatus(ctx context.Context, job *model.SynthesisJob) (model.JobStatus, error) {
	var status model.JobStatus
	err := c.breaker.Call(c.service, func() error {
		s, err := c.provider.Status(ctx, JobHandle{ExternalJobId: job.ExternalJobId, OutputLocator: job.ResultLocator})
		if err != nil {
			return err
		}
		status = s
		return nil
	})
	if err != nil {
		return model.JobStatusFailed, err
	}
	job.LastPolledAt = time.Now()
	job.Transition(status)
	return status, nil
}

// Await polls the provider until the job reaches a terminal state or the
// polling budget runs out. A timeout marks the job TIMED_OUT without error;
// a hard status failure marks it FAILED and returns the cause.
func (c *SynthesisClient) Await(ctx context.Context, job *model.SynthesisJob) (model.JobStatus, error) {
	status, err := c.poller.Poll(ctx, job.Id, func(ctx context.Context) (model.JobStatus, error) {
		return c.CheckStatus(ctx, job)
	})
	job.Transition(status)
	if err != nil {
		return status, fmt.Errorf("%s job %s: %w", c.service, job.Id, err)
	}
	slog.InfoContext(ctx, "synthesis job finished polling",
		"service", c.service,
		"job_id", job.Id,
		"status", string(status))
	return status, nil
}
