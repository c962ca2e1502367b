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
// by every external-call adapter: a bounded retry policy, a per-service
// circuit breaker, and an asynchronous job poller. This file defines the
// RetryPolicy value object. Instead of scattering ad-hoc retry loops across
// call sites, adapters are constructed with one policy parametrized by
// attempt count, backoff, jitter, and a caller-supplied retryable predicate.
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy describes how an operation is retried. The zero value is not
// useful; construct policies through NewRetryPolicy or set every field.
type RetryPolicy struct {
	MaxAttempts int                   // Total attempts including the first. Values below 1 behave as 1.
	BaseDelay   time.Duration         // Delay before the second attempt; doubles each retry.
	MaxDelay    time.Duration         // Upper bound on any single backoff delay.
	Jitter      float64               // Fraction of the computed delay added as random jitter (0 disables).
	Retryable   func(err error) bool  // Predicate deciding whether an error is worth retrying. Nil retries everything.
	sleep       func(context.Context, time.Duration) error
}

// NewRetryPolicy builds a policy with the given attempt budget and base
// delay, a max delay of ten times the base, and 20% jitter.
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    baseDelay * 10,
		Jitter:      0.2,
		Retryable:   retryable,
	}
}

// Execute runs op until it succeeds, fails with a non-retryable error, the
// attempt budget is exhausted, or the context is canceled. The last error is
// wrapped with the attempt count so callers can still classify it with
// errors.Is / errors.As.
func (p RetryPolicy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if serr := p.pause(ctx, p.backoff(attempt)); serr != nil {
				return serr
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return fmt.Errorf("exhausted %d attempts: %w", attempts, err)
}

// backoff computes the delay before the given attempt (attempt >= 2) using
// exponential growth from BaseDelay, capped at MaxDelay, plus jitter.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}
	return delay
}

// pause sleeps for the given duration but wakes immediately when the context
// is canceled, so a retrying caller never outlives its request.
func (p RetryPolicy) pause(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
