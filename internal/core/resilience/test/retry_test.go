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

// Package resilience_test contains unit tests for the fault-tolerance
// primitives. This file covers the RetryPolicy: attempt budgeting, the
// retryable predicate, error wrapping, and context cancellation.
package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/resilience"
	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

// TestRetryEventualSuccess verifies that an operation failing transiently is
// retried until it succeeds within the attempt budget.
func TestRetryEventualSuccess(t *testing.T) {
	policy := resilience.NewRetryPolicy(3, time.Millisecond, func(err error) bool { return true })

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestRetryNonRetryableStopsImmediately verifies that the retryable
// predicate short-circuits the loop: a fatal error is returned after a
// single attempt, unwrapped.
func TestRetryNonRetryableStopsImmediately(t *testing.T) {
	policy := resilience.NewRetryPolicy(5, time.Millisecond, func(err error) bool {
		return !errors.Is(err, errFatal)
	})

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errFatal
	})

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

// TestRetryExhaustionWrapsLastError verifies that after the budget is spent
// the last error is returned wrapped, still matchable with errors.Is.
func TestRetryExhaustionWrapsLastError(t *testing.T) {
	policy := resilience.NewRetryPolicy(3, time.Millisecond, func(err error) bool { return true })

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

// TestRetryHonorsContextCancellation verifies that a canceled context stops
// the backoff sleep rather than waiting it out.
func TestRetryHonorsContextCancellation(t *testing.T) {
	policy := resilience.NewRetryPolicy(10, time.Hour, func(err error) bool { return true })

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, func(ctx context.Context) error {
			calls++
			return errTransient
		})
	}()

	// Give the goroutine time to enter the first backoff sleep, then cancel.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe context cancellation")
	}
}
