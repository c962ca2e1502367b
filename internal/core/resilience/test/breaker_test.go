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
// primitives. This file covers the circuit breaker state machine, including
// the documented HalfOpen concurrency policy: exactly one trial call is
// admitted, concurrent callers fail fast.
package resilience_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/resilience"
	"github.com/stretchr/testify/assert"
)

var errProvider = errors.New("provider unavailable")

// TestBreakerOpensAfterThreshold verifies that the circuit opens after the
// configured number of consecutive failures and that, once Open, the
// protected function is no longer invoked.
func TestBreakerOpensAfterThreshold(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Hour,
	})

	calls := 0
	failing := func() error {
		calls++
		return errProvider
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, breaker.Call("video-synthesis", failing), errProvider)
	}
	assert.Equal(t, resilience.CircuitOpen, breaker.State("video-synthesis"))

	// The fourth call must fail fast without reaching the provider.
	err := breaker.Call("video-synthesis", failing)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 3, calls)
}

// TestBreakerServicesAreIndependent verifies that failures against one
// service name never affect another.
func TestBreakerServicesAreIndependent(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour,
	})

	assert.ErrorIs(t, breaker.Call("video-synthesis", func() error { return errProvider }), errProvider)
	assert.Equal(t, resilience.CircuitOpen, breaker.State("video-synthesis"))

	// Narration remains Closed and callable.
	assert.NoError(t, breaker.Call("narration-synthesis", func() error { return nil }))
	assert.Equal(t, resilience.CircuitClosed, breaker.State("narration-synthesis"))
}

// TestBreakerSuccessResetsFailureCount verifies that a success between
// failures resets the consecutive-failure counter, so non-consecutive
// failures never open the circuit.
func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Hour,
	})

	assert.Error(t, breaker.Call("video-synthesis", func() error { return errProvider }))
	assert.NoError(t, breaker.Call("video-synthesis", func() error { return nil }))
	assert.Error(t, breaker.Call("video-synthesis", func() error { return errProvider }))

	assert.Equal(t, resilience.CircuitClosed, breaker.State("video-synthesis"))
}

// TestBreakerRecoversThroughHalfOpen walks the full recovery path: the
// circuit opens, the recovery timeout elapses, a trial call is admitted,
// and its success closes the circuit again.
func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  30 * time.Millisecond,
	})

	assert.Error(t, breaker.Call("narration-synthesis", func() error { return errProvider }))
	assert.Equal(t, resilience.CircuitOpen, breaker.State("narration-synthesis"))

	// Before the recovery timeout the circuit still fails fast.
	err := breaker.Call("narration-synthesis", func() error { return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	time.Sleep(40 * time.Millisecond)

	// The trial call is admitted and its success closes the circuit.
	assert.NoError(t, breaker.Call("narration-synthesis", func() error { return nil }))
	assert.Equal(t, resilience.CircuitClosed, breaker.State("narration-synthesis"))
}

// TestBreakerTrialFailureReopens verifies that a failed trial call sends the
// circuit straight back to Open with a fresh recovery timer.
func TestBreakerTrialFailureReopens(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  30 * time.Millisecond,
	})

	assert.Error(t, breaker.Call("video-synthesis", func() error { return errProvider }))
	time.Sleep(40 * time.Millisecond)

	assert.ErrorIs(t, breaker.Call("video-synthesis", func() error { return errProvider }), errProvider)
	assert.Equal(t, resilience.CircuitOpen, breaker.State("video-synthesis"))

	// Immediately after the failed trial the circuit rejects again.
	err := breaker.Call("video-synthesis", func() error { return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

// TestBreakerSingleTrialDuringHalfOpen verifies the concurrency policy for
// the HalfOpen state: when many callers race after the recovery timeout,
// exactly one reaches the provider and the rest fail fast with
// ErrCircuitOpen.
func TestBreakerSingleTrialDuringHalfOpen(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
	})

	assert.Error(t, breaker.Call("video-synthesis", func() error { return errProvider }))
	time.Sleep(20 * time.Millisecond)

	var mu sync.Mutex
	providerCalls := 0
	rejected := 0

	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := breaker.Call("video-synthesis", func() error {
				mu.Lock()
				providerCalls++
				mu.Unlock()
				// Hold the trial slot until every other goroutine has had a
				// chance to be turned away.
				<-release
				return nil
			})
			if errors.Is(err, resilience.ErrCircuitOpen) {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}

	// Let the losers run into the closed trial slot, then release the winner.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, providerCalls)
	assert.Equal(t, 7, rejected)
	assert.Equal(t, resilience.CircuitClosed, breaker.State("video-synthesis"))
}
