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
// by every external-call adapter. This file implements the per-service
// circuit breaker.
//
// State machine, per service name:
//
//	Closed   -> Open      after FailureThreshold consecutive failures.
//	Open     -> HalfOpen  once RecoveryTimeout has elapsed since opening.
//	HalfOpen -> Closed    when the single trial call succeeds.
//	HalfOpen -> Open      when the trial call fails (the timer restarts).
//
// While Open, the protected function is never invoked; callers fail
// immediately with ErrCircuitOpen. While HalfOpen exactly one trial call is
// admitted; concurrent callers arriving during the trial are rejected with
// ErrCircuitOpen rather than queued, so a recovering provider sees one probe
// at a time.
//
// The breaker registry is the only state in this core that is shared across
// concurrently running pipelines, so every outcome is applied under a single
// mutex in one mutation point.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is rejected without contacting the
// provider because the service's circuit is Open (or its HalfOpen trial slot
// is taken).
var ErrCircuitOpen = errors.New("circuit open")

// CircuitState enumerates the breaker states for one service.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the conventional name for the state.
func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerSettings carries the two tunables of the breaker.
type BreakerSettings struct {
	FailureThreshold int           // Consecutive failures that open the circuit.
	RecoveryTimeout  time.Duration // How long an Open circuit waits before admitting a trial call.
}

// serviceCircuit is the mutable record for one service name. It is only ever
// touched while holding the registry mutex.
type serviceCircuit struct {
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	probing             bool // True while the single HalfOpen trial call is in flight.
}

// CircuitBreaker tracks failures per external service name and fast-fails
// calls to services that are currently considered unhealthy. One instance is
// shared by all pipeline runs in the process.
type CircuitBreaker struct {
	mu       sync.Mutex
	settings BreakerSettings
	services map[string]*serviceCircuit
	now      func() time.Time
}

// NewCircuitBreaker creates a registry with the given settings. Zero-valued
// settings fall back to five failures and a thirty second recovery window.
func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.RecoveryTimeout <= 0 {
		settings.RecoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		settings: settings,
		services: make(map[string]*serviceCircuit),
		now:      time.Now,
	}
}

// Call runs fn under the circuit for serviceName. When the circuit is Open
// (or the HalfOpen trial slot is occupied) fn is never invoked and the call
// fails immediately with ErrCircuitOpen.
func (b *CircuitBreaker) Call(serviceName string, fn func() error) error {
	admitted, trial := b.admit(serviceName)
	if !admitted {
		return fmt.Errorf("%s: %w", serviceName, ErrCircuitOpen)
	}

	err := fn()
	b.record(serviceName, trial, err == nil)
	return err
}

// State reports the current state for a service. Unknown services are Closed.
func (b *CircuitBreaker) State(serviceName string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.services[serviceName]; ok {
		return c.state
	}
	return CircuitClosed
}

// admit decides whether a call may proceed and whether it is the HalfOpen
// trial call. It is the only place a circuit moves from Open to HalfOpen.
func (b *CircuitBreaker) admit(serviceName string) (admitted bool, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(serviceName)
	switch c.state {
	case CircuitClosed:
		return true, false
	case CircuitOpen:
		if b.now().Sub(c.openedAt) < b.settings.RecoveryTimeout {
			return false, false
		}
		c.state = CircuitHalfOpen
		c.probing = true
		return true, true
	default: // CircuitHalfOpen
		if c.probing {
			return false, false
		}
		c.probing = true
		return true, true
	}
}

// record applies a call outcome. It is the single mutation point for every
// state transition that follows an actual provider call.
func (b *CircuitBreaker) record(serviceName string, trial bool, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(serviceName)
	if success {
		c.state = CircuitClosed
		c.consecutiveFailures = 0
		c.probing = false
		return
	}

	if trial || c.state == CircuitHalfOpen {
		c.state = CircuitOpen
		c.openedAt = b.now()
		c.probing = false
		return
	}

	c.consecutiveFailures++
	if c.consecutiveFailures >= b.settings.FailureThreshold {
		c.state = CircuitOpen
		c.openedAt = b.now()
	}
}

// circuit returns the record for a service, creating it on first use.
// Callers must hold the mutex.
func (b *CircuitBreaker) circuit(serviceName string) *serviceCircuit {
	c, ok := b.services[serviceName]
	if !ok {
		c = &serviceCircuit{state: CircuitClosed}
		b.services[serviceName] = c
	}
	return c
}
