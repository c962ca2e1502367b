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

// Package synthesis contains the adapters for the external generation
// services: the provider boundary, its error taxonomy, and the clients that
// wrap providers with circuit breaking, retries, and bounded polling.
//
// This file defines the provider contract and the error classification that
// drives retry decisions. Provider failures fall into four kinds:
// RateLimited, InvalidInput, ServiceUnavailable, and Unknown. InvalidInput
// is never retried and is propagated immediately; every other kind is
// retryable under the adapter's RetryPolicy.
package synthesis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// FailureKind classifies an error from a synthesis provider.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureRateLimited
	FailureInvalidInput
	FailureServiceUnavailable
)

// String returns the short name used in logs and warnings.
func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate-limited"
	case FailureInvalidInput:
		return "invalid-input"
	case FailureServiceUnavailable:
		return "service-unavailable"
	default:
		return "unknown"
	}
}

// ProviderError carries a classified failure from a synthesis provider.
type ProviderError struct {
	Service string      // The external service name (matches the circuit breaker key).
	Kind    FailureKind // The failure classification.
	Message string      // Provider-supplied detail, if any.
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Service, e.Kind, e.Message)
}

// KindOf extracts the failure classification from an error chain. Errors
// that did not originate from a provider classify as Unknown.
func KindOf(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureUnknown
}

// IsRetryable reports whether a provider failure is worth retrying.
// InvalidInput means the request itself can never succeed, so it is the one
// classification that always stops the retry loop.
func IsRetryable(err error) bool {
	return KindOf(err) != FailureInvalidInput
}

// JobHandle identifies a submitted job at its provider: the provider-issued
// job id plus the storage locator the provider will write the output to.
type JobHandle struct {
	ExternalJobId string
	OutputLocator string
}

// SubmitParams carries everything a provider needs to start a generation
// job. Video providers read Prompt and DurationSeconds; the narration
// provider reads Script and Voice.
type SubmitParams struct {
	Prompt          string
	Topic           string
	DurationSeconds int
	Script          string
	Voice           *model.VoiceConfig
}

// Provider is the boundary to one external synthesis service. Real
// implementations talk HTTP; tests substitute scripted fakes.
type Provider interface {
	// Submit starts a generation job and returns its handle.
	Submit(ctx context.Context, params SubmitParams) (JobHandle, error)

	// Status reports the current lifecycle state of a submitted job.
	Status(ctx context.Context, handle JobHandle) (model.JobStatus, error)
}
