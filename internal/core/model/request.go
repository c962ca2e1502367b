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
// This file contains the inbound request types: the immutable content
// request that starts a pipeline run, and the envelope it travels in when
// the run is triggered through Pub/Sub rather than the HTTP surface.
package model

// VoiceConfig describes how the narration track should sound. It is optional
// on a request; when absent the narration provider applies its own defaults.
type VoiceConfig struct {
	Voice    string  `json:"voice"`    // Provider-specific voice identifier (e.g., "en-US-Studio-O").
	Speed    float64 `json:"speed"`    // Speaking rate multiplier; 1.0 is normal speed.
	Language string  `json:"language"` // BCP-47 language tag (e.g., "en-US").
}

// GenerationRequest is the immutable input that spawns exactly one
// orchestrator run. It is never mutated after construction; derived state
// (jobs, mux requests, results) lives in run-scoped structures instead.
type GenerationRequest struct {
	Prompt          string       `json:"prompt"`                 // Free-text description of the visuals to synthesize.
	Topic           string       `json:"topic"`                  // The subject used for narration script composition.
	DurationSeconds int          `json:"duration_seconds"`       // Target artifact length in seconds.
	AudioEnabled    bool         `json:"audio_enabled"`          // Whether a narration track should be generated and merged.
	VoiceConfig     *VoiceConfig `json:"voice_config,omitempty"` // Optional narration voice settings.
	SubtitleEnabled bool         `json:"subtitle_enabled"`       // Whether subtitles should be burned into the merged artifact.
}

// TriggerEnvelope is the JSON payload delivered on the generation trigger
// subscription. The request id keys every derived object (result document,
// subtitle track) so that retried deliveries overwrite rather than duplicate.
type TriggerEnvelope struct {
	RequestID string            `json:"request_id"` // Caller-assigned id for the run; generated when empty.
	Request   GenerationRequest `json:"request"`    // The content request itself.
}
