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
// This file holds the fusion-stage types (MuxRequest, MuxResult) and the
// structured PipelineResult returned for every run, successful or not.
package model

// MuxRequest describes one invocation of the external muxing tool. It must
// only be constructed once every referenced job is in the Completed state;
// the orchestrator enforces that invariant before handing it to the muxer.
type MuxRequest struct {
	VideoLocator    string `json:"video_locator"`              // Required storage locator of the completed video.
	AudioLocator    string `json:"audio_locator,omitempty"`    // Optional narration track locator.
	SubtitleLocator string `json:"subtitle_locator,omitempty"` // Optional subtitle (SRT) locator for burn-in.
	OutputFormat    string `json:"output_format"`              // Container format of the merged artifact (e.g., "mp4").
	Quality         string `json:"quality"`                    // Encoding quality tier: "low", "standard", or "high".
}

// MuxResult reports the outcome of a merge. Merged=false means the pipeline
// degraded and OutputLocator is the original, un-merged video locator.
type MuxResult struct {
	OutputLocator string `json:"output_locator"`
	SizeBytes     int64  `json:"size_bytes"`
	HasAudio      bool   `json:"has_audio"`
	HasSubtitles  bool   `json:"has_subtitles"`
	Merged        bool   `json:"merged"`
}

// ArtifactMetadata summarizes the final artifact for downstream consumers
// (the upload/publishing component reads this together with the locator).
type ArtifactMetadata struct {
	DurationSeconds int    `json:"duration_seconds"`
	FileSizeBytes   int64  `json:"file_size_bytes"`
	Format          string `json:"format"`
	HasAudio        bool   `json:"has_audio"`
	HasSubtitles    bool   `json:"has_subtitles"`
	Merged          bool   `json:"merged"`
}

// PipelineResult is the structured outcome of one orchestrator run. Success
// tracks the video stage only; narration and mux degradation are surfaced
// through the metadata flags and the warnings list rather than by failing
// the request.
type PipelineResult struct {
	Success         bool             `json:"success"`
	ArtifactLocator string           `json:"artifact_locator,omitempty"`
	Metadata        ArtifactMetadata `json:"metadata"`
	CostEstimate    float64          `json:"cost_estimate"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	Warnings        []string         `json:"warnings"`
	Error           string           `json:"error,omitempty"`
}

// NewPipelineResult returns a result with the warnings slice initialized so
// callers can range and marshal it without nil checks.
func NewPipelineResult() *PipelineResult {
	return &PipelineResult{Warnings: make([]string, 0)}
}
