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

// Package orchestrator coordinates one media generation request end to end:
// script composition, concurrent video and narration synthesis, subtitle
// generation, and the final mux. The video track is the product; everything
// else degrades. A narration, subtitle, or mux failure produces a usable
// silent or un-merged artifact plus a warning, never a failed request.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/synthesis"
)

// Synthesizer is the slice of a synthesis client the orchestrator drives.
type Synthesizer interface {
	Submit(ctx context.Context, params synthesis.SubmitParams) (*model.SynthesisJob, error)
	Await(ctx context.Context, job *model.SynthesisJob) (model.JobStatus, error)
}

// Composer produces the narration script for a request.
type Composer interface {
	Compose(ctx context.Context, prompt, topic string, durationSeconds int) (string, error)
}

// Muxer fuses the generated tracks into the final artifact.
type Muxer interface {
	Mux(ctx context.Context, req model.MuxRequest) (model.MuxResult, error)
}

// ObjectStore is the slice of object storage the orchestrator writes
// subtitle files through.
type ObjectStore interface {
	Put(ctx context.Context, locator string, r io.Reader) (int64, error)
}

// Limits bounds the request shape accepted by the pipeline.
type Limits struct {
	MinDurationSeconds int `toml:"min_duration_seconds"`
	MaxDurationSeconds int `toml:"max_duration_seconds"`
}

// OutputSettings fixes the container and quality of the fused artifact.
type OutputSettings struct {
	Format  string `toml:"format"`
	Quality string `toml:"quality"`
}

// GenerationOrchestrator runs the full pipeline for one request at a time.
// It holds no per-request state; concurrent Generate calls are safe and
// share only the resilience machinery inside the injected clients.
type GenerationOrchestrator struct {
	video          Synthesizer
	narration      Synthesizer
	composer       Composer
	muxer          Muxer
	store          ObjectStore
	subtitleBucket string
	limits         Limits
	output         OutputSettings
	rates          RateTable
}

// NewGenerationOrchestrator wires the pipeline stages together.
func NewGenerationOrchestrator(
	video, narration Synthesizer,
	composer Composer,
	mux Muxer,
	store ObjectStore,
	subtitleBucket string,
	limits Limits,
	output OutputSettings,
	rates RateTable,
) *GenerationOrchestrator {
	if output.Format == "" {
		output.Format = "mp4"
	}
	return &GenerationOrchestrator{
		video:          video,
		narration:      narration,
		composer:       composer,
		muxer:          mux,
		store:          store,
		subtitleBucket: subtitleBucket,
		limits:         limits,
		output:         output,
		rates:          rates,
	}
}

// Validate checks a request against the configured limits. It is exposed so
// the API layer can reject bad requests before they enter the pipeline.
func (o *GenerationOrchestrator) Validate(req *model.GenerationRequest) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	if req.DurationSeconds < o.limits.MinDurationSeconds || req.DurationSeconds > o.limits.MaxDurationSeconds {
		return fmt.Errorf("duration %ds outside the allowed range [%d, %d]",
			req.DurationSeconds, o.limits.MinDurationSeconds, o.limits.MaxDurationSeconds)
	}
	return nil
}

// awaitOutcome carries one track's terminal state across the await channel.
type awaitOutcome struct {
	job    *model.SynthesisJob
	status model.JobStatus
	err    error
}

// Generate runs the pipeline for one request and always returns a
// structured result; the error return is reserved for a nil request or a
// canceled context.
//
// Inputs:
//   - ctx: the request context, threaded through every stage.
//   - req: the validated (or not yet validated) generation request.
//
// Outputs:
//   - *model.PipelineResult: the outcome, with Success tracking the video
//     stage only and every degradation recorded as a warning.
func (o *GenerationOrchestrator) Generate(ctx context.Context, req *model.GenerationRequest) *model.PipelineResult {
	start := time.Now()
	result := model.NewPipelineResult()
	finish := func() *model.PipelineResult {
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		return result
	}

	if err := o.Validate(req); err != nil {
		result.Error = err.Error()
		return finish()
	}

	// Script composition happens before submission so its length can feed
	// the cost estimate. A composition failure silences the clip.
	script := ""
	if req.AudioEnabled {
		s, err := o.composer.Compose(ctx, req.Prompt, req.Topic, req.DurationSeconds)
		if err != nil {
			o.warn(ctx, result, fmt.Sprintf("script composition failed, producing silent video: %v", err))
		} else {
			script = s
		}
	}
	result.CostEstimate = EstimateCost(req.DurationSeconds, len(script), o.rates)

	videoJob, err := o.video.Submit(ctx, synthesis.SubmitParams{
		Prompt:          req.Prompt,
		Topic:           req.Topic,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		result.Error = fmt.Sprintf("video synthesis submission failed: %v", err)
		return finish()
	}

	var narrationCh chan awaitOutcome
	if script != "" {
		narrationJob, err := o.narration.Submit(ctx, synthesis.SubmitParams{
			Script: script,
			Voice:  req.VoiceConfig,
		})
		if err != nil {
			o.warn(ctx, result, fmt.Sprintf("narration submission failed, producing silent video: %v", err))
		} else {
			narrationCh = o.awaitAsync(ctx, o.narration, narrationJob)
		}
	}
	videoCh := o.awaitAsync(ctx, o.video, videoJob)

	// The video track is fatal: a failed or timed-out video abandons the
	// narration await (its goroutine drains into the buffered channel).
	video := <-videoCh
	if video.err != nil || video.status != model.JobStatusCompleted {
		result.Error = videoFailureMessage(video)
		return finish()
	}

	audioLocator := ""
	if narrationCh != nil {
		narration := <-narrationCh
		if narration.err != nil || narration.status != model.JobStatusCompleted {
			o.warn(ctx, result, fmt.Sprintf("narration did not complete (%s), producing silent video", narrationStateLabel(narration)))
		} else {
			audioLocator = narration.job.ResultLocator
		}
	}

	subtitleLocator := ""
	if req.SubtitleEnabled {
		if script == "" {
			o.warn(ctx, result, "subtitles skipped: no narration script to caption")
		} else if loc, err := o.uploadSubtitles(ctx, script, req.DurationSeconds); err != nil {
			o.warn(ctx, result, fmt.Sprintf("subtitle generation failed, producing artifact without captions: %v", err))
		} else {
			subtitleLocator = loc
		}
	}

	// Nothing to merge means nothing to mux: the raw video is the artifact.
	if audioLocator == "" && subtitleLocator == "" {
		result.Success = true
		result.ArtifactLocator = videoJob.ResultLocator
		result.Metadata = model.ArtifactMetadata{
			DurationSeconds: req.DurationSeconds,
			Format:          o.output.Format,
		}
		return finish()
	}

	muxResult, err := o.muxer.Mux(ctx, model.MuxRequest{
		VideoLocator:    videoJob.ResultLocator,
		AudioLocator:    audioLocator,
		SubtitleLocator: subtitleLocator,
		OutputFormat:    o.output.Format,
		Quality:         o.output.Quality,
	})
	if err != nil {
		o.warn(ctx, result, fmt.Sprintf("mux failed, returning un-merged video: %v", err))
		muxResult = model.MuxResult{
			OutputLocator: videoJob.ResultLocator,
			HasAudio:      false,
			HasSubtitles:  false,
			Merged:        false,
		}
	}

	result.Success = true
	result.ArtifactLocator = muxResult.OutputLocator
	result.Metadata = model.ArtifactMetadata{
		DurationSeconds: req.DurationSeconds,
		FileSizeBytes:   muxResult.SizeBytes,
		Format:          o.output.Format,
		HasAudio:        muxResult.HasAudio,
		HasSubtitles:    muxResult.HasSubtitles,
		Merged:          muxResult.Merged,
	}
	return finish()
}

// awaitAsync waits for a job on its own goroutine. The channel is buffered
// so an abandoned await never leaks the goroutine.
func (o *GenerationOrchestrator) awaitAsync(ctx context.Context, client Synthesizer, job *model.SynthesisJob) chan awaitOutcome {
	ch := make(chan awaitOutcome, 1)
	go func() {
		status, err := client.Await(ctx, job)
		ch <- awaitOutcome{job: job, status: status, err: err}
	}()
	return ch
}

// uploadSubtitles builds the SRT for the script and stores it next to the
// other generated tracks.
func (o *GenerationOrchestrator) uploadSubtitles(ctx context.Context, script string, durationSeconds int) (string, error) {
	cues := synthesis.BuildSubtitleCues(script, time.Duration(durationSeconds)*time.Second)
	if len(cues) == 0 {
		return "", fmt.Errorf("script produced no subtitle cues")
	}
	locator := fmt.Sprintf("gs://%s/%s.srt", o.subtitleBucket, uuid.NewString())
	if _, err := o.store.Put(ctx, locator, strings.NewReader(synthesis.FormatSRT(cues))); err != nil {
		return "", fmt.Errorf("failed to upload subtitles: %w", err)
	}
	return locator, nil
}

// warn records a degradation on the result and in the log.
func (o *GenerationOrchestrator) warn(ctx context.Context, result *model.PipelineResult, message string) {
	result.Warnings = append(result.Warnings, message)
	slog.WarnContext(ctx, "pipeline degraded", "warning", message)
}

// videoFailureMessage names the way the fatal track ended.
func videoFailureMessage(outcome awaitOutcome) string {
	if outcome.err != nil {
		return fmt.Sprintf("video synthesis failed: %v", outcome.err)
	}
	if outcome.status == model.JobStatusTimedOut {
		return "video synthesis timed out"
	}
	return fmt.Sprintf("video synthesis ended in state %s", outcome.status)
}

// narrationStateLabel describes a failed narration await for the warning.
func narrationStateLabel(outcome awaitOutcome) string {
	if outcome.err != nil {
		return outcome.err.Error()
	}
	return string(outcome.status)
}
