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

package orchestrator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/orchestrator"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/synthesis"
	"github.com/jaycherian/gcp-go-media-forge/internal/testutil"
)

// fakeSynthesizer scripts one track's behavior.
type fakeSynthesizer struct {
	kind        model.JobKind
	locator     string
	submitErr   error
	awaitStatus model.JobStatus
	awaitErr    error
	submitted   *synthesis.SubmitParams
}

func (f *fakeSynthesizer) Submit(_ context.Context, params synthesis.SubmitParams) (*model.SynthesisJob, error) {
	f.submitted = &params
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	job := model.NewSynthesisJob(f.kind)
	job.ExternalJobId = "ext-" + string(f.kind)
	job.ResultLocator = f.locator
	job.Transition(model.JobStatusRunning)
	return job, nil
}

func (f *fakeSynthesizer) Await(_ context.Context, job *model.SynthesisJob) (model.JobStatus, error) {
	job.Transition(f.awaitStatus)
	return f.awaitStatus, f.awaitErr
}

type fakeComposer struct {
	script string
	err    error
}

func (f *fakeComposer) Compose(_ context.Context, _, _ string, _ int) (string, error) {
	return f.script, f.err
}

type fakeMuxer struct {
	request *model.MuxRequest
	result  model.MuxResult
	err     error
}

func (f *fakeMuxer) Mux(_ context.Context, req model.MuxRequest) (model.MuxResult, error) {
	f.request = &req
	if f.err != nil {
		return model.MuxResult{}, f.err
	}
	return f.result, nil
}

type fixture struct {
	video     *fakeSynthesizer
	narration *fakeSynthesizer
	composer  *fakeComposer
	muxer     *fakeMuxer
	store     *testutil.MemoryObjectStore
	subject   *orchestrator.GenerationOrchestrator
}

func newFixture() *fixture {
	f := &fixture{
		video: &fakeSynthesizer{
			kind:        model.JobKindVideo,
			locator:     "gs://gen/video.mp4",
			awaitStatus: model.JobStatusCompleted,
		},
		narration: &fakeSynthesizer{
			kind:        model.JobKindNarration,
			locator:     "gs://gen/narration.wav",
			awaitStatus: model.JobStatusCompleted,
		},
		composer: &fakeComposer{script: "A short story. With two sentences."},
		muxer: &fakeMuxer{result: model.MuxResult{
			OutputLocator: "gs://artifacts/final.mp4",
			SizeBytes:     2048,
			HasAudio:      true,
			HasSubtitles:  false,
			Merged:        true,
		}},
		store: testutil.NewMemoryObjectStore(),
	}
	f.subject = orchestrator.NewGenerationOrchestrator(
		f.video, f.narration, f.composer, f.muxer, f.store,
		"forge-subtitles",
		orchestrator.Limits{MinDurationSeconds: 5, MaxDurationSeconds: 60},
		orchestrator.OutputSettings{Format: "mp4", Quality: "standard"},
		orchestrator.RateTable{VideoPerSecond: 0.10, NarrationPerCharacter: 0.001},
	)
	return f
}

func validRequest() *model.GenerationRequest {
	return &model.GenerationRequest{
		Prompt:          "a lighthouse in a storm",
		Topic:           "the sea",
		DurationSeconds: 20,
		AudioEnabled:    true,
	}
}

func TestGenerateFullSuccess(t *testing.T) {
	f := newFixture()
	result := f.subject.Generate(context.Background(), validRequest())

	assert.True(t, result.Success)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Error)
	assert.Equal(t, "gs://artifacts/final.mp4", result.ArtifactLocator)
	assert.True(t, result.Metadata.HasAudio)
	assert.True(t, result.Metadata.Merged)
	assert.Equal(t, int64(2048), result.Metadata.FileSizeBytes)
	assert.Equal(t, 20, result.Metadata.DurationSeconds)
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(0))

	// Cost covers both the video seconds and the composed script.
	want := 20*0.10 + float64(len(f.composer.script))*0.001
	assert.InDelta(t, want, result.CostEstimate, 1e-9)

	require.NotNil(t, f.muxer.request)
	assert.Equal(t, "gs://gen/video.mp4", f.muxer.request.VideoLocator)
	assert.Equal(t, "gs://gen/narration.wav", f.muxer.request.AudioLocator)
	require.NotNil(t, f.narration.submitted)
	assert.Equal(t, f.composer.script, f.narration.submitted.Script)
}

func TestGenerateValidationFailureIsFreeAndFast(t *testing.T) {
	f := newFixture()

	cases := []*model.GenerationRequest{
		{Prompt: "", DurationSeconds: 20},
		{Prompt: "fine", DurationSeconds: 2},
		{Prompt: "fine", DurationSeconds: 600},
	}
	for _, req := range cases {
		result := f.subject.Generate(context.Background(), req)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
		assert.Zero(t, result.CostEstimate, "rejected requests must not be priced")
		assert.Nil(t, f.video.submitted, "rejected requests must never reach a provider")
	}
}

func TestGenerateVideoFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.video.awaitStatus = model.JobStatusFailed

	result := f.subject.Generate(context.Background(), validRequest())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "video synthesis")
	assert.Empty(t, result.ArtifactLocator)
	assert.Nil(t, f.muxer.request, "a failed video must never reach the muxer")
	assert.NotZero(t, result.CostEstimate, "cost is estimated before synthesis runs")
}

func TestGenerateVideoTimeoutIsFatal(t *testing.T) {
	f := newFixture()
	f.video.awaitStatus = model.JobStatusTimedOut

	result := f.subject.Generate(context.Background(), validRequest())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
}

func TestGenerateNarrationFailureDegradesToSilentVideo(t *testing.T) {
	f := newFixture()
	f.narration.awaitStatus = model.JobStatusTimedOut

	result := f.subject.Generate(context.Background(), validRequest())

	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "narration")
	assert.False(t, result.Metadata.HasAudio)
	// With the narration track gone and no subtitles there is nothing left
	// to merge, so the raw video ships as-is.
	assert.Nil(t, f.muxer.request, "failed narration must not be muxed")
	assert.Equal(t, "gs://gen/video.mp4", result.ArtifactLocator)
	assert.False(t, result.Metadata.Merged)
}

func TestGenerateNarrationSubmitFailureDegrades(t *testing.T) {
	f := newFixture()
	f.narration.submitErr = assert.AnError

	result := f.subject.Generate(context.Background(), validRequest())

	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "narration submission failed")
}

func TestGenerateScriptFailureDegrades(t *testing.T) {
	f := newFixture()
	f.composer.err = assert.AnError

	result := f.subject.Generate(context.Background(), validRequest())

	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "script composition failed")
	assert.Nil(t, f.narration.submitted, "no script means no narration job")
	// Only the video seconds are priced when there is no script.
	assert.InDelta(t, 20*0.10, result.CostEstimate, 1e-9)
}

func TestGenerateMuxFailureReturnsUnmergedVideo(t *testing.T) {
	f := newFixture()
	f.muxer.err = assert.AnError

	result := f.subject.Generate(context.Background(), validRequest())

	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "mux failed")
	assert.Equal(t, "gs://gen/video.mp4", result.ArtifactLocator, "degraded artifact is the raw video")
	assert.False(t, result.Metadata.Merged)
	assert.False(t, result.Metadata.HasAudio)
}

func TestGenerateAudioDisabledSkipsNarration(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.AudioEnabled = false

	result := f.subject.Generate(context.Background(), req)

	assert.True(t, result.Success)
	assert.Empty(t, result.Warnings)
	assert.Nil(t, f.narration.submitted)
	// With no audio and no subtitles there is nothing to merge, so the mux
	// step is skipped entirely and the raw video is the artifact.
	assert.Nil(t, f.muxer.request)
	assert.Equal(t, f.video.locator, result.ArtifactLocator)
	assert.False(t, result.Metadata.HasAudio)
	assert.False(t, result.Metadata.Merged)
	assert.InDelta(t, 20*0.10, result.CostEstimate, 1e-9)
}

func TestGenerateSubtitlesWithoutScriptWarns(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.AudioEnabled = false
	req.SubtitleEnabled = true

	result := f.subject.Generate(context.Background(), req)

	// No narration means no script to caption: the artifact still ships,
	// but the caller is told why the captions are missing.
	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "subtitles skipped")
	assert.Nil(t, f.muxer.request)
	assert.Equal(t, f.video.locator, result.ArtifactLocator)
}

func TestGenerateSubtitlesUploadedAndPassedToMux(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.SubtitleEnabled = true

	result := f.subject.Generate(context.Background(), req)

	assert.True(t, result.Success)
	require.NotNil(t, f.muxer.request)
	require.NotEmpty(t, f.muxer.request.SubtitleLocator)
	assert.True(t, strings.HasPrefix(f.muxer.request.SubtitleLocator, "gs://forge-subtitles/"))
	assert.Greater(t, f.store.Size(f.muxer.request.SubtitleLocator), int64(0))
}

func TestGenerateSubtitleUploadFailureDegrades(t *testing.T) {
	f := newFixture()
	f.store.PutErr = assert.AnError
	req := validRequest()
	req.SubtitleEnabled = true

	result := f.subject.Generate(context.Background(), req)

	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "subtitle")
	require.NotNil(t, f.muxer.request)
	assert.Empty(t, f.muxer.request.SubtitleLocator)
}
