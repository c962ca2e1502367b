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

// Package cloud_test exercises the hierarchical configuration loader and
// the locator parsing that underpins the object store.
package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-forge/internal/cloud"
	"github.com/jaycherian/gcp-go-media-forge/internal/testutil"
)

const baseConfigToml = `
[application]
name = "media-forge"
google_project_id = "base-project"
thread_pool_size = 4

[storage]
artifact_bucket = "base-artifacts"
subtitle_bucket = "base-subtitles"

[providers.video]
base_url = "https://video.example.com"
output_bucket = "video-tracks"
file_extension = "mp4"
poll_interval_seconds = 5
max_wait_seconds = 600

[resilience]
retry_max_attempts = 3
retry_base_delay_ms = 500
breaker_failure_threshold = 5
breaker_recovery_timeout_seconds = 30

[cost_rates]
video_per_second = 0.10
narration_per_character = 0.001
estimated_script_characters = 400

[request_limits]
min_duration_seconds = 5
max_duration_seconds = 60

[trigger_topics]
generation = "base-triggers"

[result_topics]
results = "base-results"
`

const overlayConfigToml = `
[application]
google_project_id = "test-project"

[storage]
artifact_bucket = "test-artifacts"

[providers.video]
base_url = "http://localhost:9080"
poll_interval_seconds = 1
`

// writeConfigs lays a base file and a test overlay into a temp directory
// and points the loader environment variables at it.
func writeConfigs(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(baseConfigToml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test.toml"), []byte(overlayConfigToml), 0o644))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "test")
}

func TestLoadConfigOverlayWins(t *testing.T) {
	writeConfigs(t)

	config := cloud.NewConfig()
	cloud.LoadConfig(&config)

	// Overlay values replace the base.
	assert.Equal(t, "test-project", config.Application.GoogleProjectId)
	assert.Equal(t, "test-artifacts", config.Storage.ArtifactBucket)

	// Base values survive where the overlay is silent.
	assert.Equal(t, "media-forge", config.Application.Name)
	assert.Equal(t, "base-subtitles", config.Storage.SubtitleBucket)
	assert.Equal(t, 3, config.Resilience.RetryMaxAttempts)
	assert.InDelta(t, 0.10, config.CostRates.VideoPerSecond, 1e-9)
	assert.Equal(t, 400, config.CostRates.EstimatedScriptChars)
	assert.Equal(t, "base-triggers", config.TriggerTopics["generation"])
	assert.Equal(t, "base-results", config.ResultTopics["results"])
}

func TestLoadConfigOverlayReplacesProviderTablesWholesale(t *testing.T) {
	writeConfigs(t)

	config := cloud.NewConfig()
	cloud.LoadConfig(&config)

	video, ok := config.Providers["video"]
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9080", video.BaseURL)
	assert.Equal(t, 1, video.PollIntervalSeconds)
	// A map-valued table is replaced as a unit, not merged field-wise:
	// fields the overlay omits decode to their zero values, which is why
	// overlays must carry complete provider tables.
	assert.Empty(t, video.OutputBucket)
	assert.Empty(t, video.FileExtension)
	assert.Zero(t, video.MaxWaitSeconds)
}

func TestGetConfigLoadsShippedTestOverlay(t *testing.T) {
	// Register cleanups so the process-wide variables SetupOS exports do
	// not bleed into the other loader tests.
	t.Setenv(cloud.EnvConfigFilePrefix, "")
	t.Setenv(cloud.EnvConfigRuntime, "")

	err := testutil.SetupOS()
	testutil.HandleErr(err, t)

	config := testutil.GetConfig()
	require.NotNil(t, config)
	assert.Equal(t, "media-forge-test", config.Application.Name)
	assert.Equal(t, "media-forge-test-artifacts", config.Storage.ArtifactBucket)

	// The shipped test overlay carries complete provider tables.
	video, ok := config.Providers["video"]
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9080", video.BaseURL)
	assert.Equal(t, "media-forge-test-video-tracks", video.OutputBucket)
	assert.Equal(t, 10, video.MaxWaitSeconds)
}

func TestLoadConfigRuntimeDefaultsToTest(t *testing.T) {
	writeConfigs(t)
	t.Setenv(cloud.EnvConfigRuntime, "")

	config := cloud.NewConfig()
	cloud.LoadConfig(&config)

	assert.Equal(t, "test-project", config.Application.GoogleProjectId)
}

func TestParseLocator(t *testing.T) {
	bucket, object, err := cloud.ParseLocator("gs://my-bucket/path/to/object.mp4")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/object.mp4", object)
}

func TestParseLocatorRejectsBadInput(t *testing.T) {
	for _, locator := range []string{
		"http://example.com/object",
		"gs://bucket-only",
		"gs:///object-only",
		"gs://",
		"",
	} {
		_, _, err := cloud.ParseLocator(locator)
		assert.Error(t, err, "locator %q should be rejected", locator)
	}
}
