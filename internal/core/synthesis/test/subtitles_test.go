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

package synthesis_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/synthesis"
)

func TestBuildSubtitleCuesCoverTheClip(t *testing.T) {
	script := "First sentence here. A much longer second sentence with more words! Short?"
	cues := synthesis.BuildSubtitleCues(script, 30*time.Second)
	require.Len(t, cues, 3)

	assert.Equal(t, time.Duration(0), cues[0].Start)
	for i := 1; i < len(cues); i++ {
		assert.Equal(t, cues[i-1].End, cues[i].Start, "cues must be contiguous")
		assert.True(t, cues[i].Index == cues[i-1].Index+1)
	}
	assert.Equal(t, 30*time.Second, cues[len(cues)-1].End, "last cue must end at clip end")

	// The longer sentence gets the larger share of time.
	assert.Greater(t, cues[1].End-cues[1].Start, cues[0].End-cues[0].Start)
}

func TestBuildSubtitleCuesEmptyInputs(t *testing.T) {
	assert.Nil(t, synthesis.BuildSubtitleCues("", 10*time.Second))
	assert.Nil(t, synthesis.BuildSubtitleCues("Hello there.", 0))
}

func TestFormatSRT(t *testing.T) {
	cues := []synthesis.SubtitleCue{
		{Index: 1, Start: 0, End: 1500 * time.Millisecond, Text: "Hello."},
		{Index: 2, Start: 1500 * time.Millisecond, End: 62 * time.Second, Text: "World."},
	}
	srt := synthesis.FormatSRT(cues)

	assert.Contains(t, srt, "1\n00:00:00,000 --> 00:00:01,500\nHello.\n\n")
	assert.Contains(t, srt, "2\n00:00:01,500 --> 00:01:02,000\nWorld.\n\n")
	assert.True(t, strings.HasSuffix(srt, "\n\n"))
}
