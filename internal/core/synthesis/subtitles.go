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

package synthesis

import (
	"fmt"
	"strings"
	"time"
)

// SubtitleCue is one timed caption.
type SubtitleCue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// BuildSubtitleCues splits a narration script into sentence-level cues and
// spreads them across the clip duration in proportion to sentence length.
// Pacing by character count tracks speech timing closely enough for short
// clips without needing word-level alignment from the narration service.
func BuildSubtitleCues(script string, duration time.Duration) []SubtitleCue {
	sentences := splitSentences(script)
	if len(sentences) == 0 || duration <= 0 {
		return nil
	}

	total := 0
	for _, s := range sentences {
		total += len(s)
	}

	cues := make([]SubtitleCue, 0, len(sentences))
	cursor := time.Duration(0)
	for i, s := range sentences {
		span := time.Duration(float64(duration) * float64(len(s)) / float64(total))
		end := cursor + span
		if i == len(sentences)-1 {
			end = duration
		}
		cues = append(cues, SubtitleCue{
			Index: i + 1,
			Start: cursor,
			End:   end,
			Text:  s,
		})
		cursor = end
	}
	return cues
}

// FormatSRT renders cues in SubRip format, the subtitle format the muxer's
// burn-in filter consumes.
func FormatSRT(cues []SubtitleCue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue.Index, srtTimestamp(cue.Start), srtTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

// srtTimestamp formats a duration as HH:MM:SS,mmm.
func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// splitSentences breaks a script on sentence-ending punctuation, keeping
// the punctuation with its sentence and dropping empty fragments.
func splitSentences(script string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range strings.TrimSpace(script) {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
