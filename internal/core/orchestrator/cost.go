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

package orchestrator

// RateTable holds the unit prices used for cost estimation. Rates are
// configuration, never hardcoded, so price changes do not need a release.
type RateTable struct {
	VideoPerSecond       float64 `toml:"video_per_second"`
	NarrationPerCharacter float64 `toml:"narration_per_character"`
}

// EstimateCost computes the price of one generation request: a linear
// function of video duration and narration script length. The estimate is
// deterministic, so the same request always prices the same.
func EstimateCost(durationSeconds int, scriptCharacters int, rates RateTable) float64 {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	if scriptCharacters < 0 {
		scriptCharacters = 0
	}
	return float64(durationSeconds)*rates.VideoPerSecond +
		float64(scriptCharacters)*rates.NarrationPerCharacter
}
