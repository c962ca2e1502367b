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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/orchestrator"
)

func TestEstimateCostIsDeterministic(t *testing.T) {
	rates := orchestrator.RateTable{VideoPerSecond: 0.25, NarrationPerCharacter: 0.002}
	first := orchestrator.EstimateCost(30, 480, rates)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, orchestrator.EstimateCost(30, 480, rates))
	}
}

func TestEstimateCostIsLinear(t *testing.T) {
	rates := orchestrator.RateTable{VideoPerSecond: 0.25, NarrationPerCharacter: 0.002}

	base := orchestrator.EstimateCost(10, 100, rates)
	assert.InDelta(t, base+10*0.25, orchestrator.EstimateCost(20, 100, rates), 1e-9)
	assert.InDelta(t, base+100*0.002, orchestrator.EstimateCost(10, 200, rates), 1e-9)
	assert.InDelta(t, 2*base, orchestrator.EstimateCost(20, 200, rates), 1e-9)
}

func TestEstimateCostZeroAndNegativeInputs(t *testing.T) {
	rates := orchestrator.RateTable{VideoPerSecond: 0.25, NarrationPerCharacter: 0.002}

	assert.Zero(t, orchestrator.EstimateCost(0, 0, rates))
	assert.Zero(t, orchestrator.EstimateCost(-5, -100, rates))
	assert.InDelta(t, 100*0.002, orchestrator.EstimateCost(-5, 100, rates), 1e-9)
}
