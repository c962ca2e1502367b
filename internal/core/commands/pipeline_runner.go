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

// Package commands provides the concrete Command implementations that make
// up the generation workflow. This file defines the command that runs the
// full generation pipeline for one parsed trigger.
package commands

import (
	"context"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// Generator runs the generation pipeline for one request. It is the
// orchestrator's surface as seen from the workflow.
type Generator interface {
	Generate(ctx context.Context, req *model.GenerationRequest) *model.PipelineResult
}

// PipelineRunner executes the generation pipeline for the envelope produced
// by the trigger reader. A pipeline that ran to a result, even a failed
// one, is a successful command execution: the result travels on to the
// publisher so the requester learns the outcome, and the trigger message is
// acked rather than redelivered into the same failure.
type PipelineRunner struct {
	cor.BaseCommand
	generator Generator
}

// NewPipelineRunner creates the pipeline execution command.
func NewPipelineRunner(name string, generator Generator) *PipelineRunner {
	return &PipelineRunner{
		BaseCommand: *cor.NewBaseCommand(name),
		generator:   generator,
	}
}

// Execute runs the pipeline and pipes the result to the next command. The
// pipeline's warnings are mirrored onto the chain context so the publisher
// and the listener's telemetry both see them.
func (c *PipelineRunner) Execute(context cor.Context) {
	envelope := context.Get(c.GetInputParam()).(*model.TriggerEnvelope)

	result := c.generator.Generate(context.GetContext(), &envelope.Request)
	for _, w := range result.Warnings {
		context.AddWarning(w)
	}

	if result.Success {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
	} else {
		c.GetErrorCounter().Add(context.GetContext(), 1)
	}

	context.Add(c.GetOutputParam(), result)
}
