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

// Package workflow assembles commands into the pipelines the service runs.
// This file implements the generation workflow: the chain executed for
// every trigger message pulled from the generation subscription.
package workflow

import (
	"cloud.google.com/go/pubsub"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/cor"
)

// GenerationWorkflow turns one trigger message into a published pipeline
// result. It parses the trigger, runs the generation pipeline, and
// publishes the outcome, in that order, stopping at the first command that
// records an error.
type GenerationWorkflow struct {
	cor.BaseCommand
	generator   commands.Generator
	resultTopic *pubsub.Topic
	chain       cor.Chain
}

// NewGenerationWorkflow creates the workflow and builds its chain.
func NewGenerationWorkflow(name string, generator commands.Generator, resultTopic *pubsub.Topic) *GenerationWorkflow {
	out := &GenerationWorkflow{
		BaseCommand: *cor.NewBaseCommand(name),
		generator:   generator,
		resultTopic: resultTopic,
	}
	out.initializeChain()
	return out
}

// Execute runs the workflow's chain with the trigger message as input.
func (w *GenerationWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// IsExecutable reports whether the workflow can run with the given context.
func (w *GenerationWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

// initializeChain builds the command sequence: parse the trigger, run the
// pipeline, publish the result.
func (w *GenerationWorkflow) initializeChain() {
	chain := cor.NewBaseChain(w.GetName())
	chain.AddCommand(commands.NewGenerationTriggerReader("generation-trigger-reader"))
	chain.AddCommand(commands.NewPipelineRunner("generation-pipeline-runner", w.generator))
	chain.AddCommand(commands.NewGenerationResultPublisher("generation-result-publisher", w.resultTopic))
	w.chain = chain
}
