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
// up the generation workflow. This file defines the terminal command: it
// publishes the pipeline result to the result topic so the requester can
// correlate it back by request id.
package commands

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// resultEnvelope is the wire shape of a published result.
type resultEnvelope struct {
	RequestID string                `json:"request_id"`
	Result    *model.PipelineResult `json:"result"`
}

// GenerationResultPublisher publishes the final pipeline result as JSON to
// a Pub/Sub topic. A publish failure fails the chain, leaving the trigger
// unacked so the workflow re-runs.
type GenerationResultPublisher struct {
	cor.BaseCommand
	topic *pubsub.Topic
}

// NewGenerationResultPublisher creates the result publishing command.
func NewGenerationResultPublisher(name string, topic *pubsub.Topic) *GenerationResultPublisher {
	return &GenerationResultPublisher{
		BaseCommand: *cor.NewBaseCommand(name),
		topic:       topic,
	}
}

// Execute serializes the result together with the originating request id
// and publishes it, blocking until the server acknowledges the message.
func (c *GenerationResultPublisher) Execute(context cor.Context) {
	result := context.Get(c.GetInputParam()).(*model.PipelineResult)
	envelope := context.Get(GetTriggerEnvelopeName()).(*model.TriggerEnvelope)

	payload, err := json.Marshal(&resultEnvelope{
		RequestID: envelope.RequestID,
		Result:    result,
	})
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to marshal pipeline result: %w", err))
		return
	}

	publishResult := c.topic.Publish(context.GetContext(), &pubsub.Message{Data: payload})
	if _, err := publishResult.Get(context.GetContext()); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to publish pipeline result: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), result)
}
